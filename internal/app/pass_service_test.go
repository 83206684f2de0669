package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/clock"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"go.uber.org/zap"
)

func TestPassService_Issue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	makeSvc := func(repo *fakePassRepo) *PassService {
		return NewPassService(repo, &fakeRenderer{}, &fakeSender{}, clock.NewFixed(now), zap.NewNop())
	}

	t.Run("mints a pass with a fresh token", func(t *testing.T) {
		repo := newFakePassRepo()
		svc := makeSvc(repo)

		pass, created, err := svc.Issue(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !created {
			t.Fatalf("expected created=true")
		}
		if pass.Token == "" {
			t.Fatalf("expected token to be set")
		}
		if pass.CreatedAt != now {
			t.Fatalf("expected created_at %v, got %v", now, pass.CreatedAt)
		}
	})

	t.Run("second issue returns the existing pass", func(t *testing.T) {
		repo := newFakePassRepo()
		svc := makeSvc(repo)

		first, _, err := svc.Issue(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, created, err := svc.Issue(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if created {
			t.Fatalf("expected created=false on reissue")
		}
		if second.Token != first.Token {
			t.Fatalf("expected same token, got %s vs %s", second.Token, first.Token)
		}
		if len(repo.passes) != 1 {
			t.Fatalf("expected one pass row, got %d", len(repo.passes))
		}
	})

	t.Run("concurrent insert loser reloads the winner", func(t *testing.T) {
		repo := newFakePassRepo()
		repo.conflictOnce = true
		svc := makeSvc(repo)

		pass, created, err := svc.Issue(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if created {
			t.Fatalf("expected created=false for insert loser")
		}
		if pass.Token != "winner-token" {
			t.Fatalf("expected winner's pass, got %s", pass.Token)
		}
	})
}

func TestPassService_Verify(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	repo := newFakePassRepo()
	repo.summaries["tok-1"] = domain.ReservationSummary{
		ReservationID: "res-1",
		VendorID:      "vendor-1",
		StallCodes:    []string{"A-01", "A-02"},
		Status:        domain.ReservationConfirmed,
	}
	svc := NewPassService(repo, &fakeRenderer{}, &fakeSender{}, clock.NewFixed(now), zap.NewNop())

	t.Run("resolves a valid token repeatedly", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			summary, err := svc.Verify(context.Background(), "tok-1")
			if err != nil {
				t.Fatalf("expected no error on scan %d, got %v", i+1, err)
			}
			if summary.ReservationID != "res-1" {
				t.Fatalf("expected res-1, got %s", summary.ReservationID)
			}
			if len(summary.StallCodes) != 2 {
				t.Fatalf("expected 2 stall codes, got %d", len(summary.StallCodes))
			}
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if _, err := svc.Verify(context.Background(), "ghost"); err != domain.ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := svc.Verify(context.Background(), ""); err != domain.ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestPassService_Deliver(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	t.Run("renders and sends the pass", func(t *testing.T) {
		repo := newFakePassRepo()
		repo.summaries["tok-1"] = domain.ReservationSummary{ReservationID: "res-1", StallCodes: []string{"A-01"}}
		sender := &fakeSender{}
		svc := NewPassService(repo, &fakeRenderer{}, sender, clock.NewFixed(now), zap.NewNop())

		svc.Deliver(context.Background(), "ann@fair.lk", domain.Pass{ReservationID: "res-1", Token: "tok-1"})

		if len(sender.sent) != 1 {
			t.Fatalf("expected 1 send, got %d", len(sender.sent))
		}
		if sender.sent[0] != "ann@fair.lk" {
			t.Fatalf("expected recipient ann@fair.lk, got %s", sender.sent[0])
		}
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		repo := newFakePassRepo()
		repo.summaries["tok-1"] = domain.ReservationSummary{ReservationID: "res-1"}
		sender := &fakeSender{err: errors.New("smtp down")}
		svc := NewPassService(repo, &fakeRenderer{}, sender, clock.NewFixed(now), zap.NewNop())

		svc.Deliver(context.Background(), "ann@fair.lk", domain.Pass{ReservationID: "res-1", Token: "tok-1"})
	})
}

type fakePassRepo struct {
	passes       map[string]domain.Pass
	summaries    map[string]domain.ReservationSummary
	conflictOnce bool
}

func newFakePassRepo() *fakePassRepo {
	return &fakePassRepo{
		passes:    make(map[string]domain.Pass),
		summaries: make(map[string]domain.ReservationSummary),
	}
}

func (f *fakePassRepo) GetByReservationID(_ context.Context, reservationID string) (*domain.Pass, error) {
	for i := range f.passes {
		if f.passes[i].ReservationID == reservationID {
			p := f.passes[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePassRepo) Create(_ context.Context, pass domain.Pass) error {
	if f.conflictOnce {
		f.conflictOnce = false
		winner := domain.Pass{ID: "pass-winner", ReservationID: pass.ReservationID, Token: "winner-token"}
		f.passes[winner.ID] = winner
		return domain.ErrPassExists
	}
	f.passes[pass.ID] = pass
	return nil
}

func (f *fakePassRepo) SummaryByToken(_ context.Context, token string) (domain.ReservationSummary, error) {
	summary, ok := f.summaries[token]
	if !ok {
		return domain.ReservationSummary{}, domain.ErrInvalidToken
	}
	return summary, nil
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(payload string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + payload), nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendPass(recipient string, image []byte, summary domain.ReservationSummary) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipient)
	return nil
}
