package app

import (
	"context"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/clock"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"go.uber.org/zap"
)

type PassRepository interface {
	GetByReservationID(ctx context.Context, reservationID string) (*domain.Pass, error)
	Create(ctx context.Context, pass domain.Pass) error
	SummaryByToken(ctx context.Context, token string) (domain.ReservationSummary, error)
}

// PassRenderer turns a token into a scannable image.
type PassRenderer interface {
	Render(payload string) ([]byte, error)
}

// PassSender hands the rendered pass to the vendor.
type PassSender interface {
	SendPass(recipient string, image []byte, summary domain.ReservationSummary) error
}

// PassService mints and verifies gate passes. Issue runs inside the payment
// confirmation transaction; Deliver runs after commit because it talks to
// SMTP and must never hold a row lock.
type PassService struct {
	repo     PassRepository
	renderer PassRenderer
	sender   PassSender
	clock    clock.Clock
	logger   *zap.Logger
}

func NewPassService(repo PassRepository, renderer PassRenderer, sender PassSender, clk clock.Clock, logger *zap.Logger) *PassService {
	return &PassService{
		repo:     repo,
		renderer: renderer,
		sender:   sender,
		clock:    clk,
		logger:   logger,
	}
}

// Issue creates the pass row for a reservation, at most once. The second
// return reports whether this call created it; an existing pass is returned
// as-is so retried confirmations stay silent.
func (s *PassService) Issue(ctx context.Context, reservationID string) (domain.Pass, bool, error) {
	existing, err := s.repo.GetByReservationID(ctx, reservationID)
	if err != nil {
		return domain.Pass{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	token, err := newPassToken()
	if err != nil {
		return domain.Pass{}, false, err
	}

	pass := domain.Pass{
		ID:            newID(),
		ReservationID: reservationID,
		Token:         token,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Create(ctx, pass); err != nil {
		if err == domain.ErrPassExists {
			// a concurrent confirmation won the insert; hand back its pass
			existing, err := s.repo.GetByReservationID(ctx, reservationID)
			if err != nil {
				return domain.Pass{}, false, err
			}
			if existing != nil {
				return *existing, false, nil
			}
		}
		return domain.Pass{}, false, err
	}
	return pass, true, nil
}

// Deliver renders the QR image and mails it. Best effort by design: the
// payment is already settled, so failures are logged for an operator resend
// rather than propagated.
func (s *PassService) Deliver(ctx context.Context, recipient string, pass domain.Pass) {
	summary, err := s.repo.SummaryByToken(ctx, pass.Token)
	if err != nil {
		s.logger.Error("pass delivery: load summary failed",
			zap.String("reservation_id", pass.ReservationID),
			zap.Error(err))
		return
	}

	image, err := s.renderer.Render(pass.Token)
	if err != nil {
		s.logger.Error("pass delivery: render failed",
			zap.String("reservation_id", pass.ReservationID),
			zap.Error(err))
		return
	}

	if err := s.sender.SendPass(recipient, image, summary); err != nil {
		s.logger.Error("pass delivery: send failed",
			zap.String("reservation_id", pass.ReservationID),
			zap.String("recipient", recipient),
			zap.Error(err))
		return
	}

	s.logger.Info("pass delivered",
		zap.String("reservation_id", pass.ReservationID),
		zap.String("recipient", recipient))
}

// Verify resolves a presented gate token. Repeatable: tokens are not burned
// on scan.
func (s *PassService) Verify(ctx context.Context, token string) (domain.ReservationSummary, error) {
	if token == "" {
		return domain.ReservationSummary{}, domain.ErrInvalidToken
	}
	return s.repo.SummaryByToken(ctx, token)
}
