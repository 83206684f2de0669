package app

import (
	"context"
	"testing"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/clock"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/gateway"
	"go.uber.org/zap"
)

func TestPaymentService_Initiate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	makeSvc := func(repo *fakePaymentRepo, provider *fakeProvider) (*PaymentService, *fakePassIssuer) {
		passes := &fakePassIssuer{}
		providers := []gateway.Provider{}
		if provider != nil {
			providers = append(providers, provider)
		}
		svc := NewPaymentService(repo, gateway.NewRegistry(providers...), passes, clock.NewFixed(now), zap.NewNop())
		return svc, passes
	}

	t.Run("cash creates a pending payment", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", TotalAmount: 300, Status: domain.ReservationPending}
		svc, _ := makeSvc(repo, nil)

		result, err := svc.Initiate(context.Background(), "res-1", domain.PaymentCash)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Payment == nil {
			t.Fatalf("expected payment in result")
		}
		if result.Payment.Status != domain.PaymentPending {
			t.Fatalf("expected PENDING, got %s", result.Payment.Status)
		}
		if result.Payment.Amount != 300 {
			t.Fatalf("expected amount 300, got %v", result.Payment.Amount)
		}
		if result.Gateway != nil {
			t.Fatalf("cash must not answer with a gateway payload")
		}
	})

	t.Run("second initiate conflicts while a payment is live", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", TotalAmount: 300, Status: domain.ReservationPending}
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Status: domain.PaymentPending, Method: domain.PaymentCash}
		svc, _ := makeSvc(repo, nil)

		if _, err := svc.Initiate(context.Background(), "res-1", domain.PaymentCash); err != domain.ErrPaymentExists {
			t.Fatalf("expected ErrPaymentExists, got %v", err)
		}
	})

	t.Run("failed attempt frees the slot for cash retry", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", TotalAmount: 300, Status: domain.ReservationPending}
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Status: domain.PaymentFailed, Method: domain.PaymentPayPal, CreatedAt: now.Add(-time.Hour)}
		svc, _ := makeSvc(repo, nil)

		result, err := svc.Initiate(context.Background(), "res-1", domain.PaymentCash)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Payment.ID != "pay-1" {
			t.Fatalf("expected payment slot reused, got %s", result.Payment.ID)
		}
		if result.Payment.Method != domain.PaymentCash {
			t.Fatalf("expected method CASH, got %s", result.Payment.Method)
		}
		if result.Payment.Status != domain.PaymentPending {
			t.Fatalf("expected PENDING, got %s", result.Payment.Status)
		}
		if len(repo.payments) != 1 {
			t.Fatalf("expected a single payment row, got %d", len(repo.payments))
		}
	})

	t.Run("gateway initiate persists nothing", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", TotalAmount: 450, Status: domain.ReservationPending}
		provider := &fakeProvider{method: domain.PaymentPayPal, order: gateway.Order{OrderRef: "ORD-1", ApprovalURL: "https://pay.example/approve"}}
		svc, _ := makeSvc(repo, provider)

		result, err := svc.Initiate(context.Background(), "res-1", domain.PaymentPayPal)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Gateway == nil || result.Gateway.OrderRef != "ORD-1" {
			t.Fatalf("expected gateway order, got %+v", result.Gateway)
		}
		if result.Payment != nil {
			t.Fatalf("gateway initiate must not persist a payment")
		}
		if len(repo.payments) != 0 {
			t.Fatalf("expected no payment rows, got %d", len(repo.payments))
		}
		if provider.initiateAmount != 450 {
			t.Fatalf("expected gateway charged 450, got %v", provider.initiateAmount)
		}
	})

	t.Run("unsupported method", func(t *testing.T) {
		repo := newFakePaymentRepo()
		svc, _ := makeSvc(repo, nil)

		if _, err := svc.Initiate(context.Background(), "res-1", domain.PaymentMethod("BARTER")); err != domain.ErrUnsupportedMethod {
			t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
		}
	})

	t.Run("cash refuses a cancelled reservation", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", TotalAmount: 300, Status: domain.ReservationCancelled}
		svc, _ := makeSvc(repo, nil)

		if _, err := svc.Initiate(context.Background(), "res-1", domain.PaymentCash); err != domain.ErrReservationClosed {
			t.Fatalf("expected ErrReservationClosed, got %v", err)
		}
		if len(repo.payments) != 0 {
			t.Fatalf("expected no payment rows, got %d", len(repo.payments))
		}
	})

	t.Run("gateway refuses a rejected reservation without calling out", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", TotalAmount: 300, Status: domain.ReservationRejected}
		provider := &fakeProvider{method: domain.PaymentPayPal}
		svc, _ := makeSvc(repo, provider)

		if _, err := svc.Initiate(context.Background(), "res-1", domain.PaymentPayPal); err != domain.ErrReservationClosed {
			t.Fatalf("expected ErrReservationClosed, got %v", err)
		}
		if provider.initiateAmount != 0 {
			t.Fatalf("expected no gateway session opened")
		}
	})
}

func TestPaymentService_ConfirmCash(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	makeSvc := func(repo *fakePaymentRepo) (*PaymentService, *fakePassIssuer) {
		passes := &fakePassIssuer{}
		svc := NewPaymentService(repo, gateway.NewRegistry(), passes, clock.NewFixed(now), zap.NewNop())
		return svc, passes
	}

	t.Run("confirms payment, reservation and issues pass", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", Status: domain.ReservationPending}
		repo.vendorEmails["vendor-1"] = "ann@fair.lk"
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Method: domain.PaymentCash, Status: domain.PaymentPending}
		svc, passes := makeSvc(repo)

		p, err := svc.ConfirmCash(context.Background(), "pay-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Status != domain.PaymentSuccess {
			t.Fatalf("expected SUCCESS, got %s", p.Status)
		}
		if repo.reservations["res-1"].Status != domain.ReservationConfirmed {
			t.Fatalf("expected reservation CONFIRMED, got %s", repo.reservations["res-1"].Status)
		}
		if passes.issueCalls != 1 {
			t.Fatalf("expected 1 pass issue, got %d", passes.issueCalls)
		}
		if len(passes.delivered) != 1 || passes.delivered[0] != "ann@fair.lk" {
			t.Fatalf("expected delivery to vendor, got %v", passes.delivered)
		}
	})

	t.Run("repeat confirm is a no-op", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", Status: domain.ReservationConfirmed}
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Method: domain.PaymentCash, Status: domain.PaymentSuccess}
		svc, passes := makeSvc(repo)

		p, err := svc.ConfirmCash(context.Background(), "pay-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Status != domain.PaymentSuccess {
			t.Fatalf("expected SUCCESS, got %s", p.Status)
		}
		if passes.issueCalls != 0 {
			t.Fatalf("expected no pass issue on repeat, got %d", passes.issueCalls)
		}
	})

	t.Run("refuses non-cash payments", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Method: domain.PaymentPayPal, Status: domain.PaymentPending}
		svc, _ := makeSvc(repo)

		if _, err := svc.ConfirmCash(context.Background(), "pay-1"); err != domain.ErrNotCashPayment {
			t.Fatalf("expected ErrNotCashPayment, got %v", err)
		}
	})

	t.Run("missing payment", func(t *testing.T) {
		repo := newFakePaymentRepo()
		svc, _ := makeSvc(repo)

		if _, err := svc.ConfirmCash(context.Background(), "ghost"); err != domain.ErrPaymentNotFound {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
	})

	t.Run("refuses a cancelled reservation", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", Status: domain.ReservationCancelled}
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Method: domain.PaymentCash, Status: domain.PaymentPending}
		svc, passes := makeSvc(repo)

		if _, err := svc.ConfirmCash(context.Background(), "pay-1"); err != domain.ErrReservationClosed {
			t.Fatalf("expected ErrReservationClosed, got %v", err)
		}
		if repo.reservations["res-1"].Status != domain.ReservationCancelled {
			t.Fatalf("expected reservation untouched, got %s", repo.reservations["res-1"].Status)
		}
		if repo.payments["pay-1"].Status != domain.PaymentPending {
			t.Fatalf("expected payment untouched, got %s", repo.payments["pay-1"].Status)
		}
		if passes.issueCalls != 0 {
			t.Fatalf("expected no pass for a cancelled reservation")
		}
	})
}

func TestPaymentService_ConfirmGateway(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	makeSvc := func(repo *fakePaymentRepo, provider *fakeProvider) (*PaymentService, *fakePassIssuer) {
		passes := &fakePassIssuer{}
		svc := NewPaymentService(repo, gateway.NewRegistry(provider), passes, clock.NewFixed(now), zap.NewNop())
		return svc, passes
	}

	t.Run("captured order settles the reservation", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", TotalAmount: 500, Status: domain.ReservationPending}
		repo.vendorEmails["vendor-1"] = "ann@fair.lk"
		provider := &fakeProvider{method: domain.PaymentPayPal, captured: true}
		svc, passes := makeSvc(repo, provider)

		p, err := svc.ConfirmGateway(context.Background(), "ORD-1", domain.PaymentPayPal, "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Status != domain.PaymentSuccess {
			t.Fatalf("expected SUCCESS, got %s", p.Status)
		}
		if p.TransactionRef == nil || *p.TransactionRef != "ORD-1" {
			t.Fatalf("expected transaction ref recorded")
		}
		if repo.reservations["res-1"].Status != domain.ReservationConfirmed {
			t.Fatalf("expected reservation CONFIRMED")
		}
		if passes.issueCalls != 1 {
			t.Fatalf("expected pass issued, got %d calls", passes.issueCalls)
		}
	})

	t.Run("declined capture records FAILED and keeps stalls held", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", TotalAmount: 500, Status: domain.ReservationPending}
		provider := &fakeProvider{method: domain.PaymentPayPal, captured: false}
		svc, passes := makeSvc(repo, provider)

		p, err := svc.ConfirmGateway(context.Background(), "ORD-1", domain.PaymentPayPal, "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Status != domain.PaymentFailed {
			t.Fatalf("expected FAILED, got %s", p.Status)
		}
		if repo.reservations["res-1"].Status != domain.ReservationPending {
			t.Fatalf("expected reservation still PENDING, got %s", repo.reservations["res-1"].Status)
		}
		if passes.issueCalls != 0 {
			t.Fatalf("expected no pass on declined capture")
		}
	})

	t.Run("retry after decline overwrites the failed row", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", TotalAmount: 500, Status: domain.ReservationPending}
		repo.vendorEmails["vendor-1"] = "ann@fair.lk"
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Method: domain.PaymentPayPal, Status: domain.PaymentFailed}
		provider := &fakeProvider{method: domain.PaymentPayPal, captured: true}
		svc, _ := makeSvc(repo, provider)

		p, err := svc.ConfirmGateway(context.Background(), "ORD-2", domain.PaymentPayPal, "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.ID != "pay-1" {
			t.Fatalf("expected failed row reused, got %s", p.ID)
		}
		if p.Status != domain.PaymentSuccess {
			t.Fatalf("expected SUCCESS, got %s", p.Status)
		}
		if len(repo.payments) != 1 {
			t.Fatalf("expected single payment row, got %d", len(repo.payments))
		}
	})

	t.Run("repeat confirm returns settled payment without capture", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", Status: domain.ReservationConfirmed}
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Method: domain.PaymentPayPal, Status: domain.PaymentSuccess}
		provider := &fakeProvider{method: domain.PaymentPayPal, captured: true}
		svc, passes := makeSvc(repo, provider)

		p, err := svc.ConfirmGateway(context.Background(), "ORD-1", domain.PaymentPayPal, "res-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.ID != "pay-1" {
			t.Fatalf("expected existing payment, got %s", p.ID)
		}
		if provider.captureCalls != 0 {
			t.Fatalf("expected no gateway call on repeat, got %d", provider.captureCalls)
		}
		if passes.issueCalls != 0 {
			t.Fatalf("expected no reissue on repeat")
		}
	})

	t.Run("gateway outage propagates", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", Status: domain.ReservationPending}
		outage := &domain.GatewayError{Op: "capture", Err: context.DeadlineExceeded}
		provider := &fakeProvider{method: domain.PaymentPayPal, captureErr: outage}
		svc, _ := makeSvc(repo, provider)

		_, err := svc.ConfirmGateway(context.Background(), "ORD-1", domain.PaymentPayPal, "res-1")
		if err != outage {
			t.Fatalf("expected gateway error, got %v", err)
		}
		if len(repo.payments) != 0 {
			t.Fatalf("outage must not write a payment")
		}
	})

	t.Run("pending cash payment blocks capture", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", TotalAmount: 500, Status: domain.ReservationPending}
		repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Method: domain.PaymentCash, Status: domain.PaymentPending}
		provider := &fakeProvider{method: domain.PaymentPayPal, captured: true}
		svc, _ := makeSvc(repo, provider)

		if _, err := svc.ConfirmGateway(context.Background(), "ORD-1", domain.PaymentPayPal, "res-1"); err != domain.ErrPaymentExists {
			t.Fatalf("expected ErrPaymentExists, got %v", err)
		}
		if provider.captureCalls != 0 {
			t.Fatalf("expected no capture on a conflicting settlement, got %d", provider.captureCalls)
		}
	})

	t.Run("cancelled reservation refuses capture", func(t *testing.T) {
		repo := newFakePaymentRepo()
		repo.reservations["res-1"] = domain.Reservation{ID: "res-1", VendorID: "vendor-1", TotalAmount: 500, Status: domain.ReservationCancelled}
		provider := &fakeProvider{method: domain.PaymentPayPal, captured: true}
		svc, passes := makeSvc(repo, provider)

		if _, err := svc.ConfirmGateway(context.Background(), "ORD-1", domain.PaymentPayPal, "res-1"); err != domain.ErrReservationClosed {
			t.Fatalf("expected ErrReservationClosed, got %v", err)
		}
		if provider.captureCalls != 0 {
			t.Fatalf("expected no capture for a cancelled reservation, got %d", provider.captureCalls)
		}
		if repo.reservations["res-1"].Status != domain.ReservationCancelled {
			t.Fatalf("expected reservation untouched, got %s", repo.reservations["res-1"].Status)
		}
		if passes.issueCalls != 0 {
			t.Fatalf("expected no pass for a cancelled reservation")
		}
	})

	t.Run("cash method is rejected on the gateway leg", func(t *testing.T) {
		repo := newFakePaymentRepo()
		provider := &fakeProvider{method: domain.PaymentPayPal}
		svc, _ := makeSvc(repo, provider)

		if _, err := svc.ConfirmGateway(context.Background(), "ORD-1", domain.PaymentCash, "res-1"); err != domain.ErrCashConfirmRequired {
			t.Fatalf("expected ErrCashConfirmRequired, got %v", err)
		}
	})
}

func TestPaymentService_Delete(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	repo := newFakePaymentRepo()
	repo.payments["pay-1"] = domain.Payment{ID: "pay-1", ReservationID: "res-1", Status: domain.PaymentSuccess}
	repo.payments["pay-2"] = domain.Payment{ID: "pay-2", ReservationID: "res-2", Status: domain.PaymentFailed}
	svc := NewPaymentService(repo, gateway.NewRegistry(), &fakePassIssuer{}, clock.NewFixed(now), zap.NewNop())

	if err := svc.Delete(context.Background(), "pay-1"); err != domain.ErrPaymentRetained {
		t.Fatalf("expected ErrPaymentRetained for settled payment, got %v", err)
	}
	if err := svc.Delete(context.Background(), "pay-2"); err != nil {
		t.Fatalf("expected failed payment deletable, got %v", err)
	}
	if _, ok := repo.payments["pay-2"]; ok {
		t.Fatalf("expected pay-2 removed")
	}
}

type fakePaymentRepo struct {
	reservations map[string]domain.Reservation
	payments     map[string]domain.Payment
	vendorEmails map[string]string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		reservations: make(map[string]domain.Reservation),
		payments:     make(map[string]domain.Payment),
		vendorEmails: make(map[string]string),
	}
}

func (f *fakePaymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakePaymentRepo) GetReservation(_ context.Context, id string) (domain.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return res, nil
}

func (f *fakePaymentRepo) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return f.GetReservation(ctx, id)
}

func (f *fakePaymentRepo) SetReservationStatus(_ context.Context, reservationID string, status domain.ReservationStatus) error {
	res, ok := f.reservations[reservationID]
	if !ok {
		return domain.ErrReservationNotFound
	}
	res.Status = status
	f.reservations[reservationID] = res
	return nil
}

func (f *fakePaymentRepo) VendorEmail(_ context.Context, vendorID string) (string, error) {
	email, ok := f.vendorEmails[vendorID]
	if !ok {
		return "", domain.ErrVendorNotFound
	}
	return email, nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id string) (domain.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentRepo) GetForUpdate(ctx context.Context, id string) (domain.Payment, error) {
	return f.GetByID(ctx, id)
}

func (f *fakePaymentRepo) GetByReservationID(_ context.Context, reservationID string) (*domain.Payment, error) {
	for i := range f.payments {
		if f.payments[i].ReservationID == reservationID {
			p := f.payments[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) Create(_ context.Context, p domain.Payment) error {
	if _, err := f.GetByReservationID(context.Background(), p.ReservationID); err != nil {
		return err
	}
	f.payments[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) Update(_ context.Context, p domain.Payment) error {
	if _, ok := f.payments[p.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	f.payments[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) Delete(_ context.Context, id string) error {
	delete(f.payments, id)
	return nil
}

func (f *fakePaymentRepo) ListAll(_ context.Context) ([]domain.Payment, error) {
	out := make([]domain.Payment, 0, len(f.payments))
	for _, p := range f.payments {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePaymentRepo) ListByVendor(_ context.Context, vendorID string) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range f.payments {
		res, ok := f.reservations[p.ReservationID]
		if ok && res.VendorID == vendorID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeProvider struct {
	method         domain.PaymentMethod
	order          gateway.Order
	captured       bool
	captureErr     error
	captureCalls   int
	initiateAmount float64
}

func (f *fakeProvider) Method() domain.PaymentMethod {
	return f.method
}

func (f *fakeProvider) Initiate(_ context.Context, reservationID string, amount float64) (gateway.Order, error) {
	f.initiateAmount = amount
	return f.order, nil
}

func (f *fakeProvider) Capture(_ context.Context, orderRef string) (bool, error) {
	f.captureCalls++
	if f.captureErr != nil {
		return false, f.captureErr
	}
	return f.captured, nil
}

type fakePassIssuer struct {
	issueCalls int
	delivered  []string
}

func (f *fakePassIssuer) Issue(_ context.Context, reservationID string) (domain.Pass, bool, error) {
	f.issueCalls++
	return domain.Pass{ID: "pass-1", ReservationID: reservationID, Token: "tok"}, true, nil
}

func (f *fakePassIssuer) Deliver(_ context.Context, recipient string, pass domain.Pass) {
	f.delivered = append(f.delivered, recipient)
}
