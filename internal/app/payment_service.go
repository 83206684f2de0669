package app

import (
	"context"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/clock"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/gateway"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error
	VendorEmail(ctx context.Context, vendorID string) (string, error)
	GetByID(ctx context.Context, id string) (domain.Payment, error)
	GetForUpdate(ctx context.Context, id string) (domain.Payment, error)
	GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error)
	Create(ctx context.Context, p domain.Payment) error
	Update(ctx context.Context, p domain.Payment) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Payment, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Payment, error)
}

// PassIssuer is the slice of the pass service the settlement layer drives.
type PassIssuer interface {
	Issue(ctx context.Context, reservationID string) (domain.Pass, bool, error)
	Deliver(ctx context.Context, recipient string, pass domain.Pass)
}

// PaymentService settles payments and reconciles reservation state with the
// outcome. Gateway round-trips always happen outside the transaction that
// writes the result; the write re-checks state under lock so retried
// confirmations stay idempotent.
type PaymentService struct {
	repo     PaymentRepository
	gateways *gateway.Registry
	passes   PassIssuer
	clock    clock.Clock
	logger   *zap.Logger
}

func NewPaymentService(repo PaymentRepository, gateways *gateway.Registry, passes PassIssuer, clk clock.Clock, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:     repo,
		gateways: gateways,
		passes:   passes,
		clock:    clk,
		logger:   logger,
	}
}

// PaymentResult is what Initiate hands back: a persisted payment for cash, or
// the gateway's redirect payload for everything else.
type PaymentResult struct {
	Payment *domain.Payment
	Gateway *gateway.Order
}

// Initiate opens settlement for a reservation. Cash creates a PENDING payment
// immediately. Gateway methods only open an external session; the payment row
// is written at confirmation so abandoned sessions leave no trace. A FAILED
// previous attempt does not block a new one; a PENDING or SUCCESS payment
// does. Settlement only opens while the reservation is PENDING.
func (s *PaymentService) Initiate(ctx context.Context, reservationID string, method domain.PaymentMethod) (PaymentResult, error) {
	if !domain.ValidPaymentMethod(method) {
		return PaymentResult{}, domain.ErrUnsupportedMethod
	}

	if method == domain.PaymentCash {
		return s.initiateCash(ctx, reservationID)
	}
	return s.initiateGateway(ctx, reservationID, method)
}

func (s *PaymentService) initiateCash(ctx context.Context, reservationID string) (PaymentResult, error) {
	var result domain.Payment

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationPending {
			return domain.ErrReservationClosed
		}

		existing, err := s.repo.GetByReservationID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != domain.PaymentFailed {
			return domain.ErrPaymentExists
		}

		p := domain.Payment{
			ID:            newID(),
			ReservationID: res.ID,
			Amount:        res.TotalAmount,
			Method:        domain.PaymentCash,
			Status:        domain.PaymentPending,
			CreatedAt:     s.clock.Now(),
		}
		if existing != nil {
			// falling back to cash after a failed gateway attempt reuses the
			// single payment slot for this reservation
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if err := s.repo.Update(txCtx, p); err != nil {
				return err
			}
		} else if err := s.repo.Create(txCtx, p); err != nil {
			return err
		}

		result = p
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	return PaymentResult{Payment: &result}, nil
}

func (s *PaymentService) initiateGateway(ctx context.Context, reservationID string, method domain.PaymentMethod) (PaymentResult, error) {
	provider, ok := s.gateways.Provider(method)
	if !ok {
		return PaymentResult{}, domain.ErrUnsupportedMethod
	}

	res, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return PaymentResult{}, err
	}
	if res.Status != domain.ReservationPending {
		return PaymentResult{}, domain.ErrReservationClosed
	}
	existing, err := s.repo.GetByReservationID(ctx, reservationID)
	if err != nil {
		return PaymentResult{}, err
	}
	if existing != nil && existing.Status != domain.PaymentFailed {
		return PaymentResult{}, domain.ErrPaymentExists
	}

	// External call with no locks held. Nothing is persisted here.
	order, err := provider.Initiate(ctx, res.ID, res.TotalAmount)
	if err != nil {
		return PaymentResult{}, err
	}
	return PaymentResult{Gateway: &order}, nil
}

// ConfirmCash marks a cash payment received. Repeating the call for an
// already-successful payment is a no-op.
func (s *PaymentService) ConfirmCash(ctx context.Context, paymentID string) (domain.Payment, error) {
	var (
		result   domain.Payment
		vendorID string
		issued   *domain.Pass
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetForUpdate(txCtx, paymentID)
		if err != nil {
			return err
		}
		if p.Method != domain.PaymentCash {
			return domain.ErrNotCashPayment
		}
		if p.Status == domain.PaymentSuccess {
			result = p
			return nil
		}

		res, err := s.repo.GetReservation(txCtx, p.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationPending {
			return domain.ErrReservationClosed
		}
		vendorID = res.VendorID

		p.Status = domain.PaymentSuccess
		if err := s.repo.Update(txCtx, p); err != nil {
			return err
		}
		if err := s.repo.SetReservationStatus(txCtx, p.ReservationID, domain.ReservationConfirmed); err != nil {
			return err
		}

		pass, created, err := s.passes.Issue(txCtx, p.ReservationID)
		if err != nil {
			return err
		}
		if created {
			issued = &pass
		}

		result = p
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.deliverIssued(ctx, vendorID, issued)
	return result, nil
}

// ConfirmGateway completes the external handshake: captures the order, writes
// the payment outcome, and on success confirms the reservation and issues the
// pass. A declined capture records a FAILED payment and leaves the
// reservation PENDING with its stalls still held, so the vendor can retry.
func (s *PaymentService) ConfirmGateway(ctx context.Context, externalRef string, method domain.PaymentMethod, reservationID string) (domain.Payment, error) {
	if method == domain.PaymentCash {
		return domain.Payment{}, domain.ErrCashConfirmRequired
	}
	provider, ok := s.gateways.Provider(method)
	if !ok {
		return domain.Payment{}, domain.ErrUnsupportedMethod
	}

	// Retried webhooks and conflicting settlements short-circuit before
	// touching the gateway again, so the buyer is never re-charged.
	existing, err := s.repo.GetByReservationID(ctx, reservationID)
	if err != nil {
		return domain.Payment{}, err
	}
	if existing != nil {
		switch existing.Status {
		case domain.PaymentSuccess:
			return *existing, nil
		case domain.PaymentPending:
			return domain.Payment{}, domain.ErrPaymentExists
		}
	}
	res, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return domain.Payment{}, err
	}
	if res.Status != domain.ReservationPending {
		return domain.Payment{}, domain.ErrReservationClosed
	}

	// Capture happens with no locks held; the outcome write below re-reads
	// state under lock.
	captured, err := provider.Capture(ctx, externalRef)
	if err != nil {
		return domain.Payment{}, err
	}

	var (
		result   domain.Payment
		vendorID string
		issued   *domain.Pass
	)

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		vendorID = res.VendorID

		existing, err := s.repo.GetByReservationID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status == domain.PaymentSuccess {
			result = *existing
			return nil
		}
		if existing != nil && existing.Status == domain.PaymentPending {
			return domain.ErrPaymentExists
		}
		if res.Status != domain.ReservationPending {
			return domain.ErrReservationClosed
		}

		ref := externalRef
		p := domain.Payment{
			ID:             newID(),
			ReservationID:  res.ID,
			Amount:         res.TotalAmount,
			Method:         method,
			TransactionRef: &ref,
			Status:         domain.PaymentFailed,
			CreatedAt:      s.clock.Now(),
		}
		if captured {
			p.Status = domain.PaymentSuccess
		}

		if existing != nil {
			// overwrite the earlier FAILED attempt; one payment row per
			// reservation
			p.ID = existing.ID
			if err := s.repo.Update(txCtx, p); err != nil {
				return err
			}
		} else if err := s.repo.Create(txCtx, p); err != nil {
			return err
		}

		if captured {
			if err := s.repo.SetReservationStatus(txCtx, res.ID, domain.ReservationConfirmed); err != nil {
				return err
			}
			pass, created, err := s.passes.Issue(txCtx, res.ID)
			if err != nil {
				return err
			}
			if created {
				issued = &pass
			}
		}

		result = p
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.deliverIssued(ctx, vendorID, issued)
	return result, nil
}

// deliverIssued runs the best-effort pass delivery after the confirmation
// transaction has committed.
func (s *PaymentService) deliverIssued(ctx context.Context, vendorID string, issued *domain.Pass) {
	if issued == nil {
		return
	}
	email, err := s.repo.VendorEmail(ctx, vendorID)
	if err != nil {
		s.logger.Error("pass delivery: vendor lookup failed",
			zap.String("reservation_id", issued.ReservationID),
			zap.Error(err))
		return
	}
	s.passes.Deliver(ctx, email, *issued)
}

func (s *PaymentService) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PaymentService) ListAll(ctx context.Context) ([]domain.Payment, error) {
	return s.repo.ListAll(ctx)
}

func (s *PaymentService) ListByVendor(ctx context.Context, vendorID string) ([]domain.Payment, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

type UpdatePaymentInput struct {
	Amount *float64
	Method *domain.PaymentMethod
	Status *domain.PaymentStatus
}

// Update is the admin audit path; only the supplied fields change.
func (s *PaymentService) Update(ctx context.Context, id string, in UpdatePaymentInput) (domain.Payment, error) {
	var result domain.Payment

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		if in.Amount != nil {
			if *in.Amount <= 0 {
				return domain.ErrInvalidPrice
			}
			p.Amount = *in.Amount
		}
		if in.Method != nil {
			if !domain.ValidPaymentMethod(*in.Method) {
				return domain.ErrUnsupportedMethod
			}
			p.Method = *in.Method
		}
		if in.Status != nil {
			if !domain.ValidPaymentStatus(*in.Status) {
				return domain.ErrInvalidStatus
			}
			p.Status = *in.Status
		}

		if err := s.repo.Update(txCtx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return result, nil
}

// Delete purges a payment record. Only FAILED attempts may go; PENDING and
// SUCCESS rows are audit state.
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if p.Status == domain.PaymentSuccess || p.Status == domain.PaymentPending {
			return domain.ErrPaymentRetained
		}
		return s.repo.Delete(txCtx, id)
	})
}
