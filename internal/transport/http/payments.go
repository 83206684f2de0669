package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/app"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

// PaymentService is the minimal interface needed for payment endpoints.
type PaymentService interface {
	Initiate(ctx context.Context, reservationID string, method domain.PaymentMethod) (app.PaymentResult, error)
	ConfirmCash(ctx context.Context, paymentID string) (domain.Payment, error)
	ConfirmGateway(ctx context.Context, externalRef string, method domain.PaymentMethod, reservationID string) (domain.Payment, error)
	GetByID(ctx context.Context, id string) (domain.Payment, error)
	ListAll(ctx context.Context) ([]domain.Payment, error)
	Update(ctx context.Context, id string, in app.UpdatePaymentInput) (domain.Payment, error)
	Delete(ctx context.Context, id string) error
}

// HandleProcessPayment returns an HTTP handler that opens settlement for a
// reservation. Gateway methods answer with a redirect payload instead of a
// persisted payment.
func HandleProcessPayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req processPaymentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		result, err := svc.Initiate(r.Context(), req.ReservationID, domain.PaymentMethod(strings.ToUpper(req.Method)))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := processPaymentResponse{}
		if result.Payment != nil {
			payment := toPaymentResponse(*result.Payment)
			resp.Payment = &payment
		}
		if result.Gateway != nil {
			resp.OrderRef = result.Gateway.OrderRef
			resp.ApprovalURL = result.Gateway.ApprovalURL
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// HandleConfirmPayment returns an HTTP handler for the gateway return leg:
// the buyer comes back with the provider's order reference and the capture
// is settled server side.
func HandleConfirmPayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req confirmPaymentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		payment, err := svc.ConfirmGateway(r.Context(), req.OrderRef, domain.PaymentMethod(strings.ToUpper(req.Method)), req.ReservationID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentResponse(payment))
	}
}

// HandlePayments returns an HTTP handler for listing payments.
func HandlePayments(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		payments, err := svc.ListAll(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, paymentResponses(payments))
	}
}

// HandlePaymentByID routes /payments/{id} plus the confirm-cash sub-action.
func HandlePaymentByID(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, action, ok := parseResourceSubPath(r.URL.Path, "payments"); ok {
			if action != "confirm-cash" {
				writeError(w, http.StatusNotFound, codeNotFound, "not found")
				return
			}
			if r.Method != http.MethodPut {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			payment, err := svc.ConfirmCash(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toPaymentResponse(payment))
			return
		}

		id, ok := parseResourcePath(r.URL.Path, "payments")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			payment, err := svc.GetByID(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toPaymentResponse(payment))
		case http.MethodPut:
			var req updatePaymentRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			in := app.UpdatePaymentInput{Amount: req.Amount}
			if req.Method != nil {
				method := domain.PaymentMethod(strings.ToUpper(*req.Method))
				in.Method = &method
			}
			if req.Status != nil {
				status := domain.PaymentStatus(strings.ToUpper(*req.Status))
				in.Status = &status
			}

			payment, err := svc.Update(r.Context(), id, in)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toPaymentResponse(payment))
		case http.MethodDelete:
			if err := svc.Delete(r.Context(), id); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type processPaymentRequest struct {
	ReservationID string `json:"reservation_id"`
	Method        string `json:"method"`
}

type processPaymentResponse struct {
	Payment     *paymentResponse `json:"payment,omitempty"`
	OrderRef    string           `json:"order_ref,omitempty"`
	ApprovalURL string           `json:"approval_url,omitempty"`
}

type confirmPaymentRequest struct {
	OrderRef      string `json:"order_ref"`
	Method        string `json:"method"`
	ReservationID string `json:"reservation_id"`
}

type updatePaymentRequest struct {
	Amount *float64 `json:"amount,omitempty"`
	Method *string  `json:"method,omitempty"`
	Status *string  `json:"status,omitempty"`
}

type paymentResponse struct {
	ID             string    `json:"id"`
	ReservationID  string    `json:"reservation_id"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"method"`
	TransactionRef *string   `json:"transaction_ref,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func toPaymentResponse(payment domain.Payment) paymentResponse {
	return paymentResponse{
		ID:             payment.ID,
		ReservationID:  payment.ReservationID,
		Amount:         payment.Amount,
		Method:         string(payment.Method),
		TransactionRef: payment.TransactionRef,
		Status:         string(payment.Status),
		CreatedAt:      payment.CreatedAt,
	}
}

func paymentResponses(payments []domain.Payment) []paymentResponse {
	resp := make([]paymentResponse, 0, len(payments))
	for _, payment := range payments {
		resp = append(resp, toPaymentResponse(payment))
	}
	return resp
}
