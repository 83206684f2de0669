package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeValidation         = "validation_failed"
	codeInvalidID          = "invalid_id"
	codeStallNotFound      = "stall_not_found"
	codeStallCodeExists    = "stall_code_exists"
	codeStallUnavailable   = "stall_unavailable"
	codeStallStatusLocked  = "stall_status_locked"
	codeStallHasBooking    = "stall_has_confirmed_reservation"
	codeReservationMissing = "reservation_not_found"
	codeQuotaExceeded      = "stall_quota_exceeded"
	codePaymentExists      = "payment_exists"
	codePaymentNotFound    = "payment_not_found"
	codePaymentRetained    = "payment_retained"
	codeVendorNotFound     = "vendor_not_found"
	codeVendorEmailExists  = "vendor_email_exists"
	codeVendorHasBookings  = "vendor_has_reservations"
	codeGenreNotFound      = "genre_not_found"
	codeGenreExists        = "genre_exists"
	codeInvalidToken       = "invalid_token"
	codeReservationClosed  = "reservation_closed"
	codePaymentDeclined    = "payment_declined"
	codeGatewayFailure     = "gateway_failure"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps a service error onto a stable status code and
// machine-readable reason. Internal detail never leaks past this point.
func writeDomainError(w http.ResponseWriter, err error) {
	var gatewayErr *domain.GatewayError
	if errors.As(err, &gatewayErr) {
		writeError(w, http.StatusBadGateway, codeGatewayFailure, "payment gateway unavailable")
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidStallCount),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrStallCodeRequired),
		errors.Is(err, domain.ErrVendorEmailRequired),
		errors.Is(err, domain.ErrGenreNameRequired),
		errors.Is(err, domain.ErrCashConfirmRequired),
		errors.Is(err, domain.ErrNotCashPayment),
		errors.Is(err, domain.ErrUnsupportedMethod):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, domain.ErrStallNotFound):
		writeError(w, http.StatusNotFound, codeStallNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationMissing, err.Error())
	case errors.Is(err, domain.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, codePaymentNotFound, err.Error())
	case errors.Is(err, domain.ErrVendorNotFound):
		writeError(w, http.StatusNotFound, codeVendorNotFound, err.Error())
	case errors.Is(err, domain.ErrGenreNotFound):
		writeError(w, http.StatusNotFound, codeGenreNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusNotFound, codeInvalidToken, err.Error())
	case errors.Is(err, domain.ErrStallCodeExists):
		writeError(w, http.StatusConflict, codeStallCodeExists, err.Error())
	case errors.Is(err, domain.ErrStallUnavailable):
		writeError(w, http.StatusConflict, codeStallUnavailable, err.Error())
	case errors.Is(err, domain.ErrStallHasReservation):
		writeError(w, http.StatusConflict, codeStallHasBooking, err.Error())
	case errors.Is(err, domain.ErrStallStatusLocked):
		writeError(w, http.StatusConflict, codeStallStatusLocked, err.Error())
	case errors.Is(err, domain.ErrPaymentExists):
		writeError(w, http.StatusConflict, codePaymentExists, err.Error())
	case errors.Is(err, domain.ErrPaymentRetained):
		writeError(w, http.StatusConflict, codePaymentRetained, err.Error())
	case errors.Is(err, domain.ErrVendorEmailExists):
		writeError(w, http.StatusConflict, codeVendorEmailExists, err.Error())
	case errors.Is(err, domain.ErrVendorHasBookings):
		writeError(w, http.StatusConflict, codeVendorHasBookings, err.Error())
	case errors.Is(err, domain.ErrGenreExists):
		writeError(w, http.StatusConflict, codeGenreExists, err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusConflict, codeQuotaExceeded, err.Error())
	case errors.Is(err, domain.ErrReservationClosed):
		writeError(w, http.StatusConflict, codeReservationClosed, err.Error())
	case errors.Is(err, domain.ErrPaymentDeclined):
		writeError(w, http.StatusPaymentRequired, codePaymentDeclined, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
