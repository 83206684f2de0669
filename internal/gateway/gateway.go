package gateway

import (
	"context"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

// Order is the redirect payload a provider hands back when a payment session
// is opened. The settlement layer passes it through untouched.
type Order struct {
	OrderRef    string `json:"order_ref"`
	ApprovalURL string `json:"approval_url"`
}

// Provider is one external payment integration. Capture returns false when
// the provider processed the request and declined the charge; transport and
// provider outages come back as *domain.GatewayError.
type Provider interface {
	Method() domain.PaymentMethod
	Initiate(ctx context.Context, reservationID string, amount float64) (Order, error)
	Capture(ctx context.Context, orderRef string) (bool, error)
}

// Registry selects a provider by payment method.
type Registry struct {
	providers map[domain.PaymentMethod]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[domain.PaymentMethod]Provider, len(providers))
	for _, p := range providers {
		m[p.Method()] = p
	}
	return &Registry{providers: m}
}

func (r *Registry) Provider(method domain.PaymentMethod) (Provider, bool) {
	p, ok := r.providers[method]
	return p, ok
}
