package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 15 * time.Second

// PayPalConfig carries the sandbox/live credentials and the URLs the approval
// flow redirects back to.
type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	CancelURL    string
}

// PayPalClient talks to the PayPal Orders v2 REST API. Requests carry their
// own timeout so a slow gateway can never hold a database lock open; callers
// must invoke it outside any transaction.
type PayPalClient struct {
	cfg    PayPalConfig
	http   *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalClient(cfg PayPalConfig, logger *zap.Logger) *PayPalClient {
	return &PayPalClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: defaultRequestTimeout},
		logger: logger,
	}
}

func (c *PayPalClient) Method() domain.PaymentMethod {
	return domain.PaymentPayPal
}

func (c *PayPalClient) Initiate(ctx context.Context, reservationID string, amount float64) (Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{"amount": map[string]string{
				"currency_code": "USD",
				"value":         fmt.Sprintf("%.2f", amount),
			}},
		},
		"application_context": map[string]string{
			"return_url": c.cfg.ReturnURL + "?reservationId=" + url.QueryEscape(reservationID),
			"cancel_url": c.cfg.CancelURL,
		},
	}

	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		var decline *declineError
		if errors.As(err, &decline) {
			c.logger.Info("paypal order rejected",
				zap.String("reservation_id", reservationID),
				zap.Int("status", decline.status))
			return Order{}, domain.ErrPaymentDeclined
		}
		return Order{}, err
	}

	order := Order{OrderRef: out.ID}
	for _, link := range out.Links {
		if link.Rel == "approve" {
			order.ApprovalURL = link.Href
			break
		}
	}
	if order.OrderRef == "" || order.ApprovalURL == "" {
		return Order{}, &domain.GatewayError{Op: "create order", Err: fmt.Errorf("response missing order id or approval link")}
	}
	return order, nil
}

func (c *PayPalClient) Capture(ctx context.Context, orderRef string) (bool, error) {
	var out struct {
		Status string `json:"status"`
	}
	err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderRef)+"/capture", struct{}{}, &out)
	if err == nil {
		return out.Status == "COMPLETED", nil
	}

	var decline *declineError
	if !errors.As(err, &decline) {
		return false, err
	}
	if strings.Contains(decline.body, "ORDER_ALREADY_CAPTURED") {
		// A retried capture of an already-settled order counts as success;
		// confirm with a read to be sure.
		return c.verifyOrder(ctx, orderRef)
	}
	c.logger.Info("paypal capture declined",
		zap.String("order_ref", orderRef),
		zap.Int("status", decline.status))
	return false, nil
}

func (c *PayPalClient) verifyOrder(ctx context.Context, orderRef string) (bool, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderRef), nil, &out); err != nil {
		return false, err
	}
	return out.Status == "COMPLETED" || out.Status == "APPROVED", nil
}

// declineError marks a 4xx response: the gateway handled the request and said
// no. Anything else (transport error, 5xx) becomes a domain.GatewayError.
type declineError struct {
	status int
	body   string
}

func (e *declineError) Error() string {
	return fmt.Sprintf("paypal declined with status %d", e.status)
}

func (c *PayPalClient) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.GatewayError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.GatewayError{Op: method + " " + path, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.GatewayError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &declineError{status: resp.StatusCode, body: string(raw)}
	default:
		return &domain.GatewayError{Op: method + " " + path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

// token returns a cached OAuth access token, refreshing it via the
// client-credentials grant when it is within a minute of expiry.
func (c *PayPalClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.GatewayError{Op: "oauth token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.GatewayError{Op: "oauth token", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.GatewayError{Op: "oauth token", Err: err}
	}

	c.accessToken = out.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
