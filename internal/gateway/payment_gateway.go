package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/weddia/escrow-api/internal/models"
)

// PaymentGateway abstracts the external payment provider. Implementations
// must respect the caller's context deadline; a provider outage surfaces
// as models.ErrExternalService and never mutates the ledger.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, bookingID uint, amount float64) (*Order, error)
	VerifyPayment(ctx context.Context, paymentRef string) (*PaymentStatus, error)
}

// Order is the gateway-side order created before the customer pays
type Order struct {
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status"`
}

// PaymentStatus is the gateway's view of a payment reference
type PaymentStatus struct {
	PaymentRef string  `json:"payment_ref"`
	OrderID    string  `json:"order_id"`
	Amount     float64 `json:"amount"`
	Captured   bool    `json:"captured"`
}

// httpGateway talks to the provider's REST API
type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway creates a payment gateway client with a hard timeout
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) PaymentGateway {
	return &httpGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrder registers an order with the provider so the customer can pay
func (g *httpGateway) CreateOrder(ctx context.Context, bookingID uint, amount float64) (*Order, error) {
	payload := map[string]any{
		"booking_id":      bookingID,
		"amount":          amount,
		"currency":        "USD",
		"idempotency_key": uuid.NewString(),
	}

	var order Order
	if err := g.do(ctx, http.MethodPost, "/v1/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPayment asks the provider whether a payment reference was captured
func (g *httpGateway) VerifyPayment(ctx context.Context, paymentRef string) (*PaymentStatus, error) {
	var status PaymentStatus
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+paymentRef, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (g *httpGateway) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode gateway request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: payment gateway unreachable: %v", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: gateway has no record of this reference", models.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: gateway returned %d: %s", models.ErrExternalService, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid gateway response: %v", models.ErrExternalService, err)
	}
	return nil
}
