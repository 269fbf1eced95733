package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/config"
)

// ErrGateway indicates the payment gateway call failed. Payment
// initiation is user-driven, so callers surface this without retrying.
var ErrGateway = errors.New("payment gateway error")

// Order is a gateway payment-intent object. Amount is in minor
// currency units (paise), as the gateway requires.
type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client calls the Razorpay orders API.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	currency  string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg config.RazorpayConfig, currency string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   cfg.BaseURL,
		currency:  currency,
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}
}

// KeyID returns the public gateway key, needed by the checkout page.
func (c *Client) KeyID() string { return c.keyID }

type createOrderRequest struct {
	Amount         int               `json:"amount"` // minor units
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	Notes          map[string]string `json:"notes,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
}

// CreateOrder creates a gateway order for the given amount in whole
// currency units. The gateway is billed in minor units, so the amount
// is multiplied by 100 on the wire.
func (c *Client) CreateOrder(ctx context.Context, amount int, receipt string, notes map[string]string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:         amount * 100,
		Currency:       c.currency,
		Receipt:        receipt,
		Notes:          notes,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal order: %v", ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrGateway, err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("gateway order creation failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: response missing order id", ErrGateway)
	}
	return &order, nil
}
