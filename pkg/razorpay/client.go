package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/safanavk/smileshop-backend/pkg/config"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
)

const defaultTimeout = 15 * time.Second

// Client is a thin REST client for the Razorpay Orders, Payments and Refunds
// APIs. All amounts are integer minor units.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// Order is the gateway-side order created before checkout.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is the gateway's view of a captured payment.
type Payment struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Method         string `json:"method"`
}

// Refund is the result of a refund request.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewClient builds a Client from gateway configuration.
func NewClient(cfg config.RazorpayConfig) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("razorpay base url is required")
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// CreateOrder registers an order with the gateway and returns its id.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	payload := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}

	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPayment loads the gateway's current view of a payment.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refund returns amountMinor of the payment to the buyer. A zero amount
// refunds the full captured amount.
func (c *Client) Refund(ctx context.Context, paymentID string, amountMinor int64) (*Refund, error) {
	payload := map[string]any{}
	if amountMinor > 0 {
		payload["amount"] = amountMinor
	}

	var out Refund
	if err := c.do(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var gatewayErr apiError
		_ = json.Unmarshal(raw, &gatewayErr)
		return pkgerrors.New(pkgerrors.CodeDependency, "payment gateway rejected request").WithDetails(map[string]any{
			"status":      resp.StatusCode,
			"code":        gatewayErr.Error.Code,
			"description": gatewayErr.Error.Description,
		})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	return nil
}
