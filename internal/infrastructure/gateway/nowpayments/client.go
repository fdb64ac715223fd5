package nowpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/pkg/logger"
	"github.com/shopspring/decimal"
)

// Client talks to the NOWPayments REST API. All calls are bounded by
// the configured timeout; transport failures and non-2xx responses are
// reported as errs.ErrGatewayUnavailable so callers can retry.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  logger.Logger
}

func NewClient(cfg *config.Config, logger logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("nil dependency: config")
	}

	return &Client{
		baseURL: cfg.NowPayments.APIURL,
		apiKey:  cfg.NowPayments.APIKey,
		client:  &http.Client{Timeout: cfg.NowPayments.Timeout},
		logger:  logger,
	}, nil
}

var _ interfaces.PaymentGateway = (*Client)(nil)

type createPaymentRequest struct {
	PriceAmount      decimal.Decimal `json:"price_amount"`
	PriceCurrency    string          `json:"price_currency"`
	PayCurrency      string          `json:"pay_currency"`
	OrderID          string          `json:"order_id"`
	OrderDescription string          `json:"order_description"`
	IPNCallbackURL   string          `json:"ipn_callback_url"`
}

// paymentResponse covers both payment creation and status query
// responses. The gateway sends payment_id as a number.
type paymentResponse struct {
	PaymentID     json.Number     `json:"payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PayAddress    string          `json:"pay_address"`
	PayAmount     decimal.Decimal `json:"pay_amount"`
}

// IPNPayload is the validated shape of an inbound webhook push.
type IPNPayload struct {
	PaymentID     json.Number `json:"payment_id"`
	OrderID       string      `json:"order_id"`
	PaymentStatus string      `json:"payment_status"`
}

// CreatePayment creates a gateway invoice for the given amount.
func (c *Client) CreatePayment(ctx context.Context, params interfaces.CreatePaymentParams) (*entities.GatewayPayment, error) {
	body, err := json.Marshal(createPaymentRequest{
		PriceAmount:      params.PriceAmount,
		PriceCurrency:    params.PriceCurrency,
		PayCurrency:      params.PayCurrency,
		OrderID:          params.OrderReference,
		OrderDescription: params.OrderDescription,
		IPNCallbackURL:   params.IPNCallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create payment request: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/payment", bytes.NewReader(body))
}

// GetPaymentStatus queries the gateway for the current payment status.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*entities.GatewayPayment, error) {
	return c.do(ctx, http.MethodGet, "/payment/"+paymentID, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*entities.GatewayPayment, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %s", errs.ErrGatewayUnavailable, method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %s", errs.ErrGatewayUnavailable, err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		c.logger.Errorf("nowpayments %s %s failed [%d]: %s", method, path, res.StatusCode, raw)
		return nil, fmt.Errorf("%w: status %d", errs.ErrGatewayUnavailable, res.StatusCode)
	}

	payload := new(paymentResponse)
	if err = json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	return &entities.GatewayPayment{
		PaymentID:  payload.PaymentID.String(),
		Status:     payload.PaymentStatus,
		PayAddress: payload.PayAddress,
		PayAmount:  payload.PayAmount,
		RawPayload: string(raw),
	}, nil
}
