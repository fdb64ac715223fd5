package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/infrastructure/gateway/nowpayments"
	"github.com/NukeThemAII/p2p/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const signatureHeader = "x-nowpayments-sig"

type WebhookController struct {
	orders     interfaces.OrderService
	reconciler interfaces.Reconciler
	config     *config.Config
	logger     logger.Logger
}

// NewWebhookController mounts the gateway IPN endpoint at the
// configured path. The endpoint authenticates with the payload
// signature, not the service token.
func NewWebhookController(
	orders interfaces.OrderService,
	reconciler interfaces.Reconciler,
	config *config.Config,
	logger logger.Logger,
	options ChiServerOptions,
) {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}

	c := WebhookController{
		orders:     orders,
		reconciler: reconciler,
		config:     config,
		logger:     logger,
	}

	r.Post(config.NowPayments.IPNPath, c.HandleIPN)
}

// HandleIPN processes one signed status push. The response is 200 once
// the event is durably recorded, whether or not a transition happened.
func (c *WebhookController) HandleIPN(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		// Reject before computing any HMAC.
		c.ErrorHandlerFunc(w, r, fmt.Errorf("%w: missing %s header",
			errs.ErrInvalidSignature, signatureHeader))
		return
	}

	defer r.Body.Close()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("read webhook body: %w", err))
		return
	}

	var payload nowpayments.IPNPayload
	if err = json.Unmarshal(rawBody, &payload); err != nil {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("%w: malformed webhook payload",
			errs.ErrInvalidRequest))
		return
	}

	if !nowpayments.VerifySignature(rawBody, signature, c.config.NowPayments.IPNSecret) {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("%w: webhook signature mismatch",
			errs.ErrInvalidSignature))
		return
	}

	order, err := c.orders.ResolveInboundOrder(r.Context(),
		payload.PaymentID.String(), payload.OrderID)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	candidate, ok := nowpayments.TranslateStatus(payload.PaymentStatus)
	if !ok {
		// Unknown vocabulary is not an error: the event is still
		// recorded below with no candidate to transition to.
		candidate = ""
	}

	_, err = c.reconciler.Apply(r.Context(), order, candidate,
		entities.SourceIPN, string(rawBody))
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ErrorHandlerFunc handles sending of an error in the JSON format,
// writing appropriate status code and handling the failure to marshal that.
func (c *WebhookController) ErrorHandlerFunc(w http.ResponseWriter, _ *http.Request, err error) {
	errJSON := errs.JSON{Error: err.Error()}
	code := http.StatusInternalServerError

	switch {
	// Status Bad Request (400).
	case errors.Is(err, errs.ErrInvalidRequest):
		code = http.StatusBadRequest

	// Status Unauthorized (401): authentication failure, distinct
	// from not-found and validation failures.
	case errors.Is(err, errs.ErrInvalidSignature):
		code = http.StatusUnauthorized

	// Status Not Found (404): nothing to attach the event to.
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound
	}

	w.WriteHeader(code)

	c.logger.Errorf("webhook controller [%d]: %s", code, err)

	if err = json.NewEncoder(w).Encode(errJSON); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
