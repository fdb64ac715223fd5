package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/interface/api/rest/header"
	"github.com/NukeThemAII/p2p/internal/interface/api/rest/request"
	"github.com/NukeThemAII/p2p/internal/interface/api/rest/response"
	"github.com/NukeThemAII/p2p/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type OrderController struct {
	service interfaces.OrderService
	logger  logger.Logger
}

// NewOrderController registers the internal order API handlers.
func NewOrderController(
	service interfaces.OrderService, logger logger.Logger, options ChiServerOptions,
) {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}

	c := OrderController{
		service: service,
		logger:  logger,
	}

	r.Group(func(r chi.Router) {
		for _, middleware := range options.Middlewares {
			r.Use(middleware)
		}
		r.Post(options.BaseURL+"/orders", c.CreateOrder)
		r.Get(options.BaseURL+"/orders", c.GetOrders)
		r.Get(options.BaseURL+"/orders/{orderID}", c.GetOrder)
		r.Post(options.BaseURL+"/orders/{orderID}/invoice", c.CreateInvoice)
		r.Post(options.BaseURL+"/orders/{orderID}/refresh", c.RefreshStatus)
	})
}

// Create new draft order (POST /api/orders HTTP/1.1).
func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if !header.IsApplicationJSONContentType(r) {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("%w: invalid content type", errs.ErrInvalidRequest))
		return
	}

	defer r.Body.Close()

	var req request.CreateOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.ErrorHandlerFunc(w, r, checkJSONDecodeError(err))
		return
	}

	if req.UserTelegramID == "" {
		c.ErrorHandlerFunc(w, r, &errs.RequiredJSONBodyParamError{ParamName: "user_telegram_id"})
		return
	}
	if req.CreditsTHB == 0 {
		c.ErrorHandlerFunc(w, r, &errs.RequiredJSONBodyParamError{ParamName: "credits_thb"})
		return
	}

	lang := entities.Lang(req.Lang)
	if lang != entities.LangRU {
		lang = entities.LangEN
	}

	order, err := c.service.CreateOrder(r.Context(), req.UserTelegramID, lang, req.CreditsTHB)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeOrder(w, r, order, http.StatusCreated)
}

// Get one order (GET /api/orders/{orderID} HTTP/1.1).
func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := c.service.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeOrder(w, r, order, http.StatusOK)
}

// List user orders (GET /api/orders?user=<telegram id> HTTP/1.1).
func (c *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		c.ErrorHandlerFunc(w, r, fmt.Errorf("%w: user query param is required", errs.ErrInvalidRequest))
		return
	}

	orders, err := c.service.GetOrders(r.Context(), userID)
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	res := make([]*response.GetOrder, len(orders))
	for i, order := range orders {
		res[i] = response.NewGetOrderFromEntity(order)
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(res); err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}
}

// Register a gateway payment (POST /api/orders/{orderID}/invoice HTTP/1.1).
func (c *OrderController) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	order, err := c.service.CreateInvoice(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeOrder(w, r, order, http.StatusOK)
}

// Poll the gateway and reconcile (POST /api/orders/{orderID}/refresh HTTP/1.1).
func (c *OrderController) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	order, err := c.service.RefreshStatus(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		c.ErrorHandlerFunc(w, r, err)
		return
	}

	c.writeOrder(w, r, order, http.StatusOK)
}

func (c *OrderController) writeOrder(
	w http.ResponseWriter, r *http.Request, order *entities.Order, code int,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response.NewGetOrderFromEntity(order)); err != nil {
		c.ErrorHandlerFunc(w, r, err)
	}
}

// ErrorHandlerFunc handles sending of an error in the JSON format,
// writing appropriate status code and handling the failure to marshal that.
func (c *OrderController) ErrorHandlerFunc(w http.ResponseWriter, _ *http.Request, err error) {
	errJSON := errs.JSON{Error: err.Error()}
	code := http.StatusInternalServerError

	switch {
	// Status Bad Request (400).
	case errors.Is(err, errs.ErrInvalidRequest):
		code = http.StatusBadRequest

	// Status Not Found (404).
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound

	// Status Conflict (409).
	case errors.Is(err, errs.ErrDataConflict), errors.Is(err, errs.ErrAlreadyExists):
		code = http.StatusConflict

	// Status Too Many Requests (429).
	case errors.Is(err, errs.ErrRateLimit):
		code = http.StatusTooManyRequests

	// Status Bad Gateway (502). Retryable: no state was written.
	case errors.Is(err, errs.ErrGatewayUnavailable):
		code = http.StatusBadGateway
	}

	w.WriteHeader(code)

	c.logger.Errorf("order controller [%d]: %s", code, err)

	if err = json.NewEncoder(w).Encode(errJSON); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
