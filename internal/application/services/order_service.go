package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/domain/repositories"
	"github.com/NukeThemAII/p2p/internal/infrastructure/gateway/nowpayments"
	"github.com/NukeThemAII/p2p/pkg/limiter"
	"github.com/NukeThemAII/p2p/pkg/logger"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/shopspring/decimal"
)

// OrderService owns the ordering flow: draft creation with an
// immutable pricing snapshot, invoice registration at the gateway and
// the poll path feeding the reconciliation engine.
type OrderService struct {
	orderRepo  repositories.OrderRepository
	eventRepo  repositories.PaymentEventRepository
	reconciler interfaces.Reconciler
	gateway    interfaces.PaymentGateway
	trm        *manager.Manager
	limiter    *limiter.DynamicRateLimiter
	config     *config.Config
	logger     logger.Logger

	fx         decimal.Decimal
	commission decimal.Decimal
}

func NewOrderService(
	orderRepo repositories.OrderRepository,
	eventRepo repositories.PaymentEventRepository,
	reconciler interfaces.Reconciler,
	gateway interfaces.PaymentGateway,
	trm *manager.Manager,
	config *config.Config,
	logger logger.Logger,
) (*OrderService, error) {
	if orderRepo == nil {
		return nil, errors.New("nil dependency: order repository")
	}
	if eventRepo == nil {
		return nil, errors.New("nil dependency: payment event repository")
	}
	if reconciler == nil {
		return nil, errors.New("nil dependency: reconciler")
	}
	if gateway == nil {
		return nil, errors.New("nil dependency: payment gateway")
	}
	if trm == nil {
		return nil, errors.New("nil dependency: transaction manager")
	}
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}

	fx, err := decimal.NewFromString(config.Order.FxUsdtPerThb)
	if err != nil {
		return nil, fmt.Errorf("parse fx rate %q: %w", config.Order.FxUsdtPerThb, err)
	}

	commission, err := decimal.NewFromString(config.Order.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("parse commission rate %q: %w", config.Order.CommissionRate, err)
	}

	return &OrderService{
		orderRepo:  orderRepo,
		eventRepo:  eventRepo,
		reconciler: reconciler,
		gateway:    gateway,
		trm:        trm,
		limiter: limiter.NewDynamicRateLimiter(
			config.Order.InvoiceInterval, config.Order.InvoiceBurst),
		config:     config,
		logger:     logger,
		fx:         fx,
		commission: commission,
	}, nil
}

var _ interfaces.OrderService = (*OrderService)(nil)

// CreateOrder creates a DRAFT order snapshotting the current FX and
// commission rates.
func (s *OrderService) CreateOrder(
	ctx context.Context,
	userTelegramID string,
	lang entities.Lang,
	creditsTHB int64,
) (*entities.Order, error) {
	if userTelegramID == "" {
		return nil, fmt.Errorf("%w: user id is required", errs.ErrInvalidRequest)
	}
	if creditsTHB < s.config.Order.MinCreditsTHB || creditsTHB > s.config.Order.MaxCreditsTHB {
		return nil, fmt.Errorf("%w: credits amount %d out of bounds [%d, %d]",
			errs.ErrInvalidRequest, creditsTHB,
			s.config.Order.MinCreditsTHB, s.config.Order.MaxCreditsTHB)
	}

	order := entities.NewOrder(userTelegramID, lang, creditsTHB,
		s.fx, s.commission, s.config.Order.TTL)

	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*entities.Order, error) {
	return s.orderRepo.GetOrderByID(ctx, orderID)
}

func (s *OrderService) GetOrders(ctx context.Context, userTelegramID string) ([]*entities.Order, error) {
	return s.orderRepo.GetOrdersByUserID(ctx, userTelegramID)
}

// CreateInvoice registers a gateway payment for a DRAFT order. The
// gateway ids, the status move and the ledger record are committed in
// one transaction.
func (s *OrderService) CreateInvoice(ctx context.Context, orderID string) (*entities.Order, error) {
	if !s.limiter.Allow() {
		return nil, fmt.Errorf("%w: invoice creation", errs.ErrRateLimit)
	}

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}

	if order.Status != entities.DRAFT {
		return nil, &errs.InvalidOrderStateError{OrderID: order.ID, Status: string(order.Status)}
	}

	payment, err := s.gateway.CreatePayment(ctx, interfaces.CreatePaymentParams{
		PriceAmount:      order.PayAmount,
		PriceCurrency:    s.config.NowPayments.PriceCurrency,
		PayCurrency:      s.config.NowPayments.PayCurrency,
		OrderReference:   order.Reference(),
		OrderDescription: "THB Credits",
		IPNCallbackURL:   s.ipnCallbackURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway payment for order %s: %w", order.ID, err)
	}

	status, ok := nowpayments.TranslateStatus(payment.Status)
	if !ok {
		status = entities.INVOICE_CREATED
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		err := s.orderRepo.UpdateOrderInvoice(ctx, order.ID,
			payment.PaymentID, payment.PayAddress, status)
		if err != nil {
			return fmt.Errorf("attach invoice: %w", err)
		}

		err = s.eventRepo.AppendEvent(ctx, order.ID,
			entities.SourcePoll, payment.RawPayload)
		if err != nil {
			return fmt.Errorf("append payment event: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist invoice for order %s: %w", order.ID, err)
	}

	order.PaymentID = &payment.PaymentID
	if payment.PayAddress != "" {
		order.PayAddress = &payment.PayAddress
	}
	order.Status = status

	return order, nil
}

// RefreshStatus polls the gateway for the order's payment and feeds
// the result through the same reconciliation path as the webhook.
// Gateway failures surface with no state written.
func (s *OrderService) RefreshStatus(ctx context.Context, orderID string) (*entities.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}

	if order.PaymentID == nil {
		return nil, fmt.Errorf("%w: order %s has no payment id", errs.ErrInvalidRequest, order.ID)
	}

	payment, err := s.gateway.GetPaymentStatus(ctx, *order.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("query payment %s: %w", *order.PaymentID, err)
	}

	candidate, ok := nowpayments.TranslateStatus(payment.Status)
	if !ok {
		candidate = ""
	}

	return s.reconciler.Apply(ctx, order, candidate,
		entities.SourcePoll, payment.RawPayload)
}

// ResolveInboundOrder finds the order a webhook push refers to: by
// gateway payment id first, falling back to the order reference.
func (s *OrderService) ResolveInboundOrder(ctx context.Context, paymentID, orderRef string) (*entities.Order, error) {
	if paymentID != "" {
		order, err := s.orderRepo.GetOrderByPaymentID(ctx, paymentID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("get order by payment id %s: %w", paymentID, err)
		}
	}

	if id, ok := entities.ParseOrderReference(orderRef); ok {
		return s.orderRepo.GetOrderByID(ctx, id)
	}

	return nil, fmt.Errorf("%w: no order for payment %q reference %q",
		errs.ErrNotFound, paymentID, orderRef)
}

func (s *OrderService) ipnCallbackURL() string {
	return strings.TrimRight(s.config.PublicBaseURL, "/") + s.config.NowPayments.IPNPath
}
