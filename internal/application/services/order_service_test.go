package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/pkg/logger"
)

type orderServiceDeps struct {
	orderRepo *mockOrderRepository
	eventRepo *mockEventRepository
	notifier  *mockNotifier
	gateway   *mockGateway
}

func newTestOrderService(t *testing.T, cfg *config.Config, deps orderServiceDeps) *OrderService {
	t.Helper()
	if deps.orderRepo == nil {
		deps.orderRepo = newMockOrderRepository()
	}
	if deps.eventRepo == nil {
		deps.eventRepo = &mockEventRepository{}
	}
	if deps.notifier == nil {
		deps.notifier = &mockNotifier{}
	}
	if deps.gateway == nil {
		deps.gateway = &mockGateway{}
	}

	reconciler := newTestReconciler(t, deps.orderRepo, deps.eventRepo, deps.notifier)
	service, err := NewOrderService(deps.orderRepo, deps.eventRepo, reconciler,
		deps.gateway, newTestTrManager(), cfg, logger.NewNop())
	require.NoError(t, err, "failed to init service")
	return service
}

func TestCreateOrder(t *testing.T) {
	tests := []struct {
		name          string
		userID        string
		creditsTHB    int64
		wantPayAmount string
		wantErr       error
	}{
		{
			name:          "2000 credits price to 58.8 usdt",
			userID:        "42",
			creditsTHB:    2000,
			wantPayAmount: "58.8",
		},
		{
			name:          "minimum amount",
			userID:        "42",
			creditsTHB:    100,
			wantPayAmount: "2.94",
		},
		{
			name:       "below minimum",
			userID:     "42",
			creditsTHB: 99,
			wantErr:    errs.ErrInvalidRequest,
		},
		{
			name:       "above maximum",
			userID:     "42",
			creditsTHB: 100001,
			wantErr:    errs.ErrInvalidRequest,
		},
		{
			name:       "missing user id",
			userID:     "",
			creditsTHB: 2000,
			wantErr:    errs.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			orderRepo := newMockOrderRepository()
			service := newTestOrderService(t, newTestConfig(),
				orderServiceDeps{orderRepo: orderRepo})

			order, err := service.CreateOrder(context.Background(),
				tt.userID, entities.LangEN, tt.creditsTHB)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "want %v, got %v", tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, entities.DRAFT, order.Status)
			assert.True(t, order.PayAmount.Equal(decimal.RequireFromString(tt.wantPayAmount)),
				"pay amount mismatch: got %s", order.PayAmount)
			assert.Nil(t, order.PaymentID)
			assert.WithinDuration(t,
				order.CreatedAt.Add(20*time.Minute), order.ExpiresAt, time.Second,
				"deadline must be creation time plus ttl")

			// The pricing snapshot is stored with the order.
			stored, err := orderRepo.GetOrderByID(context.Background(), order.ID)
			require.NoError(t, err)
			assert.True(t, stored.FxUsdtPerThb.Equal(decimal.RequireFromString("0.028")))
			assert.True(t, stored.CommissionRate.Equal(decimal.RequireFromString("0.05")))
		})
	}
}

func TestCreateInvoice(t *testing.T) {
	draft := entities.NewOrder("42", entities.LangEN, 2000,
		decimal.RequireFromString("0.028"), decimal.RequireFromString("0.05"),
		20*time.Minute)

	orderRepo := newMockOrderRepository(draft)
	eventRepo := &mockEventRepository{}
	gateway := &mockGateway{payment: &entities.GatewayPayment{
		PaymentID:  "4945313575",
		Status:     "waiting",
		PayAddress: "TVaddr000",
		PayAmount:  decimal.RequireFromString("58.8"),
		RawPayload: `{"payment_id":4945313575,"payment_status":"waiting"}`,
	}}
	service := newTestOrderService(t, newTestConfig(),
		orderServiceDeps{orderRepo: orderRepo, eventRepo: eventRepo, gateway: gateway})

	order, err := service.CreateInvoice(context.Background(), draft.ID)
	require.NoError(t, err)

	assert.Equal(t, entities.WAITING_PAYMENT, order.Status)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, "4945313575", *order.PaymentID)
	require.NotNil(t, order.PayAddress)
	assert.Equal(t, "TVaddr000", *order.PayAddress)

	// Invoice registration lands in the ledger as a poll record.
	require.Equal(t, 1, eventRepo.count(draft.ID))
	assert.Equal(t, entities.SourcePoll, eventRepo.events[0].Source)
	assert.Equal(t, gateway.payment.RawPayload, eventRepo.events[0].RawPayload)

	// Gateway got the immutable pricing snapshot, not a recomputed one.
	require.Len(t, gateway.createParams, 1)
	params := gateway.createParams[0]
	assert.True(t, params.PriceAmount.Equal(decimal.RequireFromString("58.8")))
	assert.Equal(t, "usd", params.PriceCurrency)
	assert.Equal(t, "usdttrc20", params.PayCurrency)
	assert.Equal(t, "ORDER-"+draft.ID, params.OrderReference)
	assert.Equal(t, "https://pay.example.com/webhooks/nowpayments", params.IPNCallbackURL)
}

func TestCreateInvoiceNotDraft(t *testing.T) {
	order := testOrder(entities.WAITING_PAYMENT)
	orderRepo := newMockOrderRepository(order)
	gateway := &mockGateway{}
	service := newTestOrderService(t, newTestConfig(),
		orderServiceDeps{orderRepo: orderRepo, gateway: gateway})

	_, err := service.CreateInvoice(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidRequest), "want ErrInvalidRequest, got %v", err)

	stateErr := new(errs.InvalidOrderStateError)
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, order.ID, stateErr.OrderID)

	assert.Empty(t, gateway.createParams, "no gateway call for a non-draft order")
}

func TestCreateInvoiceGatewayDown(t *testing.T) {
	draft := testOrder(entities.DRAFT)
	draft.PaymentID = nil
	orderRepo := newMockOrderRepository(draft)
	eventRepo := &mockEventRepository{}
	gateway := &mockGateway{err: errs.ErrGatewayUnavailable}
	service := newTestOrderService(t, newTestConfig(),
		orderServiceDeps{orderRepo: orderRepo, eventRepo: eventRepo, gateway: gateway})

	_, err := service.CreateInvoice(context.Background(), draft.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrGatewayUnavailable), "want ErrGatewayUnavailable, got %v", err)

	// Nothing written: the order is still a retryable draft.
	assert.Equal(t, entities.DRAFT, orderRepo.storedStatus(draft.ID))
	assert.Equal(t, 0, eventRepo.count(draft.ID))
}

func TestCreateInvoiceUnknownGatewayStatus(t *testing.T) {
	draft := testOrder(entities.DRAFT)
	draft.PaymentID = nil
	orderRepo := newMockOrderRepository(draft)
	gateway := &mockGateway{payment: &entities.GatewayPayment{
		PaymentID:  "4945313575",
		Status:     "on_hold",
		RawPayload: `{"payment_id":4945313575,"payment_status":"on_hold"}`,
	}}
	service := newTestOrderService(t, newTestConfig(),
		orderServiceDeps{orderRepo: orderRepo, gateway: gateway})

	order, err := service.CreateInvoice(context.Background(), draft.ID)
	require.NoError(t, err)

	// Unrecognized gateway vocabulary falls back to the neutral
	// invoice-created state instead of inventing a transition.
	assert.Equal(t, entities.INVOICE_CREATED, order.Status)
}

func TestCreateInvoiceRateLimited(t *testing.T) {
	first := testOrder(entities.DRAFT)
	first.PaymentID = nil
	second := testOrder(entities.DRAFT)
	second.ID = "second"
	second.PaymentID = nil

	cfg := newTestConfig()
	cfg.Order.InvoiceInterval = time.Hour
	cfg.Order.InvoiceBurst = 1

	orderRepo := newMockOrderRepository(first, second)
	gateway := &mockGateway{payment: &entities.GatewayPayment{
		PaymentID:  "1",
		Status:     "waiting",
		RawPayload: `{}`,
	}}
	service := newTestOrderService(t, cfg,
		orderServiceDeps{orderRepo: orderRepo, gateway: gateway})

	_, err := service.CreateInvoice(context.Background(), first.ID)
	require.NoError(t, err)

	_, err = service.CreateInvoice(context.Background(), second.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRateLimit), "want ErrRateLimit, got %v", err)
}

func TestRefreshStatus(t *testing.T) {
	order := testOrder(entities.WAITING_PAYMENT)
	orderRepo := newMockOrderRepository(order)
	eventRepo := &mockEventRepository{}
	notifier := &mockNotifier{}
	gateway := &mockGateway{payment: &entities.GatewayPayment{
		PaymentID:  *order.PaymentID,
		Status:     "finished",
		RawPayload: `{"payment_id":4945313575,"payment_status":"finished"}`,
	}}
	service := newTestOrderService(t, newTestConfig(), orderServiceDeps{
		orderRepo: orderRepo, eventRepo: eventRepo, notifier: notifier, gateway: gateway,
	})

	got, err := service.RefreshStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, entities.FINISHED, got.Status)
	assert.Equal(t, entities.FINISHED, orderRepo.storedStatus(order.ID))
	assert.Equal(t, []string{*order.PaymentID}, gateway.queriedIDs)
	assert.Equal(t, 1, eventRepo.count(order.ID))
	assert.Len(t, notifier.transitions, 1)
}

func TestRefreshStatusNoPaymentID(t *testing.T) {
	order := testOrder(entities.DRAFT)
	order.PaymentID = nil
	service := newTestOrderService(t, newTestConfig(),
		orderServiceDeps{orderRepo: newMockOrderRepository(order)})

	_, err := service.RefreshStatus(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidRequest), "want ErrInvalidRequest, got %v", err)
}

func TestRefreshStatusGatewayDown(t *testing.T) {
	order := testOrder(entities.WAITING_PAYMENT)
	orderRepo := newMockOrderRepository(order)
	eventRepo := &mockEventRepository{}
	gateway := &mockGateway{err: errs.ErrGatewayUnavailable}
	service := newTestOrderService(t, newTestConfig(), orderServiceDeps{
		orderRepo: orderRepo, eventRepo: eventRepo, gateway: gateway,
	})

	_, err := service.RefreshStatus(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrGatewayUnavailable), "want ErrGatewayUnavailable, got %v", err)

	// Poll failures leave no trace: no ledger row, no transition.
	assert.Equal(t, entities.WAITING_PAYMENT, orderRepo.storedStatus(order.ID))
	assert.Equal(t, 0, eventRepo.count(order.ID))
}

func TestRefreshStatusUnknownGatewayStatus(t *testing.T) {
	order := testOrder(entities.WAITING_PAYMENT)
	orderRepo := newMockOrderRepository(order)
	eventRepo := &mockEventRepository{}
	gateway := &mockGateway{payment: &entities.GatewayPayment{
		PaymentID:  *order.PaymentID,
		Status:     "on_hold",
		RawPayload: `{"payment_status":"on_hold"}`,
	}}
	service := newTestOrderService(t, newTestConfig(), orderServiceDeps{
		orderRepo: orderRepo, eventRepo: eventRepo, gateway: gateway,
	})

	got, err := service.RefreshStatus(context.Background(), order.ID)
	require.NoError(t, err)

	// No candidate: the report is recorded but nothing moves.
	assert.Equal(t, entities.WAITING_PAYMENT, got.Status)
	assert.Equal(t, 1, eventRepo.count(order.ID))
}

func TestResolveInboundOrder(t *testing.T) {
	withPayment := testOrder(entities.WAITING_PAYMENT)
	draft := testOrder(entities.DRAFT)
	draft.ID = "draft-without-payment"
	draft.PaymentID = nil

	orderRepo := newMockOrderRepository(withPayment, draft)
	service := newTestOrderService(t, newTestConfig(),
		orderServiceDeps{orderRepo: orderRepo})

	tests := []struct {
		name      string
		paymentID string
		orderRef  string
		wantID    string
		wantErr   error
	}{
		{
			name:      "by payment id",
			paymentID: *withPayment.PaymentID,
			orderRef:  "",
			wantID:    withPayment.ID,
		},
		{
			name:      "payment id unknown, reference fallback",
			paymentID: "999",
			orderRef:  "ORDER-" + draft.ID,
			wantID:    draft.ID,
		},
		{
			name:      "reference only",
			paymentID: "",
			orderRef:  "ORDER-" + withPayment.ID,
			wantID:    withPayment.ID,
		},
		{
			name:      "nothing matches",
			paymentID: "999",
			orderRef:  "ORDER-unknown",
			wantErr:   errs.ErrNotFound,
		},
		{
			name:      "garbage reference",
			paymentID: "",
			orderRef:  "whatever",
			wantErr:   errs.ErrNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order, err := service.ResolveInboundOrder(context.Background(),
				tt.paymentID, tt.orderRef)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "want %v, got %v", tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, order.ID)
		})
	}
}
