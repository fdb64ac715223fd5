package services

import (
	"context"
	"errors"
	"sync"
	"time"

	trm "github.com/avito-tech/go-transaction-manager/trm/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"

	"github.com/NukeThemAII/p2p/internal/application/errs"
	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
)

// Lock in case of t.Parallel call.
type mockOrderRepository struct {
	items map[string]*entities.Order
	// raceTo simulates a concurrent winner: the first conditional write
	// for an armed order id loses, and the stored row flips to the
	// armed status before the caller re-reads.
	raceTo map[string]entities.OrderStatus
	// conflicts makes the next n conditional writes lose without
	// changing stored state, so every re-read passes the gates again.
	conflicts int
	updates   []string
	mu        sync.RWMutex
}

func newMockOrderRepository(orders ...*entities.Order) *mockOrderRepository {
	m := &mockOrderRepository{
		items:  make(map[string]*entities.Order),
		raceTo: make(map[string]entities.OrderStatus),
	}
	for _, o := range orders {
		cp := *o
		m.items[o.ID] = &cp
	}
	return m
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *entities.Order) error {
	if order.UserTelegramID == "panic" {
		return errors.New("don't panic!")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[order.ID]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *order
	m.items[order.ID] = &cp
	return nil
}

func (m *mockOrderRepository) GetOrderByID(_ context.Context, id string) (*entities.Order, error) {
	if id == "panic" {
		return nil, errors.New("don't panic!")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

func (m *mockOrderRepository) GetOrderByPaymentID(_ context.Context, paymentID string) (*entities.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, stored := range m.items {
		if stored.PaymentID != nil && *stored.PaymentID == paymentID {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *mockOrderRepository) GetOrdersByUserID(_ context.Context, userTelegramID string) ([]*entities.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []*entities.Order
	for _, stored := range m.items {
		if stored.UserTelegramID == userTelegramID {
			cp := *stored
			orders = append(orders, &cp)
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) UpdateOrderInvoice(
	_ context.Context, id, paymentID, payAddress string, status entities.OrderStatus,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	if stored.Status != entities.DRAFT {
		return errs.ErrDataConflict
	}
	stored.PaymentID = &paymentID
	if payAddress != "" {
		stored.PayAddress = &payAddress
	}
	stored.Status = status
	return nil
}

func (m *mockOrderRepository) UpdateOrderStatus(
	_ context.Context, id string, from, to entities.OrderStatus,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	if raced, ok := m.raceTo[id]; ok {
		delete(m.raceTo, id)
		stored.Status = raced
		return errs.ErrDataConflict
	}
	if m.conflicts > 0 {
		m.conflicts--
		return errs.ErrDataConflict
	}
	if stored.Status != from {
		return errs.ErrDataConflict
	}
	stored.Status = to
	m.updates = append(m.updates, string(from)+"->"+string(to))
	return nil
}

func (m *mockOrderRepository) GetExpiredOrders(_ context.Context, now time.Time) ([]*entities.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []*entities.Order
	for _, stored := range m.items {
		if !stored.ExpiresAt.Before(now) {
			continue
		}
		for _, s := range entities.ExpirableStatuses {
			if stored.Status == s {
				cp := *stored
				orders = append(orders, &cp)
				break
			}
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) storedStatus(id string) entities.OrderStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[id].Status
}

type mockEventRepository struct {
	events   []entities.PaymentEvent
	failWith error
	mu       sync.Mutex
}

func (m *mockEventRepository) AppendEvent(
	_ context.Context, orderID string, source entities.PaymentEventSource, rawPayload string,
) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, entities.PaymentEvent{
		ID:         int64(len(m.events) + 1),
		OrderID:    orderID,
		Source:     source,
		RawPayload: rawPayload,
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

func (m *mockEventRepository) count(orderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.OrderID == orderID {
			n++
		}
	}
	return n
}

type transition struct {
	orderID string
	from    entities.OrderStatus
	to      entities.OrderStatus
}

type mockNotifier struct {
	transitions []transition
	mu          sync.Mutex
}

func (m *mockNotifier) OnTransition(
	_ context.Context, before *entities.Order, newStatus entities.OrderStatus,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, transition{
		orderID: before.ID,
		from:    before.Status,
		to:      newStatus,
	})
}

type sentMessage struct {
	chatID   string
	text     string
	keyboard [][]interfaces.InlineButton
}

type mockSender struct {
	sent     []sentMessage
	failWith error
	mu       sync.Mutex
}

func (m *mockSender) SendMessage(
	_ context.Context, chatID, text string, keyboard [][]interfaces.InlineButton,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return m.failWith
}

type mockGateway struct {
	payment      *entities.GatewayPayment
	err          error
	createParams []interfaces.CreatePaymentParams
	queriedIDs   []string
	mu           sync.Mutex
}

func (m *mockGateway) CreatePayment(
	_ context.Context, params interfaces.CreatePaymentParams,
) (*entities.GatewayPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createParams = append(m.createParams, params)
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.payment
	return &cp, nil
}

func (m *mockGateway) GetPaymentStatus(
	_ context.Context, paymentID string,
) (*entities.GatewayPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queriedIDs = append(m.queriedIDs, paymentID)
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.payment
	return &cp, nil
}

// No-op transaction so services requiring the transaction manager run
// against in-memory mocks.
type nopTransaction struct {
	active bool
}

func (t *nopTransaction) Transaction() interface{}       { return nil }
func (t *nopTransaction) Commit(context.Context) error   { t.active = false; return nil }
func (t *nopTransaction) Rollback(context.Context) error { t.active = false; return nil }
func (t *nopTransaction) IsActive() bool                 { return t.active }

func newTestTrManager() *manager.Manager {
	return manager.Must(
		func(ctx context.Context, _ trm.Settings) (context.Context, trm.Transaction, error) {
			return ctx, &nopTransaction{active: true}, nil
		},
		manager.WithCtxManager(trmcontext.DefaultManager),
	)
}

func newTestConfig() *config.Config {
	cfg := &config.Config{PublicBaseURL: "https://pay.example.com/"}
	cfg.HTTPServer.ShutdownTimeout = 5 * time.Second
	cfg.NowPayments.IPNPath = "/webhooks/nowpayments"
	cfg.NowPayments.PriceCurrency = "usd"
	cfg.NowPayments.PayCurrency = "usdttrc20"
	cfg.Telegram.AdminChatID = "111000111"
	cfg.Telegram.AdminNotifyMode = NotifyModeFirstPaid
	cfg.Sweeper.Interval = 60 * time.Second
	cfg.Order.FxUsdtPerThb = "0.028"
	cfg.Order.CommissionRate = "0.05"
	cfg.Order.MinCreditsTHB = 100
	cfg.Order.MaxCreditsTHB = 100000
	cfg.Order.TTL = 20 * time.Minute
	cfg.Order.InvoiceInterval = time.Millisecond
	cfg.Order.InvoiceBurst = 100
	return cfg
}
