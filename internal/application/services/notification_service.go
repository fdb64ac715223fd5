package services

import (
	"context"
	"errors"

	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/NukeThemAII/p2p/internal/i18n"
	"github.com/NukeThemAII/p2p/pkg/logger"
)

// Admin notification trigger modes.
const (
	NotifyModeFinished  = "finished"
	NotifyModeFirstPaid = "first_paid"
)

// Statuses the end user is told about. WAITING_PAYMENT and the
// internal-only statuses are silent; FULFILLED is announced by the
// separate human-driven flow.
var userNotifyStatuses = map[entities.OrderStatus]struct{}{
	entities.CONFIRMING: {},
	entities.CONFIRMED:  {},
	entities.FINISHED:   {},
	entities.EXPIRED:    {},
	entities.FAILED:     {},
	entities.REFUNDED:   {},
}

// NotificationService fans a committed transition out to the user and,
// when the configured trigger fires, to the administrator. Send
// failures are logged and swallowed: the transition is already durable
// and must not be rolled back or blocked.
type NotificationService struct {
	sender interfaces.MessageSender
	config *config.Config
	logger logger.Logger
}

func NewNotificationService(
	sender interfaces.MessageSender,
	config *config.Config,
	logger logger.Logger,
) (*NotificationService, error) {
	if sender == nil {
		return nil, errors.New("nil dependency: message sender")
	}
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}

	return &NotificationService{
		sender: sender,
		config: config,
		logger: logger,
	}, nil
}

var _ interfaces.Notifier = (*NotificationService)(nil)

// OnTransition is called with the order as it was before the write and
// the status it moved to.
func (s *NotificationService) OnTransition(
	ctx context.Context,
	before *entities.Order,
	newStatus entities.OrderStatus,
) {
	if _, ok := userNotifyStatuses[newStatus]; ok {
		text := i18n.PaymentStatusUpdate(before.Lang, newStatus)
		if err := s.sender.SendMessage(ctx, before.UserTelegramID, text, nil); err != nil {
			s.logger.Errorf("notify user for order %s: %s", before.ID, err)
		}
	}

	if s.shouldNotifyAdmin(before.Status, newStatus) {
		text := i18n.AdminPaidNotification{
			OrderID: before.ID,
			UserID:  before.UserTelegramID,
			// Admin always reads English labels, whatever the order language.
			StatusLabel: i18n.StatusLabel(entities.LangEN, newStatus),
			CreditsTHB:  before.CreditsTHB,
			PayAmount:   before.PayAmount,
			CreatedAt:   before.CreatedAt,
		}.Text()

		err := s.sender.SendMessage(ctx, s.config.Telegram.AdminChatID, text,
			AdminActionKeyboard(before.ID))
		if err != nil {
			s.logger.Errorf("notify admin for order %s: %s", before.ID, err)
		}
	}
}

// shouldNotifyAdmin is edge triggered: under the default first-paid
// mode it fires exactly once when the order crosses into the paid set
// and never again while it moves between paid statuses.
func (s *NotificationService) shouldNotifyAdmin(prev, next entities.OrderStatus) bool {
	if s.config.Telegram.AdminNotifyMode == NotifyModeFinished {
		return next == entities.FINISHED && prev != entities.FINISHED
	}
	return !prev.IsPaid() && next.IsPaid()
}

// AdminActionKeyboard builds the inline keyboard attached to the admin
// notification. Callback data carries the order id so the action
// handler can resolve it.
func AdminActionKeyboard(orderID string) [][]interfaces.InlineButton {
	return [][]interfaces.InlineButton{
		{{Text: "✅ Mark Fulfilled", CallbackData: "admin:fulfill:" + orderID}},
		{{Text: "🧾 Send Voucher Code", CallbackData: "admin:voucher:" + orderID}},
		{{Text: "❌ Mark Expired/Cancel", CallbackData: "admin:expire:" + orderID}},
	}
}
