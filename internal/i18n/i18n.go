package i18n

import (
	"fmt"
	"strings"
	"time"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/shopspring/decimal"
)

var statusLabels = map[entities.OrderStatus]map[entities.Lang]string{
	entities.DRAFT:           {entities.LangEN: "Draft", entities.LangRU: "Черновик"},
	entities.INVOICE_CREATED: {entities.LangEN: "Invoice created", entities.LangRU: "Инвойс создан"},
	entities.WAITING_PAYMENT: {entities.LangEN: "Waiting payment", entities.LangRU: "Ожидание оплаты"},
	entities.CONFIRMING:      {entities.LangEN: "Confirming", entities.LangRU: "Подтверждается"},
	entities.CONFIRMED:       {entities.LangEN: "Confirmed", entities.LangRU: "Подтверждено"},
	entities.FINISHED:        {entities.LangEN: "Finished", entities.LangRU: "Завершено"},
	entities.EXPIRED:         {entities.LangEN: "Expired", entities.LangRU: "Истекло"},
	entities.FAILED:          {entities.LangEN: "Failed", entities.LangRU: "Ошибка"},
	entities.REFUNDED:        {entities.LangEN: "Refunded", entities.LangRU: "Возвращено"},
	entities.FULFILLED:       {entities.LangEN: "Fulfilled", entities.LangRU: "Выполнено"},
}

// StatusLabel returns the human readable status name in the given
// language, falling back to the raw status value.
func StatusLabel(lang entities.Lang, status entities.OrderStatus) string {
	if labels, ok := statusLabels[status]; ok {
		if label, ok := labels[lang]; ok {
			return label
		}
		return labels[entities.LangEN]
	}
	return string(status)
}

// PaymentStatusUpdate is the text sent to the user when their order
// status changes.
func PaymentStatusUpdate(lang entities.Lang, status entities.OrderStatus) string {
	if lang == entities.LangRU {
		return fmt.Sprintf("Статус оплаты: %s", StatusLabel(lang, status))
	}
	return fmt.Sprintf("Payment status: %s", StatusLabel(lang, status))
}

// AdminPaidNotification describes a paid order to the administrator.
// Always rendered with English labels regardless of the order language.
type AdminPaidNotification struct {
	OrderID     string
	UserID      string
	CreditsTHB  int64
	PayAmount   decimal.Decimal
	StatusLabel string
	CreatedAt   time.Time
}

func (n AdminPaidNotification) Text() string {
	return strings.Join([]string{
		"✅ PAID",
		fmt.Sprintf("Order: %s", n.OrderID),
		fmt.Sprintf("User: tg://user?id=%s", n.UserID),
		fmt.Sprintf("Credits: %d", n.CreditsTHB),
		fmt.Sprintf("Paid: %s USDT TRC20", FormatUsdtTrim(n.PayAmount)),
		fmt.Sprintf("Status: %s", n.StatusLabel),
		fmt.Sprintf("Created: %s", n.CreatedAt.UTC().Format(time.RFC3339)),
	}, "\n")
}

// FormatUsdtTrim renders an USDT amount with up to 6 fraction digits,
// trailing zeros removed.
func FormatUsdtTrim(value decimal.Decimal) string {
	s := value.Round(6).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
