package nowpayments

import "github.com/NukeThemAII/p2p/internal/domain/entities"

// Gateway payment statuses are an open string set. Anything not listed
// here translates to no candidate at all and must never flow into
// internal state.
var statusMap = map[string]entities.OrderStatus{
	"waiting":        entities.WAITING_PAYMENT,
	"partially_paid": entities.WAITING_PAYMENT,
	"confirming":     entities.CONFIRMING,
	"sending":        entities.CONFIRMING,
	"confirmed":      entities.CONFIRMED,
	"finished":       entities.FINISHED,
	"expired":        entities.EXPIRED,
	"failed":         entities.FAILED,
	"refunded":       entities.REFUNDED,
}

// TranslateStatus maps a gateway payment status onto the canonical
// order status vocabulary. The second return value is false when the
// input is empty or unrecognized, meaning "no candidate": the caller
// must not transition on it.
func TranslateStatus(status string) (entities.OrderStatus, bool) {
	if status == "" {
		return "", false
	}
	mapped, ok := statusMap[status]
	return mapped, ok
}
