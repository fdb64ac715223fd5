package repositories

import (
	"context"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
)

// PaymentEventRepository is append only. Concurrent unordered writers
// are safe; no read API is required by the reconciliation core.
type PaymentEventRepository interface {
	AppendEvent(ctx context.Context, orderID string,
		source entities.PaymentEventSource, rawPayload string) error
}
