package interfaces

import (
	"context"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
)

// Reconciler applies one inbound status report to an order. An empty
// candidate means "no information": the event is still recorded but no
// transition is attempted. The returned order reflects the state after
// the call.
type Reconciler interface {
	Apply(ctx context.Context, order *entities.Order,
		candidate entities.OrderStatus, source entities.PaymentEventSource,
		rawPayload string) (*entities.Order, error)
}
