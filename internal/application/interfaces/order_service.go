package interfaces

import (
	"context"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
)

// OrderService represents all order actions available to the internal API.
type OrderService interface {
	CreateOrder(ctx context.Context, userTelegramID string,
		lang entities.Lang, creditsTHB int64) (*entities.Order, error)
	GetOrder(ctx context.Context, orderID string) (*entities.Order, error)
	GetOrders(ctx context.Context, userTelegramID string) ([]*entities.Order, error)
	// CreateInvoice registers a gateway payment for a DRAFT order.
	CreateInvoice(ctx context.Context, orderID string) (*entities.Order, error)
	// RefreshStatus polls the gateway and reconciles the reported status.
	RefreshStatus(ctx context.Context, orderID string) (*entities.Order, error)
	// ResolveInboundOrder finds the order an inbound webhook refers to,
	// by gateway payment id first, then by order reference string.
	ResolveInboundOrder(ctx context.Context, paymentID, orderRef string) (*entities.Order, error)
}
