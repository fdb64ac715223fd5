package repositories

import (
	"context"
	"time"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
)

type OrderRepository interface {
	CreateOrder(context.Context, *entities.Order) error
	GetOrderByID(context.Context, string) (*entities.Order, error)
	GetOrderByPaymentID(context.Context, string) (*entities.Order, error)
	GetOrdersByUserID(context.Context, string) ([]*entities.Order, error)
	// UpdateOrderInvoice attaches the gateway payment id and pay address
	// to an order and moves it out of DRAFT.
	UpdateOrderInvoice(ctx context.Context, id, paymentID, payAddress string,
		status entities.OrderStatus) error
	// UpdateOrderStatus performs a conditional write: the row is updated
	// only while its status still equals from. Returns errs.ErrDataConflict
	// when the row exists but the condition no longer holds.
	UpdateOrderStatus(ctx context.Context, id string,
		from, to entities.OrderStatus) error
	// GetExpiredOrders returns orders whose deadline passed before now
	// while still in one of entities.ExpirableStatuses.
	GetExpiredOrders(ctx context.Context, now time.Time) ([]*entities.Order, error)
}
