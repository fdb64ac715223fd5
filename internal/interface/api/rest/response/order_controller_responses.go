package response

import (
	"time"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
)

type GetOrder struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_telegram_id"`
	Lang       entities.Lang        `json:"lang"`
	CreditsTHB int64                `json:"credits_thb"`
	PayAmount  string               `json:"pay_amount"`
	Status     entities.OrderStatus `json:"status"`
	PaymentID  *string              `json:"payment_id,omitempty"`
	PayAddress *string              `json:"pay_address,omitempty"`
	ExpiresAt  time.Time            `json:"expires_at"`
	CreatedAt  time.Time            `json:"created_at"`
}

func NewGetOrderFromEntity(e *entities.Order) *GetOrder {
	return &GetOrder{
		ID:         e.ID,
		UserID:     e.UserTelegramID,
		Lang:       e.Lang,
		CreditsTHB: e.CreditsTHB,
		PayAmount:  e.PayAmount.String(),
		Status:     e.Status,
		PaymentID:  e.PaymentID,
		PayAddress: e.PayAddress,
		ExpiresAt:  e.ExpiresAt,
		CreatedAt:  e.CreatedAt,
	}
}
