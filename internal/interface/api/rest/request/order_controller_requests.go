package request

// CreateOrder is the body of POST /api/orders.
type CreateOrder struct {
	UserTelegramID string `json:"user_telegram_id"`
	Lang           string `json:"lang"`
	CreditsTHB     int64  `json:"credits_thb"`
}
