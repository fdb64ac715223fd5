package interfaces

import (
	"context"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
	"github.com/shopspring/decimal"
)

type CreatePaymentParams struct {
	PriceAmount      decimal.Decimal
	PriceCurrency    string
	PayCurrency      string
	OrderReference   string
	OrderDescription string
	IPNCallbackURL   string
}

// PaymentGateway is the outbound side of the payment gateway: invoice
// creation and status queries. Both are bounded by a timeout and
// report transport failures as errs.ErrGatewayUnavailable.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, params CreatePaymentParams) (*entities.GatewayPayment, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*entities.GatewayPayment, error)
}
