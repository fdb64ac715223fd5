package entities

import "github.com/shopspring/decimal"

// GatewayPayment is the parsed result of a gateway invoice creation or
// status query. Status carries the raw gateway vocabulary; it is
// translated into OrderStatus at the boundary and never stored as is.
// RawPayload keeps the response body verbatim for the event ledger.
type GatewayPayment struct {
	PaymentID  string
	Status     string
	PayAddress string
	PayAmount  decimal.Decimal
	RawPayload string
}
