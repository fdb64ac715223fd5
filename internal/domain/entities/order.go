package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	DRAFT           OrderStatus = "DRAFT"
	INVOICE_CREATED OrderStatus = "INVOICE_CREATED"
	WAITING_PAYMENT OrderStatus = "WAITING_PAYMENT"
	CONFIRMING      OrderStatus = "CONFIRMING"
	CONFIRMED       OrderStatus = "CONFIRMED"
	FINISHED        OrderStatus = "FINISHED"
	EXPIRED         OrderStatus = "EXPIRED"
	FAILED          OrderStatus = "FAILED"
	REFUNDED        OrderStatus = "REFUNDED"
	FULFILLED       OrderStatus = "FULFILLED"
)

// Statuses counting toward the user's open order limit.
var ActiveStatuses = []OrderStatus{
	DRAFT, INVOICE_CREATED, WAITING_PAYMENT, CONFIRMING, CONFIRMED, FINISHED,
}

// Statuses which accept no further transitions.
var TerminalStatuses = []OrderStatus{EXPIRED, FAILED, REFUNDED, FULFILLED}

// Statuses meaning the payment has landed at the gateway.
var PaidStatuses = []OrderStatus{CONFIRMED, FINISHED}

// Statuses the expiry sweep may force into EXPIRED.
// CONFIRMED and FINISHED are excluded: money already arrived.
var ExpirableStatuses = []OrderStatus{
	DRAFT, INVOICE_CREATED, WAITING_PAYMENT, CONFIRMING,
}

func (s OrderStatus) IsTerminal() bool {
	return contains(TerminalStatuses, s)
}

func (s OrderStatus) IsPaid() bool {
	return contains(PaidStatuses, s)
}

func (s OrderStatus) IsActive() bool {
	return contains(ActiveStatuses, s)
}

func contains(set []OrderStatus, s OrderStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

type Lang string

const (
	LangEN Lang = "en"
	LangRU Lang = "ru"
)

// Order is the unit of reconciliation. Commission and FX rates are
// snapshotted at creation and never change. PayAmount is derived once
// from them and stays immutable even if the gateway later reports a
// different amount.
type Order struct {
	ID             string
	UserTelegramID string
	Lang           Lang
	CreditsTHB     int64
	CommissionRate decimal.Decimal
	FxUsdtPerThb   decimal.Decimal
	PayAmount      decimal.Decimal
	Status         OrderStatus
	PaymentID      *string
	PayAddress     *string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

func NewOrder(
	userTelegramID string,
	lang Lang,
	creditsTHB int64,
	fx, commission decimal.Decimal,
	ttl time.Duration,
) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:             uuid.NewString(),
		UserTelegramID: userTelegramID,
		Lang:           lang,
		CreditsTHB:     creditsTHB,
		CommissionRate: commission,
		FxUsdtPerThb:   fx,
		PayAmount:      PayAmount(creditsTHB, fx, commission),
		Status:         DRAFT,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
	}
}

// PayAmount computes creditsTHB * fx * (1 + commission) in USDT,
// rounded to 6 fraction digits.
func PayAmount(creditsTHB int64, fx, commission decimal.Decimal) decimal.Decimal {
	base := decimal.NewFromInt(creditsTHB).Mul(fx)
	return base.Mul(decimal.NewFromInt(1).Add(commission)).Round(6)
}

const orderReferencePrefix = "ORDER-"

// Reference is the structured order reference embedded into gateway
// invoices, e.g. "ORDER-<id>".
func (o *Order) Reference() string {
	return orderReferencePrefix + o.ID
}

// ParseOrderReference extracts an order id from a reference string.
func ParseOrderReference(ref string) (string, bool) {
	if !strings.HasPrefix(ref, orderReferencePrefix) {
		return "", false
	}
	id := strings.TrimPrefix(ref, orderReferencePrefix)
	return id, id != ""
}
