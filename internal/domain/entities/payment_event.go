package entities

import "time"

type PaymentEventSource string

const (
	SourceIPN   PaymentEventSource = "NOWPAYMENTS_IPN"
	SourcePoll  PaymentEventSource = "POLL"
	SourceSweep PaymentEventSource = "SWEEP"
)

// PaymentEvent is an immutable audit record of one inbound status
// report. It is appended for every authenticated report, whether or
// not the report changed order state, and is never updated or deleted.
type PaymentEvent struct {
	ID         int64
	OrderID    string
	Source     PaymentEventSource
	RawPayload string
	CreatedAt  time.Time
}
