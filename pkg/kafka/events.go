package kafka

import "time"

// Payment event types published to the payment_events topic.
const (
	EventPaymentSucceeded       = "payment_succeeded"
	EventPaymentFailed          = "payment_failed"
	EventSettlementConfirmed    = "x402_settlement_confirmed"
	EventTopupCredited          = "topup_credited"
)

// PaymentEvent is the envelope for all payment lifecycle events.
type PaymentEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	Service       string    `json:"service,omitempty"`
	Method        string    `json:"method,omitempty"` // credits, tier, x402
	AmountUnits   string    `json:"amount_units,omitempty"`
	Network       string    `json:"network,omitempty"`
	Transaction   string    `json:"transaction,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}
