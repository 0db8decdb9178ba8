package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Audit event types emitted by the commission engine.
const (
	EventPurchaseRecorded         = "purchase.recorded"
	EventPurchaseRefunded         = "purchase.refunded"
	EventPurchaseChargeback       = "purchase.chargeback"
	EventChargebackReversed       = "purchase.chargeback_reversed"
	EventCreatorPaymentSettled    = "creator_payment.settled"
	EventCouponClaimed            = "coupon.claimed"
	EventCommissionReadyForPayout = "commission.ready_for_payout"
)

// EventRecord is an append-only audit row. Every state transition on a
// purchase writes one inside the same transaction as the mutation it
// describes, so the audit trail can never diverge from the ledger.
type EventRecord struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	ProjectID snowflake.ID      `gorm:"not null;index"`
	Type      string            `gorm:"type:text;not null;index"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	DedupeKey *string           `gorm:"type:text;uniqueIndex"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (EventRecord) TableName() string { return "events" }

// PurchasePayload captures the minimal data downstream dashboards need to
// replay a purchase transition.
type PurchasePayload struct {
	PurchaseID       string `json:"purchase_id"`
	StripeEventID    string `json:"stripe_event_id,omitempty"`
	Amount           int64  `json:"amount,omitempty"`
	CommissionAmount int64  `json:"commission_amount,omitempty"`
	RefundedAmount   int64  `json:"refunded_amount,omitempty"`
	CommissionStatus string `json:"commission_status,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p PurchasePayload) ToMap() map[string]any {
	payload := map[string]any{
		"purchase_id": p.PurchaseID,
	}
	if p.StripeEventID != "" {
		payload["stripe_event_id"] = p.StripeEventID
	}
	if p.Amount != 0 {
		payload["amount"] = p.Amount
	}
	if p.CommissionAmount != 0 {
		payload["commission_amount"] = p.CommissionAmount
	}
	if p.RefundedAmount != 0 {
		payload["refunded_amount"] = p.RefundedAmount
	}
	if p.CommissionStatus != "" {
		payload["commission_status"] = p.CommissionStatus
	}
	return payload
}
