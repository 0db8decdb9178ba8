package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the payment-level settlement state, distinct from the
// commission pipeline. It flips to PAID through the creator-payout flow.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// CommissionStatus is the commission payout pipeline state. PAID is
// terminal: settled commissions are never clawed back in place, a
// CommissionAdjustment is recorded instead.
type CommissionStatus string

const (
	CommissionPending              CommissionStatus = "PENDING"
	CommissionAwaitingRefundWindow CommissionStatus = "AWAITING_REFUND_WINDOW"
	CommissionPendingCreatorPayment CommissionStatus = "PENDING_CREATOR_PAYMENT"
	CommissionReadyForPayout       CommissionStatus = "READY_FOR_PAYOUT"
	CommissionPaid                 CommissionStatus = "PAID"
	CommissionRefunded             CommissionStatus = "REFUNDED"
	CommissionChargeback           CommissionStatus = "CHARGEBACK"
)

// AdjustmentReason tags a commission adjustment ledger entry.
type AdjustmentReason string

const (
	AdjustmentReasonRefund             AdjustmentReason = "REFUND"
	AdjustmentReasonChargeback         AdjustmentReason = "CHARGEBACK"
	AdjustmentReasonChargebackReversal AdjustmentReason = "CHARGEBACK_REVERSAL"
)

// AdjustmentStatus tracks whether an adjustment has been applied to a
// payout run or reversed by a later dispute win.
type AdjustmentStatus string

const (
	AdjustmentStatusPending  AdjustmentStatus = "PENDING"
	AdjustmentStatusApplied  AdjustmentStatus = "APPLIED"
	AdjustmentStatusReversed AdjustmentStatus = "REVERSED"
)

// Purchase is the canonical record for one real-world payment event,
// attributed (or not) to a marketer. Created exactly once per Stripe
// event id, mutated only by refund/dispute reconciliation, never deleted.
type Purchase struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ProjectID snowflake.ID `gorm:"not null;index"`

	CouponID   *snowflake.ID `gorm:"index"`
	MarketerID *snowflake.ID `gorm:"index"`

	StripeEventID         string  `gorm:"type:text;not null;uniqueIndex"`
	StripeChargeID        *string `gorm:"type:text;index"`
	StripeInvoiceID       *string `gorm:"type:text;index"`
	StripePaymentIntentID *string `gorm:"type:text;index"`

	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"type:text;not null"`

	CommissionAmount int64 `gorm:"not null"`
	// CommissionAmountOriginal snapshots the commission at creation time.
	// It is set once and never overwritten; proportional refund math
	// always scales from this baseline.
	CommissionAmountOriginal int64 `gorm:"not null"`

	RefundedAmount   int64 `gorm:"not null;default:0"`
	RefundedAt       *time.Time
	RefundWindowDays int `gorm:"not null"`
	RefundEligibleAt *time.Time

	DisputeID     *string `gorm:"type:text"`
	DisputeStatus *string `gorm:"type:text"`
	ChargebackAt  *time.Time

	CreatorPaymentID *snowflake.ID `gorm:"index"`

	Status           Status           `gorm:"type:text;not null"`
	CommissionStatus CommissionStatus `gorm:"type:text;not null;index"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Purchase) TableName() string { return "purchases" }

// Settled reports whether the commission has been paid out. Settled
// purchases are immutable under refund/dispute processing.
func (p *Purchase) Settled() bool {
	return p.CommissionStatus == CommissionPaid || p.Status == StatusPaid
}

// CommissionAdjustment is an immutable ledger entry correcting a
// previously settled commission. Negative amounts claw back, positive
// amounts reverse a prior claw-back. Entries are appended, never
// mutated beyond their status.
type CommissionAdjustment struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	CreatorID  snowflake.ID `gorm:"not null;index"`
	MarketerID snowflake.ID `gorm:"not null;index"`
	ProjectID  snowflake.ID `gorm:"not null;index"`
	PurchaseID snowflake.ID `gorm:"not null;index"`

	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"type:text;not null"`

	Reason AdjustmentReason `gorm:"type:text;not null"`
	Status AdjustmentStatus `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CommissionAdjustment) TableName() string { return "commission_adjustments" }

// CreatorPayment is the creator-side payout invoice covering a batch of
// purchases. Settling it releases those purchases toward payout.
type CreatorPayment struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	ProjectID     snowflake.ID `gorm:"not null;index"`
	CreatorID     snowflake.ID `gorm:"not null;index"`
	Amount        int64        `gorm:"not null"`
	Currency      string       `gorm:"type:text;not null"`
	Status        Status       `gorm:"type:text;not null"`
	StripeEventID *string      `gorm:"type:text"`
	PaidAt        *time.Time
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CreatorPayment) TableName() string { return "creator_payments" }
