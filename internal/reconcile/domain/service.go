package domain

import (
	"context"
	"errors"
	"time"

	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
)

// RefundEvent is the normalized projection of a charge.refunded delivery.
// AmountRefunded is the refunded-to-date total reported by the charge,
// not the size of the individual refund.
type RefundEvent struct {
	StripeEventID string

	ChargeID        string
	PaymentIntentID string
	InvoiceID       string

	AmountRefunded int64
	OccurredAt     time.Time
}

// DisputeEvent is the normalized projection of a charge.dispute.* delivery.
type DisputeEvent struct {
	StripeEventID string

	DisputeID string
	Status    string

	ChargeID        string
	PaymentIntentID string

	// Amount is the disputed amount. Zero means the whole purchase.
	Amount int64
}

const DisputeStatusWon = "won"

// Service drives the per-purchase refund/dispute state machine. Both
// operations are idempotent: replayed and out-of-order deliveries leave
// the ledger unchanged.
type Service interface {
	ApplyRefund(ctx context.Context, event RefundEvent) (*purchasedomain.Purchase, error)
	ApplyDispute(ctx context.Context, event DisputeEvent) (*purchasedomain.Purchase, error)
}

var (
	ErrMissingChargeKey = errors.New("missing_charge_key")
	ErrMissingDispute   = errors.New("missing_dispute_id")
)
