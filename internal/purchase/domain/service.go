package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
)

// Service materializes purchases from normalized payment events.
type Service interface {
	// Record creates exactly one Purchase per real-world payment. The
	// bool reports whether a new row was created; replays and
	// cross-event-type duplicates return the existing purchase with
	// false.
	Record(ctx context.Context, input RecordInput) (*Purchase, bool, error)
}

// RecordInput is everything the ledger needs, already resolved by the
// webhook router: the normalized money fields plus the attribution
// verdict and the owning project's refund-window override.
type RecordInput struct {
	StripeEventID string
	ProjectID     snowflake.ID
	OwnerID       snowflake.ID

	Amount   int64
	Currency string

	ChargeID        string
	InvoiceID       string
	PaymentIntentID string

	Attribution             attributiondomain.Attribution
	ProjectRefundWindowDays *int
}

var (
	ErrInvalidEvent    = errors.New("invalid_event")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidProject  = errors.New("invalid_project")
	ErrPurchaseNotFound = errors.New("purchase_not_found")
)
