package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertPurchase inserts with ON CONFLICT DO NOTHING on the
	// stripe_event_id unique index. The bool reports whether the row
	// was actually written; a racing duplicate insert returns false,
	// never an error.
	InsertPurchase(ctx context.Context, db *gorm.DB, purchase *Purchase) (bool, error)

	FindByEventID(ctx context.Context, db *gorm.DB, stripeEventID string) (*Purchase, error)

	// FindByChargeKeys matches any of charge/invoice/payment-intent ids
	// within a project, covering Stripe firing multiple event types for
	// one underlying charge.
	FindByChargeKeys(ctx context.Context, db *gorm.DB, projectID snowflake.ID, chargeID, invoiceID, paymentIntentID string) (*Purchase, error)

	// FindByChargeForUpdate resolves a purchase by charge id (preferred)
	// or payment-intent/invoice fallback and locks the row for the
	// enclosing transaction.
	FindByChargeForUpdate(ctx context.Context, tx *gorm.DB, chargeID, paymentIntentID, invoiceID string) (*Purchase, error)

	UpdatePurchase(ctx context.Context, db *gorm.DB, purchase *Purchase) error

	InsertAdjustment(ctx context.Context, db *gorm.DB, adjustment *CommissionAdjustment) error

	// ListChargebackAdjustmentsForUpdate returns the purchase's
	// PENDING/APPLIED chargeback entries, locked.
	ListChargebackAdjustmentsForUpdate(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID) ([]CommissionAdjustment, error)

	MarkAdjustmentsReversed(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error

	FindCreatorPayment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CreatorPayment, error)
	UpdateCreatorPayment(ctx context.Context, db *gorm.DB, payment *CreatorPayment) error
	ListByCreatorPaymentForUpdate(ctx context.Context, tx *gorm.DB, creatorPaymentID snowflake.ID) ([]Purchase, error)

	// LockAwaitingWindowElapsed fetches purchases whose refund window has
	// elapsed, skipping rows locked by concurrent workers.
	LockAwaitingWindowElapsed(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]Purchase, error)
}
