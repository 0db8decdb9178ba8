package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
)

type gormRepository struct{}

func Provide() domain.Repository {
	return gormRepository{}
}

// lockForUpdate applies a row lock on dialects that support it. The
// sqlite test dialect is single-writer, so skipping the clause there is
// safe.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func lockSkipLocked(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	return db
}

func (gormRepository) InsertPurchase(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_event_id"}},
			DoNothing: true,
		}).
		Create(purchase)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (gormRepository) FindByEventID(ctx context.Context, db *gorm.DB, stripeEventID string) (*domain.Purchase, error) {
	stripeEventID = strings.TrimSpace(stripeEventID)
	if stripeEventID == "" {
		return nil, nil
	}
	var purchase domain.Purchase
	err := db.WithContext(ctx).
		Where("stripe_event_id = ?", stripeEventID).
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (gormRepository) FindByChargeKeys(ctx context.Context, db *gorm.DB, projectID snowflake.ID, chargeID, invoiceID, paymentIntentID string) (*domain.Purchase, error) {
	query := db.WithContext(ctx).Where("project_id = ?", projectID)

	keys := db.Session(&gorm.Session{NewDB: true})
	matched := false
	if chargeID = strings.TrimSpace(chargeID); chargeID != "" {
		keys = keys.Or("stripe_charge_id = ?", chargeID)
		matched = true
	}
	if invoiceID = strings.TrimSpace(invoiceID); invoiceID != "" {
		keys = keys.Or("stripe_invoice_id = ?", invoiceID)
		matched = true
	}
	if paymentIntentID = strings.TrimSpace(paymentIntentID); paymentIntentID != "" {
		keys = keys.Or("stripe_payment_intent_id = ?", paymentIntentID)
		matched = true
	}
	if !matched {
		return nil, nil
	}

	var purchase domain.Purchase
	err := query.Where(keys).First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (gormRepository) FindByChargeForUpdate(ctx context.Context, tx *gorm.DB, chargeID, paymentIntentID, invoiceID string) (*domain.Purchase, error) {
	lookups := []struct {
		column string
		value  string
	}{
		{"stripe_charge_id", strings.TrimSpace(chargeID)},
		{"stripe_payment_intent_id", strings.TrimSpace(paymentIntentID)},
		{"stripe_invoice_id", strings.TrimSpace(invoiceID)},
	}
	for _, lookup := range lookups {
		if lookup.value == "" {
			continue
		}
		var purchase domain.Purchase
		err := lockForUpdate(tx.WithContext(ctx)).
			Where(lookup.column+" = ?", lookup.value).
			First(&purchase).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &purchase, nil
	}
	return nil, nil
}

func (gormRepository) UpdatePurchase(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	purchase.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(purchase).Error
}

func (gormRepository) InsertAdjustment(ctx context.Context, db *gorm.DB, adjustment *domain.CommissionAdjustment) error {
	return db.WithContext(ctx).Create(adjustment).Error
}

func (gormRepository) ListChargebackAdjustmentsForUpdate(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID) ([]domain.CommissionAdjustment, error) {
	var adjustments []domain.CommissionAdjustment
	err := lockForUpdate(tx.WithContext(ctx)).
		Where("purchase_id = ? AND reason = ? AND status IN ?",
			purchaseID,
			domain.AdjustmentReasonChargeback,
			[]domain.AdjustmentStatus{domain.AdjustmentStatusPending, domain.AdjustmentStatusApplied},
		).
		Order("id").
		Find(&adjustments).Error
	if err != nil {
		return nil, err
	}
	return adjustments, nil
}

func (gormRepository) MarkAdjustmentsReversed(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.CommissionAdjustment{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     domain.AdjustmentStatusReversed,
			"updated_at": at,
		}).Error
}

func (gormRepository) FindCreatorPayment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CreatorPayment, error) {
	var payment domain.CreatorPayment
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (gormRepository) UpdateCreatorPayment(ctx context.Context, db *gorm.DB, payment *domain.CreatorPayment) error {
	payment.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(payment).Error
}

func (gormRepository) ListByCreatorPaymentForUpdate(ctx context.Context, tx *gorm.DB, creatorPaymentID snowflake.ID) ([]domain.Purchase, error) {
	var purchases []domain.Purchase
	err := lockForUpdate(tx.WithContext(ctx)).
		Where("creator_payment_id = ?", creatorPaymentID).
		Order("id").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}

func (gormRepository) LockAwaitingWindowElapsed(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]domain.Purchase, error) {
	if limit <= 0 {
		limit = 50
	}
	var purchases []domain.Purchase
	err := lockSkipLocked(tx.WithContext(ctx)).
		Where("commission_status = ? AND refund_eligible_at IS NOT NULL AND refund_eligible_at <= ?",
			domain.CommissionAwaitingRefundWindow, now).
		Order("refund_eligible_at").
		Limit(limit).
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}
