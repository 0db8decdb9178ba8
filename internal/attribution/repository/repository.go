package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
)

type gormRepository struct{}

func Provide() domain.Repository {
	return gormRepository{}
}

func (gormRepository) FindCouponByPromotionCode(ctx context.Context, db *gorm.DB, promotionCodeID string) (*domain.Coupon, error) {
	promotionCodeID = strings.TrimSpace(promotionCodeID)
	if promotionCodeID == "" {
		return nil, nil
	}
	var coupon domain.Coupon
	err := db.WithContext(ctx).
		Where("stripe_promotion_code_id = ?", promotionCodeID).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (gormRepository) FindCouponForClaim(ctx context.Context, db *gorm.DB, projectID, templateID, marketerID snowflake.ID) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := db.WithContext(ctx).
		Where("project_id = ? AND template_id = ? AND marketer_id = ? AND status = ?",
			projectID, templateID, marketerID, domain.CouponStatusActive).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (gormRepository) InsertCoupon(ctx context.Context, db *gorm.DB, coupon *domain.Coupon) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO coupons (id, project_id, marketer_id, template_id, code, stripe_coupon_id, stripe_promotion_code_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (stripe_promotion_code_id) DO NOTHING`,
		coupon.ID,
		coupon.ProjectID,
		coupon.MarketerID,
		coupon.TemplateID,
		coupon.Code,
		coupon.StripeCouponID,
		coupon.StripePromotionCodeID,
		coupon.Status,
		coupon.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (gormRepository) FindContract(ctx context.Context, db *gorm.DB, projectID, marketerID snowflake.ID) (*domain.Contract, error) {
	var contract domain.Contract
	err := db.WithContext(ctx).
		Where("project_id = ? AND marketer_id = ?", projectID, marketerID).
		First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (gormRepository) FindTemplate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CouponTemplate, error) {
	var template domain.CouponTemplate
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (gormRepository) FindProject(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (gormRepository) FindProjectByStripeAccount(ctx context.Context, db *gorm.DB, stripeAccountID string) (*domain.Project, error) {
	stripeAccountID = strings.TrimSpace(stripeAccountID)
	if stripeAccountID == "" {
		return nil, nil
	}
	var project domain.Project
	err := db.WithContext(ctx).
		Where("stripe_account_id = ?", stripeAccountID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}
