package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindCouponByPromotionCode(ctx context.Context, db *gorm.DB, promotionCodeID string) (*Coupon, error)
	FindCouponForClaim(ctx context.Context, db *gorm.DB, projectID, templateID, marketerID snowflake.ID) (*Coupon, error)
	InsertCoupon(ctx context.Context, db *gorm.DB, coupon *Coupon) (bool, error)
	FindContract(ctx context.Context, db *gorm.DB, projectID, marketerID snowflake.ID) (*Contract, error)
	FindTemplate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CouponTemplate, error)
	FindProject(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	FindProjectByStripeAccount(ctx context.Context, db *gorm.DB, stripeAccountID string) (*Project, error)
}

// PromotionCodeGateway creates the Stripe-side coupon and promotion code
// during a claim. Tests substitute a fake.
type PromotionCodeGateway interface {
	CreatePromotionCode(ctx context.Context, req PromotionCodeRequest) (PromotionCodeResult, error)
}

type PromotionCodeRequest struct {
	Code            string
	PercentOff      float64
	StripeAccountID string
}

type PromotionCodeResult struct {
	CouponID        string
	PromotionCodeID string
}
