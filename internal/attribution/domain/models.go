package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ContractStatus gates commission attribution. Only APPROVED contracts
// earn commission; a coupon distributed under a contract that was later
// paused or rejected still applies its discount but attributes nothing.
type ContractStatus string

const (
	ContractStatusPending  ContractStatus = "PENDING"
	ContractStatusApproved ContractStatus = "APPROVED"
	ContractStatusPaused   ContractStatus = "PAUSED"
	ContractStatusRejected ContractStatus = "REJECTED"
)

type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "ACTIVE"
	CouponStatusRevoked  CouponStatus = "REVOKED"
	CouponStatusExpired  CouponStatus = "EXPIRED"
)

type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "ACTIVE"
	TemplateStatusArchived TemplateStatus = "ARCHIVED"
)

// Project is the creator-side product a marketer promotes.
type Project struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	OwnerID          snowflake.ID `gorm:"not null;index"`
	Name             string       `gorm:"type:text;not null"`
	StripeAccountID  *string      `gorm:"type:text;uniqueIndex"`
	RefundWindowDays *int
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Project) TableName() string { return "projects" }

// Contract is the approval relationship between a marketer and a project,
// carrying the agreed commission rate and refund window.
type Contract struct {
	ID                snowflake.ID   `gorm:"primaryKey"`
	ProjectID         snowflake.ID   `gorm:"not null;uniqueIndex:ux_contracts_project_marketer,priority:1"`
	MarketerID        snowflake.ID   `gorm:"not null;uniqueIndex:ux_contracts_project_marketer,priority:2"`
	Status            ContractStatus `gorm:"type:text;not null"`
	CommissionPercent float64        `gorm:"not null"`
	RefundWindowDays  *int
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Contract) TableName() string { return "contracts" }

// CouponTemplate is the creator-defined offer a marketer claims a coupon
// from: discount size, validity window, optional marketer allow-list.
type CouponTemplate struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	ProjectID  snowflake.ID   `gorm:"not null;index"`
	Status     TemplateStatus `gorm:"type:text;not null"`
	PercentOff float64        `gorm:"not null"`
	StartAt    *time.Time
	EndAt      *time.Time
	// AllowedMarketerIDs is empty for open templates; otherwise only the
	// listed marketers may claim.
	AllowedMarketerIDs []snowflake.ID `gorm:"serializer:json"`
	CreatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CouponTemplate) TableName() string { return "coupon_templates" }

// Coupon binds a Stripe promotion code to exactly one
// (project, marketer, template) triple.
type Coupon struct {
	ID                     snowflake.ID `gorm:"primaryKey"`
	ProjectID              snowflake.ID `gorm:"not null;index"`
	MarketerID             snowflake.ID `gorm:"not null;index"`
	TemplateID             snowflake.ID `gorm:"not null;index"`
	Code                   string       `gorm:"type:text;not null"`
	StripeCouponID         string       `gorm:"type:text;not null"`
	StripePromotionCodeID  string       `gorm:"type:text;not null;uniqueIndex"`
	Status                 CouponStatus `gorm:"type:text;not null"`
	CreatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Coupon) TableName() string { return "coupons" }

// Attribution is the resolver's verdict for one payment event.
type Attribution struct {
	Attributed        bool
	CouponID          *snowflake.ID
	MarketerID        *snowflake.ID
	CommissionPercent float64
	// RefundWindowDays is the contract-level override, nil when the
	// contract does not set one.
	RefundWindowDays *int
}

// Unattributed is the zero verdict: no marketer, no commission.
func Unattributed() Attribution { return Attribution{} }
