package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Notification kinds surfaced to marketers and project owners.
const (
	KindSaleRecorded       = "sale.recorded"
	KindSaleRefunded       = "sale.refunded"
	KindCommissionClawback = "commission.clawback"
	KindCommissionRestored = "commission.restored"
	KindPayoutSettled      = "payout.settled"
)

type Notification struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	UserID    snowflake.ID      `gorm:"not null;index"`
	Kind      string            `gorm:"type:text;not null"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Notification) TableName() string { return "notifications" }

// Notifier is the best-effort side-effect dispatcher. Implementations
// must never let a failure escape: a lost notification is acceptable, a
// failed webhook response is not.
type Notifier interface {
	Notify(ctx context.Context, userID snowflake.ID, kind string, payload map[string]any)
}

// Mailer sends an email. The zero configuration disables sending.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}
