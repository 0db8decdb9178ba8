package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/notification/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Mailer domain.Mailer `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	mailer domain.Mailer
}

func NewService(p Params) domain.Notifier {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("notification.service"),
		genID:  p.GenID,
		mailer: p.Mailer,
	}
}

// Notify persists a notification row and optionally sends an email.
// Every failure is logged and swallowed: a notification must never fail
// the webhook request that triggered it.
func (s *Service) Notify(ctx context.Context, userID snowflake.ID, kind string, payload map[string]any) {
	if userID == 0 || strings.TrimSpace(kind) == "" {
		return
	}

	record := domain.Notification{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Kind:      kind,
		Payload:   datatypes.JSONMap(payload),
		CreatedAt: time.Now().UTC(),
	}
	if record.Payload == nil {
		record.Payload = datatypes.JSONMap{}
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.log.Warn("notification not persisted",
			zap.String("user_id", userID.String()),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return
	}

	s.sendEmail(ctx, kind, payload)
}

func (s *Service) sendEmail(ctx context.Context, kind string, payload map[string]any) {
	if s.mailer == nil {
		return
	}
	to, _ := payload["email"].(string)
	if strings.TrimSpace(to) == "" {
		return
	}
	subject, body := renderEmail(kind, payload)
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.log.Warn("notification email not sent",
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func renderEmail(kind string, payload map[string]any) (string, string) {
	switch kind {
	case domain.KindSaleRecorded:
		return "You made a sale", "<p>A purchase was just attributed to one of your coupons.</p>"
	case domain.KindSaleRefunded:
		return "A sale was refunded", "<p>A purchase attributed to you was refunded; your commission was adjusted.</p>"
	case domain.KindCommissionClawback:
		return "Commission adjusted", "<p>A chargeback reduced a previously settled commission.</p>"
	case domain.KindCommissionRestored:
		return "Commission restored", "<p>A dispute was won and your commission was restored.</p>"
	case domain.KindPayoutSettled:
		return "Payout settled", "<p>A creator payment covering your commissions was settled.</p>"
	default:
		return "Account update", "<p>There is new activity on your account.</p>"
	}
}
