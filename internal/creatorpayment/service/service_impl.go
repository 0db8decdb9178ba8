package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/clock"
	creatorpaymentdomain "github.com/TD-Producoes/revshare-sub001/internal/creatorpayment/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/events"
	notificationdomain "github.com/TD-Producoes/revshare-sub001/internal/notification/domain"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     purchasedomain.Repository
	Outbox   *events.Outbox
	Notifier notificationdomain.Notifier
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     purchasedomain.Repository
	outbox   *events.Outbox
	notifier notificationdomain.Notifier
}

func NewService(p Params) creatorpaymentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("creatorpayment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		outbox:   p.Outbox,
		notifier: p.Notifier,
	}
}

func (s *Service) Settle(ctx context.Context, input creatorpaymentdomain.SettleInput) (*purchasedomain.CreatorPayment, error) {
	var (
		result    *purchasedomain.CreatorPayment
		marketers map[snowflake.ID]struct{}
		settled   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindCreatorPayment(ctx, tx, input.CreatorPaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return creatorpaymentdomain.ErrCreatorPaymentNotFound
		}
		if payment.Status == purchasedomain.StatusPaid {
			result = payment
			return nil
		}

		now := s.clock.Now()
		payment.Status = purchasedomain.StatusPaid
		payment.PaidAt = &now
		if id := strings.TrimSpace(input.StripeEventID); id != "" {
			payment.StripeEventID = &id
		}
		if err := s.repo.UpdateCreatorPayment(ctx, tx, payment); err != nil {
			return err
		}

		purchases, err := s.repo.ListByCreatorPaymentForUpdate(ctx, tx, payment.ID)
		if err != nil {
			return err
		}
		marketers = make(map[snowflake.ID]struct{})
		for i := range purchases {
			purchase := &purchases[i]
			if !s.release(purchase, now) {
				continue
			}
			if err := s.repo.UpdatePurchase(ctx, tx, purchase); err != nil {
				return err
			}
			if purchase.MarketerID != nil {
				marketers[*purchase.MarketerID] = struct{}{}
			}
		}

		event := events.Event{
			ProjectID: payment.ProjectID,
			Type:      events.EventCreatorPaymentSettled,
			Payload: map[string]any{
				"creator_payment_id": payment.ID.String(),
				"amount":             payment.Amount,
				"currency":           payment.Currency,
				"purchases":          len(purchases),
			},
		}
		if id := strings.TrimSpace(input.StripeEventID); id != "" {
			event.DedupeKey = "creator_payment_settled:" + id
		}
		if err := s.outbox.PublishTx(ctx, tx, event); err != nil {
			return err
		}

		result = payment
		settled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settled {
		payload := map[string]any{
			"creator_payment_id": result.ID.String(),
			"project_id":         result.ProjectID.String(),
			"amount":             result.Amount,
			"currency":           result.Currency,
		}
		s.notifier.Notify(ctx, result.CreatorID, notificationdomain.KindPayoutSettled, payload)
		for marketerID := range marketers {
			s.notifier.Notify(ctx, marketerID, notificationdomain.KindPayoutSettled, payload)
		}
	}
	return result, nil
}

// release moves one covered purchase out of its waiting state. Terminal
// commission states (PAID, REFUNDED, CHARGEBACK) are left alone.
func (s *Service) release(purchase *purchasedomain.Purchase, now time.Time) bool {
	switch purchase.CommissionStatus {
	case purchasedomain.CommissionPending,
		purchasedomain.CommissionAwaitingRefundWindow,
		purchasedomain.CommissionPendingCreatorPayment,
		purchasedomain.CommissionReadyForPayout:
	default:
		return false
	}

	if purchase.RefundEligibleAt == nil {
		eligible := purchase.CreatedAt.Add(time.Duration(purchase.RefundWindowDays) * 24 * time.Hour)
		purchase.RefundEligibleAt = &eligible
	}

	purchase.Status = purchasedomain.StatusPaid
	if purchase.RefundEligibleAt.After(now) {
		purchase.CommissionStatus = purchasedomain.CommissionAwaitingRefundWindow
	} else {
		purchase.CommissionStatus = purchasedomain.CommissionReadyForPayout
	}
	return true
}
