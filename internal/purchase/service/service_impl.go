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
	"github.com/TD-Producoes/revshare-sub001/internal/config"
	"github.com/TD-Producoes/revshare-sub001/internal/events"
	"github.com/TD-Producoes/revshare-sub001/internal/money"
	notificationdomain "github.com/TD-Producoes/revshare-sub001/internal/notification/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/metrics"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Repo     purchasedomain.Repository
	Outbox   *events.Outbox
	Notifier notificationdomain.Notifier
	Metrics  *metrics.WebhookMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     purchasedomain.Repository
	outbox   *events.Outbox
	notifier notificationdomain.Notifier
	metrics  *metrics.WebhookMetrics

	defaultRefundWindowDays int
}

func NewService(p Params) purchasedomain.Service {
	days := p.Cfg.DefaultRefundWindowDays
	if days <= 0 {
		days = 30
	}
	return &Service{
		db:                      p.DB,
		log:                     p.Log.Named("purchase.service"),
		genID:                   p.GenID,
		clock:                   p.Clock,
		repo:                    p.Repo,
		outbox:                  p.Outbox,
		notifier:                p.Notifier,
		metrics:                 p.Metrics,
		defaultRefundWindowDays: days,
	}
}

func (s *Service) Record(ctx context.Context, input purchasedomain.RecordInput) (*purchasedomain.Purchase, bool, error) {
	if strings.TrimSpace(input.StripeEventID) == "" {
		return nil, false, purchasedomain.ErrInvalidEvent
	}
	if input.ProjectID == 0 {
		return nil, false, purchasedomain.ErrInvalidProject
	}
	if input.Amount < 0 {
		return nil, false, purchasedomain.ErrInvalidAmount
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, false, purchasedomain.ErrInvalidCurrency
	}

	// Replay of the exact same Stripe event.
	if existing, err := s.repo.FindByEventID(ctx, s.db, input.StripeEventID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	// A different event type for the same underlying charge
	// (checkout.session.completed followed by charge.succeeded).
	if existing, err := s.repo.FindByChargeKeys(ctx, s.db, input.ProjectID, input.ChargeID, input.InvoiceID, input.PaymentIntentID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	purchase := s.build(input, currency)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertPurchase(ctx, tx, purchase)
		if err != nil {
			return err
		}
		if !inserted {
			// A racing delivery won the unique-constraint race; treat as
			// a duplicate, not a failure.
			purchase = nil
			return nil
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			ProjectID: input.ProjectID,
			Type:      events.EventPurchaseRecorded,
			Payload: events.PurchasePayload{
				PurchaseID:       purchase.ID.String(),
				StripeEventID:    input.StripeEventID,
				Amount:           purchase.Amount,
				CommissionAmount: purchase.CommissionAmount,
				CommissionStatus: string(purchase.CommissionStatus),
			}.ToMap(),
			DedupeKey: "purchase_recorded:" + input.StripeEventID,
		})
	})
	if err != nil {
		return nil, false, err
	}
	if purchase == nil {
		existing, err := s.repo.FindByEventID(ctx, s.db, input.StripeEventID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, purchasedomain.ErrPurchaseNotFound
		}
		return existing, false, nil
	}

	s.metrics.IncPurchaseRecorded()
	s.notifyRecorded(ctx, input, purchase)
	return purchase, true, nil
}

func (s *Service) build(input purchasedomain.RecordInput, currency string) *purchasedomain.Purchase {
	now := s.clock.Now()

	commission := int64(0)
	attributed := input.Attribution.Attributed && input.Attribution.MarketerID != nil
	if attributed {
		commission = money.ApplyPercent(input.Amount, input.Attribution.CommissionPercent)
	}

	purchase := &purchasedomain.Purchase{
		ID:                       s.genID.Generate(),
		ProjectID:                input.ProjectID,
		StripeEventID:            input.StripeEventID,
		Amount:                   input.Amount,
		Currency:                 currency,
		CommissionAmount:         commission,
		CommissionAmountOriginal: commission,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if id := strings.TrimSpace(input.ChargeID); id != "" {
		purchase.StripeChargeID = &id
	}
	if id := strings.TrimSpace(input.InvoiceID); id != "" {
		purchase.StripeInvoiceID = &id
	}
	if id := strings.TrimSpace(input.PaymentIntentID); id != "" {
		purchase.StripePaymentIntentID = &id
	}

	windowDays := s.resolveRefundWindow(input)
	purchase.RefundWindowDays = windowDays
	eligibleAt := now.Add(time.Duration(windowDays) * 24 * time.Hour)
	purchase.RefundEligibleAt = &eligibleAt

	if attributed && commission > 0 {
		purchase.CouponID = input.Attribution.CouponID
		purchase.MarketerID = input.Attribution.MarketerID
		purchase.Status = purchasedomain.StatusPending
		if eligibleAt.After(now) {
			purchase.CommissionStatus = purchasedomain.CommissionAwaitingRefundWindow
		} else {
			purchase.CommissionStatus = purchasedomain.CommissionPendingCreatorPayment
		}
	} else {
		// Nothing owed: no marketer to pay and no creator invoice to wait
		// for.
		purchase.Status = purchasedomain.StatusPaid
		purchase.CommissionStatus = purchasedomain.CommissionPaid
	}
	return purchase
}

// resolveRefundWindow applies the contract → project → platform default
// precedence.
func (s *Service) resolveRefundWindow(input purchasedomain.RecordInput) int {
	if input.Attribution.RefundWindowDays != nil && *input.Attribution.RefundWindowDays >= 0 {
		return *input.Attribution.RefundWindowDays
	}
	if input.ProjectRefundWindowDays != nil && *input.ProjectRefundWindowDays >= 0 {
		return *input.ProjectRefundWindowDays
	}
	return s.defaultRefundWindowDays
}

func (s *Service) notifyRecorded(ctx context.Context, input purchasedomain.RecordInput, purchase *purchasedomain.Purchase) {
	payload := map[string]any{
		"purchase_id":       purchase.ID.String(),
		"project_id":        purchase.ProjectID.String(),
		"amount":            purchase.Amount,
		"currency":          purchase.Currency,
		"commission_amount": purchase.CommissionAmount,
	}
	if purchase.MarketerID != nil {
		s.notifier.Notify(ctx, *purchase.MarketerID, notificationdomain.KindSaleRecorded, payload)
	}
	if input.OwnerID != 0 {
		s.notifier.Notify(ctx, input.OwnerID, notificationdomain.KindSaleRecorded, payload)
	}
}
