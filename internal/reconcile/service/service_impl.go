package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/clock"
	"github.com/TD-Producoes/revshare-sub001/internal/events"
	"github.com/TD-Producoes/revshare-sub001/internal/money"
	notificationdomain "github.com/TD-Producoes/revshare-sub001/internal/notification/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/metrics"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
	reconciledomain "github.com/TD-Producoes/revshare-sub001/internal/reconcile/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        purchasedomain.Repository
	Attribution attributiondomain.Service
	Outbox      *events.Outbox
	Notifier    notificationdomain.Notifier
	Metrics     *metrics.WebhookMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        purchasedomain.Repository
	attribution attributiondomain.Service
	outbox      *events.Outbox
	notifier    notificationdomain.Notifier
	metrics     *metrics.WebhookMetrics
}

func NewService(p Params) reconciledomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reconcile.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		attribution: p.Attribution,
		outbox:      p.Outbox,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
	}
}

func (s *Service) ApplyRefund(ctx context.Context, event reconciledomain.RefundEvent) (*purchasedomain.Purchase, error) {
	if !hasChargeKey(event.ChargeID, event.PaymentIntentID, event.InvoiceID) {
		return nil, reconciledomain.ErrMissingChargeKey
	}

	var (
		result          *purchasedomain.Purchase
		adjustmentMade  bool
		refundProcessed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchase, err := s.repo.FindByChargeForUpdate(ctx, tx, event.ChargeID, event.PaymentIntentID, event.InvoiceID)
		if err != nil {
			return err
		}
		if purchase == nil {
			return purchasedomain.ErrPurchaseNotFound
		}

		next := event.AmountRefunded
		if next > purchase.Amount {
			next = purchase.Amount
		}
		// Refunded-to-date is monotonic. A smaller or equal total means a
		// replayed or out-of-order delivery.
		if next <= purchase.RefundedAmount {
			result = purchase
			return nil
		}
		deltaRefunded := next - purchase.RefundedAmount
		deltaCommission := money.Proportional(purchase.CommissionAmountOriginal, deltaRefunded, purchase.Amount)
		nextCommission := purchase.CommissionAmountOriginal -
			money.Proportional(purchase.CommissionAmountOriginal, next, purchase.Amount)
		if nextCommission < 0 {
			nextCommission = 0
		}

		now := s.clock.Now()
		if purchase.Settled() {
			// Settled commissions stay untouched; the correction lives in
			// the adjustment ledger.
			if deltaCommission > 0 && purchase.MarketerID != nil {
				if err := s.insertAdjustment(ctx, tx, purchase, -deltaCommission, purchasedomain.AdjustmentReasonRefund, now); err != nil {
					return err
				}
				adjustmentMade = true
			}
		} else {
			purchase.CommissionAmount = nextCommission
			if next >= purchase.Amount {
				purchase.CommissionStatus = purchasedomain.CommissionRefunded
			}
		}

		purchase.RefundedAmount = next
		refundedAt := event.OccurredAt
		if refundedAt.IsZero() {
			refundedAt = now
		}
		purchase.RefundedAt = &refundedAt

		if err := s.repo.UpdatePurchase(ctx, tx, purchase); err != nil {
			return err
		}
		if err := s.publish(ctx, tx, purchase, events.EventPurchaseRefunded, event.StripeEventID); err != nil {
			return err
		}
		result = purchase
		refundProcessed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if adjustmentMade {
		s.metrics.IncAdjustmentWritten(string(purchasedomain.AdjustmentReasonRefund))
	}
	if refundProcessed {
		s.notify(ctx, result, notificationdomain.KindSaleRefunded)
	}
	return result, nil
}

func (s *Service) ApplyDispute(ctx context.Context, event reconciledomain.DisputeEvent) (*purchasedomain.Purchase, error) {
	if !hasChargeKey(event.ChargeID, event.PaymentIntentID) {
		return nil, reconciledomain.ErrMissingChargeKey
	}
	disputeID := strings.TrimSpace(event.DisputeID)
	if disputeID == "" {
		return nil, reconciledomain.ErrMissingDispute
	}
	status := strings.TrimSpace(event.Status)
	isWon := status == reconciledomain.DisputeStatusWon

	var (
		result     *purchasedomain.Purchase
		adjReason  purchasedomain.AdjustmentReason
		transition bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchase, err := s.repo.FindByChargeForUpdate(ctx, tx, event.ChargeID, event.PaymentIntentID, "")
		if err != nil {
			return err
		}
		if purchase == nil {
			return purchasedomain.ErrPurchaseNotFound
		}

		now := s.clock.Now()
		target := s.disputeTarget(purchase, isWon)

		if purchase.DisputeID != nil && *purchase.DisputeID == disputeID &&
			purchase.DisputeStatus != nil && *purchase.DisputeStatus == status &&
			purchase.CommissionStatus == target {
			result = purchase
			return nil
		}

		settledBefore := purchase.Settled()
		purchase.DisputeID = &disputeID
		purchase.DisputeStatus = &status

		if isWon {
			adjustments, err := s.repo.ListChargebackAdjustmentsForUpdate(ctx, tx, purchase.ID)
			if err != nil {
				return err
			}
			var total int64
			ids := make([]snowflake.ID, 0, len(adjustments))
			for _, adjustment := range adjustments {
				total += adjustment.Amount
				ids = append(ids, adjustment.ID)
			}
			if total < 0 {
				if err := s.insertAdjustment(ctx, tx, purchase, -total, purchasedomain.AdjustmentReasonChargebackReversal, now); err != nil {
					return err
				}
				if err := s.repo.MarkAdjustmentsReversed(ctx, tx, ids, now); err != nil {
					return err
				}
				adjReason = purchasedomain.AdjustmentReasonChargebackReversal
			}
		} else {
			if purchase.ChargebackAt == nil {
				purchase.ChargebackAt = &now
			}
			if settledBefore && purchase.MarketerID != nil {
				existing, err := s.repo.ListChargebackAdjustmentsForUpdate(ctx, tx, purchase.ID)
				if err != nil {
					return err
				}
				if len(existing) == 0 {
					disputed := event.Amount
					if disputed <= 0 || disputed > purchase.Amount {
						disputed = purchase.Amount
					}
					clawback := money.Proportional(purchase.CommissionAmountOriginal, disputed, purchase.Amount)
					if clawback > 0 {
						if err := s.insertAdjustment(ctx, tx, purchase, -clawback, purchasedomain.AdjustmentReasonChargeback, now); err != nil {
							return err
						}
						adjReason = purchasedomain.AdjustmentReasonChargeback
					}
				}
			}
		}

		purchase.CommissionStatus = target
		if err := s.repo.UpdatePurchase(ctx, tx, purchase); err != nil {
			return err
		}

		eventType := events.EventPurchaseChargeback
		if isWon {
			eventType = events.EventChargebackReversed
		}
		if err := s.publish(ctx, tx, purchase, eventType, event.StripeEventID); err != nil {
			return err
		}
		result = purchase
		transition = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if adjReason != "" {
		s.metrics.IncAdjustmentWritten(string(adjReason))
	}
	if transition {
		kind := notificationdomain.KindCommissionClawback
		if isWon {
			kind = notificationdomain.KindCommissionRestored
		}
		s.notify(ctx, result, kind)
	}
	return result, nil
}

// disputeTarget derives the commission status a dispute outcome should
// leave the purchase in. Settled commissions stay PAID either way; a win
// replays the creation-time waiting-window decision.
func (s *Service) disputeTarget(purchase *purchasedomain.Purchase, isWon bool) purchasedomain.CommissionStatus {
	if purchase.CommissionStatus == purchasedomain.CommissionPaid {
		return purchasedomain.CommissionPaid
	}
	if !isWon {
		return purchasedomain.CommissionChargeback
	}
	if purchase.CreatorPaymentID != nil {
		return purchasedomain.CommissionReadyForPayout
	}
	if purchase.RefundEligibleAt != nil && purchase.RefundEligibleAt.After(s.clock.Now()) {
		return purchasedomain.CommissionAwaitingRefundWindow
	}
	return purchasedomain.CommissionPendingCreatorPayment
}

func (s *Service) insertAdjustment(ctx context.Context, tx *gorm.DB, purchase *purchasedomain.Purchase, amount int64, reason purchasedomain.AdjustmentReason, at time.Time) error {
	var marketerID snowflake.ID
	if purchase.MarketerID != nil {
		marketerID = *purchase.MarketerID
	}
	adjustment := &purchasedomain.CommissionAdjustment{
		ID:         s.genID.Generate(),
		CreatorID:  s.creatorID(ctx, purchase.ProjectID),
		MarketerID: marketerID,
		ProjectID:  purchase.ProjectID,
		PurchaseID: purchase.ID,
		Amount:     amount,
		Currency:   purchase.Currency,
		Reason:     reason,
		Status:     purchasedomain.AdjustmentStatusPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	return s.repo.InsertAdjustment(ctx, tx, adjustment)
}

// creatorID resolves the project owner the adjustment debits. A missing
// project is tolerated so reconciliation never fails on lookup noise.
func (s *Service) creatorID(ctx context.Context, projectID snowflake.ID) snowflake.ID {
	project, err := s.attribution.GetProject(ctx, projectID)
	if err != nil || project == nil {
		s.log.Warn("adjustment creator lookup failed",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		return 0
	}
	return project.OwnerID
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, purchase *purchasedomain.Purchase, eventType, stripeEventID string) error {
	event := events.Event{
		ProjectID: purchase.ProjectID,
		Type:      eventType,
		Payload: events.PurchasePayload{
			PurchaseID:       purchase.ID.String(),
			StripeEventID:    stripeEventID,
			Amount:           purchase.Amount,
			CommissionAmount: purchase.CommissionAmount,
			RefundedAmount:   purchase.RefundedAmount,
			CommissionStatus: string(purchase.CommissionStatus),
		}.ToMap(),
	}
	if id := strings.TrimSpace(stripeEventID); id != "" {
		event.DedupeKey = eventType + ":" + id
	}
	return s.outbox.PublishTx(ctx, tx, event)
}

func (s *Service) notify(ctx context.Context, purchase *purchasedomain.Purchase, kind string) {
	payload := map[string]any{
		"purchase_id":       purchase.ID.String(),
		"project_id":        purchase.ProjectID.String(),
		"amount":            purchase.Amount,
		"currency":          purchase.Currency,
		"refunded_amount":   purchase.RefundedAmount,
		"commission_amount": purchase.CommissionAmount,
		"commission_status": string(purchase.CommissionStatus),
	}
	if purchase.MarketerID != nil {
		s.notifier.Notify(ctx, *purchase.MarketerID, kind, payload)
	}
	if owner := s.creatorID(ctx, purchase.ProjectID); owner != 0 {
		s.notifier.Notify(ctx, owner, kind, payload)
	}
}

func hasChargeKey(keys ...string) bool {
	for _, key := range keys {
		if strings.TrimSpace(key) != "" {
			return true
		}
	}
	return false
}
