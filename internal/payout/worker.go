// Package payout releases commissions whose refund window has elapsed.
package payout

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/clock"
	"github.com/TD-Producoes/revshare-sub001/internal/events"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   purchasedomain.Repository
	Outbox *events.Outbox
	Config Config `optional:"true"`
}

// Worker polls for purchases stuck in AWAITING_REFUND_WINDOW past their
// eligibility time and moves them down the payout pipeline. Multiple
// replicas are safe: the batch query skips rows locked by a concurrent
// worker.
type Worker struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   purchasedomain.Repository
	outbox *events.Outbox
	cfg    Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:     p.DB,
		log:    p.Log.Named("payout.worker"),
		clock:  p.Clock,
		repo:   p.Repo,
		outbox: p.Outbox,
		cfg:    p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("payout release run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	return w.processBatch(ctx, w.cfg.BatchSize)
}

func (w *Worker) processBatch(ctx context.Context, limit int) (int, error) {
	if w.db == nil || w.repo == nil {
		return 0, errors.New("payout_worker_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	processed := 0
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := w.clock.Now()
		purchases, err := w.repo.LockAwaitingWindowElapsed(ctx, tx, now, limit)
		if err != nil {
			return err
		}
		for i := range purchases {
			purchase := &purchases[i]
			w.release(purchase)
			if err := w.repo.UpdatePurchase(ctx, tx, purchase); err != nil {
				return err
			}
			if purchase.CommissionStatus == purchasedomain.CommissionReadyForPayout {
				if err := w.outbox.PublishTx(ctx, tx, events.Event{
					ProjectID: purchase.ProjectID,
					Type:      events.EventCommissionReadyForPayout,
					Payload: events.PurchasePayload{
						PurchaseID:       purchase.ID.String(),
						CommissionAmount: purchase.CommissionAmount,
						CommissionStatus: string(purchase.CommissionStatus),
					}.ToMap(),
					DedupeKey: "ready_for_payout:" + purchase.ID.String(),
				}); err != nil {
					return err
				}
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return processed, err
	}
	if processed > 0 {
		w.log.Info("released commissions past refund window", zap.Int("count", processed))
	}
	return processed, nil
}

// release advances one purchase. A purchase already covered by a creator
// payment goes straight to READY_FOR_PAYOUT; otherwise it waits for the
// creator to pay the invoice that will cover it.
func (w *Worker) release(purchase *purchasedomain.Purchase) {
	if purchase.CreatorPaymentID != nil {
		purchase.CommissionStatus = purchasedomain.CommissionReadyForPayout
		return
	}
	purchase.CommissionStatus = purchasedomain.CommissionPendingCreatorPayment
}
