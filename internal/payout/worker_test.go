package payout

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/TD-Producoes/revshare-sub001/internal/clock"
	"github.com/TD-Producoes/revshare-sub001/internal/events"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/purchase/repository"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&purchasedomain.Purchase{}, &events.EventRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestWorker(t *testing.T, db *gorm.DB) *Worker {
	t.Helper()
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Worker{
		db:     db,
		log:    zap.NewNop(),
		clock:  clock.Fixed(testNow),
		repo:   repository.Provide(),
		outbox: events.NewOutbox(db, node),
		cfg:    DefaultConfig(),
	}
}

func seedAwaiting(t *testing.T, db *gorm.DB, id snowflake.ID, eligibleAt time.Time, creatorPaymentID *snowflake.ID) {
	t.Helper()
	marketerID := snowflake.ID(7002)
	purchase := &purchasedomain.Purchase{
		ID:                       id,
		ProjectID:                5001,
		MarketerID:               &marketerID,
		StripeEventID:            "evt_" + id.String(),
		Amount:                   10000,
		Currency:                 "usd",
		CommissionAmount:         2000,
		CommissionAmountOriginal: 2000,
		RefundWindowDays:         30,
		RefundEligibleAt:         &eligibleAt,
		CreatorPaymentID:         creatorPaymentID,
		Status:                   purchasedomain.StatusPending,
		CommissionStatus:         purchasedomain.CommissionAwaitingRefundWindow,
		CreatedAt:                testNow.Add(-31 * 24 * time.Hour),
		UpdatedAt:                testNow,
	}
	if err := db.Create(purchase).Error; err != nil {
		t.Fatalf("insert purchase: %v", err)
	}
}

func TestRunOnceReleasesElapsedWindows(t *testing.T) {
	db := setupWorkerTestDB(t)
	worker := newTestWorker(t, db)

	paymentID := snowflake.ID(4001)
	seedAwaiting(t, db, 9001, testNow.Add(-time.Hour), nil)
	seedAwaiting(t, db, 9002, testNow.Add(-time.Hour), &paymentID)
	seedAwaiting(t, db, 9003, testNow.Add(24*time.Hour), nil)

	processed, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 released, got %d", processed)
	}

	assertStatus := func(id snowflake.ID, want purchasedomain.CommissionStatus) {
		t.Helper()
		var purchase purchasedomain.Purchase
		if err := db.First(&purchase, "id = ?", id).Error; err != nil {
			t.Fatalf("load purchase %s: %v", id, err)
		}
		if purchase.CommissionStatus != want {
			t.Fatalf("purchase %s: expected %s, got %s", id, want, purchase.CommissionStatus)
		}
	}

	assertStatus(9001, purchasedomain.CommissionPendingCreatorPayment)
	assertStatus(9002, purchasedomain.CommissionReadyForPayout)
	assertStatus(9003, purchasedomain.CommissionAwaitingRefundWindow)

	var eventCount int64
	if err := db.Model(&events.EventRecord{}).
		Where("type = ?", events.EventCommissionReadyForPayout).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 ready_for_payout event, got %d", eventCount)
	}
}

func TestRunOnceIsIdempotent(t *testing.T) {
	db := setupWorkerTestDB(t)
	worker := newTestWorker(t, db)
	seedAwaiting(t, db, 9004, testNow.Add(-time.Hour), nil)

	if _, err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	processed, err := worker.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if processed != 0 {
		t.Fatalf("second run must find nothing, got %d", processed)
	}
}
