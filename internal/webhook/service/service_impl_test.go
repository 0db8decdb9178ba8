package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	creatorpaymentdomain "github.com/TD-Producoes/revshare-sub001/internal/creatorpayment/domain"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
	reconciledomain "github.com/TD-Producoes/revshare-sub001/internal/reconcile/domain"
	webhookdomain "github.com/TD-Producoes/revshare-sub001/internal/webhook/domain"
)

const testSecret = "whsec_test"

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeAttribution struct {
	projectByAccount map[string]*attributiondomain.Project
	projectByPromo   map[string]*attributiondomain.Project
	projectByID      map[snowflake.ID]*attributiondomain.Project
	verdict          attributiondomain.Attribution
}

func (f *fakeAttribution) Resolve(context.Context, string, snowflake.ID) (attributiondomain.Attribution, error) {
	return f.verdict, nil
}

func (f *fakeAttribution) ResolveProjectByAccount(_ context.Context, accountID string) (*attributiondomain.Project, error) {
	return f.projectByAccount[accountID], nil
}

func (f *fakeAttribution) ResolveProjectByPromotionCode(_ context.Context, promotionCodeID string) (*attributiondomain.Project, error) {
	return f.projectByPromo[promotionCodeID], nil
}

func (f *fakeAttribution) GetProject(_ context.Context, id snowflake.ID) (*attributiondomain.Project, error) {
	return f.projectByID[id], nil
}

func (f *fakeAttribution) Claim(context.Context, attributiondomain.ClaimRequest) (*attributiondomain.Coupon, error) {
	return nil, errors.New("not implemented")
}

type fakePurchases struct {
	inputs  []purchasedomain.RecordInput
	created bool
}

func (f *fakePurchases) Record(_ context.Context, input purchasedomain.RecordInput) (*purchasedomain.Purchase, bool, error) {
	f.inputs = append(f.inputs, input)
	return &purchasedomain.Purchase{ID: 1, ProjectID: input.ProjectID}, f.created, nil
}

type fakeReconciler struct {
	refunds  []reconciledomain.RefundEvent
	disputes []reconciledomain.DisputeEvent
}

func (f *fakeReconciler) ApplyRefund(_ context.Context, event reconciledomain.RefundEvent) (*purchasedomain.Purchase, error) {
	f.refunds = append(f.refunds, event)
	return &purchasedomain.Purchase{}, nil
}

func (f *fakeReconciler) ApplyDispute(_ context.Context, event reconciledomain.DisputeEvent) (*purchasedomain.Purchase, error) {
	f.disputes = append(f.disputes, event)
	return &purchasedomain.Purchase{}, nil
}

type fakeSettler struct {
	inputs []creatorpaymentdomain.SettleInput
}

func (f *fakeSettler) Settle(_ context.Context, input creatorpaymentdomain.SettleInput) (*purchasedomain.CreatorPayment, error) {
	f.inputs = append(f.inputs, input)
	return &purchasedomain.CreatorPayment{ID: input.CreatorPaymentID}, nil
}

type testRouter struct {
	svc         *Service
	attribution *fakeAttribution
	purchases   *fakePurchases
	reconciler  *fakeReconciler
	settler     *fakeSettler
}

func newTestRouter(secrets ...string) *testRouter {
	windowDays := 30
	attribution := &fakeAttribution{
		projectByAccount: map[string]*attributiondomain.Project{},
		projectByPromo:   map[string]*attributiondomain.Project{},
		projectByID:      map[snowflake.ID]*attributiondomain.Project{},
		verdict:          attributiondomain.Unattributed(),
	}
	project := &attributiondomain.Project{ID: 5001, OwnerID: 5002, RefundWindowDays: &windowDays}
	attribution.projectByAccount["acct_1"] = project
	attribution.projectByPromo["promo_1"] = project
	attribution.projectByID[5001] = project

	purchases := &fakePurchases{created: true}
	reconciler := &fakeReconciler{}
	settler := &fakeSettler{}
	return &testRouter{
		svc: &Service{
			log:            zap.NewNop(),
			secrets:        secrets,
			attribution:    attribution,
			purchases:      purchases,
			reconciler:     reconciler,
			creatorPayment: settler,
			verify:         verifySignature,
		},
		attribution: attribution,
		purchases:   purchases,
		reconciler:  reconciler,
		settler:     settler,
	}
}

func TestHandleNoSecretConfigured(t *testing.T) {
	router := newTestRouter()
	_, err := router.svc.Handle(context.Background(), []byte(`{}`), "t=1,v1=abc")
	if !errors.Is(err, webhookdomain.ErrNoSecretConfigured) {
		t.Fatalf("expected no_webhook_secret_configured, got %v", err)
	}
}

func TestHandleRejectsBadSignature(t *testing.T) {
	router := newTestRouter(testSecret)
	payload := []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{}}}`)
	_, err := router.svc.Handle(context.Background(), payload, signPayload(payload, "whsec_wrong"))
	if !errors.Is(err, webhookdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid_signature, got %v", err)
	}
}

func TestHandleAcceptsRotatedSecret(t *testing.T) {
	router := newTestRouter("whsec_old", testSecret)
	payload := []byte(`{"id":"evt_2","type":"some.unknown.type","data":{"object":{}}}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", result.Outcome)
	}
}

func TestHandleCheckoutSessionRecordsPurchase(t *testing.T) {
	router := newTestRouter(testSecret)
	marketerID := snowflake.ID(7002)
	router.attribution.verdict = attributiondomain.Attribution{
		Attributed:        true,
		MarketerID:        &marketerID,
		CommissionPercent: 0.20,
	}

	payload := []byte(`{
		"id": "evt_sess_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"amount_total": 10000,
			"currency": "usd",
			"payment_intent": "pi_1",
			"discounts": [{"promotion_code": {"id": "promo_1"}}]
		}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", result.Outcome)
	}
	if len(router.purchases.inputs) != 1 {
		t.Fatalf("expected 1 record call, got %d", len(router.purchases.inputs))
	}
	input := router.purchases.inputs[0]
	if input.StripeEventID != "evt_sess_1" || input.Amount != 10000 || input.PaymentIntentID != "pi_1" {
		t.Fatalf("unexpected record input: %+v", input)
	}
	if input.ProjectID != 5001 {
		t.Fatalf("promotion code did not resolve the project: %s", input.ProjectID)
	}
	if !input.Attribution.Attributed {
		t.Fatal("expected attributed verdict to pass through")
	}
}

func TestHandleDuplicateOutcome(t *testing.T) {
	router := newTestRouter(testSecret)
	router.purchases.created = false

	payload := []byte(`{
		"id": "evt_ch_1",
		"type": "charge.succeeded",
		"account": "acct_1",
		"data": {"object": {"id": "ch_1", "amount": 500, "currency": "usd"}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", result.Outcome)
	}
}

func TestHandleCreatorPaymentSession(t *testing.T) {
	router := newTestRouter(testSecret)

	payload := []byte(`{
		"id": "evt_cp_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_2",
			"amount_total": 3000,
			"currency": "usd",
			"metadata": {"creatorPaymentId": "4001"}
		}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", result.Outcome)
	}
	if len(router.settler.inputs) != 1 {
		t.Fatalf("expected settle call, got %d", len(router.settler.inputs))
	}
	if router.settler.inputs[0].CreatorPaymentID != 4001 {
		t.Fatalf("unexpected creator payment id: %s", router.settler.inputs[0].CreatorPaymentID)
	}
	if len(router.purchases.inputs) != 0 {
		t.Fatal("creator payment session must not create a purchase")
	}
}

func TestHandleRefundRoutesToReconciler(t *testing.T) {
	router := newTestRouter(testSecret)

	payload := []byte(`{
		"id": "evt_ref_1",
		"type": "charge.refunded",
		"data": {"object": {
			"id": "ch_1",
			"amount": 10000,
			"amount_refunded": 5000,
			"currency": "usd",
			"payment_intent": "pi_1"
		}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", result.Outcome)
	}
	if len(router.reconciler.refunds) != 1 {
		t.Fatalf("expected refund call, got %d", len(router.reconciler.refunds))
	}
	refund := router.reconciler.refunds[0]
	if refund.ChargeID != "ch_1" || refund.AmountRefunded != 5000 || refund.PaymentIntentID != "pi_1" {
		t.Fatalf("unexpected refund event: %+v", refund)
	}
}

func TestHandleRefundUpdateRoutesToReconciler(t *testing.T) {
	router := newTestRouter(testSecret)

	payload := []byte(`{
		"id": "evt_ref_2",
		"type": "charge.refund.updated",
		"data": {"object": {
			"id": "re_1",
			"status": "succeeded",
			"amount": 2500,
			"charge": "ch_1",
			"payment_intent": "pi_1"
		}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", result.Outcome)
	}
	if len(router.reconciler.refunds) != 1 {
		t.Fatalf("expected refund call, got %d", len(router.reconciler.refunds))
	}
	if refund := router.reconciler.refunds[0]; refund.ChargeID != "ch_1" || refund.AmountRefunded != 2500 {
		t.Fatalf("unexpected refund event: %+v", refund)
	}
}

func TestHandleFailedRefundUpdateIgnored(t *testing.T) {
	router := newTestRouter(testSecret)

	payload := []byte(`{
		"id": "evt_ref_3",
		"type": "charge.refund.updated",
		"data": {"object": {
			"id": "re_2",
			"status": "failed",
			"amount": 2500,
			"charge": "ch_1"
		}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", result.Outcome)
	}
	if len(router.reconciler.refunds) != 0 {
		t.Fatalf("failed refund must not reach the reconciler, got %d calls", len(router.reconciler.refunds))
	}
}

func TestHandleDisputeRoutesToReconciler(t *testing.T) {
	router := newTestRouter(testSecret)

	payload := []byte(`{
		"id": "evt_disp_1",
		"type": "charge.dispute.closed",
		"data": {"object": {
			"id": "dp_1",
			"status": "won",
			"amount": 10000,
			"charge": "ch_1"
		}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", result.Outcome)
	}
	if len(router.reconciler.disputes) != 1 {
		t.Fatalf("expected dispute call, got %d", len(router.reconciler.disputes))
	}
	dispute := router.reconciler.disputes[0]
	if dispute.DisputeID != "dp_1" || dispute.Status != "won" || dispute.ChargeID != "ch_1" {
		t.Fatalf("unexpected dispute event: %+v", dispute)
	}
}

func TestHandleUnresolvableProject(t *testing.T) {
	router := newTestRouter(testSecret)

	payload := []byte(`{
		"id": "evt_ch_2",
		"type": "charge.succeeded",
		"data": {"object": {"id": "ch_9", "amount": 500, "currency": "usd"}}
	}`)
	_, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if !errors.Is(err, webhookdomain.ErrUnresolvableProject) {
		t.Fatalf("expected unresolvable_project, got %v", err)
	}
}

func TestHandleMetadataProjectFallback(t *testing.T) {
	router := newTestRouter(testSecret)

	payload := []byte(`{
		"id": "evt_ch_3",
		"type": "charge.succeeded",
		"data": {"object": {
			"id": "ch_2",
			"amount": 700,
			"currency": "usd",
			"metadata": {"projectId": "5001"}
		}}
	}`)
	result, err := router.svc.Handle(context.Background(), payload, signPayload(payload, testSecret))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Outcome != webhookdomain.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", result.Outcome)
	}
	if len(router.purchases.inputs) != 1 || router.purchases.inputs[0].ProjectID != 5001 {
		t.Fatalf("metadata fallback failed: %+v", router.purchases.inputs)
	}
}
