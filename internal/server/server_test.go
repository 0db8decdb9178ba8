package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apikeydomain "github.com/TD-Producoes/revshare-sub001/internal/apikey/domain"
	apikeyrepository "github.com/TD-Producoes/revshare-sub001/internal/apikey/repository"
	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	webhookdomain "github.com/TD-Producoes/revshare-sub001/internal/webhook/domain"
)

type stubWebhookService struct {
	result *webhookdomain.Result
	err    error
}

func (s *stubWebhookService) Handle(context.Context, []byte, string) (*webhookdomain.Result, error) {
	return s.result, s.err
}

type stubAttribution struct {
	coupon *attributiondomain.Coupon
	err    error
	claims []attributiondomain.ClaimRequest
}

func (s *stubAttribution) Resolve(context.Context, string, snowflake.ID) (attributiondomain.Attribution, error) {
	return attributiondomain.Unattributed(), nil
}

func (s *stubAttribution) ResolveProjectByAccount(context.Context, string) (*attributiondomain.Project, error) {
	return nil, nil
}

func (s *stubAttribution) ResolveProjectByPromotionCode(context.Context, string) (*attributiondomain.Project, error) {
	return nil, nil
}

func (s *stubAttribution) GetProject(context.Context, snowflake.ID) (*attributiondomain.Project, error) {
	return nil, nil
}

func (s *stubAttribution) Claim(_ context.Context, req attributiondomain.ClaimRequest) (*attributiondomain.Coupon, error) {
	s.claims = append(s.claims, req)
	return s.coupon, s.err
}

func setupServerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&apikeydomain.APIKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestServer(t *testing.T, webhookSvc webhookdomain.Service, attribution attributiondomain.Service) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	srv := &Server{
		engine:      engine,
		db:          setupServerTestDB(t),
		log:         zap.NewNop(),
		webhookSvc:  webhookSvc,
		attribution: attribution,
		apiKeys:     apikeyrepository.Provide(),
		claimLimit:  newRateLimiter(10, time.Minute),
	}
	srv.RegisterRoutes()
	return srv, engine
}

func seedAPIKey(t *testing.T, db *gorm.DB, rawKey string, userID snowflake.ID) {
	t.Helper()
	key := apikeydomain.APIKey{
		ID:        snowflake.ID(userID + 1),
		UserID:    userID,
		Name:      "test key",
		KeyHash:   apikeydomain.HashAPIKey(rawKey),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(&key).Error; err != nil {
		t.Fatalf("seed api key: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	_, engine := newTestServer(t, &stubWebhookService{}, &stubAttribution{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestWebhookSignatureFailureReturns400(t *testing.T) {
	_, engine := newTestServer(t, &stubWebhookService{err: webhookdomain.ErrInvalidSignature}, &stubAttribution{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookMissingSecretReturns500(t *testing.T) {
	_, engine := newTestServer(t, &stubWebhookService{err: webhookdomain.ErrNoSecretConfigured}, &stubAttribution{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestWebhookSuccessAcks(t *testing.T) {
	_, engine := newTestServer(t, &stubWebhookService{
		result: &webhookdomain.Result{Outcome: webhookdomain.OutcomeProcessed, EventID: "evt_1", EventType: "charge.succeeded"},
	}, &stubAttribution{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["received"] != true {
		t.Fatalf("expected received ack, got %v", body)
	}
}

func TestClaimRequiresAPIKey(t *testing.T) {
	_, engine := newTestServer(t, &stubWebhookService{}, &stubAttribution{})

	req := httptest.NewRequest(http.MethodPost, "/api/coupons/claim", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestClaimRejectsUnknownKey(t *testing.T) {
	_, engine := newTestServer(t, &stubWebhookService{}, &stubAttribution{})

	req := httptest.NewRequest(http.MethodPost, "/api/coupons/claim", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestClaimWithValidKey(t *testing.T) {
	attribution := &stubAttribution{coupon: &attributiondomain.Coupon{
		ID:                    8001,
		Code:                  "SAVE-20",
		StripePromotionCodeID: "promo_1",
		Status:                attributiondomain.CouponStatusActive,
	}}
	srv, engine := newTestServer(t, &stubWebhookService{}, attribution)
	seedAPIKey(t, srv.db, "mk_live_test", 7001)

	payload := `{"projectId":"5001","templateId":"9001","requestedCode":"SAVE-20"}`
	req := httptest.NewRequest(http.MethodPost, "/api/coupons/claim", bytes.NewBufferString(payload))
	req.Header.Set("Authorization", "Bearer mk_live_test")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(attribution.claims) != 1 {
		t.Fatalf("expected 1 claim call, got %d", len(attribution.claims))
	}
	claim := attribution.claims[0]
	if claim.MarketerID != 7001 || claim.ProjectID != 5001 || claim.TemplateID != 9001 {
		t.Fatalf("unexpected claim request: %+v", claim)
	}

	var body struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Code != "SAVE-20" {
		t.Fatalf("unexpected response code: %q", body.Data.Code)
	}
}

func TestClaimRateLimited(t *testing.T) {
	attribution := &stubAttribution{coupon: &attributiondomain.Coupon{ID: 8001, Code: "SAVE-20"}}
	srv, engine := newTestServer(t, &stubWebhookService{}, attribution)
	srv.claimLimit = newRateLimiter(1, time.Minute)
	seedAPIKey(t, srv.db, "mk_live_test", 7001)

	payload := `{"projectId":"5001","templateId":"9001"}`
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/coupons/claim", bytes.NewBufferString(payload))
		req.Header.Set("Authorization", "Bearer mk_live_test")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, w.Code)
		}
	}
}

func TestClaimMapsDomainErrors(t *testing.T) {
	attribution := &stubAttribution{err: attributiondomain.ErrContractNotApproved}
	srv, engine := newTestServer(t, &stubWebhookService{}, attribution)
	seedAPIKey(t, srv.db, "mk_live_test", 7001)

	payload := `{"projectId":"5001","templateId":"9001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/coupons/claim", bytes.NewBufferString(payload))
	req.Header.Set("Authorization", "Bearer mk_live_test")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestClaimRejectsDisabledKey(t *testing.T) {
	srv, engine := newTestServer(t, &stubWebhookService{}, &stubAttribution{})
	key := apikeydomain.APIKey{
		ID:       9101,
		UserID:   7001,
		Name:     "revoked",
		KeyHash:  apikeydomain.HashAPIKey("mk_revoked"),
		IsActive: false,
	}
	if err := srv.db.Create(&key).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/coupons/claim", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer mk_revoked")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
