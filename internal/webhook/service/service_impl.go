package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"

	attributiondomain "github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/config"
	creatorpaymentdomain "github.com/TD-Producoes/revshare-sub001/internal/creatorpayment/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/metrics"
	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
	reconciledomain "github.com/TD-Producoes/revshare-sub001/internal/reconcile/domain"
	webhookdomain "github.com/TD-Producoes/revshare-sub001/internal/webhook/domain"
)

type Params struct {
	fx.In

	Log            *zap.Logger
	Cfg            config.Config
	Attribution    attributiondomain.Service
	Purchases      purchasedomain.Service
	Reconciler     reconciledomain.Service
	CreatorPayment creatorpaymentdomain.Service
	Discounts      webhookdomain.DiscountFetcher `optional:"true"`
	Metrics        *metrics.WebhookMetrics       `optional:"true"`
}

type Service struct {
	log            *zap.Logger
	secrets        []string
	attribution    attributiondomain.Service
	purchases      purchasedomain.Service
	reconciler     reconciledomain.Service
	creatorPayment creatorpaymentdomain.Service
	discounts      webhookdomain.DiscountFetcher
	metrics        *metrics.WebhookMetrics

	verify func(payload []byte, header, secret string) (stripe.Event, error)
}

func NewService(p Params) webhookdomain.Service {
	return &Service{
		log:            p.Log.Named("webhook.service"),
		secrets:        p.Cfg.StripeWebhookSecrets,
		attribution:    p.Attribution,
		purchases:      p.Purchases,
		reconciler:     p.Reconciler,
		creatorPayment: p.CreatorPayment,
		discounts:      p.Discounts,
		metrics:        p.Metrics,
		verify:         verifySignature,
	}
}

func verifySignature(payload []byte, header, secret string) (stripe.Event, error) {
	return stripewebhook.ConstructEventWithOptions(payload, header, secret, stripewebhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func (s *Service) Handle(ctx context.Context, payload []byte, signatureHeader string) (*webhookdomain.Result, error) {
	event, err := s.constructEvent(payload, signatureHeader)
	if err != nil {
		s.metrics.IncWebhookEvent("unknown", "rejected")
		return nil, err
	}

	result, err := s.route(ctx, event)
	eventType := string(event.Type)
	if err != nil {
		s.metrics.IncWebhookEvent(eventType, "failed")
		return nil, err
	}
	s.metrics.IncWebhookEvent(eventType, string(result.Outcome))
	return result, nil
}

// constructEvent tries each configured secret in order so secrets can be
// rotated without a deploy window. First success wins.
func (s *Service) constructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if len(s.secrets) == 0 {
		return stripe.Event{}, webhookdomain.ErrNoSecretConfigured
	}
	for _, secret := range s.secrets {
		if strings.TrimSpace(secret) == "" {
			continue
		}
		event, err := s.verify(payload, signatureHeader, secret)
		if err == nil {
			return event, nil
		}
	}
	return stripe.Event{}, webhookdomain.ErrInvalidSignature
}

func (s *Service) route(ctx context.Context, event stripe.Event) (*webhookdomain.Result, error) {
	result := &webhookdomain.Result{
		Outcome:   webhookdomain.OutcomeIgnored,
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	switch event.Type {
	case "checkout.session.completed":
		details, err := parseSession(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		// A session paying a creator payout invoice is not a customer
		// purchase and must not reach the ledger.
		if id := strings.TrimSpace(details.CreatorPaymentIDMetadata); id != "" {
			return s.settleCreatorPayment(ctx, result, event.ID, id)
		}
		return s.recordPurchase(ctx, result, event, details)

	case "invoice.payment_succeeded":
		details, err := parseInvoice(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return s.recordPurchase(ctx, result, event, details)

	case "charge.succeeded":
		details, err := parseCharge(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return s.recordPurchase(ctx, result, event, details)

	case "payment_intent.succeeded":
		details, err := parsePaymentIntent(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return s.recordPurchase(ctx, result, event, details)

	case "charge.refunded":
		charge, err := parseRefundedCharge(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		if _, err := s.reconciler.ApplyRefund(ctx, reconciledomain.RefundEvent{
			StripeEventID:   event.ID,
			ChargeID:        charge.ID,
			PaymentIntentID: string(charge.PaymentIntent),
			InvoiceID:       string(charge.Invoice),
			AmountRefunded:  charge.AmountRefunded,
		}); err != nil {
			return nil, err
		}
		result.Outcome = webhookdomain.OutcomeProcessed
		return result, nil

	case "charge.refund.updated":
		refund, err := parseRefund(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		// The refund object carries a single refund's amount, not the
		// charge's refunded-to-date total. The reconciler treats incoming
		// amounts as a monotonic floor, so a partial figure can only
		// no-op, never regress the ledger. Failed refunds change nothing.
		if refund.Status == "failed" {
			return result, nil
		}
		if _, err := s.reconciler.ApplyRefund(ctx, reconciledomain.RefundEvent{
			StripeEventID:   event.ID,
			ChargeID:        string(refund.Charge),
			PaymentIntentID: string(refund.PaymentIntent),
			AmountRefunded:  refund.Amount,
		}); err != nil {
			return nil, err
		}
		result.Outcome = webhookdomain.OutcomeProcessed
		return result, nil

	case "charge.dispute.created",
		"charge.dispute.updated",
		"charge.dispute.closed",
		"charge.dispute.funds_withdrawn",
		"charge.dispute.funds_reinstated":
		dispute, err := parseDispute(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		if _, err := s.reconciler.ApplyDispute(ctx, reconciledomain.DisputeEvent{
			StripeEventID:   event.ID,
			DisputeID:       dispute.ID,
			Status:          dispute.Status,
			ChargeID:        string(dispute.Charge),
			PaymentIntentID: string(dispute.PaymentIntent),
			Amount:          dispute.Amount,
		}); err != nil {
			return nil, err
		}
		result.Outcome = webhookdomain.OutcomeProcessed
		return result, nil

	default:
		// Stripe requires a 2xx ack for event types we do not handle.
		return result, nil
	}
}

func (s *Service) settleCreatorPayment(ctx context.Context, result *webhookdomain.Result, eventID, creatorPaymentID string) (*webhookdomain.Result, error) {
	id, err := snowflake.ParseString(creatorPaymentID)
	if err != nil {
		s.log.Warn("malformed creatorPaymentId metadata",
			zap.String("event_id", eventID),
			zap.String("creator_payment_id", creatorPaymentID),
		)
		return nil, webhookdomain.ErrInvalidPayload
	}
	if _, err := s.creatorPayment.Settle(ctx, creatorpaymentdomain.SettleInput{
		CreatorPaymentID: id,
		StripeEventID:    eventID,
	}); err != nil {
		return nil, err
	}
	result.Outcome = webhookdomain.OutcomeProcessed
	return result, nil
}

func (s *Service) recordPurchase(ctx context.Context, result *webhookdomain.Result, event stripe.Event, details eventDetails) (*webhookdomain.Result, error) {
	details.PromotionCodeID = s.refetchPromotionCode(ctx, event, details)

	project, err := s.resolveProject(ctx, event.Account, details)
	if err != nil {
		return nil, err
	}

	verdict := attributiondomain.Unattributed()
	if details.PromotionCodeID != "" {
		verdict, err = s.attribution.Resolve(ctx, details.PromotionCodeID, project.ID)
		if err != nil {
			return nil, err
		}
	}

	_, created, err := s.purchases.Record(ctx, purchasedomain.RecordInput{
		StripeEventID:           event.ID,
		ProjectID:               project.ID,
		OwnerID:                 project.OwnerID,
		Amount:                  details.Amount,
		Currency:                details.Currency,
		ChargeID:                details.ChargeID,
		InvoiceID:               details.InvoiceID,
		PaymentIntentID:         details.PaymentIntentID,
		Attribution:             verdict,
		ProjectRefundWindowDays: project.RefundWindowDays,
	})
	if err != nil {
		return nil, err
	}

	if created {
		result.Outcome = webhookdomain.OutcomeProcessed
	} else {
		result.Outcome = webhookdomain.OutcomeDuplicate
	}
	return result, nil
}

// refetchPromotionCode covers Connect deliveries where discounts are
// missing from the initial payload. Failures fall back to the parsed
// value; a lost discount only means an unattributed purchase.
func (s *Service) refetchPromotionCode(ctx context.Context, event stripe.Event, details eventDetails) string {
	if details.PromotionCodeID != "" || event.Account == "" || s.discounts == nil {
		return details.PromotionCodeID
	}

	var (
		code string
		err  error
	)
	switch {
	case details.SessionID != "":
		code, err = s.discounts.SessionPromotionCode(ctx, event.Account, details.SessionID)
	case details.InvoiceID != "":
		code, err = s.discounts.InvoicePromotionCode(ctx, event.Account, details.InvoiceID)
	default:
		return ""
	}
	if err != nil {
		s.log.Warn("discount refetch failed",
			zap.String("event_id", event.ID),
			zap.String("account", event.Account),
			zap.Error(err),
		)
		return ""
	}
	return code
}

// resolveProject applies the account → coupon → metadata priority order.
func (s *Service) resolveProject(ctx context.Context, accountID string, details eventDetails) (*attributiondomain.Project, error) {
	if accountID != "" {
		project, err := s.attribution.ResolveProjectByAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if project != nil {
			return project, nil
		}
	}
	if details.PromotionCodeID != "" {
		project, err := s.attribution.ResolveProjectByPromotionCode(ctx, details.PromotionCodeID)
		if err != nil {
			return nil, err
		}
		if project != nil {
			return project, nil
		}
	}
	if raw := strings.TrimSpace(details.ProjectIDMetadata); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, webhookdomain.ErrUnresolvableProject
		}
		project, err := s.attribution.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		if project != nil {
			return project, nil
		}
	}
	return nil, webhookdomain.ErrUnresolvableProject
}
