package domain

import (
	"context"
	"errors"
)

// Outcome classifies what a delivery did to the ledger.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Result reports how a verified delivery was routed.
type Result struct {
	Outcome   Outcome
	EventID   string
	EventType string
}

// Service verifies and routes raw Stripe webhook deliveries.
type Service interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (*Result, error)
}

var (
	// ErrNoSecretConfigured means the operator never set a signing secret.
	// Surfaced as a 500 so the misconfiguration is loud.
	ErrNoSecretConfigured = errors.New("no_webhook_secret_configured")

	ErrInvalidSignature = errors.New("invalid_signature")

	// ErrUnresolvableProject means the delivery carried neither a known
	// connected account, a known promotion code, nor projectId metadata.
	ErrUnresolvableProject = errors.New("unresolvable_project")

	ErrInvalidPayload = errors.New("invalid_payload")
)

// DiscountFetcher re-fetches a session or invoice from Stripe with
// discounts expanded. Connect webhook payloads sometimes omit discounts
// on first delivery.
type DiscountFetcher interface {
	SessionPromotionCode(ctx context.Context, accountID, sessionID string) (string, error)
	InvoicePromotionCode(ctx context.Context, accountID, invoiceID string) (string, error)
}
