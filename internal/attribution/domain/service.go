package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service resolves promotion codes to marketers and handles coupon claims.
type Service interface {
	// Resolve maps a Stripe promotion code to the owning marketer and
	// commission rate. A missing coupon, a project mismatch, or a
	// contract that is not APPROVED all yield an unattributed verdict,
	// never an error.
	Resolve(ctx context.Context, promotionCodeID string, projectID snowflake.ID) (Attribution, error)

	// ResolveProjectByAccount maps a Stripe Connect account id to the
	// owning project.
	ResolveProjectByAccount(ctx context.Context, stripeAccountID string) (*Project, error)

	// ResolveProjectByPromotionCode returns the project a promotion code
	// belongs to, for webhook payloads that carry a discount but no
	// account context.
	ResolveProjectByPromotionCode(ctx context.Context, promotionCodeID string) (*Project, error)

	// GetProject loads a project by id.
	GetProject(ctx context.Context, id snowflake.ID) (*Project, error)

	// Claim returns the marketer's existing active coupon for a template
	// or mints a new Stripe promotion code and persists the binding.
	Claim(ctx context.Context, req ClaimRequest) (*Coupon, error)
}

// ClaimRequest asks for a coupon under a template. RequestedCode is
// optional; when empty a code is generated.
type ClaimRequest struct {
	ProjectID     snowflake.ID
	TemplateID    snowflake.ID
	MarketerID    snowflake.ID
	RequestedCode string
}

var (
	ErrProjectNotFound     = errors.New("project_not_found")
	ErrTemplateNotFound    = errors.New("template_not_found")
	ErrTemplateInactive    = errors.New("template_inactive")
	ErrTemplateNotStarted  = errors.New("template_not_started")
	ErrTemplateExpired     = errors.New("template_expired")
	ErrMarketerNotAllowed  = errors.New("marketer_not_allowed")
	ErrContractNotApproved = errors.New("contract_not_approved")
	ErrInvalidCode         = errors.New("invalid_code")
)
