package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	purchasedomain "github.com/TD-Producoes/revshare-sub001/internal/purchase/domain"
)

// SettleInput marks a creator payout invoice as paid. StripeEventID is
// the checkout.session.completed delivery that reported the payment.
type SettleInput struct {
	CreatorPaymentID snowflake.ID
	StripeEventID    string
}

// Service releases purchases toward marketer payout once the creator has
// paid the invoice covering them.
type Service interface {
	// Settle is idempotent: replaying the delivery for an already PAID
	// payment returns it unchanged.
	Settle(ctx context.Context, input SettleInput) (*purchasedomain.CreatorPayment, error)
}

var ErrCreatorPaymentNotFound = errors.New("creator_payment_not_found")
