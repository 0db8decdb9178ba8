// Package stripe implements the promotion-code gateway against the real
// Stripe API.
package stripe

import (
	"context"
	"net/http"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/tracing"
)

type Gateway struct {
	api *client.API
}

func NewGateway(apiKey string) *Gateway {
	api := &client.API{}
	api.Init(apiKey, &stripego.Backends{
		API: stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
			HTTPClient: tracing.WrapHTTPClient(http.DefaultClient),
		}),
	})
	return &Gateway{api: api}
}

// CreatePromotionCode mints a forever-duration percent-off coupon plus a
// customer-facing promotion code, on the connected account when one is
// bound to the project.
func (g *Gateway) CreatePromotionCode(ctx context.Context, req domain.PromotionCodeRequest) (domain.PromotionCodeResult, error) {
	couponParams := &stripego.CouponParams{
		// Stripe expects whole-number percentages; storage uses decimals.
		PercentOff: stripego.Float64(req.PercentOff * 100),
		Duration:   stripego.String(string(stripego.CouponDurationForever)),
	}
	couponParams.Context = ctx
	if req.StripeAccountID != "" {
		couponParams.SetStripeAccount(req.StripeAccountID)
	}
	coupon, err := g.api.Coupons.New(couponParams)
	if err != nil {
		return domain.PromotionCodeResult{}, err
	}

	promoParams := &stripego.PromotionCodeParams{
		Coupon: stripego.String(coupon.ID),
		Code:   stripego.String(req.Code),
	}
	promoParams.Context = ctx
	if req.StripeAccountID != "" {
		promoParams.SetStripeAccount(req.StripeAccountID)
	}
	promo, err := g.api.PromotionCodes.New(promoParams)
	if err != nil {
		return domain.PromotionCodeResult{}, err
	}

	return domain.PromotionCodeResult{
		CouponID:        coupon.ID,
		PromotionCodeID: promo.ID,
	}, nil
}
