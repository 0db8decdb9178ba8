// Package stripe implements the discount re-fetch gateway against the
// real Stripe API.
package stripe

import (
	"context"
	"net/http"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

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

// SessionPromotionCode reloads a checkout session on the connected
// account with discounts expanded and returns the first promotion code.
func (g *Gateway) SessionPromotionCode(ctx context.Context, accountID, sessionID string) (string, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("discounts.promotion_code")
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	session, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", err
	}
	for _, discount := range session.Discounts {
		if discount != nil && discount.PromotionCode != nil {
			return discount.PromotionCode.ID, nil
		}
	}
	return "", nil
}

// InvoicePromotionCode reloads an invoice on the connected account with
// discounts expanded and returns the first promotion code.
func (g *Gateway) InvoicePromotionCode(ctx context.Context, accountID, invoiceID string) (string, error) {
	params := &stripego.InvoiceParams{}
	params.Context = ctx
	params.AddExpand("discounts.promotion_code")
	if accountID != "" {
		params.SetStripeAccount(accountID)
	}
	invoice, err := g.api.Invoices.Get(invoiceID, params)
	if err != nil {
		return "", err
	}
	for _, discount := range invoice.Discounts {
		if discount != nil && discount.PromotionCode != nil {
			return discount.PromotionCode.ID, nil
		}
	}
	return "", nil
}
