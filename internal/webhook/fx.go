package webhook

import (
	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/config"
	"github.com/TD-Producoes/revshare-sub001/internal/webhook/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/webhook/service"
	webhookstripe "github.com/TD-Producoes/revshare-sub001/internal/webhook/stripe"
)

var Module = fx.Module("webhook.service",
	fx.Provide(func(cfg config.Config) domain.DiscountFetcher {
		return webhookstripe.NewGateway(cfg.StripeAPIKey)
	}),
	fx.Provide(service.NewService),
)
