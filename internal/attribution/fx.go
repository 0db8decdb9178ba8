package attribution

import (
	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/attribution/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/attribution/repository"
	"github.com/TD-Producoes/revshare-sub001/internal/attribution/service"
	attrstripe "github.com/TD-Producoes/revshare-sub001/internal/attribution/stripe"
	"github.com/TD-Producoes/revshare-sub001/internal/config"
)

var Module = fx.Module("attribution.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) domain.PromotionCodeGateway {
		return attrstripe.NewGateway(cfg.StripeAPIKey)
	}),
	fx.Provide(service.NewService),
)
