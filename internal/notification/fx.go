package notification

import (
	"strings"

	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/config"
	"github.com/TD-Producoes/revshare-sub001/internal/notification/domain"
	"github.com/TD-Producoes/revshare-sub001/internal/notification/resend"
	"github.com/TD-Producoes/revshare-sub001/internal/notification/service"
)

var Module = fx.Module("notification.service",
	fx.Provide(func(cfg config.Config) domain.Mailer {
		if strings.TrimSpace(cfg.ResendAPIKey) == "" {
			return nil
		}
		return resend.NewMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	}),
	fx.Provide(service.NewService),
)
