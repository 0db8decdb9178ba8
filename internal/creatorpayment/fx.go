package creatorpayment

import (
	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/creatorpayment/service"
)

var Module = fx.Module("creatorpayment.service",
	fx.Provide(service.NewService),
)
