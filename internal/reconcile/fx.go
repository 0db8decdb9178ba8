package reconcile

import (
	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/reconcile/service"
)

var Module = fx.Module("reconcile.service",
	fx.Provide(service.NewService),
)
