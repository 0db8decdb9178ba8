package purchase

import (
	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/purchase/repository"
	"github.com/TD-Producoes/revshare-sub001/internal/purchase/service"
)

var Module = fx.Module("purchase.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
