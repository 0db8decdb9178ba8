package apikey

import (
	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/apikey/repository"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
)
