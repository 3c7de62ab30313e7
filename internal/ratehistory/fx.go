package ratehistory

import (
	"github.com/smallbiznis/milkseller/internal/ratehistory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratehistory.service",
	fx.Provide(service.NewService),
)
