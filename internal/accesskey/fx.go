package accesskey

import (
	"github.com/smallbiznis/milkseller/internal/accesskey/repository"
	"github.com/smallbiznis/milkseller/internal/accesskey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("accesskey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
