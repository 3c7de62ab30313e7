package billing

import (
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"github.com/smallbiznis/milkseller/internal/billing/repository"
	"github.com/smallbiznis/milkseller/internal/billing/service"
	"github.com/smallbiznis/milkseller/internal/milkapi"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(c *milkapi.Client) billingdomain.Upstream { return c }),
	fx.Provide(service.New),
)
