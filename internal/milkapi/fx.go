package milkapi

import (
	"context"

	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/config"
	obsmetrics "github.com/smallbiznis/milkseller/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("milkapi",
	fx.Provide(
		fx.Annotate(NewMemoryTokenStore, fx.As(new(TokenStore))),
		Provide,
	),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Tokens  TokenStore
	Clock   clock.Clock         `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Provide wires the client with the service credentials. A dropped session only
// clears tokens, so the next call logs in again.
func Provide(p Params) *Client {
	log := p.Log.Named("milkapi")
	logout := LogoutFunc(func(ctx context.Context) error {
		log.Warn("upstream session dropped, next request re-authenticates")
		return nil
	})
	return New(Config{
		BaseURL:       p.Cfg.Upstream.BaseURL,
		Timeout:       p.Cfg.Upstream.Timeout,
		RetryAttempts: p.Cfg.Upstream.RetryAttempts,
		PhoneNumber:   p.Cfg.Upstream.PhoneNumber,
		Password:      p.Cfg.Upstream.Password,
	}, p.Tokens, logout, WithLogger(p.Log), WithMetrics(p.Metrics), WithClock(p.Clock, p.Cfg.Location()))
}
