package events

import (
	"context"

	"github.com/smallbiznis/milkseller/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	if cfg.AMQPURL == "" {
		log.Info("AMQP_URL not set, events are discarded")
		return NoopPublisher{}
	}
	publisher := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// The broker being down must not block serving billing.
			if err := publisher.Connect(); err != nil {
				log.Warn("broker unavailable at startup", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}
