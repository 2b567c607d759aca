package notify

import (
	"context"

	"breakout_bot/internal/modules/config"

	"go.uber.org/fx"
)

type DispatcherParams struct {
	fx.In

	Cfg     *config.Config
	Senders []Sender `group:"senders"`
}

func NewDispatcherFromConfig(p DispatcherParams) *Dispatcher {
	senders := []Sender{LogSender{}}
	for _, s := range p.Senders {
		if s != nil {
			senders = append(senders, s)
		}
	}
	return NewDispatcher(p.Cfg.Scheduler.NotifyBuffer, p.Cfg.Scheduler.CallTimeout, senders...)
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(NewDispatcherFromConfig),
		fx.Invoke(func(lc fx.Lifecycle, d *Dispatcher) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					d.Start(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					d.Wait()
					return nil
				},
			})
		}),
	)
}
