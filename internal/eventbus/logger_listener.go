package eventbus

import (
	"context"

	"github.com/annel0/army-battle/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог на уровне TRACE.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.Trace("[EventBus] %s %s src=%s game=%s size=%dB",
			ev.ID, ev.EventType, ev.Source, ev.Metadata["game_id"], len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("LoggingListener: подписка на все события активирована")
	return sub, nil
}
