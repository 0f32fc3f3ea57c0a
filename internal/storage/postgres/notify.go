package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/seanmcgrath/macrocal/internal/common"
)

// Listener surfaces event-change notifications published by UpsertEvents.
// Consumers treat notifications as a hint to re-read, not as a data channel.
type Listener struct {
	inner  *pq.Listener
	logger *common.Logger
	events chan struct{}
	done   chan struct{}
}

// NewListener subscribes to the event change channel on a dedicated
// connection. Connection drops reconnect automatically via lib/pq.
func NewListener(dsn string, logger *common.Logger) (*Listener, error) {
	inner := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("Notification listener connection event")
		}
	})

	if err := inner.Listen(EventChannel); err != nil {
		inner.Close()
		return nil, err
	}

	l := &Listener{
		inner:  inner,
		logger: logger,
		events: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.loop()
	return l, nil
}

// Events returns a channel that receives a signal whenever event data
// changes. Signals coalesce; a slow consumer sees at most one pending.
// The channel is closed when the listener shuts down.
func (l *Listener) Events() <-chan struct{} {
	return l.events
}

func (l *Listener) loop() {
	for {
		select {
		case <-l.done:
			close(l.events)
			return
		case <-l.inner.Notify:
			// A nil notification marks a reconnect; either way data may
			// have changed, so signal.
			select {
			case l.events <- struct{}{}:
			default:
			}
		case <-time.After(90 * time.Second):
			if err := l.inner.Ping(); err != nil {
				l.logger.Warn().Err(err).Msg("Notification listener ping failed")
			}
		}
	}
}

// Close tears down the listener connection.
func (l *Listener) Close() error {
	close(l.done)
	return l.inner.Close()
}
