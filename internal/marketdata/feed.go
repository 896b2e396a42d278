package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Tick is the wire format of one price update on the feed subject.
type Tick struct {
	Symbol string `json:"symbol"`
	Price  int64  `json:"price"` // cents
}

// Feed consumes price ticks from NATS and writes them into the cache.
// Ticks are fire-and-forget: only the latest value per symbol matters,
// so the feed uses a plain core-NATS subscription rather than a durable
// stream.
type Feed struct {
	url     string
	subject string
	cache   *Cache
	log     zerolog.Logger

	conn *nats.Conn
	sub  *nats.Subscription
}

func NewFeed(url, subject string, cache *Cache, log zerolog.Logger) *Feed {
	return &Feed{
		url:     url,
		subject: subject,
		cache:   cache,
		log:     log,
	}
}

// Start connects and subscribes, retrying the initial connection with
// exponential backoff until ctx is cancelled. NATS handles reconnects
// after that.
func (f *Feed) Start(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 15 * time.Second

	for {
		conn, err := nats.Connect(f.url,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				f.log.Warn().Err(err).Msg("price feed disconnected")
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				f.log.Info().Msg("price feed reconnected")
			}),
		)
		if err == nil {
			f.conn = conn
			break
		}

		wait := bo.NextBackOff()
		f.log.Warn().Err(err).Dur("retry_in", wait).Msg("price feed connect failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	sub, err := f.conn.Subscribe(f.subject, f.handle)
	if err != nil {
		f.conn.Close()
		return fmt.Errorf("subscribe %s: %w", f.subject, err)
	}
	f.sub = sub

	f.log.Info().Str("subject", f.subject).Msg("price feed started")
	return nil
}

func (f *Feed) handle(msg *nats.Msg) {
	var tick Tick
	if err := json.Unmarshal(msg.Data, &tick); err != nil {
		f.log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed price tick")
		return
	}
	if tick.Symbol == "" || tick.Price <= 0 {
		f.log.Warn().Str("symbol", tick.Symbol).Int64("price", tick.Price).Msg("invalid price tick")
		return
	}

	f.cache.Set(tick.Symbol, tick.Price)
}

// Stop drains the subscription and closes the connection.
func (f *Feed) Stop() {
	if f.sub != nil {
		f.sub.Unsubscribe()
	}
	if f.conn != nil {
		f.conn.Drain()
	}
}
