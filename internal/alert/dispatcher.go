package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config is the operator-supplied alert configuration: enable/disable,
// delinquency threshold and transport credentials. The credentials are
// handed to the transport verbatim.
type Config struct {
	Enabled                     bool   `mapstructure:"enabled"`
	DelinquencyThresholdSeconds int    `mapstructure:"delinquency_threshold_seconds"`
	WebhookURL                  string `mapstructure:"webhook_url"`
}

// DefaultDebounceInterval is the minimum inter-alert interval for debounced
// alert kinds.
const DefaultDebounceInterval = time.Hour

// queueCapacity is a large, fixed buffer standing in for an unbounded
// channel: a multi-hour outage would need tens of thousands of suppressed
// failure alerts to fill it, far beyond any realistic monitor cadence.
const queueCapacity = 4096

// Dispatcher accepts alerts on an in-memory queue and guarantees
// at-most-one delivery per alert, FIFO within a pair, debounced per (pair,
// kind). Delivery failures are logged and the alert is dropped.
type Dispatcher struct {
	transports []Transport
	debounce   time.Duration
	queue      chan Alert

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewDispatcher creates a Dispatcher delivering to the given transports.
func NewDispatcher(debounce time.Duration, transports ...Transport) *Dispatcher {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &Dispatcher{
		transports: transports,
		debounce:   debounce,
		queue:      make(chan Alert, queueCapacity),
		lastSent:   make(map[string]time.Time),
	}
}

// Dispatch enqueues an alert for delivery. It never blocks the caller: when
// the queue is full the alert is dropped and an error is logged.
func (d *Dispatcher) Dispatch(a Alert) {
	select {
	case d.queue <- a:
	default:
		log.Error().Str("kind", string(a.Kind)).Msg("alert queue full, dropping alert")
	}
}

// Run drains the queue until ctx is cancelled, delivering each alert to
// every configured transport unless it is suppressed by debouncing.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-d.queue:
			d.deliver(a)
		}
	}
}

func (d *Dispatcher) deliver(a Alert) {
	if d.suppressed(a) {
		log.Debug().Str("kind", string(a.Kind)).Int("pair_index", a.PairIndex).Msg("alert suppressed by debounce window")
		return
	}

	for _, t := range d.transports {
		if err := t.Send(a); err != nil {
			log.Error().Err(err).Str("kind", string(a.Kind)).Msg("alert transport delivery failed, not retrying")
		}
	}
}

func (d *Dispatcher) suppressed(a Alert) bool {
	if !debounced(a.Kind) {
		return false
	}

	key := debounceKey(a)

	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok := d.lastSent[key]
	if ok && a.Timestamp.Sub(last) < d.debounce {
		return true
	}
	d.lastSent[key] = a.Timestamp
	return false
}

func debounceKey(a Alert) string {
	return fmt.Sprintf("%d:%s", a.PairIndex, a.Kind)
}
