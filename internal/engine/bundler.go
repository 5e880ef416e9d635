package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Alert is one grouped completion notification: many simultaneous
// completions collapse into a single alert instead of a storm.
type Alert struct {
	Count int
	Items []string
	At    time.Time
}

// Sink receives flushed alerts. Delivery (toast, log line, UI badge) is the
// caller's concern.
type Sink interface {
	Deliver(alert Alert)
}

// Bundler coalesces completion events arriving within one window into a
// single alert. The window is per-bundle: an event landing after a flush
// opens a new bundle.
type Bundler struct {
	log    zerolog.Logger
	window time.Duration
	sink   Sink

	mu      sync.Mutex
	pending []Completion
	flush   *time.Timer
	stopped bool
}

func NewBundler(log zerolog.Logger, window time.Duration, sink Sink) *Bundler {
	if window <= 0 {
		window = time.Second
	}
	return &Bundler{
		log:    log.With().Str("component", "bundler").Logger(),
		window: window,
		sink:   sink,
	}
}

// OnCompletion implements CompletionSink. The first event of a bundle arms
// the flush timer; later events within the window just join the bundle.
func (b *Bundler) OnCompletion(ev Completion) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pending = append(b.pending, ev)
	if b.flush == nil {
		b.flush = time.AfterFunc(b.window, b.flushNow)
	}
}

func (b *Bundler) flushNow() {
	b.mu.Lock()
	events := b.pending
	b.pending = nil
	b.flush = nil
	b.mu.Unlock()
	b.deliver(events)
}

// Stop flushes whatever is buffered. No alert is emitted afterwards.
func (b *Bundler) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	if b.flush != nil {
		b.flush.Stop()
		b.flush = nil
	}
	events := b.pending
	b.pending = nil
	b.mu.Unlock()
	b.deliver(events)
}

func (b *Bundler) deliver(events []Completion) {
	if len(events) == 0 {
		return
	}
	alert := Alert{Count: len(events), At: events[len(events)-1].CompletedAt}

	// Distinct items, quantities summed per item, first-seen order.
	quantities := make(map[string]int64)
	var order []string
	for _, ev := range events {
		if _, ok := quantities[ev.Item]; !ok {
			order = append(order, ev.Item)
		}
		quantities[ev.Item] += ev.Quantity
	}
	for _, item := range order {
		label := item
		if q := quantities[item]; q > 1 {
			label = fmt.Sprintf("%s x%d", item, q)
		}
		alert.Items = append(alert.Items, label)
	}

	b.log.Info().Int("count", alert.Count).Strs("items", alert.Items).Msg("completion alert")
	b.sink.Deliver(alert)
}
