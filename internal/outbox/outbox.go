// Package outbox is the handoff point between the sync pipeline and the
// presentation layer: a latest-value mailbox per domain. A slow consumer may
// skip intermediate projections but always observes the newest one, and a
// stalled consumer never grows memory beyond one pending projection per
// domain.
package outbox

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Domain identifies one projection stream.
type Domain string

const (
	DomainInventory  Domain = "inventory"
	DomainPassive    Domain = "passive_crafting"
	DomainActive     Domain = "active_crafting"
	DomainClaim      Domain = "claim"
	DomainTasks      Domain = "tasks"
	DomainTimers     Domain = "timers"
	DomainAlerts     Domain = "alerts"
	DomainConnection Domain = "connection"
)

// ErrClosed is returned by Consume after Close.
var ErrClosed = errors.New("outbox: closed")

// Update is one published projection. Seq increases across all domains, so a
// consumer can detect skipped intermediates.
type Update struct {
	Domain  Domain
	Seq     uint64
	At      time.Time
	Payload any
}

// Outbox holds at most one pending update per domain, overwriting older
// pending values. Domains are delivered in the order they first became
// pending.
type Outbox struct {
	mu      sync.Mutex
	pending map[Domain]Update
	order   []Domain
	seq     uint64
	closed  bool
	signal  chan struct{}
}

func New() *Outbox {
	return &Outbox{
		pending: make(map[Domain]Update),
		signal:  make(chan struct{}, 1),
	}
}

// Publish stores payload as the pending update for domain, replacing any
// unconsumed one. Publish never blocks.
func (o *Outbox) Publish(domain Domain, payload any) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.seq++
	if _, waiting := o.pending[domain]; !waiting {
		o.order = append(o.order, domain)
	}
	o.pending[domain] = Update{Domain: domain, Seq: o.seq, At: time.Now(), Payload: payload}
	o.mu.Unlock()

	select {
	case o.signal <- struct{}{}:
	default:
	}
}

// Consume blocks until an update is pending, then returns the oldest pending
// domain's latest value.
func (o *Outbox) Consume(ctx context.Context) (Update, error) {
	for {
		o.mu.Lock()
		if len(o.order) > 0 {
			domain := o.order[0]
			o.order = o.order[1:]
			update := o.pending[domain]
			delete(o.pending, domain)
			o.mu.Unlock()
			return update, nil
		}
		closed := o.closed
		o.mu.Unlock()
		if closed {
			return Update{}, ErrClosed
		}

		select {
		case <-o.signal:
		case <-ctx.Done():
			return Update{}, ctx.Err()
		}
	}
}

// TryConsume returns the oldest pending update without blocking.
func (o *Outbox) TryConsume() (Update, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.order) == 0 {
		return Update{}, false
	}
	domain := o.order[0]
	o.order = o.order[1:]
	update := o.pending[domain]
	delete(o.pending, domain)
	return update, true
}

// Close wakes any blocked consumer. Updates still pending remain consumable
// via TryConsume.
func (o *Outbox) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	select {
	case o.signal <- struct{}{}:
	default:
	}
}
