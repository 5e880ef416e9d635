// Package engine derives time-sensitive state from the domain processors:
// countdown timers, readiness transitions, and grouped completion alerts.
// It only reads processor state; everything it derives lives in its own
// tracking store.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
)

// Phase is the lifecycle of one timed operation. Ready is terminal until the
// server deletes or recreates the entity.
type Phase int

const (
	PhasePending Phase = iota
	PhaseInProgress
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "in_progress"
	case PhaseReady:
		return "ready"
	default:
		return "pending"
	}
}

// Operation is one timed entity as reported by a domain processor on the
// current tick. Duration-based operations carry ReadyAt; effort-based ones
// carry RemainingEffort.
type Operation struct {
	EntityID uint64
	Domain   outbox.Domain
	Item     string
	Quantity int64
	Crafter  string
	Building string

	Queued          bool
	StartedAt       time.Time
	ReadyAt         time.Time
	RemainingEffort int
	EffortBased     bool

	// ServerReady is the authoritative status flag. It always wins over the
	// locally computed estimate.
	ServerReady bool
}

// Source exposes a processor's current timed operations.
type Source interface {
	Operations() []Operation
}

// Completion records one observed InProgress -> Ready edge.
type Completion struct {
	EntityID    uint64
	Domain      outbox.Domain
	Item        string
	Quantity    int64
	Crafter     string
	CompletedAt time.Time
}

// CompletionSink consumes completion events. The notification bundler
// implements this.
type CompletionSink interface {
	OnCompletion(ev Completion)
}

// TimerRow is one countdown line of the timers projection.
type TimerRow struct {
	EntityID  uint64
	Domain    outbox.Domain
	Item      string
	Quantity  int64
	Crafter   string
	Building  string
	Phase     string
	Remaining time.Duration
}

// TimersView is the per-tick timers projection.
type TimersView struct {
	GeneratedAt time.Time
	Rows        []TimerRow
}

// Publisher is where projections land. Satisfied by *outbox.Outbox.
type Publisher interface {
	Publish(domain outbox.Domain, payload any)
}

type tracked struct {
	phase     Phase
	startedAt time.Time
}

// Timer detects readiness transitions on a fixed tick. Completion events
// fire exactly once per observed edge; operations that are already ready
// when first seen are classified ready silently, so work finished while the
// client was offline never replays as a fresh alert.
type Timer struct {
	log      zerolog.Logger
	sources  []Source
	sink     CompletionSink
	pub      Publisher
	interval time.Duration

	entries map[uint64]tracked
}

func NewTimer(log zerolog.Logger, interval time.Duration, sink CompletionSink, pub Publisher, sources ...Source) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{
		log:      log.With().Str("component", "timer").Logger(),
		sources:  sources,
		sink:     sink,
		pub:      pub,
		interval: interval,
		entries:  make(map[uint64]tracked),
	}
}

// Run ticks until the context ends. The first classification happens
// immediately rather than one interval in, so entities past completion at
// startup are ready at once.
func (t *Timer) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.Tick(time.Now())
	for {
		select {
		case now := <-ticker.C:
			t.Tick(now)
		case <-ctx.Done():
			return nil
		}
	}
}

// Tick reclassifies every tracked operation once.
func (t *Timer) Tick(now time.Time) {
	var ops []Operation
	for _, src := range t.sources {
		ops = append(ops, src.Operations()...)
	}

	view := TimersView{GeneratedAt: now, Rows: make([]TimerRow, 0, len(ops))}
	seen := make(map[uint64]struct{}, len(ops))
	for _, op := range ops {
		seen[op.EntityID] = struct{}{}
		phase := t.observe(op, now)
		view.Rows = append(view.Rows, TimerRow{
			EntityID:  op.EntityID,
			Domain:    op.Domain,
			Item:      op.Item,
			Quantity:  op.Quantity,
			Crafter:   op.Crafter,
			Building:  op.Building,
			Phase:     phase.String(),
			Remaining: remaining(op, now),
		})
	}

	// Entities no longer reported were deleted server-side; forget them so a
	// later recreate under the same id starts a fresh lifecycle.
	for id := range t.entries {
		if _, ok := seen[id]; !ok {
			delete(t.entries, id)
		}
	}

	if t.pub != nil {
		t.pub.Publish(outbox.DomainTimers, view)
	}
}

// observe folds one operation into the tracking store and returns its phase.
// Ready is monotonic: a clock or effort wobble never reverts it. Only a
// changed start timestamp (the server recreated the entity under the same
// id) resets the lifecycle.
func (t *Timer) observe(op Operation, now time.Time) Phase {
	phase := classify(op, now)
	prev, known := t.entries[op.EntityID]

	switch {
	case !known:
		// First observation: adopt the computed phase without an event.
	case !prev.startedAt.Equal(op.StartedAt):
		t.log.Debug().Uint64("entity_id", op.EntityID).Msg("operation recreated, lifecycle reset")
	case prev.phase == PhaseReady:
		phase = PhaseReady
	case phase == PhaseReady:
		t.emit(op, now)
	}

	t.entries[op.EntityID] = tracked{phase: phase, startedAt: op.StartedAt}
	return phase
}

func (t *Timer) emit(op Operation, now time.Time) {
	t.log.Info().Uint64("entity_id", op.EntityID).Str("item", op.Item).Msg("operation completed")
	if t.sink == nil {
		return
	}
	t.sink.OnCompletion(Completion{
		EntityID:    op.EntityID,
		Domain:      op.Domain,
		Item:        op.Item,
		Quantity:    op.Quantity,
		Crafter:     op.Crafter,
		CompletedAt: now,
	})
}

func classify(op Operation, now time.Time) Phase {
	if op.ServerReady {
		return PhaseReady
	}
	if op.Queued {
		return PhasePending
	}
	if op.EffortBased {
		if op.RemainingEffort <= 0 {
			return PhaseReady
		}
		return PhaseInProgress
	}
	if op.StartedAt.IsZero() || op.ReadyAt.IsZero() {
		return PhasePending
	}
	if !now.Before(op.ReadyAt) {
		return PhaseReady
	}
	return PhaseInProgress
}

func remaining(op Operation, now time.Time) time.Duration {
	if op.EffortBased || op.ReadyAt.IsZero() {
		return 0
	}
	left := op.ReadyAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
