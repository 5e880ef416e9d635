package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
)

type fakeSource struct {
	mu  sync.Mutex
	ops []Operation
}

func (f *fakeSource) Operations() []Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Operation(nil), f.ops...)
}

func (f *fakeSource) set(ops ...Operation) {
	f.mu.Lock()
	f.ops = ops
	f.mu.Unlock()
}

type recordSink struct {
	mu     sync.Mutex
	events []Completion
}

func (r *recordSink) OnCompletion(ev Completion) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type capturePub struct {
	mu   sync.Mutex
	last any
}

func (c *capturePub) Publish(domain outbox.Domain, payload any) {
	c.mu.Lock()
	c.last = payload
	c.mu.Unlock()
}

func (c *capturePub) lastView() TimersView {
	c.mu.Lock()
	defer c.mu.Unlock()
	view, _ := c.last.(TimersView)
	return view
}

func durationOp(id uint64, started time.Time, dur time.Duration) Operation {
	return Operation{
		EntityID:  id,
		Domain:    outbox.DomainPassive,
		Item:      "Rough Plank",
		Quantity:  2,
		StartedAt: started,
		ReadyAt:   started.Add(dur),
	}
}

func TestAlreadyReadyAtStartEmitsNoEvent(t *testing.T) {
	now := time.Now()
	src := &fakeSource{}
	src.set(
		durationOp(1, now.Add(-70*time.Second), time.Minute), // done 10s ago
		durationOp(2, now.Add(-10*time.Second), time.Minute), // ~50s left
	)
	sink := &recordSink{}
	pub := &capturePub{}
	timer := NewTimer(zerolog.Nop(), time.Second, sink, pub, src)

	timer.Tick(now)

	require.Zero(t, sink.count(), "work finished while offline must not replay as an alert")
	view := pub.lastView()
	require.Len(t, view.Rows, 2)
	require.Equal(t, "ready", view.Rows[0].Phase)
	require.Equal(t, "in_progress", view.Rows[1].Phase)
	require.InDelta(t, 50*time.Second, view.Rows[1].Remaining, float64(time.Second))
}

func TestEdgeEmitsExactlyOnce(t *testing.T) {
	now := time.Now()
	src := &fakeSource{}
	src.set(durationOp(1, now, 30*time.Second))
	sink := &recordSink{}
	timer := NewTimer(zerolog.Nop(), time.Second, sink, nil, src)

	timer.Tick(now)
	require.Zero(t, sink.count())

	timer.Tick(now.Add(31 * time.Second))
	require.Equal(t, 1, sink.count(), "one event on the in_progress -> ready edge")

	timer.Tick(now.Add(60 * time.Second))
	timer.Tick(now.Add(90 * time.Second))
	require.Equal(t, 1, sink.count(), "ready is terminal, no repeat events")
}

func TestServerStatusWinsOverClock(t *testing.T) {
	now := time.Now()
	op := durationOp(1, now, time.Hour) // clock says far from done
	src := &fakeSource{}
	src.set(op)
	sink := &recordSink{}
	timer := NewTimer(zerolog.Nop(), time.Second, sink, nil, src)

	timer.Tick(now)
	require.Zero(t, sink.count())

	op.ServerReady = true
	src.set(op)
	timer.Tick(now.Add(time.Second))
	require.Equal(t, 1, sink.count(), "authoritative server flag forces the edge")
}

func TestReadyIsMonotonic(t *testing.T) {
	now := time.Now()
	op := durationOp(1, now, time.Second)
	src := &fakeSource{}
	src.set(op)
	pub := &capturePub{}
	timer := NewTimer(zerolog.Nop(), time.Second, &recordSink{}, pub, src)

	timer.Tick(now)
	timer.Tick(now.Add(2 * time.Second))
	require.Equal(t, "ready", pub.lastView().Rows[0].Phase)

	// Same start timestamp but the estimate slid into the future. Ready must
	// not revert.
	op.ReadyAt = now.Add(time.Hour)
	src.set(op)
	timer.Tick(now.Add(3 * time.Second))
	require.Equal(t, "ready", pub.lastView().Rows[0].Phase)
}

func TestRecreateUnderSameIDResetsLifecycle(t *testing.T) {
	now := time.Now()
	src := &fakeSource{}
	src.set(durationOp(1, now.Add(-2*time.Minute), time.Minute))
	sink := &recordSink{}
	pub := &capturePub{}
	timer := NewTimer(zerolog.Nop(), time.Second, sink, pub, src)

	timer.Tick(now)
	require.Equal(t, "ready", pub.lastView().Rows[0].Phase)

	// Server deletes and recreates the entity with a fresh start timestamp
	// in the same frame: one entity, new lifecycle.
	src.set(durationOp(1, now, time.Minute))
	timer.Tick(now.Add(time.Second))
	view := pub.lastView()
	require.Len(t, view.Rows, 1)
	require.Equal(t, "in_progress", view.Rows[0].Phase)

	timer.Tick(now.Add(2 * time.Minute))
	require.Equal(t, 1, sink.count(), "the recreated operation completes with its own event")
}

func TestEffortBasedCompletion(t *testing.T) {
	op := Operation{
		EntityID:        9,
		Domain:          outbox.DomainActive,
		Item:            "Iron Ingot",
		Quantity:        1,
		EffortBased:     true,
		RemainingEffort: 5,
	}
	src := &fakeSource{}
	src.set(op)
	sink := &recordSink{}
	timer := NewTimer(zerolog.Nop(), time.Second, sink, nil, src)

	now := time.Now()
	timer.Tick(now)
	require.Zero(t, sink.count())

	op.RemainingEffort = 0
	src.set(op)
	timer.Tick(now.Add(time.Second))
	require.Equal(t, 1, sink.count())
}

func TestDisappearedEntityIsForgotten(t *testing.T) {
	now := time.Now()
	src := &fakeSource{}
	src.set(durationOp(1, now, 10*time.Second))
	sink := &recordSink{}
	timer := NewTimer(zerolog.Nop(), time.Second, sink, nil, src)

	timer.Tick(now)
	src.set() // deleted server-side
	timer.Tick(now.Add(time.Second))

	// Reappears already past completion: first observation again, no event.
	src.set(durationOp(1, now, 10*time.Second))
	timer.Tick(now.Add(time.Minute))
	require.Zero(t, sink.count())
}

func TestUnknownDurationStaysPendingUntilServerStatus(t *testing.T) {
	now := time.Now()
	// Started long ago but no ready estimate: the duration is not known
	// locally, so only the server flag may complete it.
	op := Operation{
		EntityID:  1,
		Domain:    outbox.DomainPassive,
		Item:      "Rough Plank",
		Quantity:  2,
		StartedAt: now.Add(-time.Hour),
	}
	src := &fakeSource{}
	src.set(op)
	sink := &recordSink{}
	pub := &capturePub{}
	timer := NewTimer(zerolog.Nop(), time.Second, sink, pub, src)

	timer.Tick(now)
	require.Equal(t, "pending", pub.lastView().Rows[0].Phase)
	require.Zero(t, sink.count())

	op.ServerReady = true
	src.set(op)
	timer.Tick(now.Add(time.Second))
	require.Equal(t, "ready", pub.lastView().Rows[0].Phase)
	require.Equal(t, 1, sink.count())
}

func TestQueuedOperationIsPending(t *testing.T) {
	op := durationOp(1, time.Now(), time.Minute)
	op.Queued = true
	src := &fakeSource{}
	src.set(op)
	pub := &capturePub{}
	timer := NewTimer(zerolog.Nop(), time.Second, &recordSink{}, pub, src)

	timer.Tick(time.Now())
	require.Equal(t, "pending", pub.lastView().Rows[0].Phase)
}
