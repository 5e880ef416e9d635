// Package processor holds the domain processors: one authoritative in-memory
// collection per business domain, fed by the message router and projected
// into display-ready views on every frame commit.
package processor

import (
	"sync"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
)

// Publisher is where committed projections land. Satisfied by
// *outbox.Outbox.
type Publisher interface {
	Publish(domain outbox.Domain, payload any)
}

// Membership is the shared read model of who belongs to the active claim.
// The members processor rebuilds it on commit; the per-player processors
// (crafting, inventory) consult it to filter out entities owned by
// non-members and re-project eagerly whenever it changes.
type Membership struct {
	mu        sync.RWMutex
	claimID   uint64
	players   map[uint64]string
	listeners []func()
}

func NewMembership() *Membership {
	return &Membership{players: make(map[uint64]string)}
}

// SetClaim pins the active claim. Member rows from other claims are ignored
// by Replace.
func (m *Membership) SetClaim(claimID uint64) {
	m.mu.Lock()
	m.claimID = claimID
	m.players = make(map[uint64]string)
	m.mu.Unlock()
}

func (m *Membership) ClaimID() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.claimID
}

// Replace rebuilds the player set from the full member table. Listeners fire
// only when the set actually changed.
func (m *Membership) Replace(members []models.Member) {
	m.mu.Lock()
	next := make(map[uint64]string, len(members))
	for _, member := range members {
		if m.claimID != 0 && member.ClaimID != m.claimID {
			continue
		}
		next[member.PlayerID] = member.UserName
	}
	changed := !samePlayers(m.players, next)
	m.players = next
	listeners := m.listeners
	m.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn()
		}
	}
}

// Contains reports whether the player belongs to the active claim.
func (m *Membership) Contains(playerID uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.players[playerID]
	return ok
}

// Name resolves a member's display name, empty when unknown.
func (m *Membership) Name(playerID uint64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.players[playerID]
}

// OnChange registers a listener invoked after every effective membership
// change. Registration is not safe concurrently with Replace; wire everything
// up before the pipeline starts.
func (m *Membership) OnChange(fn func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func samePlayers(a, b map[uint64]string) bool {
	if len(a) != len(b) {
		return false
	}
	for id, name := range a {
		if other, ok := b[id]; !ok || other != name {
			return false
		}
	}
	return true
}
