// Package enrich joins raw server rows against the reference catalog to
// produce display-ready records. Every function here is pure: same inputs,
// same record, and a missing descriptor resolves to the catalog's unknown
// sentinel instead of failing the record.
package enrich

import "time"

// CraftView is one crafting operation ready for display.
type CraftView struct {
	EntityID   uint64
	ItemID     int64
	ItemName   string
	Tier       int
	Quantity   int64
	RecipeName string
	Crafter    string
	Building   string
	Status     string

	// Passive crafts run on wall clock; active crafts accumulate effort.
	StartedAt       time.Time
	Duration        time.Duration
	Progress        int
	EffortRequired  int
	EffortBased     bool
	AcceptingHelp   bool
	ServerCompleted bool
}

// ReadyAt is the wall-clock completion estimate for duration-based crafts.
// Zero for effort-based crafts.
func (v CraftView) ReadyAt() time.Time {
	if v.EffortBased || v.StartedAt.IsZero() {
		return time.Time{}
	}
	return v.StartedAt.Add(v.Duration)
}

// CraftGroup aggregates crafting operations producing the same item at the
// same tier: one parent row with the children underneath.
type CraftGroup struct {
	ItemID        int64
	ItemName      string
	Tier          int
	TotalQuantity int64
	Buildings     []string
	Crafters      []string
	Children      []CraftView
}

// ItemTotal is one line of the inventory projection: an item summed across
// every container holding it.
type ItemTotal struct {
	ItemID    int64
	Name      string
	Tier      int
	Rarity    string
	Tag       string
	Quantity  int64
	Locations []ItemLocation
}

// ItemLocation is one container's contribution to an ItemTotal.
type ItemLocation struct {
	ContainerID   uint64
	ContainerName string
	Quantity      int64
}

// InventoryView is the full inventory projection for the active claim.
type InventoryView struct {
	Items      []ItemTotal
	Containers int
}

// MemberView is one claim member, display-ready.
type MemberView struct {
	PlayerID  uint64
	Name      string
	Officer   bool
	CoOwner   bool
	CanBuild  bool
	CanAccess bool
}

// ClaimView is the claim header projection: identity plus economy counters.
type ClaimView struct {
	ClaimID  uint64
	Name     string
	Treasury int64
	Supplies int64
	Tiles    int
	Members  []MemberView
}

// TaskView is one traveler task, display-ready.
type TaskView struct {
	EntityID    uint64
	Traveler    string
	Description string
	Completed   bool
}

// TasksView is the tasks projection: the per-traveler task list plus the
// loop epoch at which everything resets.
type TasksView struct {
	ResetAt time.Time
	Tasks   []TaskView
}
