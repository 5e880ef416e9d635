package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CraftStatus is the server-driven status tag on a passive craft. The
// authoritative flag always wins over any locally computed estimate.
type CraftStatus int

const (
	CraftQueued CraftStatus = iota
	CraftInProgress
	CraftCompleted
	CraftFailed
	CraftCancelled
)

func (s CraftStatus) String() string {
	switch s {
	case CraftQueued:
		return "queued"
	case CraftInProgress:
		return "in_progress"
	case CraftCompleted:
		return "completed"
	case CraftFailed:
		return "failed"
	case CraftCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown_%d", int(s))
	}
}

// PassiveCraft is one row of passive_craft_state: a timed crafting operation
// running in a building slot.
type PassiveCraft struct {
	EntityID       uint64
	OwnerID        uint64
	RecipeID       int64
	BuildingID     uint64
	BuildingDescID int64
	StartedAt      time.Time
	Status         CraftStatus
	Slot           int
}

func (p PassiveCraft) Key() uint64 { return p.EntityID }

// passiveCraftRow mirrors the wire shape. Status and slot arrive as tagged
// arrays ([tag, payload]); only the tag matters here.
type passiveCraftRow struct {
	EntityID       uint64            `json:"entity_id"`
	OwnerID        uint64            `json:"owner_entity_id"`
	RecipeID       int64             `json:"recipe_id"`
	BuildingID     uint64            `json:"building_entity_id"`
	BuildingDescID int64             `json:"building_description_id"`
	Timestamp      Timestamp         `json:"timestamp"`
	Status         []json.RawMessage `json:"status"`
	Slot           []json.RawMessage `json:"slot"`
}

// ParsePassiveCraft decodes one passive_craft_state row.
func ParsePassiveCraft(data []byte) (PassiveCraft, error) {
	var row passiveCraftRow
	if err := json.Unmarshal(data, &row); err != nil {
		return PassiveCraft{}, fmt.Errorf("parse passive_craft_state: %w", err)
	}
	if row.EntityID == 0 {
		return PassiveCraft{}, fmt.Errorf("parse passive_craft_state: missing entity_id")
	}
	return PassiveCraft{
		EntityID:       row.EntityID,
		OwnerID:        row.OwnerID,
		RecipeID:       row.RecipeID,
		BuildingID:     row.BuildingID,
		BuildingDescID: row.BuildingDescID,
		StartedAt:      row.Timestamp.Time(),
		Status:         CraftStatus(taggedVariant(row.Status)),
		Slot:           taggedVariant(row.Slot),
	}, nil
}

// taggedVariant extracts the integer tag from a [tag, payload] array.
// Missing or malformed tags resolve to zero.
func taggedVariant(raw []json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var tag int
	if err := json.Unmarshal(raw[0], &tag); err != nil {
		return 0
	}
	return tag
}

// ActiveCraft is one row of progressive_action_state: an effort-based
// crafting operation that advances as players work it.
type ActiveCraft struct {
	EntityID       uint64
	BuildingID     uint64
	FunctionType   int
	Progress       int
	RecipeID       int64
	CraftCount     int
	OwnerID        uint64
	LockExpiration time.Time
	Preparation    bool
}

func (a ActiveCraft) Key() uint64 { return a.EntityID }

type activeCraftRow struct {
	EntityID       uint64     `json:"entity_id"`
	BuildingID     uint64     `json:"building_entity_id"`
	FunctionType   int        `json:"function_type"`
	Progress       int        `json:"progress"`
	RecipeID       int64      `json:"recipe_id"`
	CraftCount     int        `json:"craft_count"`
	OwnerID        uint64     `json:"owner_entity_id"`
	LockExpiration *Timestamp `json:"lock_expiration"`
	Preparation    bool       `json:"preparation"`
}

// ParseActiveCraft decodes one progressive_action_state row.
func ParseActiveCraft(data []byte) (ActiveCraft, error) {
	var row activeCraftRow
	if err := json.Unmarshal(data, &row); err != nil {
		return ActiveCraft{}, fmt.Errorf("parse progressive_action_state: %w", err)
	}
	if row.EntityID == 0 {
		return ActiveCraft{}, fmt.Errorf("parse progressive_action_state: missing entity_id")
	}
	craft := ActiveCraft{
		EntityID:     row.EntityID,
		BuildingID:   row.BuildingID,
		FunctionType: row.FunctionType,
		Progress:     row.Progress,
		RecipeID:     row.RecipeID,
		CraftCount:   row.CraftCount,
		OwnerID:      row.OwnerID,
		Preparation:  row.Preparation,
	}
	if row.LockExpiration != nil {
		craft.LockExpiration = row.LockExpiration.Time()
	}
	return craft, nil
}

// PublicAction is one row of public_progressive_action_state: a progressive
// action that is visible to and accepting help from other claim members.
type PublicAction struct {
	EntityID   uint64 `json:"entity_id"`
	BuildingID uint64 `json:"building_entity_id"`
	OwnerID    uint64 `json:"owner_entity_id"`
}

func (p PublicAction) Key() uint64 { return p.EntityID }

// ParsePublicAction decodes one public_progressive_action_state row.
func ParsePublicAction(data []byte) (PublicAction, error) {
	var row PublicAction
	if err := json.Unmarshal(data, &row); err != nil {
		return PublicAction{}, fmt.Errorf("parse public_progressive_action_state: %w", err)
	}
	if row.EntityID == 0 {
		return PublicAction{}, fmt.Errorf("parse public_progressive_action_state: missing entity_id")
	}
	return row, nil
}
