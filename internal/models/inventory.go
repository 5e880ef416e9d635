package models

import (
	"encoding/json"
	"fmt"
)

// Inventory is one row of inventory_state: a container with a fixed set of
// pockets, owned by a building or a player.
type Inventory struct {
	EntityID       uint64
	InventoryIndex int
	CargoIndex     int
	OwnerID        uint64
	PlayerOwnerID  uint64
	Pockets        []Pocket
}

func (i Inventory) Key() uint64 { return i.EntityID }

// Pocket is a single slot of a container. Empty pockets carry no stack.
type Pocket struct {
	SlotIndex int
	Type      int
	Locked    bool
	ItemID    int64
	Quantity  int64
	Occupied  bool
}

type inventoryRow struct {
	EntityID       uint64            `json:"entity_id"`
	Pockets        []json.RawMessage `json:"pockets"`
	InventoryIndex int               `json:"inventory_index"`
	CargoIndex     int               `json:"cargo_index"`
	OwnerID        uint64            `json:"owner_entity_id"`
	PlayerOwnerID  uint64            `json:"player_owner_entity_id"`
}

// ParseInventory decodes one inventory_state row. Pockets that fail to
// decode are kept as empty slots so one bad pocket never drops the
// container.
func ParseInventory(data []byte) (Inventory, error) {
	var row inventoryRow
	if err := json.Unmarshal(data, &row); err != nil {
		return Inventory{}, fmt.Errorf("parse inventory_state: %w", err)
	}
	if row.EntityID == 0 {
		return Inventory{}, fmt.Errorf("parse inventory_state: missing entity_id")
	}
	inv := Inventory{
		EntityID:       row.EntityID,
		InventoryIndex: row.InventoryIndex,
		CargoIndex:     row.CargoIndex,
		OwnerID:        row.OwnerID,
		PlayerOwnerID:  row.PlayerOwnerID,
		Pockets:        make([]Pocket, 0, len(row.Pockets)),
	}
	for i, raw := range row.Pockets {
		inv.Pockets = append(inv.Pockets, parsePocket(i, raw))
	}
	return inv, nil
}

// parsePocket unpacks the nested pocket shape:
// [pocket_type, [state_tag, [item_id, quantity, ...]], is_locked].
// A state tag of 0 marks an occupied slot.
func parsePocket(index int, raw json.RawMessage) Pocket {
	pocket := Pocket{SlotIndex: index}

	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil || len(outer) < 3 {
		return pocket
	}
	json.Unmarshal(outer[0], &pocket.Type)
	json.Unmarshal(outer[2], &pocket.Locked)

	var content []json.RawMessage
	if err := json.Unmarshal(outer[1], &content); err != nil || len(content) < 2 {
		return pocket
	}
	var stateTag int
	if err := json.Unmarshal(content[0], &stateTag); err != nil || stateTag != 0 {
		return pocket
	}
	var stack []json.RawMessage
	if err := json.Unmarshal(content[1], &stack); err != nil || len(stack) < 2 {
		return pocket
	}
	if json.Unmarshal(stack[0], &pocket.ItemID) != nil {
		return pocket
	}
	if json.Unmarshal(stack[1], &pocket.Quantity) != nil {
		return pocket
	}
	pocket.Occupied = true
	return pocket
}
