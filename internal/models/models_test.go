package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePassiveCraft(t *testing.T) {
	row := []byte(`{
		"entity_id": 101,
		"owner_entity_id": 7,
		"recipe_id": 55,
		"building_entity_id": 900,
		"building_description_id": 12,
		"timestamp": {"__timestamp_micros_since_unix_epoch__": 1700000000000000},
		"status": [2, {}],
		"slot": [3, {}]
	}`)

	craft, err := ParsePassiveCraft(row)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), craft.EntityID)
	assert.Equal(t, uint64(7), craft.OwnerID)
	assert.Equal(t, CraftCompleted, craft.Status)
	assert.Equal(t, 3, craft.Slot)
	assert.Equal(t, time.UnixMicro(1700000000000000), craft.StartedAt)
}

func TestParsePassiveCraftRejectsMissingID(t *testing.T) {
	_, err := ParsePassiveCraft([]byte(`{"recipe_id": 5}`))
	require.Error(t, err)
}

func TestParsePassiveCraftToleratesMalformedStatus(t *testing.T) {
	craft, err := ParsePassiveCraft([]byte(`{"entity_id": 5, "status": []}`))
	require.NoError(t, err)
	assert.Equal(t, CraftQueued, craft.Status)
}

func TestParseActiveCraftLockExpiration(t *testing.T) {
	row := []byte(`{
		"entity_id": 33,
		"building_entity_id": 40,
		"function_type": 2,
		"progress": 120,
		"recipe_id": 9,
		"craft_count": 1,
		"owner_entity_id": 77,
		"lock_expiration": {"__timestamp_micros_since_unix_epoch__": 1700000001000000},
		"preparation": true
	}`)

	craft, err := ParseActiveCraft(row)
	require.NoError(t, err)
	assert.Equal(t, 120, craft.Progress)
	assert.True(t, craft.Preparation)
	assert.Equal(t, time.UnixMicro(1700000001000000), craft.LockExpiration)

	noLock, err := ParseActiveCraft([]byte(`{"entity_id": 34}`))
	require.NoError(t, err)
	assert.True(t, noLock.LockExpiration.IsZero())
}

func TestParseInventoryPockets(t *testing.T) {
	row := []byte(`{
		"entity_id": 500,
		"owner_entity_id": 900,
		"player_owner_entity_id": 7,
		"inventory_index": 1,
		"cargo_index": 0,
		"pockets": [
			[0, [0, [1001, 25]], false],
			[0, [1, []], false],
			"garbage",
			[0, [0, [1002, 1, [0, []], [1, []]]], true]
		]
	}`)

	inv, err := ParseInventory(row)
	require.NoError(t, err)
	require.Len(t, inv.Pockets, 4)

	assert.True(t, inv.Pockets[0].Occupied)
	assert.Equal(t, int64(1001), inv.Pockets[0].ItemID)
	assert.Equal(t, int64(25), inv.Pockets[0].Quantity)

	assert.False(t, inv.Pockets[1].Occupied, "empty pocket")
	assert.False(t, inv.Pockets[2].Occupied, "malformed pocket kept as empty slot")

	assert.True(t, inv.Pockets[3].Occupied)
	assert.True(t, inv.Pockets[3].Locked)
	assert.Equal(t, 3, inv.Pockets[3].SlotIndex)
}

func TestParseMember(t *testing.T) {
	row := []byte(`{
		"entity_id": 1,
		"claim_entity_id": 10,
		"player_entity_id": 7,
		"user_name": "jackk",
		"inventory_permission": true
	}`)
	m, err := ParseMember(row)
	require.NoError(t, err)
	assert.Equal(t, "jackk", m.UserName)
	assert.True(t, m.InventoryPermission)
	assert.False(t, m.OfficerPermission)
}
