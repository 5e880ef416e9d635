package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, itemsFile, `[
		{"id": 1001, "name": "Rough Plank", "tier": 1, "tag": "Wood", "rarity": "Common"},
		{"id": 1002, "name": "Simple Plank", "tier": 2, "tag": "Wood", "rarity": "Common"}
	]`)
	writeFixture(t, dir, recipesFile, `[
		{"id": 55, "name": "Craft Rough Plank", "duration_seconds": 60, "is_passive": true,
		 "crafted_item_stacks": [{"item_id": 1001, "quantity": 4}]},
		{"id": 56, "name": "Saw Simple Plank", "actions_required": 300,
		 "crafted_item_stacks": [{"item_id": 1002, "quantity": 2}]}
	]`)
	writeFixture(t, dir, buildingsFile, `[
		{"id": 12, "name": "Carpentry Station", "building_type_id": 3, "tier": 1}
	]`)

	cat, err := Load(dir)
	require.NoError(t, err)
	return cat
}

func TestLoadAndLookup(t *testing.T) {
	cat := loadFixture(t)

	item := cat.Item(1001)
	assert.Equal(t, "Rough Plank", item.Name)
	assert.False(t, item.Unknown)

	recipe := cat.Recipe(55)
	assert.True(t, recipe.IsPassive)
	assert.Equal(t, 60.0, recipe.DurationSeconds)

	building := cat.Building(12)
	assert.Equal(t, "Carpentry Station", building.Name)
}

func TestLookupMissReturnsUnknownSentinel(t *testing.T) {
	cat := loadFixture(t)

	item := cat.Item(9999)
	assert.True(t, item.Unknown)
	assert.Equal(t, "Unknown Item 9999", item.Name)
	assert.Equal(t, int64(9999), item.ID)

	// Traveler and task files were absent entirely; lookups still resolve.
	traveler := cat.Traveler(4)
	assert.True(t, traveler.Unknown)
	assert.Equal(t, "Traveler 4", traveler.Name)
}

func TestProducedItem(t *testing.T) {
	cat := loadFixture(t)

	item, qty := cat.ProducedItem(55)
	assert.Equal(t, "Rough Plank", item.Name)
	assert.Equal(t, int64(4), qty)

	// Recipe with no output stacks falls back to the recipe name.
	unknown, qty := cat.ProducedItem(777)
	assert.True(t, unknown.Unknown)
	assert.Equal(t, int64(1), qty)
	assert.Equal(t, "Unknown Recipe 777", unknown.Name)
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
