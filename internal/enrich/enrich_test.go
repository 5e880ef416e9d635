package enrich

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
)

func testCatalog() *catalog.Catalog {
	return catalog.FromDescriptors(
		[]catalog.ItemDesc{
			{ID: 100, Name: "Rough Plank", Tier: 1, Rarity: "Common", Tag: "Wood"},
			{ID: 200, Name: "Iron Ingot", Tier: 2, Rarity: "Common", Tag: "Metal"},
		},
		[]catalog.RecipeDesc{
			{ID: 10, Name: "Saw Rough Plank", DurationSeconds: 60, IsPassive: true,
				CraftedItems: []catalog.ItemStack{{ItemID: 100, Quantity: 2}}},
			{ID: 20, Name: "Smelt Iron", ActionsRequired: 30,
				CraftedItems: []catalog.ItemStack{{ItemID: 200, Quantity: 1}}},
		},
		[]catalog.BuildingDesc{{ID: 7, Name: "Sawmill", Tier: 1}},
		nil, nil,
	)
}

func TestPassiveCraftEnrichment(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	view := PassiveCraft(testCatalog(), models.PassiveCraft{
		EntityID:       1,
		RecipeID:       10,
		BuildingDescID: 7,
		StartedAt:      started,
		Status:         models.CraftInProgress,
	}, "Jackk", "")

	require.Equal(t, "Rough Plank", view.ItemName)
	require.Equal(t, int64(2), view.Quantity)
	require.Equal(t, "Sawmill", view.Building, "falls back to descriptor name when no nickname")
	require.Equal(t, "Jackk", view.Crafter)
	require.Equal(t, time.Minute, view.Duration)
	require.Equal(t, started.Add(time.Minute), view.ReadyAt())
	require.False(t, view.ServerCompleted)
}

func TestPassiveCraftUnknownRecipe(t *testing.T) {
	view := PassiveCraft(testCatalog(), models.PassiveCraft{EntityID: 2, RecipeID: 999}, "", "")
	require.Equal(t, "Unknown Recipe 999", view.ItemName, "missing descriptors never fail the record")
	require.Equal(t, "Unknown", view.Crafter)
}

func TestActiveCraftEnrichment(t *testing.T) {
	view := ActiveCraft(testCatalog(), models.ActiveCraft{
		EntityID:   3,
		RecipeID:   20,
		Progress:   30,
		CraftCount: 3,
	}, "Vex", "Forge", true)

	require.Equal(t, "Iron Ingot", view.ItemName)
	require.Equal(t, int64(3), view.Quantity, "quantity scales with craft count")
	require.True(t, view.EffortBased)
	require.True(t, view.AcceptingHelp)
	require.True(t, view.ServerCompleted, "progress at required effort completes the craft")
	require.True(t, view.ReadyAt().IsZero(), "effort-based crafts have no clock estimate")
}

func TestGroupCrafts(t *testing.T) {
	views := []CraftView{
		{EntityID: 2, ItemID: 100, ItemName: "Rough Plank", Tier: 1, Quantity: 2, Building: "Sawmill", Crafter: "Jackk"},
		{EntityID: 1, ItemID: 100, ItemName: "Rough Plank", Tier: 1, Quantity: 2, Building: "Sawmill East", Crafter: "Vex"},
		{EntityID: 3, ItemID: 200, ItemName: "Iron Ingot", Tier: 2, Quantity: 1, Building: "Forge", Crafter: "Jackk"},
		{EntityID: 4, ItemID: 100, ItemName: "Rough Plank", Tier: 1, Quantity: 2, Building: "Sawmill", Crafter: "Jackk"},
	}

	groups := GroupCrafts(views)
	require.Len(t, groups, 2)

	iron := groups[0]
	require.Equal(t, "Iron Ingot", iron.ItemName)

	plank := groups[1]
	require.Equal(t, int64(6), plank.TotalQuantity)
	require.ElementsMatch(t, []string{"Sawmill", "Sawmill East"}, plank.Buildings)
	require.ElementsMatch(t, []string{"Jackk", "Vex"}, plank.Crafters)
	require.Len(t, plank.Children, 3)
	require.Equal(t, uint64(1), plank.Children[0].EntityID, "children sorted by entity id")
}

func TestGroupCraftsRebuildsFromScratch(t *testing.T) {
	views := []CraftView{
		{EntityID: 1, ItemID: 100, ItemName: "Rough Plank", Tier: 1, Quantity: 2},
	}
	first := GroupCrafts(views)
	second := GroupCrafts(views)
	require.Equal(t, first, second, "aggregation is a pure function of its input")
}

func TestSumInventory(t *testing.T) {
	containers := []models.Inventory{
		{EntityID: 50, Pockets: []models.Pocket{
			{SlotIndex: 0, ItemID: 100, Quantity: 10, Occupied: true},
			{SlotIndex: 1, ItemID: 100, Quantity: 5, Occupied: true},
			{SlotIndex: 2}, // empty
		}},
		{EntityID: 60, Pockets: []models.Pocket{
			{SlotIndex: 0, ItemID: 100, Quantity: 3, Occupied: true},
			{SlotIndex: 1, ItemID: 200, Quantity: 7, Occupied: true},
		}},
	}
	names := map[uint64]string{50: "Storehouse", 60: "Bank"}

	view := SumInventory(testCatalog(), containers, func(c models.Inventory) string {
		return names[c.EntityID]
	})

	require.Equal(t, 2, view.Containers)
	require.Len(t, view.Items, 2)

	iron := view.Items[0]
	require.Equal(t, "Iron Ingot", iron.Name)
	require.Equal(t, int64(7), iron.Quantity)

	plank := view.Items[1]
	require.Equal(t, "Rough Plank", plank.Name)
	require.Equal(t, int64(18), plank.Quantity)
	require.Len(t, plank.Locations, 2, "pockets in the same container merge into one location")
	require.Equal(t, int64(15), plank.Locations[0].Quantity)
	require.Equal(t, "Storehouse", plank.Locations[0].ContainerName)
}

func TestTaskEnrichmentUnknownTraveler(t *testing.T) {
	view := Task(testCatalog(), models.Task{EntityID: 9, TravelerID: 4, TaskID: 12, Completed: true})
	require.Equal(t, "Traveler 4", view.Traveler)
	require.Equal(t, "Unknown Task 12", view.Description)
	require.True(t, view.Completed)
}
