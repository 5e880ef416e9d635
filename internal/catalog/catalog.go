// Package catalog holds the static game reference data: item, recipe,
// building, traveler, and task descriptors. The catalog is loaded once at
// startup and read-only thereafter; lookups never fail, they resolve to an
// explicit unknown descriptor instead.
package catalog

import "fmt"

// ItemDesc describes a craftable or carryable item.
type ItemDesc struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Tier    int    `json:"tier"`
	Tag     string `json:"tag"`
	Rarity  string `json:"rarity"`
	Volume  int    `json:"volume"`
	Unknown bool   `json:"-"`
}

// ItemStack is a (item, quantity) pair inside a recipe definition.
type ItemStack struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

// RecipeDesc describes a crafting recipe. Passive recipes run on wall-clock
// duration; active recipes accumulate effort until ActionsRequired is met.
type RecipeDesc struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	DurationSeconds float64     `json:"duration_seconds"`
	ActionsRequired int         `json:"actions_required"`
	IsPassive       bool        `json:"is_passive"`
	BuildingTypeID  int64       `json:"building_type_id"`
	ConsumedItems   []ItemStack `json:"consumed_item_stacks"`
	CraftedItems    []ItemStack `json:"crafted_item_stacks"`
	Unknown         bool        `json:"-"`
}

// BuildingDesc describes a building type.
type BuildingDesc struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	BuildingTypeID int64  `json:"building_type_id"`
	Tier           int    `json:"tier"`
	Unknown        bool   `json:"-"`
}

// TravelerDesc describes a traveling NPC that offers tasks.
type TravelerDesc struct {
	ID      int64  `json:"npc_type"`
	Name    string `json:"name"`
	Unknown bool   `json:"-"`
}

// TaskDesc describes one traveler task.
type TaskDesc struct {
	ID            int64       `json:"id"`
	Description   string      `json:"description"`
	RequiredItems []ItemStack `json:"required_items"`
	RewardedItems []ItemStack `json:"rewarded_items"`
	Unknown       bool        `json:"-"`
}

// Catalog is the immutable descriptor store.
type Catalog struct {
	items     map[int64]ItemDesc
	recipes   map[int64]RecipeDesc
	buildings map[int64]BuildingDesc
	travelers map[int64]TravelerDesc
	tasks     map[int64]TaskDesc
}

// FromDescriptors builds a catalog from in-memory descriptor slices. Load is
// the production path; this is for callers that already hold the data.
func FromDescriptors(items []ItemDesc, recipes []RecipeDesc, buildings []BuildingDesc, travelers []TravelerDesc, tasks []TaskDesc) *Catalog {
	cat := &Catalog{
		items:     make(map[int64]ItemDesc, len(items)),
		recipes:   make(map[int64]RecipeDesc, len(recipes)),
		buildings: make(map[int64]BuildingDesc, len(buildings)),
		travelers: make(map[int64]TravelerDesc, len(travelers)),
		tasks:     make(map[int64]TaskDesc, len(tasks)),
	}
	for _, d := range items {
		cat.items[d.ID] = d
	}
	for _, d := range recipes {
		cat.recipes[d.ID] = d
	}
	for _, d := range buildings {
		cat.buildings[d.ID] = d
	}
	for _, d := range travelers {
		cat.travelers[d.ID] = d
	}
	for _, d := range tasks {
		cat.tasks[d.ID] = d
	}
	return cat
}

// Item looks up an item descriptor, returning an unknown sentinel on miss.
func (c *Catalog) Item(id int64) ItemDesc {
	if d, ok := c.items[id]; ok {
		return d
	}
	return ItemDesc{ID: id, Name: fmt.Sprintf("Unknown Item %d", id), Rarity: "Unknown", Unknown: true}
}

// Recipe looks up a recipe descriptor, returning an unknown sentinel on miss.
func (c *Catalog) Recipe(id int64) RecipeDesc {
	if d, ok := c.recipes[id]; ok {
		return d
	}
	return RecipeDesc{ID: id, Name: fmt.Sprintf("Unknown Recipe %d", id), Unknown: true}
}

// Building looks up a building descriptor, returning an unknown sentinel on
// miss.
func (c *Catalog) Building(id int64) BuildingDesc {
	if d, ok := c.buildings[id]; ok {
		return d
	}
	return BuildingDesc{ID: id, Name: fmt.Sprintf("Unknown Building %d", id), Unknown: true}
}

// Traveler looks up a traveler descriptor, returning an unknown sentinel on
// miss.
func (c *Catalog) Traveler(id int64) TravelerDesc {
	if d, ok := c.travelers[id]; ok {
		return d
	}
	return TravelerDesc{ID: id, Name: fmt.Sprintf("Traveler %d", id), Unknown: true}
}

// Task looks up a task descriptor, returning an unknown sentinel on miss.
func (c *Catalog) Task(id int64) TaskDesc {
	if d, ok := c.tasks[id]; ok {
		return d
	}
	return TaskDesc{ID: id, Description: fmt.Sprintf("Unknown Task %d", id), Unknown: true}
}

// ProducedItem resolves the first crafted item of a recipe, the descriptor
// used for grouping and notifications.
func (c *Catalog) ProducedItem(recipeID int64) (ItemDesc, int64) {
	recipe := c.Recipe(recipeID)
	if len(recipe.CraftedItems) == 0 {
		return ItemDesc{ID: 0, Name: recipe.Name, Rarity: "Unknown", Unknown: true}, 1
	}
	stack := recipe.CraftedItems[0]
	return c.Item(stack.ItemID), stack.Quantity
}

// Counts reports the number of descriptors per kind, for startup logging.
func (c *Catalog) Counts() (items, recipes, buildings, travelers, tasks int) {
	return len(c.items), len(c.recipes), len(c.buildings), len(c.travelers), len(c.tasks)
}
