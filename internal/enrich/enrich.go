package enrich

import (
	"sort"
	"time"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
)

// PassiveCraft builds the display record for one passive craft. Crafter and
// building names are resolved by the caller from its claim state; empty
// strings fall back to neutral placeholders.
func PassiveCraft(cat *catalog.Catalog, craft models.PassiveCraft, crafter, building string) CraftView {
	recipe := cat.Recipe(craft.RecipeID)
	item, quantity := cat.ProducedItem(craft.RecipeID)
	if building == "" {
		building = cat.Building(craft.BuildingDescID).Name
	}
	if crafter == "" {
		crafter = "Unknown"
	}
	return CraftView{
		EntityID:        craft.EntityID,
		ItemID:          item.ID,
		ItemName:        item.Name,
		Tier:            item.Tier,
		Quantity:        quantity,
		RecipeName:      recipe.Name,
		Crafter:         crafter,
		Building:        building,
		Status:          craft.Status.String(),
		StartedAt:       craft.StartedAt,
		Duration:        time.Duration(recipe.DurationSeconds * float64(time.Second)),
		ServerCompleted: craft.Status == models.CraftCompleted,
	}
}

// ActiveCraft builds the display record for one progressive action.
// AcceptingHelp reflects whether the action also appears in the public table.
func ActiveCraft(cat *catalog.Catalog, craft models.ActiveCraft, crafter, building string, public bool) CraftView {
	recipe := cat.Recipe(craft.RecipeID)
	item, quantity := cat.ProducedItem(craft.RecipeID)
	if crafter == "" {
		crafter = "Unknown"
	}
	if building == "" {
		building = "Unknown Building"
	}
	required := recipe.ActionsRequired
	status := "in_progress"
	if required > 0 && craft.Progress >= required {
		status = "completed"
	}
	count := craft.CraftCount
	if count <= 0 {
		count = 1
	}
	return CraftView{
		EntityID:        craft.EntityID,
		ItemID:          item.ID,
		ItemName:        item.Name,
		Tier:            item.Tier,
		Quantity:        quantity * int64(count),
		RecipeName:      recipe.Name,
		Crafter:         crafter,
		Building:        building,
		Status:          status,
		Progress:        craft.Progress,
		EffortRequired:  required,
		EffortBased:     true,
		AcceptingHelp:   public,
		ServerCompleted: required > 0 && craft.Progress >= required,
	}
}

// Member builds the display record for one claim member.
func Member(m models.Member) MemberView {
	name := m.UserName
	if name == "" {
		name = "Unknown"
	}
	return MemberView{
		PlayerID:  m.PlayerID,
		Name:      name,
		Officer:   m.OfficerPermission,
		CoOwner:   m.CoOwnerPermission,
		CanBuild:  m.BuildPermission,
		CanAccess: m.InventoryPermission,
	}
}

// Task builds the display record for one traveler task.
func Task(cat *catalog.Catalog, task models.Task) TaskView {
	return TaskView{
		EntityID:    task.EntityID,
		Traveler:    cat.Traveler(task.TravelerID).Name,
		Description: cat.Task(task.TaskID).Description,
		Completed:   task.Completed,
	}
}

// craftGroupKey identifies one aggregate row.
type craftGroupKey struct {
	itemID int64
	tier   int
}

// GroupCrafts aggregates crafting views by produced item and tier. The
// aggregate is rebuilt from scratch on every call; it is never patched
// incrementally, so the parent can never drift from its children.
func GroupCrafts(views []CraftView) []CraftGroup {
	byKey := make(map[craftGroupKey]*CraftGroup)
	var order []craftGroupKey
	for _, view := range views {
		key := craftGroupKey{itemID: view.ItemID, tier: view.Tier}
		group, ok := byKey[key]
		if !ok {
			group = &CraftGroup{ItemID: view.ItemID, ItemName: view.ItemName, Tier: view.Tier}
			byKey[key] = group
			order = append(order, key)
		}
		group.TotalQuantity += view.Quantity
		group.Buildings = appendDistinct(group.Buildings, view.Building)
		group.Crafters = appendDistinct(group.Crafters, view.Crafter)
		group.Children = append(group.Children, view)
	}

	groups := make([]CraftGroup, 0, len(order))
	for _, key := range order {
		group := byKey[key]
		sort.Slice(group.Children, func(i, j int) bool {
			return group.Children[i].EntityID < group.Children[j].EntityID
		})
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].ItemName != groups[j].ItemName {
			return groups[i].ItemName < groups[j].ItemName
		}
		return groups[i].Tier < groups[j].Tier
	})
	return groups
}

// SumInventory totals item quantities across containers. Container names are
// resolved by the caller; per-item locations are sorted by container id.
func SumInventory(cat *catalog.Catalog, containers []models.Inventory, containerName func(models.Inventory) string) InventoryView {
	totals := make(map[int64]*ItemTotal)
	var order []int64
	for _, container := range containers {
		name := containerName(container)
		for _, pocket := range container.Pockets {
			if !pocket.Occupied || pocket.Quantity == 0 {
				continue
			}
			total, ok := totals[pocket.ItemID]
			if !ok {
				item := cat.Item(pocket.ItemID)
				total = &ItemTotal{
					ItemID: item.ID,
					Name:   item.Name,
					Tier:   item.Tier,
					Rarity: item.Rarity,
					Tag:    item.Tag,
				}
				totals[pocket.ItemID] = total
				order = append(order, pocket.ItemID)
			}
			total.Quantity += pocket.Quantity
			total.Locations = mergeLocation(total.Locations, ItemLocation{
				ContainerID:   container.EntityID,
				ContainerName: name,
				Quantity:      pocket.Quantity,
			})
		}
	}

	view := InventoryView{Containers: len(containers)}
	for _, id := range order {
		total := *totals[id]
		sort.Slice(total.Locations, func(i, j int) bool {
			return total.Locations[i].ContainerID < total.Locations[j].ContainerID
		})
		view.Items = append(view.Items, total)
	}
	sort.Slice(view.Items, func(i, j int) bool { return view.Items[i].Name < view.Items[j].Name })
	return view
}

func mergeLocation(locations []ItemLocation, loc ItemLocation) []ItemLocation {
	for i := range locations {
		if locations[i].ContainerID == loc.ContainerID {
			locations[i].Quantity += loc.Quantity
			return locations
		}
	}
	return append(locations, loc)
}

func appendDistinct(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
