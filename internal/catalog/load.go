package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Reference data ships as one JSON array per descriptor kind.
const (
	itemsFile     = "item_desc.json"
	recipesFile   = "crafting_recipe_desc.json"
	buildingsFile = "building_desc.json"
	travelersFile = "npc_desc.json"
	tasksFile     = "traveler_task_desc.json"
)

// Load reads the reference catalog from a directory of JSON files. Missing
// files are tolerated: lookups against an absent kind resolve to unknown
// descriptors, so partial reference data never blocks the pipeline.
func Load(dir string) (*Catalog, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("catalog dir: %w", err)
	}
	cat := &Catalog{
		items:     make(map[int64]ItemDesc),
		recipes:   make(map[int64]RecipeDesc),
		buildings: make(map[int64]BuildingDesc),
		travelers: make(map[int64]TravelerDesc),
		tasks:     make(map[int64]TaskDesc),
	}

	if err := loadInto(filepath.Join(dir, itemsFile), cat.items, func(d ItemDesc) int64 { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadInto(filepath.Join(dir, recipesFile), cat.recipes, func(d RecipeDesc) int64 { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadInto(filepath.Join(dir, buildingsFile), cat.buildings, func(d BuildingDesc) int64 { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadInto(filepath.Join(dir, travelersFile), cat.travelers, func(d TravelerDesc) int64 { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadInto(filepath.Join(dir, tasksFile), cat.tasks, func(d TaskDesc) int64 { return d.ID }); err != nil {
		return nil, err
	}
	return cat, nil
}

func loadInto[T any](path string, dst map[int64]T, key func(T) int64) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var descs []T
	if err := json.Unmarshal(b, &descs); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	for _, d := range descs {
		dst[key(d)] = d
	}
	return nil
}
