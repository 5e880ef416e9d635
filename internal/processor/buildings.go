package processor

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/router"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/state"
)

const (
	tableBuilding         = "building_state"
	tableBuildingNickname = "building_nickname_state"
)

// Buildings owns the claim's building roster and nicknames. It publishes no
// projection of its own; the crafting and inventory processors consult it
// for display names and re-project when it changes.
type Buildings struct {
	log       zerolog.Logger
	buildings *state.Table[models.Building]
	nicknames *state.Table[models.BuildingNickname]
	cat       *catalog.Catalog

	mu        sync.Mutex
	listeners []func()
}

func NewBuildings(log zerolog.Logger, cat *catalog.Catalog) *Buildings {
	return &Buildings{
		log:       log.With().Str("component", "buildings").Logger(),
		buildings: state.NewTable[models.Building](),
		nicknames: state.NewTable[models.BuildingNickname](),
		cat:       cat,
	}
}

func (p *Buildings) Tables() []string {
	return []string{tableBuilding, tableBuildingNickname}
}

func (p *Buildings) ReplaceAll(table string, rows []router.Row) {
	switch table {
	case tableBuilding:
		replaceRows(p.buildings, rows, models.ParseBuilding, p.log, table)
	case tableBuildingNickname:
		replaceRows(p.nicknames, rows, models.ParseBuildingNickname, p.log, table)
	}
}

func (p *Buildings) ApplyInsert(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *Buildings) ApplyUpdate(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *Buildings) upsert(table string, row router.Row) error {
	switch table {
	case tableBuilding:
		return upsertRow(p.buildings, row, models.ParseBuilding)
	case tableBuildingNickname:
		return upsertRow(p.nicknames, row, models.ParseBuildingNickname)
	}
	return nil
}

func (p *Buildings) ApplyDelete(table string, row router.Row) error {
	switch table {
	case tableBuilding:
		p.buildings.Delete(row.EntityID)
	case tableBuildingNickname:
		p.nicknames.Delete(row.EntityID)
	}
	return nil
}

func (p *Buildings) Commit(meta router.Meta) {
	p.mu.Lock()
	listeners := p.listeners
	p.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (p *Buildings) Reset() {
	p.buildings.Clear()
	p.nicknames.Clear()
}

// OnChange registers a listener fired after every committed building frame.
// Wire up before the pipeline starts.
func (p *Buildings) OnChange(fn func()) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Name resolves a building's display name: player nickname first, then the
// catalog descriptor, then a plain id fallback.
func (p *Buildings) Name(entityID uint64) string {
	if nick, ok := p.nicknames.Get(entityID); ok && nick.Nickname != "" {
		return nick.Nickname
	}
	if building, ok := p.buildings.Get(entityID); ok {
		return p.cat.Building(building.DescriptionID).Name
	}
	return fmt.Sprintf("Building %d", entityID)
}
