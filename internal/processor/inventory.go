package processor

import (
	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/enrich"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/router"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/state"
)

const tableInventory = "inventory_state"

// Inventory owns the claim's containers and projects the summed item view.
// Player-owned containers belonging to non-members are filtered out, and the
// filter re-runs eagerly whenever claim membership changes.
type Inventory struct {
	log        zerolog.Logger
	containers *state.Table[models.Inventory]
	cat        *catalog.Catalog
	membership *Membership
	buildings  *Buildings
	pub        Publisher
}

func NewInventory(log zerolog.Logger, cat *catalog.Catalog, membership *Membership, buildings *Buildings, pub Publisher) *Inventory {
	p := &Inventory{
		log:        log.With().Str("component", "inventory").Logger(),
		containers: state.NewTable[models.Inventory](),
		cat:        cat,
		membership: membership,
		buildings:  buildings,
		pub:        pub,
	}
	membership.OnChange(p.publish)
	buildings.OnChange(p.publish)
	return p
}

func (p *Inventory) Tables() []string { return []string{tableInventory} }

func (p *Inventory) ReplaceAll(table string, rows []router.Row) {
	replaceRows(p.containers, rows, models.ParseInventory, p.log, table)
}

func (p *Inventory) ApplyInsert(table string, row router.Row) error {
	return upsertRow(p.containers, row, models.ParseInventory)
}

func (p *Inventory) ApplyUpdate(table string, row router.Row) error {
	return upsertRow(p.containers, row, models.ParseInventory)
}

func (p *Inventory) ApplyDelete(table string, row router.Row) error {
	p.containers.Delete(row.EntityID)
	return nil
}

func (p *Inventory) Commit(meta router.Meta) { p.publish() }

func (p *Inventory) Reset() {
	p.containers.Clear()
	p.publish()
}

func (p *Inventory) publish() {
	var kept []models.Inventory
	for _, container := range p.containers.Snapshot() {
		// Building containers carry no player owner; they belong to the
		// claim by subscription filter.
		if container.PlayerOwnerID != 0 && !p.membership.Contains(container.PlayerOwnerID) {
			continue
		}
		kept = append(kept, container)
	}
	view := enrich.SumInventory(p.cat, kept, p.containerName)
	p.pub.Publish(outbox.DomainInventory, view)
}

func (p *Inventory) containerName(container models.Inventory) string {
	if container.PlayerOwnerID != 0 {
		if name := p.membership.Name(container.PlayerOwnerID); name != "" {
			return name
		}
	}
	return p.buildings.Name(container.OwnerID)
}
