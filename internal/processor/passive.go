package processor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/engine"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/enrich"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/router"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/state"
)

const tablePassiveCraft = "passive_craft_state"

// PassiveCrafting owns the wall-clock crafting operations. Its projection is
// the grouped aggregate view; it also feeds the timer engine as an
// operation source.
type PassiveCrafting struct {
	log        zerolog.Logger
	crafts     *state.Table[models.PassiveCraft]
	cat        *catalog.Catalog
	membership *Membership
	buildings  *Buildings
	pub        Publisher
}

func NewPassiveCrafting(log zerolog.Logger, cat *catalog.Catalog, membership *Membership, buildings *Buildings, pub Publisher) *PassiveCrafting {
	p := &PassiveCrafting{
		log:        log.With().Str("component", "passive_crafting").Logger(),
		crafts:     state.NewTable[models.PassiveCraft](),
		cat:        cat,
		membership: membership,
		buildings:  buildings,
		pub:        pub,
	}
	membership.OnChange(p.publish)
	buildings.OnChange(p.publish)
	return p
}

func (p *PassiveCrafting) Tables() []string { return []string{tablePassiveCraft} }

func (p *PassiveCrafting) ReplaceAll(table string, rows []router.Row) {
	replaceRows(p.crafts, rows, models.ParsePassiveCraft, p.log, table)
}

func (p *PassiveCrafting) ApplyInsert(table string, row router.Row) error {
	return upsertRow(p.crafts, row, models.ParsePassiveCraft)
}

func (p *PassiveCrafting) ApplyUpdate(table string, row router.Row) error {
	return upsertRow(p.crafts, row, models.ParsePassiveCraft)
}

func (p *PassiveCrafting) ApplyDelete(table string, row router.Row) error {
	p.crafts.Delete(row.EntityID)
	return nil
}

func (p *PassiveCrafting) Commit(meta router.Meta) { p.publish() }

func (p *PassiveCrafting) Reset() {
	p.crafts.Clear()
	p.publish()
}

// snapshot returns the member-owned crafts that are still interesting:
// failed and cancelled operations carry no timer and no display row.
func (p *PassiveCrafting) snapshot() []models.PassiveCraft {
	var kept []models.PassiveCraft
	for _, craft := range p.crafts.Snapshot() {
		if !p.membership.Contains(craft.OwnerID) {
			continue
		}
		if craft.Status == models.CraftFailed || craft.Status == models.CraftCancelled {
			continue
		}
		kept = append(kept, craft)
	}
	return kept
}

func (p *PassiveCrafting) publish() {
	crafts := p.snapshot()
	views := make([]enrich.CraftView, 0, len(crafts))
	for _, craft := range crafts {
		views = append(views, p.enrichCraft(craft))
	}
	p.pub.Publish(outbox.DomainPassive, enrich.GroupCrafts(views))
}

func (p *PassiveCrafting) enrichCraft(craft models.PassiveCraft) enrich.CraftView {
	building := ""
	if craft.BuildingID != 0 {
		building = p.buildings.Name(craft.BuildingID)
	}
	return enrich.PassiveCraft(p.cat, craft, p.membership.Name(craft.OwnerID), building)
}

// Operations implements engine.Source.
func (p *PassiveCrafting) Operations() []engine.Operation {
	crafts := p.snapshot()
	ops := make([]engine.Operation, 0, len(crafts))
	for _, craft := range crafts {
		recipe := p.cat.Recipe(craft.RecipeID)
		item, quantity := p.cat.ProducedItem(craft.RecipeID)
		// Unknown recipe: without a duration the craft can never be derived
		// ready locally, only by server status.
		var readyAt time.Time
		if !craft.StartedAt.IsZero() && !recipe.Unknown && recipe.DurationSeconds > 0 {
			readyAt = craft.StartedAt.Add(time.Duration(recipe.DurationSeconds * float64(time.Second)))
		}
		ops = append(ops, engine.Operation{
			EntityID:    craft.EntityID,
			Domain:      outbox.DomainPassive,
			Item:        item.Name,
			Quantity:    quantity,
			Crafter:     p.membership.Name(craft.OwnerID),
			Building:    p.buildings.Name(craft.BuildingID),
			Queued:      craft.Status == models.CraftQueued,
			StartedAt:   craft.StartedAt,
			ReadyAt:     readyAt,
			ServerReady: craft.Status == models.CraftCompleted,
		})
	}
	return ops
}
