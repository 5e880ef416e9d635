package processor

import (
	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/engine"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/enrich"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/router"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/state"
)

const (
	tableProgressiveAction = "progressive_action_state"
	tablePublicAction      = "public_progressive_action_state"
)

// ActiveCrafting owns the effort-based crafting operations. The public
// action table marks which operations accept help from other members.
type ActiveCrafting struct {
	log        zerolog.Logger
	actions    *state.Table[models.ActiveCraft]
	public     *state.Table[models.PublicAction]
	cat        *catalog.Catalog
	membership *Membership
	buildings  *Buildings
	pub        Publisher
}

func NewActiveCrafting(log zerolog.Logger, cat *catalog.Catalog, membership *Membership, buildings *Buildings, pub Publisher) *ActiveCrafting {
	p := &ActiveCrafting{
		log:        log.With().Str("component", "active_crafting").Logger(),
		actions:    state.NewTable[models.ActiveCraft](),
		public:     state.NewTable[models.PublicAction](),
		cat:        cat,
		membership: membership,
		buildings:  buildings,
		pub:        pub,
	}
	membership.OnChange(p.publish)
	buildings.OnChange(p.publish)
	return p
}

func (p *ActiveCrafting) Tables() []string {
	return []string{tableProgressiveAction, tablePublicAction}
}

func (p *ActiveCrafting) ReplaceAll(table string, rows []router.Row) {
	switch table {
	case tableProgressiveAction:
		replaceRows(p.actions, rows, models.ParseActiveCraft, p.log, table)
	case tablePublicAction:
		replaceRows(p.public, rows, models.ParsePublicAction, p.log, table)
	}
}

func (p *ActiveCrafting) ApplyInsert(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *ActiveCrafting) ApplyUpdate(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *ActiveCrafting) upsert(table string, row router.Row) error {
	switch table {
	case tableProgressiveAction:
		return upsertRow(p.actions, row, models.ParseActiveCraft)
	case tablePublicAction:
		return upsertRow(p.public, row, models.ParsePublicAction)
	}
	return nil
}

func (p *ActiveCrafting) ApplyDelete(table string, row router.Row) error {
	switch table {
	case tableProgressiveAction:
		p.actions.Delete(row.EntityID)
	case tablePublicAction:
		p.public.Delete(row.EntityID)
	}
	return nil
}

func (p *ActiveCrafting) Commit(meta router.Meta) { p.publish() }

func (p *ActiveCrafting) Reset() {
	p.actions.Clear()
	p.public.Clear()
	p.publish()
}

func (p *ActiveCrafting) snapshot() []models.ActiveCraft {
	var kept []models.ActiveCraft
	for _, action := range p.actions.Snapshot() {
		if !p.membership.Contains(action.OwnerID) {
			continue
		}
		kept = append(kept, action)
	}
	return kept
}

func (p *ActiveCrafting) publish() {
	actions := p.snapshot()
	views := make([]enrich.CraftView, 0, len(actions))
	for _, action := range actions {
		_, isPublic := p.public.Get(action.EntityID)
		views = append(views, enrich.ActiveCraft(
			p.cat, action,
			p.membership.Name(action.OwnerID),
			p.buildings.Name(action.BuildingID),
			isPublic,
		))
	}
	p.pub.Publish(outbox.DomainActive, enrich.GroupCrafts(views))
}

// Operations implements engine.Source. Active crafts complete on effort, not
// wall clock; the remaining effort feeds the readiness check directly.
func (p *ActiveCrafting) Operations() []engine.Operation {
	actions := p.snapshot()
	ops := make([]engine.Operation, 0, len(actions))
	for _, action := range actions {
		recipe := p.cat.Recipe(action.RecipeID)
		item, quantity := p.cat.ProducedItem(action.RecipeID)
		count := action.CraftCount
		if count <= 0 {
			count = 1
		}
		remaining := 0
		if recipe.ActionsRequired > 0 {
			remaining = recipe.ActionsRequired - action.Progress
		} else {
			// Unknown recipe: without a target the craft can never be
			// derived ready locally, only by server status.
			remaining = 1
		}
		ops = append(ops, engine.Operation{
			EntityID:        action.EntityID,
			Domain:          outbox.DomainActive,
			Item:            item.Name,
			Quantity:        quantity * int64(count),
			Crafter:         p.membership.Name(action.OwnerID),
			Building:        p.buildings.Name(action.BuildingID),
			EffortBased:     true,
			RemainingEffort: remaining,
			ServerReady:     recipe.ActionsRequired > 0 && action.Progress >= recipe.ActionsRequired,
		})
	}
	return ops
}
