package processor

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/enrich"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/router"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/state"
)

const (
	tableTravelerTask  = "traveler_task_state"
	tableTaskLoopTimer = "traveler_task_loop_timer"
)

// Tasks owns the player's traveler tasks plus the loop timer that resets
// them all at a fixed epoch.
type Tasks struct {
	log   zerolog.Logger
	tasks *state.Table[models.Task]
	loop  *state.Table[models.TaskLoopTimer]
	cat   *catalog.Catalog
	pub   Publisher
}

func NewTasks(log zerolog.Logger, cat *catalog.Catalog, pub Publisher) *Tasks {
	return &Tasks{
		log:   log.With().Str("component", "tasks").Logger(),
		tasks: state.NewTable[models.Task](),
		loop:  state.NewTable[models.TaskLoopTimer](),
		cat:   cat,
		pub:   pub,
	}
}

func (p *Tasks) Tables() []string {
	return []string{tableTravelerTask, tableTaskLoopTimer}
}

func (p *Tasks) ReplaceAll(table string, rows []router.Row) {
	switch table {
	case tableTravelerTask:
		replaceRows(p.tasks, rows, models.ParseTask, p.log, table)
	case tableTaskLoopTimer:
		replaceRows(p.loop, rows, models.ParseTaskLoopTimer, p.log, table)
	}
}

func (p *Tasks) ApplyInsert(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *Tasks) ApplyUpdate(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *Tasks) upsert(table string, row router.Row) error {
	switch table {
	case tableTravelerTask:
		return upsertRow(p.tasks, row, models.ParseTask)
	case tableTaskLoopTimer:
		return upsertRow(p.loop, row, models.ParseTaskLoopTimer)
	}
	return nil
}

func (p *Tasks) ApplyDelete(table string, row router.Row) error {
	switch table {
	case tableTravelerTask:
		p.tasks.Delete(row.EntityID)
	case tableTaskLoopTimer:
		p.loop.Delete(row.EntityID)
	}
	return nil
}

func (p *Tasks) Commit(meta router.Meta) {
	p.pub.Publish(outbox.DomainTasks, p.view())
}

func (p *Tasks) Reset() {
	p.tasks.Clear()
	p.loop.Clear()
}

func (p *Tasks) view() enrich.TasksView {
	var view enrich.TasksView
	for _, timer := range p.loop.Snapshot() {
		if timer.ResetAt.After(view.ResetAt) {
			view.ResetAt = timer.ResetAt
		}
	}
	for _, task := range p.tasks.Snapshot() {
		view.Tasks = append(view.Tasks, enrich.Task(p.cat, task))
	}
	sort.SliceStable(view.Tasks, func(i, j int) bool {
		return view.Tasks[i].Traveler < view.Tasks[j].Traveler
	})
	return view
}
