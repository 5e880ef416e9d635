// Package router fans decoded server frames out to the domain processors.
// It owns the classification of row changes: a delete and an insert for the
// same entity inside one frame is an update, not a removal.
package router

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/spacetime"
)

// Row is one raw table row plus the identity extracted from it. Data stays
// encoded; the processor owning the table decides how to decode it.
type Row struct {
	EntityID uint64
	Data     []byte
}

// Meta describes the frame a batch of changes arrived in.
type Meta struct {
	Snapshot  bool
	Timestamp time.Time
	Reducer   string
}

// Processor consumes changes for the tables it declares. Apply methods run
// on the router goroutine, one frame at a time; Commit marks the frame
// boundary so derived views are recomputed at most once per frame.
type Processor interface {
	Tables() []string
	ReplaceAll(table string, rows []Row)
	ApplyInsert(table string, row Row) error
	ApplyUpdate(table string, row Row) error
	ApplyDelete(table string, row Row) error
	Commit(meta Meta)
	Reset()
}

// Router dispatches frames by table name. Tables with no registered
// processor are logged and skipped, so server-side schema additions never
// break routing.
type Router struct {
	log    zerolog.Logger
	byName map[string]Processor
	procs  []Processor
}

func New(log zerolog.Logger, procs ...Processor) *Router {
	r := &Router{
		log:    log.With().Str("component", "router").Logger(),
		byName: make(map[string]Processor),
		procs:  procs,
	}
	for _, p := range procs {
		for _, table := range p.Tables() {
			r.byName[table] = p
		}
	}
	return r
}

// Route implements spacetime.FrameHandler.
func (r *Router) Route(msg *spacetime.ServerMessage) {
	switch {
	case msg.InitialSubscription != nil:
		r.routeSnapshot(&msg.InitialSubscription.DatabaseUpdate)
	case msg.SubscriptionUpdate != nil:
		r.routeSnapshot(&msg.SubscriptionUpdate.DatabaseUpdate)
	case msg.TransactionUpdate != nil:
		r.routeTransaction(msg.TransactionUpdate)
	}
}

// Reset clears every processor. Used when the active claim changes and the
// subscription is rebuilt from scratch.
func (r *Router) Reset() {
	for _, p := range r.procs {
		p.Reset()
	}
}

// routeSnapshot replaces processor state wholesale. After a snapshot there
// must be no trace of rows that existed only before it.
func (r *Router) routeSnapshot(update *spacetime.DatabaseUpdate) {
	touched := make(map[Processor]struct{})
	for _, table := range update.Tables {
		proc, ok := r.byName[table.TableName]
		if !ok {
			r.log.Debug().Str("table", table.TableName).Msg("no processor registered, table skipped")
			continue
		}
		rows := make([]Row, 0, len(table.Updates))
		for _, change := range table.Updates {
			for _, raw := range change.Inserts {
				row, err := decodeRow(raw)
				if err != nil {
					r.log.Warn().Err(err).Str("table", table.TableName).Msg("skipping malformed snapshot row")
					continue
				}
				rows = append(rows, row)
			}
		}
		proc.ReplaceAll(table.TableName, rows)
		touched[proc] = struct{}{}
	}
	meta := Meta{Snapshot: true, Timestamp: time.Now()}
	for proc := range touched {
		proc.Commit(meta)
	}
	r.log.Info().Int("tables", len(update.Tables)).Msg("snapshot applied")
}

func (r *Router) routeTransaction(tx *spacetime.TransactionUpdate) {
	if tx.Status.Committed == nil {
		return
	}
	meta := Meta{Timestamp: tx.Timestamp.Time(), Reducer: tx.ReducerCall.ReducerName}
	touched := make(map[Processor]struct{})
	for _, table := range tx.Status.Committed.Tables {
		proc, ok := r.byName[table.TableName]
		if !ok {
			r.log.Debug().Str("table", table.TableName).Msg("no processor registered, table skipped")
			continue
		}
		r.applyTable(proc, table)
		touched[proc] = struct{}{}
	}
	for proc := range touched {
		proc.Commit(meta)
	}
}

// applyTable pairs deletes against inserts by entity id. Pairs are updates,
// unpaired inserts are creations, unpaired deletes are removals. Updates and
// inserts land before deletes so a row moving between states never flickers
// out of existence.
func (r *Router) applyTable(proc Processor, table spacetime.TableUpdate) {
	inserts := make(map[uint64]Row)
	deletes := make(map[uint64]Row)
	for _, change := range table.Updates {
		for _, raw := range change.Inserts {
			row, err := decodeRow(raw)
			if err != nil {
				r.log.Warn().Err(err).Str("table", table.TableName).Msg("skipping malformed insert")
				continue
			}
			inserts[row.EntityID] = row
		}
		for _, raw := range change.Deletes {
			row, err := decodeRow(raw)
			if err != nil {
				r.log.Warn().Err(err).Str("table", table.TableName).Msg("skipping malformed delete")
				continue
			}
			deletes[row.EntityID] = row
		}
	}

	for id, row := range inserts {
		var err error
		if _, paired := deletes[id]; paired {
			err = proc.ApplyUpdate(table.TableName, row)
		} else {
			err = proc.ApplyInsert(table.TableName, row)
		}
		if err != nil {
			r.log.Warn().Err(err).Str("table", table.TableName).Uint64("entity_id", id).Msg("row change rejected")
		}
	}
	for id, row := range deletes {
		if _, paired := inserts[id]; paired {
			continue
		}
		if err := proc.ApplyDelete(table.TableName, row); err != nil {
			r.log.Warn().Err(err).Str("table", table.TableName).Uint64("entity_id", id).Msg("delete rejected")
		}
	}
}

// rowIdentity is the piece every subscribed table shares.
type rowIdentity struct {
	EntityID *uint64 `json:"entity_id"`
}

func decodeRow(raw string) (Row, error) {
	var ident rowIdentity
	if err := json.Unmarshal([]byte(raw), &ident); err != nil {
		return Row{}, err
	}
	if ident.EntityID == nil {
		return Row{}, errMissingEntityID
	}
	return Row{EntityID: *ident.EntityID, Data: []byte(raw)}, nil
}
