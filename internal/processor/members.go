package processor

import (
	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/enrich"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/router"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/state"
)

const (
	tableClaimMember = "claim_member_state"
	tableClaim       = "claim_state"
	tableClaimLocal  = "claim_local_state"
)

// Members owns the claim identity domain: the member roster plus the claim
// economy counters. It is also the writer of the shared Membership index.
type Members struct {
	log        zerolog.Logger
	members    *state.Table[models.Member]
	claims     *state.Table[models.Claim]
	locals     *state.Table[models.ClaimLocal]
	membership *Membership
	pub        Publisher
}

func NewMembers(log zerolog.Logger, membership *Membership, pub Publisher) *Members {
	return &Members{
		log:        log.With().Str("component", "members").Logger(),
		members:    state.NewTable[models.Member](),
		claims:     state.NewTable[models.Claim](),
		locals:     state.NewTable[models.ClaimLocal](),
		membership: membership,
		pub:        pub,
	}
}

func (p *Members) Tables() []string {
	return []string{tableClaimMember, tableClaim, tableClaimLocal}
}

func (p *Members) ReplaceAll(table string, rows []router.Row) {
	switch table {
	case tableClaimMember:
		replaceRows(p.members, rows, models.ParseMember, p.log, table)
	case tableClaim:
		replaceRows(p.claims, rows, models.ParseClaim, p.log, table)
	case tableClaimLocal:
		replaceRows(p.locals, rows, models.ParseClaimLocal, p.log, table)
	}
}

func (p *Members) ApplyInsert(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *Members) ApplyUpdate(table string, row router.Row) error {
	return p.upsert(table, row)
}

func (p *Members) upsert(table string, row router.Row) error {
	switch table {
	case tableClaimMember:
		return upsertRow(p.members, row, models.ParseMember)
	case tableClaim:
		return upsertRow(p.claims, row, models.ParseClaim)
	case tableClaimLocal:
		return upsertRow(p.locals, row, models.ParseClaimLocal)
	}
	return nil
}

func (p *Members) ApplyDelete(table string, row router.Row) error {
	switch table {
	case tableClaimMember:
		p.members.Delete(row.EntityID)
	case tableClaim:
		p.claims.Delete(row.EntityID)
	case tableClaimLocal:
		p.locals.Delete(row.EntityID)
	}
	return nil
}

func (p *Members) Commit(meta router.Meta) {
	p.membership.Replace(p.members.Snapshot())
	p.pub.Publish(outbox.DomainClaim, p.view())
}

func (p *Members) Reset() {
	p.members.Clear()
	p.claims.Clear()
	p.locals.Clear()
	p.membership.Replace(nil)
}

// Snapshot returns the raw member roster of the active claim, ordered by id.
func (p *Members) Snapshot() []models.Member {
	var kept []models.Member
	claimID := p.membership.ClaimID()
	for _, member := range p.members.Snapshot() {
		if claimID != 0 && member.ClaimID != claimID {
			continue
		}
		kept = append(kept, member)
	}
	return kept
}

func (p *Members) view() enrich.ClaimView {
	claimID := p.membership.ClaimID()
	view := enrich.ClaimView{ClaimID: claimID}
	if claim, ok := p.claims.Get(claimID); ok {
		view.Name = claim.Name
	}
	if local, ok := p.locals.Get(claimID); ok {
		view.Treasury = local.Treasury
		view.Supplies = local.Supplies
		view.Tiles = local.NumTiles
	}
	for _, member := range p.Snapshot() {
		view.Members = append(view.Members, enrich.Member(member))
	}
	return view
}

// replaceRows parses a snapshot's rows and swaps the table wholesale.
// Rows that fail to parse are logged and dropped.
func replaceRows[T state.Entity](table *state.Table[T], rows []router.Row, parse func([]byte) (T, error), log zerolog.Logger, name string) {
	parsed := make([]T, 0, len(rows))
	for _, row := range rows {
		entity, err := parse(row.Data)
		if err != nil {
			log.Warn().Err(err).Str("table", name).Msg("dropping snapshot row")
			continue
		}
		parsed = append(parsed, entity)
	}
	table.ReplaceAll(parsed)
}

func upsertRow[T state.Entity](table *state.Table[T], row router.Row, parse func([]byte) (T, error)) error {
	entity, err := parse(row.Data)
	if err != nil {
		return err
	}
	table.Upsert(entity)
	return nil
}
