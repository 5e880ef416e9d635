// Package app wires the sync pipeline together: connection, router,
// processors, timer engine, bundler, and outbox, governed by a lifecycle
// state machine.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/catalog"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/cliconfig"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/engine"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/processor"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/router"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/spacetime"
)

// ClaimRef is one entry of the player's claim directory.
type ClaimRef struct {
	ClaimID uint64
	Name    string
}

// App is the companion's sync core: one connection, one claim, one output
// channel.
type App struct {
	cfg cliconfig.Config
	log zerolog.Logger

	cat        *catalog.Catalog
	client     *spacetime.Client
	routes     *router.Router
	membership *processor.Membership
	passive    *processor.PassiveCrafting
	active     *processor.ActiveCrafting
	timer      *engine.Timer
	bundler    *engine.Bundler
	out        *outbox.Outbox

	life     *lifecycle
	playerID uint64
}

// New builds the full pipeline. The catalog is loaded from the data dir;
// missing reference data degrades lookups to unknown sentinels instead of
// failing startup.
func New(cfg cliconfig.Config, log zerolog.Logger) *App {
	cat, err := catalog.Load(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.DataDir).Msg("reference catalog unavailable, using empty catalog")
		cat = catalog.FromDescriptors(nil, nil, nil, nil, nil)
	} else {
		items, recipes, buildings, travelers, tasks := cat.Counts()
		log.Info().
			Int("items", items).Int("recipes", recipes).Int("buildings", buildings).
			Int("travelers", travelers).Int("tasks", tasks).
			Msg("reference catalog loaded")
	}

	out := outbox.New()
	membership := processor.NewMembership()
	members := processor.NewMembers(log, membership, out)
	buildings := processor.NewBuildings(log, cat)
	inventory := processor.NewInventory(log, cat, membership, buildings, out)
	passive := processor.NewPassiveCrafting(log, cat, membership, buildings, out)
	active := processor.NewActiveCrafting(log, cat, membership, buildings, out)
	tasks := processor.NewTasks(log, cat, out)

	routes := router.New(log, members, buildings, inventory, passive, active, tasks)

	bundler := engine.NewBundler(log, cfg.BundleWindow, alertSink{out: out})
	timer := engine.NewTimer(log, cfg.TickInterval, bundler, out, passive, active)

	client := spacetime.New(spacetime.Config{
		Host:             cfg.Host,
		Module:           cfg.Region,
		Token:            cfg.AuthToken,
		SubscribeTimeout: cfg.SubscribeTimeout,
		QueryTimeout:     cfg.QueryTimeout,
		ReconnectBase:    cfg.ReconnectBase,
		ReconnectMax:     cfg.ReconnectMax,
	}, log)

	app := &App{
		cfg:        cfg,
		log:        log.With().Str("component", "app").Logger(),
		cat:        cat,
		client:     client,
		routes:     routes,
		membership: membership,
		passive:    passive,
		active:     active,
		timer:      timer,
		bundler:    bundler,
		out:        out,
		life:       newLifecycle(log),
	}
	client.SetStatusFunc(app.publishStatus)
	return app
}

// alertSink forwards grouped alerts onto the output channel.
type alertSink struct {
	out *outbox.Outbox
}

func (s alertSink) Deliver(alert engine.Alert) {
	s.out.Publish(outbox.DomainAlerts, alert)
}

func (a *App) publishStatus(status spacetime.Status) {
	a.out.Publish(outbox.DomainConnection, status.String())
}

// Outbox is the output channel consumed by the presentation layer.
func (a *App) Outbox() *outbox.Outbox { return a.out }

// Status reports the lifecycle state.
func (a *App) Status() State { return a.life.State() }

// PlayerID is the resolved player entity id, zero before Start.
func (a *App) PlayerID() uint64 { return a.playerID }

// ClaimID is the claim currently subscribed to.
func (a *App) ClaimID() uint64 { return a.membership.ClaimID() }

// Start connects, resolves the player and claim, subscribes, and launches
// the background workers. A connect or resolve failure here is fatal;
// failures after Start are absorbed by the reconnect policy.
func (a *App) Start(ctx context.Context) error {
	if !a.life.canStart() {
		return ErrAlreadyRunning
	}
	if err := a.life.transitionTo(StateStarting, "start requested"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.life.setCancel(cancel)

	if err := a.startPipeline(ctx, runCtx); err != nil {
		cancel()
		// The read loop blocks on the socket, not the context; the transport
		// must close so the worker can exit.
		a.client.Close()
		a.life.waitWithTimeout(ShutdownTimeout)
		a.life.transitionTo(StateCrashed, err.Error())
		return err
	}
	return a.life.transitionTo(StateRunning, "pipeline started")
}

func (a *App) startPipeline(ctx, runCtx context.Context) error {
	if err := a.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// The read loop must be live before one-off queries can be answered.
	a.life.addWorker()
	go func() {
		defer a.life.workerDone()
		a.client.Run(runCtx, a.routes)
	}()

	playerID, err := a.resolvePlayerID(ctx)
	if err != nil {
		return err
	}
	a.playerID = playerID

	claimID, err := a.resolveClaim(ctx, playerID)
	if err != nil {
		return err
	}
	a.membership.SetClaim(claimID)
	a.log.Info().Uint64("player_id", playerID).Uint64("claim_id", claimID).Msg("identity resolved")

	set := spacetime.SubscriptionSet{PlayerID: playerID, ClaimID: claimID}
	if err := a.client.Subscribe(ctx, set.Queries()); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	a.life.addWorker()
	go func() {
		defer a.life.workerDone()
		a.timer.Run(runCtx)
	}()

	a.savePlayerData(claimID)
	return nil
}

// SwitchClaim atomically moves the subscription to another claim: the
// processors reset to empty, the server-side subscription set is replaced,
// and the new snapshot repopulates everything before any diff lands.
func (a *App) SwitchClaim(ctx context.Context, claimID uint64) error {
	if a.life.State() != StateRunning {
		return ErrNotRunning
	}
	if claimID == a.membership.ClaimID() {
		return nil
	}
	a.log.Info().Uint64("claim_id", claimID).Msg("switching claim")

	a.routes.Reset()
	a.membership.SetClaim(claimID)

	set := spacetime.SubscriptionSet{PlayerID: a.playerID, ClaimID: claimID}
	if err := a.client.Subscribe(ctx, set.Queries()); err != nil {
		return fmt.Errorf("subscribe claim %d: %w", claimID, err)
	}
	a.savePlayerData(claimID)
	return nil
}

// Claims fetches the directory of claims the player belongs to.
func (a *App) Claims(ctx context.Context) ([]ClaimRef, error) {
	rows, err := a.client.Query(ctx, spacetime.PlayerClaimsQuery(a.playerID))
	if err != nil {
		return nil, err
	}
	refs := make([]ClaimRef, 0, len(rows))
	for _, raw := range rows {
		var row struct {
			ClaimID uint64 `json:"claim_entity_id"`
		}
		if err := json.Unmarshal([]byte(raw), &row); err != nil || row.ClaimID == 0 {
			continue
		}
		ref := ClaimRef{ClaimID: row.ClaimID}
		ref.Name = a.claimName(ctx, row.ClaimID)
		refs = append(refs, ref)
	}
	return refs, nil
}

func (a *App) claimName(ctx context.Context, claimID uint64) string {
	rows, err := a.client.Query(ctx, spacetime.ClaimQuery(claimID))
	if err != nil || len(rows) == 0 {
		return ""
	}
	var row struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(rows[0]), &row); err != nil {
		return ""
	}
	return row.Name
}

func (a *App) resolvePlayerID(ctx context.Context) (uint64, error) {
	rows, err := a.client.Query(ctx, spacetime.PlayerIDQuery(a.cfg.PlayerName))
	if err != nil {
		return 0, fmt.Errorf("resolve player %q: %w", a.cfg.PlayerName, err)
	}
	for _, raw := range rows {
		var row struct {
			EntityID uint64 `json:"entity_id"`
		}
		if err := json.Unmarshal([]byte(raw), &row); err == nil && row.EntityID != 0 {
			return row.EntityID, nil
		}
	}
	return 0, fmt.Errorf("player %q not found in region %s", a.cfg.PlayerName, a.cfg.Region)
}

// resolveClaim picks the configured claim when set, otherwise the player's
// first claim.
func (a *App) resolveClaim(ctx context.Context, playerID uint64) (uint64, error) {
	if a.cfg.ClaimID != 0 {
		return a.cfg.ClaimID, nil
	}
	rows, err := a.client.Query(ctx, spacetime.PlayerClaimsQuery(playerID))
	if err != nil {
		return 0, fmt.Errorf("list claims: %w", err)
	}
	for _, raw := range rows {
		var row struct {
			ClaimID uint64 `json:"claim_entity_id"`
		}
		if err := json.Unmarshal([]byte(raw), &row); err == nil && row.ClaimID != 0 {
			return row.ClaimID, nil
		}
	}
	return 0, fmt.Errorf("player %d belongs to no claim", playerID)
}

func (a *App) savePlayerData(claimID uint64) {
	pd := cliconfig.PlayerData{
		PlayerName: a.cfg.PlayerName,
		PlayerID:   a.playerID,
		Region:     a.cfg.Region,
		Host:       a.cfg.Host,
		ClaimID:    claimID,
	}
	if err := cliconfig.SavePlayerData(a.cfg.StateDir, pd); err != nil {
		a.log.Warn().Err(err).Msg("player data not saved")
	}
}

// ApplyFileConfig reacts to a live config reload. Only the claim id is
// hot-swappable; everything else needs a restart.
func (a *App) ApplyFileConfig(ctx context.Context, fc cliconfig.FileConfig) {
	if fc.ClaimID == 0 || fc.ClaimID == a.membership.ClaimID() {
		return
	}
	if err := a.SwitchClaim(ctx, fc.ClaimID); err != nil {
		a.log.Error().Err(err).Uint64("claim_id", fc.ClaimID).Msg("claim switch from config reload failed")
	}
}

// Stop shuts the pipeline down gracefully, flushing the bundler and waking
// any blocked outbox consumer.
func (a *App) Stop() error {
	if !a.life.canStop() {
		return nil
	}
	if err := a.life.transitionTo(StateStopping, "stop requested"); err != nil {
		return err
	}

	a.life.doCancel()
	a.client.Close()
	a.bundler.Stop()

	err := a.life.waitWithTimeout(ShutdownTimeout)
	a.out.Close()
	if err != nil {
		a.life.transitionTo(StateCrashed, "workers did not stop in time")
		return err
	}
	return a.life.transitionTo(StateStopped, "shutdown complete")
}
