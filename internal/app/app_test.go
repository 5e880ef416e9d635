package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/cliconfig"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/spacetime"
)

// gameServer fakes just enough of SpacetimeDB for the pipeline to start:
// it acks subscriptions with empty snapshots and answers the identity
// queries. In silent mode one-off queries are swallowed so startup timeouts
// can be exercised.
type gameServer struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	silent      bool
	conns       []*websocket.Conn
	subscribes  [][]string
	disconnects chan struct{}
}

func newGameServer() *gameServer {
	return &gameServer{disconnects: make(chan struct{}, 8)}
}

func (g *gameServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	g.mu.Lock()
	g.conns = append(g.conns, conn)
	g.mu.Unlock()
	defer func() {
		select {
		case g.disconnects <- struct{}{}:
		default:
		}
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg spacetime.ClientMessage
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		switch {
		case msg.Subscribe != nil:
			g.mu.Lock()
			g.subscribes = append(g.subscribes, msg.Subscribe.QueryStrings)
			g.mu.Unlock()
			conn.WriteJSON(map[string]any{"InitialSubscription": spacetime.SubscriptionData{
				RequestID: msg.Subscribe.RequestID,
			}})
		case msg.OneOffQuery != nil:
			g.mu.Lock()
			silent := g.silent
			g.mu.Unlock()
			if silent {
				continue
			}
			conn.WriteJSON(map[string]any{"OneOffQueryResponse": g.answer(msg.OneOffQuery)})
		}
	}
}

func (g *gameServer) setSilent(silent bool) {
	g.mu.Lock()
	g.silent = silent
	g.mu.Unlock()
}

func (g *gameServer) dropAll() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (g *gameServer) waitDisconnect(t *testing.T) {
	t.Helper()
	select {
	case <-g.disconnects:
	case <-time.After(2 * time.Second):
		t.Fatal("server-side connection never closed")
	}
}

func (g *gameServer) answer(q *spacetime.OneOffQuery) spacetime.OneOffQueryResponse {
	resp := spacetime.OneOffQueryResponse{MessageID: q.MessageID}
	switch {
	case strings.Contains(q.QueryString, "player_lowercase_username_state"):
		resp.Tables = []spacetime.OneOffTable{{
			TableName: "player_lowercase_username_state",
			Rows:      []string{`{"entity_id": 7, "username_lowercase": "jackk"}`},
		}}
	case strings.Contains(q.QueryString, "claim_member_state"):
		resp.Tables = []spacetime.OneOffTable{{
			TableName: "claim_member_state",
			Rows:      []string{`{"entity_id": 1, "claim_entity_id": 42, "player_entity_id": 7}`},
		}}
	case strings.Contains(q.QueryString, "claim_state"):
		resp.Tables = []spacetime.OneOffTable{{
			TableName: "claim_state",
			Rows:      []string{`{"entity_id": 42, "name": "Port Taverley"}`},
		}}
	}
	return resp
}

func (g *gameServer) subscribeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subscribes)
}

func startApp(t *testing.T) (*gameServer, *App) {
	t.Helper()
	srv := newGameServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	t.Cleanup(ts.Close)

	cfg := cliconfig.DefaultConfig()
	cfg.PlayerName = "Jackk"
	cfg.Host = strings.TrimPrefix(ts.URL, "http://")
	cfg.StateDir = t.TempDir()
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	a := New(cfg, zerolog.Nop())
	// Local test server speaks plain ws.
	a.client = spacetime.New(spacetime.Config{
		Host:             cfg.Host,
		Module:           cfg.Region,
		Insecure:         true,
		SubscribeTimeout: 2 * time.Second,
		QueryTimeout:     500 * time.Millisecond,
		ReconnectBase:    10 * time.Millisecond,
		ReconnectMax:     50 * time.Millisecond,
	}, zerolog.Nop())
	a.client.SetStatusFunc(a.publishStatus)
	t.Cleanup(func() { a.Stop() })
	return srv, a
}

func TestStartResolvesIdentityAndSubscribes(t *testing.T) {
	srv, a := startApp(t)

	require.NoError(t, a.Start(context.Background()))
	require.Equal(t, StateRunning, a.Status())
	require.Equal(t, uint64(7), a.PlayerID())
	require.Equal(t, uint64(42), a.ClaimID())
	require.Equal(t, 1, srv.subscribeCount())

	// Player data file is written on startup.
	pd, err := cliconfig.LoadPlayerData(a.cfg.StateDir)
	require.NoError(t, err)
	require.Equal(t, uint64(7), pd.PlayerID)
	require.Equal(t, uint64(42), pd.ClaimID)

	require.NoError(t, a.Stop())
	require.Equal(t, StateStopped, a.Status())
}

func TestSwitchClaimResubscribes(t *testing.T) {
	srv, a := startApp(t)
	require.NoError(t, a.Start(context.Background()))

	require.NoError(t, a.SwitchClaim(context.Background(), 99))
	require.Equal(t, uint64(99), a.ClaimID())
	require.Equal(t, 2, srv.subscribeCount())

	// Switching to the current claim is a no-op.
	require.NoError(t, a.SwitchClaim(context.Background(), 99))
	require.Equal(t, 2, srv.subscribeCount())
}

func TestClaimsDirectory(t *testing.T) {
	_, a := startApp(t)
	require.NoError(t, a.Start(context.Background()))

	claims, err := a.Claims(context.Background())
	require.NoError(t, err)
	require.Equal(t, []ClaimRef{{ClaimID: 42, Name: "Port Taverley"}}, claims)
}

func TestConnectionStatusPublished(t *testing.T) {
	_, a := startApp(t)
	require.NoError(t, a.Start(context.Background()))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if update, ok := a.Outbox().TryConsume(); ok && update.Domain == outbox.DomainConnection {
			require.Equal(t, "connected", update.Payload)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no connection status update observed")
}

func TestStartTwiceRejected(t *testing.T) {
	_, a := startApp(t)
	require.NoError(t, a.Start(context.Background()))
	require.ErrorIs(t, a.Start(context.Background()), ErrAlreadyRunning)
}

func TestCrashedStartClosesTransport(t *testing.T) {
	srv, a := startApp(t)
	srv.setSilent(true)

	// Player resolution times out; the failed Start must tear the transport
	// down so no read-loop worker is left blocked on the socket.
	err := a.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, StateCrashed, a.Status())
	srv.waitDisconnect(t)
}

func TestStartAfterCrashRecovers(t *testing.T) {
	srv, a := startApp(t)
	srv.setSilent(true)
	require.Error(t, a.Start(context.Background()))
	require.Equal(t, StateCrashed, a.Status())
	srv.waitDisconnect(t)

	srv.setSilent(false)
	require.NoError(t, a.Start(context.Background()))
	require.Equal(t, StateRunning, a.Status())
	require.Equal(t, uint64(7), a.PlayerID())
}

func TestRestartKeepsReconnectPolicy(t *testing.T) {
	srv, a := startApp(t)
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Stop())
	require.NoError(t, a.Start(context.Background()))
	require.Equal(t, StateRunning, a.Status())
	require.Equal(t, 2, srv.subscribeCount())

	// A dropped connection after the restart must still fail over into the
	// reconnect policy with a full re-subscribe.
	srv.dropAll()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.subscribeCount() >= 3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no re-subscribe after restart, count = %d", srv.subscribeCount())
}
