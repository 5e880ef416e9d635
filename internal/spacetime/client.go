package spacetime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Status is the connectivity signal surfaced to the presentation layer.
// Transport failures never crash the pipeline; they only move this status.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusReconnecting
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// FrameHandler consumes decoded inbound frames. The message router
// implements this.
type FrameHandler interface {
	Route(msg *ServerMessage)
}

// Config holds the connection parameters for one SpacetimeDB session.
type Config struct {
	Host   string // host[:port] of the SpacetimeDB instance
	Module string // database module name (the game region)
	Token  string // bearer token, sent on the websocket handshake

	HandshakeTimeout time.Duration
	SubscribeTimeout time.Duration
	QueryTimeout     time.Duration
	WriteTimeout     time.Duration
	ReconnectBase    time.Duration
	ReconnectMax     time.Duration

	// Insecure switches to ws:// for local test servers.
	Insecure bool
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.SubscribeTimeout <= 0 {
		c.SubscribeTimeout = 30 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 30 * time.Second
	}
}

// Client owns exactly one transport session plus the current subscription
// set. It reconnects forever on unexpected disconnects and re-issues the
// subscription so the server answers with a fresh snapshot.
type Client struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex // guards conn, queries, pending, subAcks
	conn    *websocket.Conn
	writeMu sync.Mutex // gorilla allows one concurrent writer
	queries []string
	pending map[string]chan *OneOffQueryResponse
	subAcks map[uint32]chan struct{}

	reqID    atomic.Uint32
	closed   atomic.Bool
	onStatus atomic.Pointer[func(Status)]
}

// New creates a client. Connect must be called before Run.
func New(cfg Config, log zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:     cfg,
		log:     log.With().Str("component", "spacetime").Logger(),
		pending: make(map[string]chan *OneOffQueryResponse),
		subAcks: make(map[uint32]chan struct{}),
	}
}

// SetStatusFunc registers the connectivity-status callback. Must be set
// before Run.
func (c *Client) SetStatusFunc(fn func(Status)) {
	c.onStatus.Store(&fn)
}

func (c *Client) notifyStatus(s Status) {
	if fn := c.onStatus.Load(); fn != nil {
		(*fn)(s)
	}
}

func (c *Client) uri() string {
	scheme := "wss"
	if c.cfg.Insecure {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s/v1/database/%s/subscribe", scheme, c.cfg.Host, c.cfg.Module)
}

// Connect dials the server. A failure here is fatal to the caller; only
// failures after a successful first connect are retried. Connecting a closed
// client opens a fresh session, re-arming the reconnect policy.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.closed.Store(false)
	c.notifyStatus(StatusConnected)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		Subprotocols:     []string{Subprotocol},
	}
	header := http.Header{}
	if c.cfg.Token != "" {
		token := c.cfg.Token
		if !strings.HasPrefix(token, "Bearer ") {
			token = "Bearer " + token
		}
		header.Set("Authorization", token)
	}
	uri := c.uri()
	conn, _, err := dialer.DialContext(ctx, uri, header)
	if err != nil {
		return nil, &ConnectError{URI: uri, Err: err}
	}
	return conn, nil
}

// Subscribe replaces the server-side subscription set and blocks until the
// matching initial snapshot has been routed, or the subscribe timeout
// expires. The snapshot reaches the frame handler before Subscribe returns.
func (c *Client) Subscribe(ctx context.Context, queries []string) error {
	if c.closed.Load() {
		return &SubscribeError{Queries: len(queries), Err: ErrClosed}
	}
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return &SubscribeError{Queries: len(queries), Err: ErrNotConnected}
	}
	c.queries = append([]string(nil), queries...)
	c.mu.Unlock()

	if err := c.sendSubscribe(ctx, queries); err != nil {
		return err
	}
	return nil
}

// sendSubscribe writes the subscribe request and waits for its snapshot ack.
func (c *Client) sendSubscribe(ctx context.Context, queries []string) error {
	id := c.reqID.Add(1)
	ack := make(chan struct{})
	c.mu.Lock()
	c.subAcks[id] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.subAcks, id)
		c.mu.Unlock()
	}()

	msg := ClientMessage{Subscribe: &Subscribe{RequestID: id, QueryStrings: queries}}
	if err := c.writeJSON(msg); err != nil {
		return &SubscribeError{Queries: len(queries), Err: err}
	}
	c.log.Info().Int("queries", len(queries)).Uint32("request_id", id).Msg("subscription sent")

	timer := time.NewTimer(c.cfg.SubscribeTimeout)
	defer timer.Stop()
	select {
	case <-ack:
		return nil
	case <-timer.C:
		return &SubscribeError{Queries: len(queries), Err: fmt.Errorf("no snapshot within %s", c.cfg.SubscribeTimeout)}
	case <-ctx.Done():
		return &SubscribeError{Queries: len(queries), Err: ctx.Err()}
	}
}

// Query runs a one-off query and returns the raw result rows across all
// returned tables. Bounded by the query timeout.
func (c *Client) Query(ctx context.Context, query string) ([]string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	ch := make(chan *OneOffQueryResponse, 1)

	if c.closed.Load() {
		return nil, &QueryError{Query: query, Err: ErrClosed}
	}
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, &QueryError{Query: query, Err: ErrNotConnected}
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg := ClientMessage{OneOffQuery: &OneOffQuery{MessageID: id, QueryString: query}}
	if err := c.writeJSON(msg); err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}

	timer := time.NewTimer(c.cfg.QueryTimeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, &QueryError{Query: query, Err: fmt.Errorf("server: %s", resp.Error)}
		}
		var rows []string
		for _, table := range resp.Tables {
			rows = append(rows, table.Rows...)
		}
		return rows, nil
	case <-timer.C:
		return nil, &QueryError{Query: query, Err: fmt.Errorf("timeout after %s", c.cfg.QueryTimeout)}
	case <-ctx.Done():
		return nil, &QueryError{Query: query, Err: ctx.Err()}
	}
}

// Run reads frames and dispatches them to handler until the context ends or
// Close is called. Unexpected disconnects trigger the reconnect policy:
// exponential backoff, unbounded retries, and a full re-subscribe on
// success so the next inbound payload is a fresh snapshot.
func (c *Client) Run(ctx context.Context, handler FrameHandler) error {
	back := newBackoff(c.cfg.ReconnectBase, c.cfg.ReconnectMax)
	for {
		err := c.readLoop(ctx, handler)
		if ctx.Err() != nil || c.closed.Load() {
			return nil
		}
		c.log.Warn().Err(err).Msg("connection lost")
		c.notifyStatus(StatusReconnecting)

		for {
			if err := back.Wait(ctx); err != nil {
				return nil
			}
			conn, derr := c.dial(ctx)
			if derr != nil {
				if ctx.Err() != nil || c.closed.Load() {
					return nil
				}
				c.log.Warn().Err(derr).Msg("reconnect attempt failed")
				continue
			}
			c.mu.Lock()
			c.conn = conn
			queries := append([]string(nil), c.queries...)
			c.mu.Unlock()
			back.Reset()
			c.notifyStatus(StatusConnected)
			c.log.Info().Msg("reconnected")

			// The re-subscribe runs concurrently with the read loop so the
			// snapshot ack can be observed.
			if len(queries) > 0 {
				go func() {
					if serr := c.sendSubscribe(ctx, queries); serr != nil {
						c.log.Error().Err(serr).Msg("re-subscribe after reconnect failed")
						c.dropConn()
					}
				}()
			}
			break
		}
	}
}

func (c *Client) readLoop(ctx context.Context, handler FrameHandler) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Int("bytes", len(data)).Msg("undecodable frame skipped")
			continue
		}
		switch {
		case msg.IdentityToken != nil:
			c.log.Debug().Msg("identity token received")
		case msg.OneOffQueryResponse != nil:
			c.deliverQueryResponse(msg.OneOffQueryResponse)
		case msg.InitialSubscription != nil:
			handler.Route(&msg)
			c.ackSubscription(msg.InitialSubscription.RequestID)
		case msg.SubscriptionUpdate != nil, msg.TransactionUpdate != nil:
			handler.Route(&msg)
		default:
			c.log.Warn().Msg("unknown message kind skipped")
		}
	}
}

func (c *Client) deliverQueryResponse(resp *OneOffQueryResponse) {
	c.mu.Lock()
	ch, ok := c.pending[resp.MessageID]
	c.mu.Unlock()
	if !ok {
		c.log.Debug().Str("message_id", resp.MessageID).Msg("dropping unclaimed query response")
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

func (c *Client) ackSubscription(requestID uint32) {
	c.mu.Lock()
	ack, ok := c.subAcks[requestID]
	if ok {
		delete(c.subAcks, requestID)
	}
	c.mu.Unlock()
	if ok {
		close(ack)
	}
}

func (c *Client) writeJSON(msg ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// dropConn closes the live connection so the read loop fails over into the
// reconnect policy.
func (c *Client) dropConn() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Close shuts the session down. No reconnect is attempted afterwards.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	c.notifyStatus(StatusDisconnected)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
