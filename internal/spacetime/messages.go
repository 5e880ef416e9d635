// Package spacetime implements the client side of the SpacetimeDB JSON
// subscription protocol: the websocket session, the subscribe/one-off query
// requests, and the reconnect policy.
package spacetime

import (
	"encoding/json"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/models"
)

// Subprotocol is the websocket subprotocol the server speaks.
const Subprotocol = "v1.json.spacetimedb"

// ServerMessage is the inbound envelope: a one-key object whose key names
// the message kind.
type ServerMessage struct {
	IdentityToken       *IdentityToken       `json:"IdentityToken,omitempty"`
	InitialSubscription *SubscriptionData    `json:"InitialSubscription,omitempty"`
	SubscriptionUpdate  *SubscriptionData    `json:"SubscriptionUpdate,omitempty"`
	TransactionUpdate   *TransactionUpdate   `json:"TransactionUpdate,omitempty"`
	OneOffQueryResponse *OneOffQueryResponse `json:"OneOffQueryResponse,omitempty"`
}

// IdentityToken is the handshake message sent once after connecting.
type IdentityToken struct {
	Identity json.RawMessage `json:"identity"`
	Token    string          `json:"token"`
}

// SubscriptionData carries a full-state snapshot for the subscribed tables.
// InitialSubscription and SubscriptionUpdate share this shape; both replace
// all prior knowledge of the tables they contain.
type SubscriptionData struct {
	DatabaseUpdate DatabaseUpdate `json:"database_update"`
	RequestID      uint32         `json:"request_id"`
}

// DatabaseUpdate groups per-table row sections.
type DatabaseUpdate struct {
	Tables []TableUpdate `json:"tables"`
}

// TableUpdate is one table section. Rows arrive as JSON-encoded strings.
type TableUpdate struct {
	TableName string      `json:"table_name"`
	Updates   []RowChange `json:"updates"`
}

// RowChange holds the inserted and deleted rows of one table section, in
// server order.
type RowChange struct {
	Inserts []string `json:"inserts"`
	Deletes []string `json:"deletes"`
}

// TransactionUpdate is an incremental diff produced by one server-side
// transaction. Only committed transactions carry table changes.
type TransactionUpdate struct {
	Status      TransactionStatus `json:"status"`
	Timestamp   models.Timestamp  `json:"timestamp"`
	ReducerCall ReducerCall       `json:"reducer_call"`
}

// TransactionStatus is a tagged union; Committed is nil for failed or
// out-of-energy transactions.
type TransactionStatus struct {
	Committed *DatabaseUpdate `json:"Committed,omitempty"`
}

// ReducerCall identifies the server reducer that produced a transaction.
type ReducerCall struct {
	ReducerName string `json:"reducer_name"`
}

// OneOffQueryResponse answers a OneOffQuery by message id.
type OneOffQueryResponse struct {
	MessageID string        `json:"message_id"`
	Error     string        `json:"error,omitempty"`
	Tables    []OneOffTable `json:"tables"`
}

// OneOffTable is one result table of a one-off query.
type OneOffTable struct {
	TableName string   `json:"table_name"`
	Rows      []string `json:"rows"`
}

// ClientMessage is the outbound envelope.
type ClientMessage struct {
	Subscribe   *Subscribe   `json:"Subscribe,omitempty"`
	OneOffQuery *OneOffQuery `json:"OneOffQuery,omitempty"`
}

// Subscribe replaces the server-side subscription set with the given
// queries.
type Subscribe struct {
	RequestID    uint32   `json:"request_id"`
	QueryStrings []string `json:"query_strings"`
}

// OneOffQuery runs a single ad-hoc query outside the subscription stream.
type OneOffQuery struct {
	MessageID   string `json:"message_id"`
	QueryString string `json:"query_string"`
}
