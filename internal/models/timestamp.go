package models

import (
	"encoding/json"
	"time"
)

// Timestamp is the wire representation of a point in time: an object holding
// microseconds since the unix epoch.
type Timestamp struct {
	Micros int64 `json:"__timestamp_micros_since_unix_epoch__"`
}

// Time converts the timestamp to a time.Time. The zero timestamp converts to
// the zero time rather than the epoch.
func (t Timestamp) Time() time.Time {
	if t.Micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(t.Micros)
}

// IsZero reports whether the timestamp was absent from the payload.
func (t Timestamp) IsZero() bool { return t.Micros == 0 }

// MarshalJSON keeps the wire object shape on re-encode.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	type alias Timestamp
	return json.Marshal(alias(t))
}
