package domain

import "encoding/json"

// Envelope is the wire format for every message in both directions,
// one JSON object per websocket frame.
type Envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Token string          `json:"token,omitempty"`
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type OptionTally struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// RoomSnapshot is the aggregated view of a room's vote state sent to
// clients as the payload of "data" messages. SelectedID is recipient
// specific; the rest is shared across one broadcast round.
type RoomSnapshot struct {
	MemberCount int           `json:"member_count"`
	SpaceTitle  string        `json:"space_title"`
	Options     []OptionTally `json:"options"`
	SelectedID  *string       `json:"selected_id"`
}

// WithSelection returns a per-recipient copy of the snapshot with only
// selected_id substituted. An empty id marshals as null.
func (s RoomSnapshot) WithSelection(id string) RoomSnapshot {
	view := s
	if id == "" {
		view.SelectedID = nil
	} else {
		view.SelectedID = &id
	}
	return view
}

// Connection is the transport handle bound to one websocket. Send is
// best-effort and must not block message processing.
type Connection interface {
	Send(data []byte) error
	Close() error
	SessionID() string
	BindSession(id string)
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
	Disconnect(conn Connection)
}
