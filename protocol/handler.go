package protocol

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/janic0/LiveSelect/domain"
	"github.com/janic0/LiveSelect/room"
	"github.com/janic0/LiveSelect/session"
	"github.com/janic0/LiveSelect/tally"
)

// Handler is the dispatcher: it decodes each inbound envelope, resolves
// the session, validates the command against registry state, mutates,
// and replies to the sender or fans out to the room. A single mutex
// serializes full handling of each message, so per-room broadcasts are
// strictly ordered by command processing order.
type Handler struct {
	mu       sync.Mutex
	sessions *session.Registry
	rooms    *room.Registry
	tally    *tally.Engine
}

func NewHandler(sessions *session.Registry, rooms *room.Registry, engine *tally.Engine) *Handler {
	return &Handler{
		sessions: sessions,
		rooms:    rooms,
		tally:    engine,
	}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("invalid message", "error", err)
		return
	}

	client, created := h.sessions.Resolve(env.Token, conn.SessionID(), conn)
	conn.BindSession(client.ID)
	if created {
		h.reply(conn, "session", client.ID)
	}

	switch env.Type {
	case "create":
		h.handleCreate(conn, client, env.Data)
	case "join":
		h.handleJoin(conn, client, env.Data)
	case "add_option":
		h.handleAddOption(conn, client, env.Data)
	case "select":
		h.handleSelect(conn, client, env.Data)
	case "load":
		h.handleLoad(conn, client)
	case "ping":
		h.reply(conn, "pong", nil)
	default:
		slog.Debug("unrecognized command", "type", env.Type, "clientId", client.ID)
	}
}

// Disconnect is called by the transport when a socket closes.
func (h *Handler) Disconnect(conn domain.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions.Disconnect(conn.SessionID(), conn)
}

func (h *Handler) handleCreate(conn domain.Connection, client session.Member, payload json.RawMessage) {
	title, ok := decodeString(payload)
	if !ok {
		return
	}
	roomID := h.rooms.Create(title)
	h.sessions.SetRoom(client.ID, roomID)
	slog.Info("room created", "room", roomID, "clientId", client.ID)
	h.reply(conn, "join", roomID)
}

func (h *Handler) handleJoin(conn domain.Connection, client session.Member, payload json.RawMessage) {
	roomID, ok := decodeString(payload)
	if !ok {
		return
	}
	if !h.rooms.Exists(roomID) {
		h.reply(conn, "error", "space not found")
		return
	}
	h.sessions.SetRoom(client.ID, roomID)
	slog.Info("room joined", "room", roomID, "clientId", client.ID)
	h.broadcast(roomID)
	h.reply(conn, "join", roomID)
}

func (h *Handler) handleAddOption(conn domain.Connection, client session.Member, payload json.RawMessage) {
	text, ok := decodeString(payload)
	if !ok {
		return
	}
	if text == "" {
		h.reply(conn, "error", "no option value")
		return
	}
	if !client.InRoom() {
		h.reply(conn, "error", "no space selected")
		return
	}
	if _, err := h.rooms.AddOption(client.RoomID, text); err != nil {
		return
	}
	h.broadcast(client.RoomID)
}

func (h *Handler) handleSelect(conn domain.Connection, client session.Member, payload json.RawMessage) {
	optionID, ok := decodeString(payload)
	if !ok {
		return
	}
	if !client.InRoom() {
		h.reply(conn, "error", "no space selected")
		return
	}
	opt, found := h.rooms.FindOption(client.RoomID, optionID)
	if !found {
		return
	}
	h.sessions.SetSelected(client.ID, opt.ID)
	h.broadcast(client.RoomID)
}

func (h *Handler) handleLoad(conn domain.Connection, client session.Member) {
	if !client.InRoom() {
		return
	}
	snap, ok := h.tally.Snapshot(client.RoomID)
	if !ok {
		return
	}
	h.reply(conn, "data", snap.WithSelection(client.SelectedID))
}

// broadcast computes the shared snapshot once, then sends a copy with
// the recipient's own selected_id overlay to every connected member.
func (h *Handler) broadcast(roomID string) {
	snap, ok := h.tally.Snapshot(roomID)
	if !ok {
		return
	}
	for _, m := range h.sessions.Members(roomID) {
		if !m.Connected || m.Conn == nil {
			continue
		}
		h.send(m.Conn, "data", snap.WithSelection(m.SelectedID))
	}
}

// reply unicasts through the resolving connection, independent of the
// session's connected flag.
func (h *Handler) reply(conn domain.Connection, msgType string, data any) {
	h.send(conn, msgType, data)
}

func (h *Handler) send(conn domain.Connection, msgType string, data any) {
	frame, err := json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: msgType, Data: data})
	if err != nil {
		slog.Warn("marshal error", "type", msgType, "error", err)
		return
	}
	if err := conn.Send(frame); err != nil {
		slog.Warn("send failed", "type", msgType, "error", err)
	}
}

func decodeString(payload json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", false
	}
	return s, true
}
