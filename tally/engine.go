package tally

import (
	"github.com/janic0/LiveSelect/domain"
	"github.com/janic0/LiveSelect/room"
	"github.com/janic0/LiveSelect/session"
)

// Engine derives room snapshots on demand from the two registries. It
// holds no state of its own.
type Engine struct {
	sessions *session.Registry
	rooms    *room.Registry
}

func New(sessions *session.Registry, rooms *room.Registry) *Engine {
	return &Engine{sessions: sessions, rooms: rooms}
}

// Snapshot computes the shared portion of a room's tally: connected
// member count, per-option vote counts in insertion order, and the
// title. The recipient-specific selected_id is left null; callers
// overlay it per recipient with WithSelection. Returns false if the
// room does not exist.
func (e *Engine) Snapshot(roomID string) (domain.RoomSnapshot, bool) {
	rm, ok := e.rooms.Get(roomID)
	if !ok {
		return domain.RoomSnapshot{}, false
	}

	votes := make(map[string]int)
	memberCount := 0
	for _, m := range e.sessions.Members(roomID) {
		if m.Connected {
			memberCount++
		}
		if m.SelectedID != "" {
			votes[m.SelectedID]++
		}
	}

	options := make([]domain.OptionTally, len(rm.Options))
	for i, opt := range rm.Options {
		options[i] = domain.OptionTally{
			ID:    opt.ID,
			Text:  opt.Text,
			Votes: votes[opt.ID],
		}
	}

	return domain.RoomSnapshot{
		MemberCount: memberCount,
		SpaceTitle:  rm.Title,
		Options:     options,
	}, true
}
