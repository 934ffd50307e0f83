package room

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/janic0/LiveSelect/domain"
)

var ErrRoomNotFound = errors.New("room not found")

// Room is a copy-out view of one poll: a title and its options in
// insertion order.
type Room struct {
	ID      string
	Title   string
	Options []domain.Option
}

type record struct {
	id      string
	title   string
	options []domain.Option
}

// Registry owns all rooms and their options. Rooms are created, never
// deleted; options are append-only.
type Registry struct {
	rooms map[string]*record
	mu    sync.RWMutex
}

func New() *Registry {
	return &Registry{
		rooms: make(map[string]*record),
	}
}

// Create allocates a room with the given title and no options.
// Duplicate titles are permitted and produce distinct ids.
func (r *Registry) Create(title string) string {
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[id] = &record{id: id, title: title}
	return id
}

// AddOption appends an option with a fresh id to the room.
func (r *Registry) AddOption(roomID, text string) (domain.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return domain.Option{}, ErrRoomNotFound
	}
	opt := domain.Option{ID: uuid.New().String(), Text: text}
	rec.options = append(rec.options, opt)
	return opt, nil
}

func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

func (r *Registry) FindOption(roomID, optionID string) (domain.Option, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return domain.Option{}, false
	}
	for _, opt := range rec.options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return domain.Option{}, false
}

// Get returns a copy of the room; mutating the result does not affect
// the registry.
func (r *Registry) Get(roomID string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	options := make([]domain.Option, len(rec.options))
	copy(options, rec.options)
	return Room{ID: rec.id, Title: rec.title, Options: options}, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
