package app

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dkeye/roomcast/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	MinRoomID domain.RoomID = 1000
	MaxRoomID domain.RoomID = 9999

	// recently issued numbers are avoided for a while, best effort
	recentTTL      = 10 * time.Minute
	maxRecent      = 1024
	randomAttempts = 8
)

// RoomManager hands out videoroom numbers. Allocation is random and holds
// no room registry: a number is only steered away from the ones this
// process issued in the last recentTTL. Joining never touches that state.
type RoomManager struct {
	mu     sync.Mutex
	recent map[domain.RoomID]time.Time
	intN   func(n int) int
	now    func() time.Time
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		recent: make(map[domain.RoomID]time.Time),
		intN:   rand.IntN,
		now:    time.Now,
	}
}

// Create draws a room number in [MinRoomID, MaxRoomID]. It always succeeds.
func (m *RoomManager) Create() domain.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneLocked(now)

	pool := int(MaxRoomID - MinRoomID + 1)
	id := MinRoomID + domain.RoomID(m.intN(pool))
	for i := 1; i < randomAttempts; i++ {
		if _, taken := m.recent[id]; !taken {
			break
		}
		id = MinRoomID + domain.RoomID(m.intN(pool))
	}
	if len(m.recent) < maxRecent {
		m.recent[id] = now
	}

	log.Info().Str("module", "app.rooms").Stringer("room", id).Msg("room created")
	return id
}

// Join validates room and echoes it back.
func (m *RoomManager) Join(room domain.RoomID) (domain.RoomID, error) {
	if !room.Valid() {
		return 0, domain.ErrInvalidRoom
	}
	log.Info().Str("module", "app.rooms").Stringer("room", room).Msg("room joined")
	return room, nil
}

// Recent reports how many numbers are currently being steered away from.
func (m *RoomManager) Recent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	return len(m.recent)
}

func (m *RoomManager) pruneLocked(now time.Time) {
	for id, at := range m.recent {
		if now.Sub(at) >= recentTTL {
			delete(m.recent, id)
		}
	}
}
