package app

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/roomcast/internal/domain"
)

func TestRoomManager_CreateInRange(t *testing.T) {
	t.Parallel()
	m := NewRoomManager()
	for i := 0; i < 200; i++ {
		if id := m.Create(); id < MinRoomID || id > MaxRoomID {
			t.Fatalf("room %d out of range", id)
		}
	}
}

func TestRoomManager_AvoidsRecentNumbers(t *testing.T) {
	t.Parallel()
	m := NewRoomManager()
	draws := []int{0, 0, 1}
	m.intN = func(int) int {
		n := draws[0]
		if len(draws) > 1 {
			draws = draws[1:]
		}
		return n
	}

	first, second := m.Create(), m.Create()
	if first != MinRoomID || second != MinRoomID+1 {
		t.Fatalf("got %d, %d", first, second)
	}
}

// Once every draw collides the number is issued anyway: there is no
// capacity to run out of.
func TestRoomManager_NeverRefuses(t *testing.T) {
	t.Parallel()
	m := NewRoomManager()
	m.intN = func(int) int { return 0 }
	for i := 0; i < 3; i++ {
		if id := m.Create(); id != MinRoomID {
			t.Fatalf("Create = %d, want %d", id, MinRoomID)
		}
	}
}

func TestRoomManager_RecentExpiresAndIsBounded(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	m := NewRoomManager()
	m.now = func() time.Time { return now }
	next := 0
	m.intN = func(int) int { next++; return next % 9000 }

	for i := 0; i < maxRecent+100; i++ {
		m.Create()
	}
	if got := m.Recent(); got != maxRecent {
		t.Fatalf("Recent = %d, want %d", got, maxRecent)
	}

	now = now.Add(recentTTL)
	if got := m.Recent(); got != 0 {
		t.Fatalf("Recent after ttl = %d, want 0", got)
	}
}

func TestRoomManager_JoinKeepsNoState(t *testing.T) {
	t.Parallel()
	m := NewRoomManager()

	for _, bad := range []domain.RoomID{0, -5} {
		if _, err := m.Join(bad); !errors.Is(err, domain.ErrInvalidRoom) {
			t.Errorf("Join(%d) err = %v", bad, err)
		}
	}

	for i := 0; i < 9000; i++ {
		room := domain.RoomID(100000 + i)
		if got, err := m.Join(room); err != nil || got != room {
			t.Fatalf("Join = %d, %v", got, err)
		}
	}
	if m.Recent() != 0 {
		t.Fatalf("joins were recorded: %d", m.Recent())
	}
	if id := m.Create(); id < MinRoomID || id > MaxRoomID {
		t.Fatalf("Create after joins = %d", id)
	}
}
