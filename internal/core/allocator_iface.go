package core

import (
	"context"

	"github.com/dkeye/roomcast/internal/domain"
)

// RoomAllocator is the client-side view of the room allocation service.
type RoomAllocator interface {
	CreateRoom(ctx context.Context) (domain.RoomID, error)
	// JoinRoom returns the room echoed back by the service.
	JoinRoom(ctx context.Context, room domain.RoomID) (domain.RoomID, error)
	RelayURL(ctx context.Context) (string, error)
}
