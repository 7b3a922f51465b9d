package core

import (
	"context"
	"errors"

	"github.com/dkeye/roomcast/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// ErrPermissionDenied is returned by MediaDevices when capture is refused.
var ErrPermissionDenied = errors.New("media permission denied")

// Track is a single audio or video track. Enabled toggles delivery
// without releasing the underlying source; Stop releases it for good.
type Track interface {
	ID() string
	Kind() domain.MediaKind
	Enabled() bool
	SetEnabled(bool)
	Stop()
}

// LocalTrack is a captured track that can be handed to a peer connection.
type LocalTrack interface {
	Track
	TrackLocal() webrtc.TrackLocal
}

type LocalStream interface {
	ID() string
	Tracks() []Track
	// Stop releases every track of the stream.
	Stop()
}

// RemoteTrack is a track received from the relay.
type RemoteTrack interface {
	Track
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, error)
	// RequestKeyframe asks the sender for a fresh keyframe (video only).
	RequestKeyframe() error
}

type RemoteStream interface {
	ID() string
	Tracks() []RemoteTrack
	Stop()
}

type MediaRequest struct {
	Audio bool
	Video bool
}

// MediaDevices grants access to local capture devices.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, req MediaRequest) (LocalStream, error)
}

// LocalSurface displays the local preview.
type LocalSurface interface {
	Attach(LocalStream)
}

// RemoteSurface renders the remote stream. Play may be rejected; callers
// decide whether to retry.
type RemoteSurface interface {
	Attach(RemoteStream)
	Current() RemoteStream
	Play(ctx context.Context) error
}

// TracksOf filters tracks by kind.
func TracksOf(s LocalStream, kind domain.MediaKind) []Track {
	if s == nil {
		return nil
	}
	var out []Track
	for _, t := range s.Tracks() {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}
