package rtc

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RemoteStream groups the remote tracks that share a stream id.
type RemoteStream struct {
	id string

	mu     sync.RWMutex
	tracks []*RemoteTrack
}

func newRemoteStream(id string) *RemoteStream {
	return &RemoteStream{id: id}
}

func (s *RemoteStream) ID() string { return s.id }

func (s *RemoteStream) Tracks() []core.RemoteTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RemoteTrack, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

func (s *RemoteStream) Stop() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tracks {
		t.Stop()
	}
}

func (s *RemoteStream) add(t *RemoteTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
}

type RemoteTrack struct {
	track    *webrtc.TrackRemote
	receiver *webrtc.RTPReceiver
	pc       *webrtc.PeerConnection

	disabled atomic.Bool
	stopped  atomic.Bool
}

func newRemoteTrack(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver, pc *webrtc.PeerConnection) *RemoteTrack {
	return &RemoteTrack{track: track, receiver: receiver, pc: pc}
}

func (t *RemoteTrack) ID() string { return t.track.ID() }

func (t *RemoteTrack) Kind() domain.MediaKind {
	if t.track.Kind() == webrtc.RTPCodecTypeVideo {
		return domain.KindVideo
	}
	return domain.KindAudio
}

func (t *RemoteTrack) Enabled() bool { return !t.disabled.Load() }

func (t *RemoteTrack) SetEnabled(v bool) { t.disabled.Store(!v) }

// Stop makes further reads fail. The transport itself is released when
// the peer connection closes.
func (t *RemoteTrack) Stop() { t.stopped.Store(true) }

func (t *RemoteTrack) Codec() webrtc.RTPCodecParameters { return t.track.Codec() }

func (t *RemoteTrack) ReadRTP() (*rtp.Packet, error) {
	if t.stopped.Load() {
		return nil, io.EOF
	}
	pkt, _, err := t.track.ReadRTP()
	if err != nil {
		return nil, err
	}
	if t.stopped.Load() {
		return nil, io.EOF
	}
	return pkt, nil
}

func (t *RemoteTrack) RequestKeyframe() error {
	return t.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(t.track.SSRC())},
	})
}
