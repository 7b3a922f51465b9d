package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("peer connection closed")

func DefaultWebRTCConfig(stunServers []string) webrtc.Configuration {
	if len(stunServers) == 0 {
		stunServers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: stunServers,
			},
		},
	}
}

// NewAPI builds a pion API with the default codecs and interceptors
// (NACK, RTCP reports, TWCC).
func NewAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}
	return webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i)), nil
}

// WebRTCConnection is the client side of one relay plugin handle.
type WebRTCConnection struct {
	pc  *webrtc.PeerConnection
	log zerolog.Logger

	mu             sync.Mutex
	remote         *RemoteStream
	onRemoteStream func(core.RemoteStream)
	onClosed       func()

	closeOnce  sync.Once
	closedOnce sync.Once
}

func NewWebRTCConnection(api *webrtc.API, cfg webrtc.Configuration, logger zerolog.Logger) (*WebRTCConnection, error) {
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &WebRTCConnection{pc: pc, log: logger.With().Str("module", "webrtc").Logger()}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.log.Info().Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.log.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			c.fireClosed()
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		c.log.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")

		c.mu.Lock()
		if c.remote == nil || c.remote.ID() != track.StreamID() {
			c.remote = newRemoteStream(track.StreamID())
		}
		c.remote.add(newRemoteTrack(track, receiver, pc))
		rs, cb := c.remote, c.onRemoteStream
		c.mu.Unlock()

		if cb != nil {
			cb(rs)
		}
	})

	return c, nil
}

// OnRemoteStream is called each time a remote track joins the stream, with
// the same stream value for tracks of the same stream.
func (c *WebRTCConnection) OnRemoteStream(fn func(core.RemoteStream)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemoteStream = fn
}

// OnClosed sets the callback run once when the connection fails or closes.
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = fn
}

// CreateOffer adds the local tracks as send-only, optional receive-only
// transceivers, and returns the offer once ICE gathering completed.
func (c *WebRTCConnection) CreateOffer(ctx context.Context, media core.MediaConstraints, tracks []webrtc.TrackLocal) (*webrtc.SessionDescription, error) {
	for _, t := range tracks {
		tr, err := c.pc.AddTransceiverFromTrack(t, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendonly,
		})
		if err != nil {
			return nil, err
		}
		go drainRTCP(tr.Sender())
	}
	recv := webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}
	if media.AudioRecv {
		if _, err := c.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, recv); err != nil {
			return nil, err
		}
	}
	if media.VideoRecv {
		if _, err := c.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, recv); err != nil {
			return nil, err
		}
	}

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	return c.setLocalAndGather(ctx, offer)
}

// ApplyRemote sets the remote description. Re-applying the current one is
// a no-op.
func (c *WebRTCConnection) ApplyRemote(desc webrtc.SessionDescription) error {
	if cur := c.pc.RemoteDescription(); cur != nil && cur.Type == desc.Type && cur.SDP == desc.SDP {
		return nil
	}
	return c.pc.SetRemoteDescription(desc)
}

// CreateAnswer answers offer. Kinds the constraints do not receive are stopped.
func (c *WebRTCConnection) CreateAnswer(ctx context.Context, offer webrtc.SessionDescription, media core.MediaConstraints) (*webrtc.SessionDescription, error) {
	if err := c.ApplyRemote(offer); err != nil {
		return nil, err
	}
	for _, tr := range c.pc.GetTransceivers() {
		if (tr.Kind() == webrtc.RTPCodecTypeAudio && !media.AudioRecv) ||
			(tr.Kind() == webrtc.RTPCodecTypeVideo && !media.VideoRecv) {
			if err := tr.Stop(); err != nil {
				return nil, err
			}
		}
	}

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	return c.setLocalAndGather(ctx, answer)
}

func (c *WebRTCConnection) setLocalAndGather(ctx context.Context, desc webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if c.pc.ConnectionState() == webrtc.PeerConnectionStateClosed {
		return nil, ErrClosed
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(desc); err != nil {
		return nil, err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		rs := c.remote
		c.mu.Unlock()
		if rs != nil {
			rs.Stop()
		}
		if err := c.pc.Close(); err != nil {
			c.log.Error().Err(err).Msg("close error")
		} else {
			c.log.Info().Msg("closed")
		}
		c.fireClosed()
	})
}

func (c *WebRTCConnection) fireClosed() {
	c.closedOnce.Do(func() {
		c.mu.Lock()
		fn := c.onClosed
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

// drainRTCP keeps the interceptors fed for a sender.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
