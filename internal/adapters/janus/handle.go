package janus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dkeye/roomcast/internal/adapters/rtc"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Handle is a plugin handle. It owns at most one peer connection at a
// time; a new one is created on the next negotiation after a hangup.
type Handle struct {
	id  uint64
	s   *Session
	cb  core.HandleCallbacks
	log zerolog.Logger

	mu   sync.Mutex
	peer *rtc.WebRTCConnection
}

var _ core.PluginHandle = (*Handle)(nil)

func newHandle(s *Session, id uint64, cb core.HandleCallbacks) *Handle {
	return &Handle{
		id:  id,
		s:   s,
		cb:  cb,
		log: s.log.With().Uint64("handle_id", id).Logger(),
	}
}

// Send posts a plugin message. A synchronous plugin reply is returned as
// is; an acknowledged request returns nil and its result arrives later
// through OnMessage.
func (h *Handle) Send(ctx context.Context, body any, jsep *core.JSEP) (json.RawMessage, error) {
	env, err := h.s.request(ctx, &request{
		Janus:    "message",
		HandleID: h.id,
		Body:     body,
		JSEP:     jsep,
	})
	if err != nil {
		return nil, err
	}
	if env.Janus == "success" && env.PluginData != nil {
		return env.PluginData.Data, nil
	}
	return nil, nil
}

func (h *Handle) CreateOffer(ctx context.Context, media core.MediaConstraints, stream core.LocalStream) (*core.JSEP, error) {
	peer, err := h.ensurePeer()
	if err != nil {
		return nil, err
	}

	var tracks []webrtc.TrackLocal
	if stream != nil {
		for _, t := range stream.Tracks() {
			if (t.Kind() == domain.KindAudio && !media.AudioSend) ||
				(t.Kind() == domain.KindVideo && !media.VideoSend) {
				continue
			}
			lt, ok := t.(core.LocalTrack)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNoLocalTrack, t.ID())
			}
			tracks = append(tracks, lt.TrackLocal())
		}
		if h.cb.OnLocalStream != nil {
			h.cb.OnLocalStream(stream)
		}
	}

	desc, err := peer.CreateOffer(ctx, media, tracks)
	if err != nil {
		return nil, err
	}
	return toJSEP(desc), nil
}

func (h *Handle) CreateAnswer(ctx context.Context, remote *core.JSEP, media core.MediaConstraints) (*core.JSEP, error) {
	peer, err := h.ensurePeer()
	if err != nil {
		return nil, err
	}
	desc, err := peer.CreateAnswer(ctx, toDescription(remote), media)
	if err != nil {
		return nil, err
	}
	return toJSEP(desc), nil
}

func (h *Handle) HandleRemoteJSEP(_ context.Context, jsep *core.JSEP) error {
	peer, err := h.ensurePeer()
	if err != nil {
		return err
	}
	return peer.ApplyRemote(toDescription(jsep))
}

// Destroy detaches the handle and closes its media.
func (h *Handle) Destroy(ctx context.Context) error {
	h.s.forget(h.id)
	h.closePeer()
	_, err := h.s.request(ctx, &request{Janus: "detach", HandleID: h.id})
	return err
}

func (h *Handle) onEvent(env *envelope) {
	switch env.Janus {
	case "event":
		var data json.RawMessage
		if env.PluginData != nil {
			data = env.PluginData.Data
		}
		if h.cb.OnMessage != nil {
			h.cb.OnMessage(data, env.JSEP)
		}
	case "webrtcup":
		h.log.Info().Msg("peer connection up")
	case "media":
		ev := h.log.Info().Str("type", env.Type)
		if env.Receiving != nil {
			ev = ev.Bool("receiving", *env.Receiving)
		}
		ev.Msg("media")
	case "slowlink":
		ev := h.log.Warn()
		if env.Uplink != nil {
			ev = ev.Bool("uplink", *env.Uplink)
		}
		ev.Msg("slow link")
	case "trickle":
		h.addCandidate(env.Candidate)
	case "hangup":
		h.log.Info().Str("reason", env.Reason).Msg("hangup")
		h.hangup()
	case "detached":
		h.log.Info().Msg("detached")
		h.s.forget(h.id)
		h.hangup()
	default:
		h.log.Debug().Str("janus", env.Janus).Msg("unhandled event")
	}
}

func (h *Handle) addCandidate(c *candidate) {
	if c == nil || c.Completed {
		return
	}
	h.mu.Lock()
	peer := h.peer
	h.mu.Unlock()
	if peer == nil {
		return
	}
	err := peer.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("remote candidate")
	}
}

// hangup drops the media. Cleanup is reported even without a peer.
func (h *Handle) hangup() {
	if h.closePeer() {
		return
	}
	if h.cb.OnCleanup != nil {
		h.cb.OnCleanup()
	}
}

// closePeer closes the current peer, which reports cleanup. It returns
// false if there was none.
func (h *Handle) closePeer() bool {
	h.mu.Lock()
	peer := h.peer
	h.peer = nil
	h.mu.Unlock()
	if peer == nil {
		return false
	}
	peer.Close()
	return true
}

func (h *Handle) ensurePeer() (*rtc.WebRTCConnection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.peer != nil {
		return h.peer, nil
	}

	peer, err := h.s.newPeer(h.log)
	if err != nil {
		return nil, err
	}
	peer.OnRemoteStream(func(rs core.RemoteStream) {
		if h.cb.OnRemoteStream != nil {
			h.cb.OnRemoteStream(rs)
		}
	})
	peer.OnClosed(func() {
		h.mu.Lock()
		if h.peer == peer {
			h.peer = nil
		}
		h.mu.Unlock()
		go peer.Close()
		if h.cb.OnCleanup != nil {
			h.cb.OnCleanup()
		}
	})
	h.peer = peer
	return peer, nil
}

func toJSEP(desc *webrtc.SessionDescription) *core.JSEP {
	return &core.JSEP{Type: desc.Type.String(), SDP: desc.SDP}
}

func toDescription(j *core.JSEP) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(j.Type), SDP: j.SDP}
}
