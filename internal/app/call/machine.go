package call

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/google/uuid"
)

const (
	msgCameraDenied     = "Please allow camera access to continue"
	msgViewerJoinFailed = "Couldn't join as viewer"
	msgRelayUnreachable = "Couldn't connect to the media server"
	msgPresenterLeft    = "Presenter has left the room"
)

func waitingFor(room domain.RoomID) string {
	return fmt.Sprintf("Waiting for presenter to join room %d", room)
}

// maybeConnect opens the relay session once the call is started, the room
// is known and the relay endpoint has been discovered.
func (s *Session) maybeConnect() {
	if !s.st.Started || !s.st.Room.Valid() || s.relayURL == "" {
		return
	}
	if s.closing || s.connecting || s.relay != nil || s.st.Phase == PhaseFailed {
		return
	}
	s.connecting = true
	s.log.Info().Str("relay", s.relayURL).Msg("connecting to relay")
	go s.connect(s.relayURL)
}

func (s *Session) connect(url string) {
	rs, err := s.opts.Relay.Connect(s.ctx, url, core.SessionCallbacks{
		OnError: func(err error) {
			s.resume(func() { s.onRelayError(err) })
		},
		OnDestroyed: func() {
			s.resume(func() { s.log.Info().Msg("relay session destroyed") })
		},
	})
	if err != nil {
		s.resume(func() {
			s.connecting = false
			s.log.Error().Err(err).Msg("relay connect failed")
			s.fail(msgRelayUnreachable)
		})
		return
	}

	h, err := rs.Attach(s.ctx, s.opts.Plugin, opaqueID(), s.handleCallbacks())
	posted := s.post(func() {
		if s.closing {
			go s.releaseRelay(rs)
			return
		}
		s.onAttached(rs, h, err)
	})
	if !posted {
		s.releaseRelay(rs)
	}
}

func opaqueID() string {
	return "videoroom-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *Session) handleCallbacks() core.HandleCallbacks {
	return core.HandleCallbacks{
		OnMessage: func(msg json.RawMessage, jsep *core.JSEP) {
			s.resume(func() { s.onMessage(msg, jsep) })
		},
		OnLocalStream: func(ls core.LocalStream) {
			s.resume(func() { s.onLocalStream(ls) })
		},
		OnRemoteStream: func(rs core.RemoteStream) {
			posted := s.post(func() {
				if s.closing {
					rs.Stop()
					return
				}
				s.onRemoteStream(rs)
			})
			if !posted {
				rs.Stop()
			}
		},
		OnCleanup: func() {
			s.resume(s.onCleanup)
		},
	}
}

func (s *Session) onAttached(rs core.RelaySession, h core.PluginHandle, err error) {
	s.connecting = false
	s.relay = rs
	if err != nil {
		s.log.Error().Err(err).Str("plugin", s.opts.Plugin).Msg("plugin attach failed")
		s.fail(msgRelayUnreachable)
		return
	}
	s.handle = h
	s.log.Info().Str("plugin", s.opts.Plugin).Msg("plugin attached")
	s.setPhase(PhaseRelayAttached)

	switch s.st.Role {
	case domain.RolePresenter:
		s.startPresenter()
	case domain.RoleViewer:
		s.startViewer()
	}
}

func (s *Session) onRelayError(err error) {
	s.log.Error().Err(err).Msg("relay session error")
	s.handle = nil
	s.mutate(func(st *State) { st.RemoteStreamActive = false })
	s.fail(msgRelayUnreachable)
}

// startPresenter ensures the room exists, joins it as publisher and, in
// parallel, captures the camera and publishes an offer for it.
func (s *Session) startPresenter() {
	room := s.st.Room
	s.send(domain.NewCreateRoom(room), nil, func(reply json.RawMessage, err error) {
		if err != nil {
			s.log.Error().Err(err).Msg("room create failed")
			return
		}
		for _, ev := range Normalize(reply) {
			if f, ok := ev.(RelayFailure); ok {
				s.log.Info().Int("code", f.Code).Str("reason", f.Text).Msg("room create answered with error, joining anyway")
			}
		}
		s.send(domain.NewJoinPublisher(room), nil, func(_ json.RawMessage, err error) {
			if err != nil {
				s.log.Error().Err(err).Msg("publisher join failed")
			}
		})
	})

	s.acquire(core.MediaRequest{Audio: true, Video: true}, s.onCameraGranted, func(err error) {
		s.log.Warn().Err(err).Msg("camera access denied")
		s.fail(msgCameraDenied)
	})
}

func (s *Session) onCameraGranted(stream core.LocalStream) {
	s.local = stream
	s.opts.Preview.Attach(stream)

	s.relayDo(func(ctx context.Context, h core.PluginHandle) {
		offer, err := h.CreateOffer(ctx, core.MediaConstraints{AudioSend: true, VideoSend: true}, stream)
		s.resume(func() {
			if err != nil {
				s.log.Error().Err(err).Msg("offer creation failed")
				return
			}
			s.setPhase(PhaseNegotiating)
			s.send(domain.NewPublish(), offer, func(_ json.RawMessage, err error) {
				if err != nil {
					s.log.Error().Err(err).Msg("publish failed")
				}
			})
		})
	})
}

// startViewer declares a microphone capability, releases it straight
// away and joins as subscriber. A denied microphone does not block the join.
func (s *Session) startViewer() {
	s.resetSubscription()
	s.mutate(func(st *State) { st.RemoteStreamActive = false })

	s.acquire(core.MediaRequest{Audio: true}, func(stream core.LocalStream) {
		stream.Stop()
		s.joinAsViewer()
	}, func(err error) {
		s.log.Warn().Err(err).Msg("microphone unavailable, joining anyway")
		s.joinAsViewer()
	})
}

func (s *Session) joinAsViewer() {
	s.send(domain.NewJoinSubscriber(s.st.Room), nil, func(_ json.RawMessage, err error) {
		if err != nil {
			s.log.Error().Err(err).Msg("viewer join failed")
			s.setError(msgViewerJoinFailed)
		}
	})
}

func (s *Session) resetSubscription() {
	s.subGen++
	if s.st.Subscribed || s.st.Feed.Valid() {
		s.mutate(func(st *State) {
			st.Subscribed = false
			st.Feed = ""
		})
	}
}

// acquire asks for local media off the loop. A stream granted after the
// session started closing is released instead of delivered.
func (s *Session) acquire(req core.MediaRequest, granted func(core.LocalStream), denied func(error)) {
	go func() {
		stream, err := s.opts.Devices.GetUserMedia(s.ctx, req)
		if err != nil && stream != nil {
			stream.Stop()
			stream = nil
		}
		posted := s.post(func() {
			if s.closing {
				if stream != nil {
					stream.Stop()
				}
				return
			}
			if err != nil {
				denied(err)
				return
			}
			granted(stream)
		})
		if !posted && stream != nil {
			stream.Stop()
		}
	}()
}

// relayDo queues op on the outbound worker with the current handle.
func (s *Session) relayDo(op func(ctx context.Context, h core.PluginHandle)) {
	if s.closing {
		return
	}
	h := s.handle
	if h == nil {
		s.log.Warn().Msg("relay operation without an attached handle")
		return
	}
	s.outbound <- func(ctx context.Context) { op(ctx, h) }
}

// send issues a plugin request; then, when set, runs back on the loop.
func (s *Session) send(body any, jsep *core.JSEP, then func(json.RawMessage, error)) {
	s.relayDo(func(ctx context.Context, h core.PluginHandle) {
		reply, err := h.Send(ctx, body, jsep)
		if then != nil {
			s.resume(func() { then(reply, err) })
		}
	})
}
