package call

import (
	"context"
	"encoding/json"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
)

// onMessage handles one plugin message. A session description is applied
// first, whatever the body says; the body is then handled event by event.
func (s *Session) onMessage(msg json.RawMessage, jsep *core.JSEP) {
	if jsep != nil {
		s.negotiate(jsep)
	}
	for _, ev := range Normalize(msg) {
		if halt := s.apply(ev); halt {
			return
		}
	}
}

func (s *Session) negotiate(jsep *core.JSEP) {
	role := s.st.Role
	room := s.st.Room
	answer := role == domain.RoleViewer && jsep.IsOffer()

	s.relayDo(func(ctx context.Context, h core.PluginHandle) {
		if err := h.HandleRemoteJSEP(ctx, jsep); err != nil {
			s.resume(func() {
				s.log.Error().Err(err).Str("type", jsep.Type).Msg("remote description rejected")
			})
			return
		}
		if !answer {
			if role == domain.RolePresenter && jsep.Type == core.JSEPAnswer {
				s.resume(func() {
					s.log.Info().Msg("publisher negotiated")
					s.setPhase(PhaseActive)
				})
			}
			return
		}

		local, err := h.CreateAnswer(ctx, jsep, core.MediaConstraints{AudioRecv: true, VideoRecv: true})
		if err != nil {
			s.resume(func() { s.log.Error().Err(err).Msg("answer creation failed") })
			return
		}
		_, err = h.Send(ctx, domain.NewStart(room), local)
		s.resume(func() {
			if err != nil {
				s.log.Error().Err(err).Msg("start request failed")
				s.setError(err.Error())
				return
			}
			s.log.Info().Msg("subscriber negotiated")
			s.setPhase(PhaseActive)
		})
	})
}

// apply handles one normalized event and reports whether the rest of the
// message must be skipped.
func (s *Session) apply(ev Event) bool {
	viewer := s.st.Role == domain.RoleViewer

	switch e := ev.(type) {
	case Joined:
		s.log.Info().Stringer("id", e.ID).Int("publishers", len(e.Publishers)).Msg("joined room")
		if viewer && len(e.Publishers) == 0 {
			s.setError(waitingFor(s.st.Room))
		}

	case RelayFailure:
		if e.MissingFeed {
			s.log.Info().Msg("no presenter in room yet")
			s.setError(waitingFor(s.st.Room))
			return true
		}
		s.log.Warn().Int("code", e.Code).Str("reason", e.Text).Msg("relay error")
		s.setError(e.Text)
		return true

	case PublisherAvailable:
		if viewer {
			s.subscribe(e.Feed)
		}

	case PublisherLeft:
		if viewer {
			s.onPresenterLeft(e.Feed)
		}

	case Configured:
		if viewer {
			s.log.Debug().Msg("subscription configured")
		}

	case Ignored:
		s.log.Debug().Str("videoroom", e.Tag).Msg("unhandled plugin event")
	}
	return false
}

// subscribe sends at most one subscribe request per subscription cycle.
func (s *Session) subscribe(feed domain.FeedID) {
	if s.st.Subscribed {
		s.log.Debug().Stringer("feed", feed).Msg("already subscribed, skipping")
		return
	}
	s.subGen++
	gen := s.subGen
	room := s.st.Room

	s.mutate(func(st *State) {
		st.Subscribed = true
		st.Feed = feed
	})
	s.clearError()
	s.setPhase(PhaseNegotiating)
	s.log.Info().Stringer("feed", feed).Msg("subscribing to presenter")

	s.send(domain.NewSubscribe(room, feed), nil, func(_ json.RawMessage, err error) {
		if err == nil || gen != s.subGen {
			return
		}
		s.log.Error().Err(err).Stringer("feed", feed).Msg("subscribe failed")
		s.resetSubscription()
		s.setError(err.Error())
	})
}

func (s *Session) onPresenterLeft(feed domain.FeedID) {
	s.log.Info().Stringer("feed", feed).Msg("presenter left")
	s.resetSubscription()
	s.stopPlayback()
	s.mutate(func(st *State) { st.RemoteStreamActive = false })
	s.setError(msgPresenterLeft)
	s.setPhase(PhaseRelayAttached)
}
