// Package call drives one presenter or viewer through a videoroom call:
// room join, offer/answer negotiation, publisher discovery and recovery.
//
// Every state mutation happens on the session's loop goroutine. Relay
// requests, media acquisition and playback run elsewhere and post their
// continuations back to the loop, so handlers never run concurrently.
package call

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPlugin         = "janus.plugin.videoroom"
	DefaultRequestTimeout = 15 * time.Second
)

var (
	ErrRoomAlreadySet  = errors.New("room already set")
	ErrRelayAlreadySet = errors.New("relay url already set")
	ErrNoRelayURL      = errors.New("relay url is empty")
	ErrNotViewer       = errors.New("reconnect is only available to viewers")
	ErrNotAttached     = errors.New("relay handle not attached")
	ErrNoLocalStream   = errors.New("no local stream")
	ErrSessionClosed   = errors.New("session closed")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRoomReady
	PhaseRelayAttached
	PhaseNegotiating
	PhaseActive
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRoomReady:
		return "room_ready"
	case PhaseRelayAttached:
		return "relay_attached"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseActive:
		return "active"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a session, safe to read from any goroutine.
type State struct {
	Role               domain.Role
	Room               domain.RoomID
	Phase              Phase
	Started            bool
	Subscribed         bool
	Feed               domain.FeedID
	RemoteStreamActive bool
	LastError          string
	AudioMuted         bool
	VideoOff           bool
}

type Options struct {
	Role     domain.Role
	View     string
	Relay    core.RelayClient
	Devices  core.MediaDevices
	Preview  core.LocalSurface
	Playback core.RemoteSurface
	// Policy decides what happens when remote playback is rejected.
	// Defaults to a single retry after DefaultRetryDelay.
	Policy         PlaybackPolicy
	Plugin         string
	RequestTimeout time.Duration
}

type Session struct {
	opts Options
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	postMu    sync.RWMutex
	stopped   bool
	tasks     chan func()
	outbound  chan func(context.Context)
	done      chan struct{}
	closeOnce sync.Once

	snap atomic.Pointer[State]

	// Everything below is owned by the loop goroutine.
	st         State
	dirty      bool
	listeners  []func(State)
	relayURL   string
	connecting bool
	closing    bool
	relay      core.RelaySession
	handle     core.PluginHandle
	local      core.LocalStream
	subGen     int
	playGen    int
	retry      *time.Timer
}

func New(opts Options) *Session {
	if opts.Policy == nil {
		opts.Policy = RetryOncePolicy{Delay: DefaultRetryDelay}
	}
	if opts.Plugin == "" {
		opts.Plugin = DefaultPlugin
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.View == "" {
		opts.View = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(chan func(), 128),
		outbound: make(chan func(context.Context), 128),
		done:     make(chan struct{}),
		st:       State{Role: opts.Role},
	}
	s.log = log.With().
		Str("module", "app.call").
		Str("role", opts.Role.String()).
		Str("view", opts.View).
		Logger()
	st := s.st
	s.snap.Store(&st)

	go s.run()
	go s.runOutbound()
	return s
}

func (s *Session) View() string { return s.opts.View }

func (s *Session) Role() domain.Role { return s.opts.Role }

// State returns the latest published snapshot.
func (s *Session) State() State { return *s.snap.Load() }

// OnChange registers fn to receive every new snapshot. fn runs on the
// session loop and must not call back into the session synchronously.
func (s *Session) OnChange(fn func(State)) error {
	return s.do(func() error {
		s.listeners = append(s.listeners, fn)
		return nil
	})
}

// SetRoom assigns the room. It can be done once per session.
func (s *Session) SetRoom(room domain.RoomID) error {
	if !room.Valid() {
		return domain.ErrInvalidRoom
	}
	return s.do(func() error {
		if s.st.Room != 0 {
			return ErrRoomAlreadySet
		}
		s.mutate(func(st *State) { st.Room = room })
		s.log = s.log.With().Stringer("room", room).Logger()
		s.setPhase(PhaseRoomReady)
		s.maybeConnect()
		return nil
	})
}

func (s *Session) SetRelayURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return ErrNoRelayURL
	}
	return s.do(func() error {
		if s.relayURL != "" {
			return ErrRelayAlreadySet
		}
		s.relayURL = url
		s.maybeConnect()
		return nil
	})
}

// Start marks the call as requested by the user. Calling it again is a no-op.
func (s *Session) Start() error {
	return s.do(func() error {
		if !s.st.Started {
			s.mutate(func(st *State) { st.Started = true })
		}
		s.maybeConnect()
		return nil
	})
}

// ReportError surfaces a message produced outside the session, such as a
// failed allocator lookup.
func (s *Session) ReportError(msg string) error {
	return s.do(func() error {
		s.setError(msg)
		return nil
	})
}

// Close tears the session down: local tracks are stopped and the relay
// session is destroyed before Close returns. Late continuations are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		var relay core.RelaySession
		_ = s.do(func() error {
			s.closing = true
			s.cancelRetry()
			s.playGen++
			if s.local != nil {
				s.local.Stop()
				s.local = nil
			}
			if cur := s.opts.Playback.Current(); cur != nil {
				cur.Stop()
			}
			relay = s.relay
			s.relay, s.handle = nil, nil
			s.mutate(func(st *State) { st.RemoteStreamActive = false })
			return nil
		})

		s.postMu.Lock()
		s.stopped = true
		close(s.tasks)
		s.postMu.Unlock()
		<-s.done
		s.cancel()

		if relay != nil {
			s.releaseRelay(relay)
		}
		s.log.Info().Msg("session closed")
	})
}

func (s *Session) releaseRelay(rs core.RelaySession) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
	defer cancel()
	if err := rs.Destroy(ctx); err != nil {
		s.log.Error().Err(err).Msg("relay session destroy")
	}
}

func (s *Session) mutate(fn func(*State)) {
	fn(&s.st)
	s.dirty = true
}

func (s *Session) setPhase(p Phase) {
	if s.st.Phase == PhaseFailed || s.st.Phase == p {
		return
	}
	s.log.Debug().Stringer("from", s.st.Phase).Stringer("to", p).Msg("phase")
	s.mutate(func(st *State) { st.Phase = p })
}

func (s *Session) setError(msg string) {
	s.mutate(func(st *State) { st.LastError = msg })
}

func (s *Session) clearError() {
	if s.st.LastError != "" {
		s.mutate(func(st *State) { st.LastError = "" })
	}
}

func (s *Session) fail(msg string) {
	s.setError(msg)
	s.setPhase(PhaseFailed)
}

// flush publishes the snapshot after a loop task changed it.
func (s *Session) flush() {
	if !s.dirty {
		return
	}
	s.dirty = false
	st := s.st
	s.snap.Store(&st)
	for _, fn := range s.listeners {
		fn(st)
	}
}
