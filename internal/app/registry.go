package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/roomcast/internal/app/call"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	msgSetupFailed = "Connection setup failed. Please try again."
	msgJoinFailed  = "Couldn't join the room. Try again."
)

var ErrUnknownView = errors.New("unknown view")

// Mount describes one call view. Room is the viewer's input and is
// ignored for presenters, who get a fresh room from the allocator.
type Mount struct {
	Role     domain.Role
	Room     domain.RoomID
	Devices  core.MediaDevices
	Preview  core.LocalSurface
	Playback core.RemoteSurface
}

type viewEntry struct {
	Session *call.Session
	Cancel  context.CancelFunc
}

// Registry owns the mounted call views, one session each.
type Registry struct {
	alloc core.RoomAllocator
	relay core.RelayClient
	base  call.Options

	mu    sync.RWMutex
	views map[string]*viewEntry
	wg    sync.WaitGroup
}

// NewRegistry builds a registry. base carries the session settings shared
// by every view (plugin, timeouts, playback policy).
func NewRegistry(alloc core.RoomAllocator, relay core.RelayClient, base call.Options) *Registry {
	return &Registry{
		alloc: alloc,
		relay: relay,
		base:  base,
		views: make(map[string]*viewEntry),
	}
}

// Mount creates the session for a view and starts its allocator bootstrap
// in the background. The returned session can be observed right away.
func (r *Registry) Mount(ctx context.Context, m Mount) (*call.Session, error) {
	if m.Role == domain.RoleViewer && !m.Room.Valid() {
		return nil, domain.ErrInvalidRoom
	}

	opts := r.base
	opts.Role = m.Role
	opts.View = uuid.NewString()
	opts.Relay = r.relay
	opts.Devices = m.Devices
	opts.Preview = m.Preview
	opts.Playback = m.Playback
	s := call.New(opts)

	bctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.views[opts.View] = &viewEntry{Session: s, Cancel: cancel}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("view", opts.View).Stringer("role", m.Role).Msg("mounted view")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.bootstrap(bctx, s, m)
	}()
	return s, nil
}

// bootstrap resolves the relay URL and the room, then starts the call.
// Failures are surfaced on the session.
func (r *Registry) bootstrap(ctx context.Context, s *call.Session, m Mount) {
	logger := log.With().Str("module", "app.registry").Str("view", s.View()).Logger()

	url, err := r.alloc.RelayURL(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("relay url lookup")
		_ = s.ReportError(msgSetupFailed)
		return
	}
	if err := s.SetRelayURL(url); err != nil {
		logger.Error().Err(err).Msg("set relay url")
		return
	}

	var room domain.RoomID
	switch m.Role {
	case domain.RolePresenter:
		room, err = r.alloc.CreateRoom(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("room creation")
			_ = s.ReportError(msgSetupFailed)
			return
		}
	default:
		echoed, err := r.alloc.JoinRoom(ctx, m.Room)
		if err != nil {
			logger.Error().Err(err).Msg("room join")
			_ = s.ReportError(msgJoinFailed)
			return
		}
		room = m.Room
		if echoed.Valid() {
			room = echoed
		}
	}

	if err := s.SetRoom(room); err != nil {
		logger.Error().Err(err).Msg("set room")
		return
	}
	if err := s.Start(); err != nil {
		logger.Error().Err(err).Msg("start")
	}
}

func (r *Registry) Get(view string) (*call.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.views[view]; ok {
		return e.Session, true
	}
	return nil, false
}

// Views lists mounted view ids in stable order.
func (r *Registry) Views() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.views))
	for v := range r.views {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Unmount stops the view's bootstrap and closes its session.
func (r *Registry) Unmount(view string) error {
	r.mu.Lock()
	e, ok := r.views[view]
	delete(r.views, view)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownView
	}
	e.Cancel()
	e.Session.Close()
	log.Info().Str("module", "app.registry").Str("view", view).Msg("unmounted view")
	return nil
}

// CloseAll unmounts every view and waits for pending bootstraps.
func (r *Registry) CloseAll() {
	for _, v := range r.Views() {
		_ = r.Unmount(v)
	}
	r.wg.Wait()
}
