package janus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/roomcast/internal/adapters/rtc"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type peerFactory func(zerolog.Logger) (*rtc.WebRTCConnection, error)

// Session is one gateway session. Gateway events are delivered to the
// handles in arrival order from a single goroutine.
type Session struct {
	id      uint64
	cfg     Config
	conn    *wsConn
	cb      core.SessionCallbacks
	log     zerolog.Logger
	newPeer peerFactory

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]chan *envelope
	handles map[uint64]*Handle

	events    chan *envelope
	closeOnce sync.Once
	destroyed atomic.Bool
}

var _ core.RelaySession = (*Session)(nil)

func newSession(conn *wsConn, cfg Config, cb core.SessionCallbacks, logger zerolog.Logger, newPeer peerFactory) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:     cfg,
		conn:    conn,
		cb:      cb,
		log:     logger,
		newPeer: newPeer,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]chan *envelope),
		handles: make(map[uint64]*Handle),
		events:  make(chan *envelope, eventBuffer),
	}
}

func (s *Session) start() {
	go writePump(s.ctx, s.conn, s.log)
	go readPump(s.conn, s.log, s.onFrame, s.onReadExit)
	go s.dispatch()
}

func (s *Session) ID() uint64 { return s.id }

// Attach opens a plugin handle on this session.
func (s *Session) Attach(ctx context.Context, plugin, opaqueID string, cb core.HandleCallbacks) (core.PluginHandle, error) {
	env, err := s.request(ctx, &request{Janus: "attach", Plugin: plugin, OpaqueID: opaqueID})
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &Error{Reason: "attach: missing handle id"}
	}

	h := newHandle(s, env.Data.ID, cb)
	s.mu.Lock()
	s.handles[h.id] = h
	s.mu.Unlock()
	h.log.Info().Str("plugin", plugin).Msg("attached")
	return h, nil
}

// Destroy tears down every handle's media and destroys the session on
// the gateway. Later calls are no-ops.
func (s *Session) Destroy(ctx context.Context) error {
	if !s.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for id, h := range s.handles {
		handles = append(handles, h)
		delete(s.handles, id)
	}
	s.mu.Unlock()
	for _, h := range handles {
		h.closePeer()
	}

	_, err := s.request(ctx, &request{Janus: "destroy"})
	s.close()
	if err != nil {
		s.log.Warn().Err(err).Msg("destroy")
		return err
	}
	s.log.Info().Msg("session destroyed")
	if s.cb.OnDestroyed != nil {
		s.cb.OnDestroyed()
	}
	return nil
}

// request sends req and waits for its transaction reply. Requests without
// a deadline get the configured request timeout.
func (s *Session) request(ctx context.Context, req *request) (*envelope, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	req.Transaction = uuid.NewString()
	if req.SessionID == 0 {
		req.SessionID = s.id
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan *envelope, 1)
	s.mu.Lock()
	s.pending[req.Transaction] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, req.Transaction)
		s.mu.Unlock()
	}()

	if err := s.conn.TrySend(b); err != nil {
		return nil, err
	}

	select {
	case env := <-ch:
		if env.Janus == "error" {
			if env.Error != nil {
				return nil, env.Error
			}
			return nil, &Error{Reason: "unknown error"}
		}
		return env, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, req.Janus)
		}
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrSessionClosed
	}
}

func (s *Session) onFrame(data []byte) {
	env := &envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		s.log.Error().Err(err).Msg("bad json")
		return
	}
	if env.isReply() {
		s.mu.Lock()
		ch, ok := s.pending[env.Transaction]
		delete(s.pending, env.Transaction)
		s.mu.Unlock()
		if ok {
			ch <- env
			return
		}
	}
	select {
	case s.events <- env:
	case <-s.ctx.Done():
	}
}

func (s *Session) onReadExit(err error) {
	if s.ctx.Err() == nil {
		select {
		case s.events <- &envelope{Janus: "transport_error", err: err}:
		case <-s.ctx.Done():
		}
	}
	close(s.events)
}

func (s *Session) dispatch() {
	for env := range s.events {
		switch env.Janus {
		case "transport_error":
			s.fail(env.err)
		case "timeout":
			s.fail(ErrSessionTimeout)
		case "ack", "keepalive":
		default:
			h := s.handle(env.Sender)
			if h == nil {
				s.log.Debug().Str("janus", env.Janus).Uint64("sender", env.Sender).Msg("event for unknown handle")
				continue
			}
			h.onEvent(env)
		}
	}
}

func (s *Session) fail(err error) {
	if s.destroyed.Load() {
		return
	}
	s.log.Error().Err(err).Msg("session lost")
	s.close()
	if s.cb.OnError != nil {
		s.cb.OnError(err)
	}
}

func (s *Session) keepalive() {
	ticker := time.NewTicker(s.cfg.Keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.request(s.ctx, &request{Janus: "keepalive"}); err != nil {
				s.log.Warn().Err(err).Msg("keepalive")
			}
		}
	}
}

func (s *Session) handle(id uint64) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[id]
}

func (s *Session) forget(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, id)
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.conn.Close()
	})
}
