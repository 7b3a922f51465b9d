package call

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/core/mock"
	"github.com/dkeye/roomcast/internal/domain"
	"go.uber.org/mock/gomock"
)

const (
	testRelayURL = "ws://relay.test:8188"
	testRoom     = domain.RoomID(4821)
)

var errRejected = errors.New("play() rejected")

// ─── media fakes ─────────────────────────────────────────────────────────────

type fakeTrack struct {
	id   string
	kind domain.MediaKind

	mu      sync.Mutex
	enabled bool
	stopped bool
}

func newFakeTrack(id string, kind domain.MediaKind) *fakeTrack {
	return &fakeTrack{id: id, kind: kind, enabled: true}
}

func (t *fakeTrack) ID() string             { return t.id }
func (t *fakeTrack) Kind() domain.MediaKind { return t.kind }

func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *fakeTrack) SetEnabled(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = v
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeStream struct {
	id     string
	tracks []*fakeTrack
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) Tracks() []core.Track {
	out := make([]core.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

func (s *fakeStream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}

func (s *fakeStream) allStopped() bool {
	for _, t := range s.tracks {
		if !t.Stopped() {
			return false
		}
	}
	return true
}

// fakeDevices grants or denies capture. When gate is set, GetUserMedia
// blocks until it is closed, which lets tests resolve a prompt late.
type fakeDevices struct {
	denyVideo bool
	denyAudio bool
	gate      chan struct{}

	mu      sync.Mutex
	streams []*fakeStream
}

func (d *fakeDevices) GetUserMedia(ctx context.Context, req core.MediaRequest) (core.LocalStream, error) {
	if d.gate != nil {
		<-d.gate
	}
	if req.Video && d.denyVideo {
		return nil, core.ErrPermissionDenied
	}
	if req.Audio && !req.Video && d.denyAudio {
		return nil, core.ErrPermissionDenied
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.streams)
	s := &fakeStream{id: fmt.Sprintf("local-%d", n)}
	if req.Audio {
		s.tracks = append(s.tracks, newFakeTrack(fmt.Sprintf("mic-%d", n), domain.KindAudio))
	}
	if req.Video {
		s.tracks = append(s.tracks, newFakeTrack(fmt.Sprintf("cam-%d", n), domain.KindVideo))
	}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevices) granted() []*fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeStream(nil), d.streams...)
}

type fakePreview struct {
	mu       sync.Mutex
	attached []string
}

func (p *fakePreview) Attach(ls core.LocalStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached = append(p.attached, ls.ID())
}

func (p *fakePreview) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attached)
}

type fakeRemote struct {
	id string

	mu      sync.Mutex
	stopped bool
}

func (r *fakeRemote) ID() string                 { return r.id }
func (r *fakeRemote) Tracks() []core.RemoteTrack { return nil }

func (r *fakeRemote) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *fakeRemote) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// fakePlayback answers Play with the scripted results, then with nil.
type fakePlayback struct {
	mu      sync.Mutex
	current core.RemoteStream
	results []error
	plays   int
}

func (p *fakePlayback) Attach(rs core.RemoteStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = rs
}

func (p *fakePlayback) Current() core.RemoteStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePlayback) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.plays
	p.plays++
	if i < len(p.results) {
		return p.results[i]
	}
	return nil
}

func (p *fakePlayback) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

// ─── relay fakes ─────────────────────────────────────────────────────────────

type sentRequest struct {
	Request string
	Body    map[string]any
	JSEP    *core.JSEP
}

// fakeHandle records every request and lets tests push plugin messages.
type fakeHandle struct {
	mu       sync.Mutex
	cb       core.HandleCallbacks
	attached chan struct{}
	sent     []sentRequest
	failOn   map[string]error
	remote   []*core.JSEP
	answered int
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{attached: make(chan struct{}), failOn: map[string]error{}}
}

func (h *fakeHandle) Send(_ context.Context, body any, jsep *core.JSEP) (json.RawMessage, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	req, _ := m["request"].(string)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentRequest{Request: req, Body: m, JSEP: jsep})
	if err := h.failOn[req]; err != nil {
		return nil, err
	}
	if req == "create" {
		return json.RawMessage(`{"videoroom":"created","room":4821,"permanent":false}`), nil
	}
	return nil, nil
}

func (h *fakeHandle) CreateOffer(context.Context, core.MediaConstraints, core.LocalStream) (*core.JSEP, error) {
	return &core.JSEP{Type: core.JSEPOffer, SDP: "v=0 publisher-offer"}, nil
}

func (h *fakeHandle) CreateAnswer(_ context.Context, _ *core.JSEP, media core.MediaConstraints) (*core.JSEP, error) {
	if media.AudioSend || media.VideoSend || !media.AudioRecv || !media.VideoRecv {
		return nil, errors.New("viewer answer must be receive-only")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.answered++
	return &core.JSEP{Type: core.JSEPAnswer, SDP: "v=0 viewer-answer"}, nil
}

func (h *fakeHandle) HandleRemoteJSEP(_ context.Context, jsep *core.JSEP) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remote = append(h.remote, jsep)
	return nil
}

func (h *fakeHandle) Destroy(context.Context) error { return nil }

func (h *fakeHandle) fail(request string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failOn[request] = err
}

func (h *fakeHandle) callbacks() core.HandleCallbacks {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cb
}

// emit delivers a plugin message the way the relay binding would.
func (h *fakeHandle) emit(msg string, jsep *core.JSEP) {
	h.callbacks().OnMessage(json.RawMessage(msg), jsep)
}

func (h *fakeHandle) requests(name string) []sentRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sentRequest
	for _, r := range h.sent {
		if r.Request == name {
			out = append(out, r)
		}
	}
	return out
}

func (h *fakeHandle) order() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.sent))
	for _, r := range h.sent {
		out = append(out, r.Request)
	}
	return out
}

// ─── harness ─────────────────────────────────────────────────────────────────

type harness struct {
	s        *Session
	h        *fakeHandle
	devices  *fakeDevices
	preview  *fakePreview
	playback *fakePlayback
}

// newHarness wires a session to a gomock relay whose Attach hands out a
// fakeHandle. The relay session must be destroyed exactly once on Close.
func newHarness(t *testing.T, role domain.Role, devices *fakeDevices, playback *fakePlayback) *harness {
	t.Helper()
	if devices == nil {
		devices = &fakeDevices{}
	}
	if playback == nil {
		playback = &fakePlayback{}
	}

	ctrl := gomock.NewController(t)
	client := mock.NewMockRelayClient(ctrl)
	rs := mock.NewMockRelaySession(ctrl)
	h := newFakeHandle()

	client.EXPECT().Connect(gomock.Any(), testRelayURL, gomock.Any()).Return(rs, nil)
	rs.EXPECT().Attach(gomock.Any(), DefaultPlugin, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, opaque string, cb core.HandleCallbacks) (core.PluginHandle, error) {
			if len(opaque) != len("videoroom-")+12 {
				t.Errorf("opaque id = %q", opaque)
			}
			h.mu.Lock()
			h.cb = cb
			h.mu.Unlock()
			close(h.attached)
			return h, nil
		})
	rs.EXPECT().Destroy(gomock.Any()).Return(nil)

	preview := &fakePreview{}
	s := New(Options{
		Role:     role,
		Relay:    client,
		Devices:  devices,
		Preview:  preview,
		Playback: playback,
		Policy:   RetryOncePolicy{Delay: 20 * time.Millisecond},
	})
	t.Cleanup(s.Close)

	mustOK(t, s.SetRelayURL(testRelayURL))
	mustOK(t, s.SetRoom(testRoom))
	mustOK(t, s.Start())

	select {
	case <-h.attached:
	case <-time.After(2 * time.Second):
		t.Fatal("plugin never attached")
	}
	return &harness{s: s, h: h, devices: devices, preview: preview, playback: playback}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// settle drains the loop and the outbound queue a few times so chained
// continuations have run.
func settle(t *testing.T, s *Session) {
	t.Helper()
	for range 3 {
		done := make(chan struct{})
		err := s.do(func() error {
			s.outbound <- func(context.Context) { close(done) }
			return nil
		})
		mustOK(t, err)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("outbound queue stuck")
		}
		mustOK(t, s.do(func() error { return nil }))
	}
}

// joinedViewer returns a viewer harness whose join request went out.
func joinedViewer(t *testing.T, playback *fakePlayback) *harness {
	t.Helper()
	hs := newHarness(t, domain.RoleViewer, nil, playback)
	waitFor(t, "viewer join", func() bool { return len(hs.h.requests("join")) == 1 })
	return hs
}
