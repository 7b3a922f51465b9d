package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultKeyframeInterval = 3 * time.Second

var (
	ErrNothingAttached   = errors.New("no remote stream attached")
	ErrNoTracks          = errors.New("remote stream has no tracks")
	ErrOutputUnavailable = errors.New("output directory not writable")
	ErrUnsupportedCodec  = errors.New("unsupported codec")
)

type rtpWriter interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// sink writes one remote track to a file. It is the track's only reader
// for as long as it runs.
type sink struct {
	track   core.RemoteTrack
	w       rtpWriter
	path    string
	deleted atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *sink) running() bool {
	select {
	case <-s.done:
		return false
	default:
		return !s.deleted.Load()
	}
}

func (s *sink) stop() {
	s.deleted.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
}

// loop reads RTP packets from the track and writes them while the track
// is enabled. The writer is closed on exit.
func (s *sink) loop(ctx context.Context, logger zerolog.Logger) {
	defer close(s.done)
	defer func() {
		if err := s.w.Close(); err != nil {
			logger.Warn().Err(err).Msg("close writer")
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkt, err := s.track.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("track ended")
			return
		}
		if s.deleted.Load() {
			return
		}
		if !s.track.Enabled() {
			continue
		}
		if err := s.w.WriteRTP(pkt); err != nil {
			logger.Error().Err(err).Msg("write RTP error, dropping sink")
			s.deleted.Store(true)
			return
		}
	}
}

// Recorder is a RemoteSurface that "plays" the remote stream by recording
// each track into OutputDir: VP8/VP9/AV1 to IVF, Opus to Ogg.
type Recorder struct {
	dir              string
	keyframeInterval time.Duration
	log              zerolog.Logger

	mu      sync.Mutex
	current core.RemoteStream
	sinks   map[string]*sink // by track id
	plays   int
}

var _ core.RemoteSurface = (*Recorder)(nil)

func NewRecorder(dir string) *Recorder {
	return &Recorder{
		dir:              dir,
		keyframeInterval: DefaultKeyframeInterval,
		log:              log.With().Str("module", "media.recorder").Logger(),
	}
}

// Attach swaps the stream. Recording of a different stream stops; it
// resumes on the next Play.
func (r *Recorder) Attach(rs core.RemoteStream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && rs != nil && r.current.ID() == rs.ID() {
		r.current = rs
		return
	}
	r.stopLocked()
	r.current = rs
}

func (r *Recorder) Current() core.RemoteStream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Play records every track of the attached stream. Tracks that are
// already being recorded keep their sink; new tracks get one.
func (r *Recorder) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return ErrNothingAttached
	}
	tracks := r.current.Tracks()
	if len(tracks) == 0 {
		return ErrNoTracks
	}
	if err := probeDir(r.dir); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputUnavailable, err)
	}

	r.plays++
	keep := make(map[string]*sink, len(tracks))
	var started []*sink
	for _, t := range tracks {
		if s, ok := r.sinks[t.ID()]; ok && s.running() {
			keep[t.ID()] = s
			continue
		}
		s, err := r.openSink(r.current.ID(), t)
		if errors.Is(err, ErrUnsupportedCodec) {
			r.log.Warn().Str("track", t.ID()).Str("codec", t.Codec().MimeType).Msg("skipping track")
			continue
		}
		if err != nil {
			for _, opened := range started {
				_ = opened.w.Close()
			}
			return err
		}
		keep[t.ID()] = s
		started = append(started, s)
	}
	if len(keep) == 0 {
		return ErrUnsupportedCodec
	}

	for id, s := range r.sinks {
		if keep[id] != s {
			s.stop()
		}
	}
	r.sinks = keep
	for _, s := range started {
		loopCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		logger := r.log.With().Str("track", s.track.ID()).Str("path", s.path).Logger()
		go s.loop(loopCtx, logger)
		if s.track.Kind() == domain.KindVideo {
			go requestKeyframes(loopCtx, s.track, r.keyframeInterval, logger)
		}
	}
	r.log.Info().Str("stream", r.current.ID()).Int("tracks", len(keep)).Int("started", len(started)).Msg("recording")
	return nil
}

// Close stops recording.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Recorder) stopLocked() {
	for _, s := range r.sinks {
		s.stop()
	}
	r.sinks = nil
}

func (r *Recorder) openSink(streamID string, t core.RemoteTrack) (*sink, error) {
	mime := t.Codec().MimeType
	base := filepath.Join(r.dir, fmt.Sprintf("%s-%s-%d", safeName(streamID), safeName(t.ID()), r.plays))

	var (
		w    rtpWriter
		path string
		err  error
	)
	switch {
	case strings.EqualFold(mime, webrtc.MimeTypeVP8),
		strings.EqualFold(mime, webrtc.MimeTypeVP9),
		strings.EqualFold(mime, webrtc.MimeTypeAV1):
		path = base + ".ivf"
		w, err = ivfwriter.New(path, ivfwriter.WithCodec(mime))
	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		path = base + ".ogg"
		w, err = oggwriter.New(path, opusSampleRate, 2)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, mime)
	}
	if err != nil {
		return nil, err
	}
	return &sink{track: t, w: w, path: path, done: make(chan struct{})}, nil
}

func requestKeyframes(ctx context.Context, t core.RemoteTrack, every time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := t.RequestKeyframe(); err != nil {
			logger.Debug().Err(err).Msg("keyframe request")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func probeDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
