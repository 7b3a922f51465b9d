package media

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"
)

const (
	defaultFrameInterval = 33 * time.Millisecond
	oggPageInterval      = 20 * time.Millisecond
	opusSampleRate       = 48000
)

var errStopped = errors.New("track stopped")

// FileTrack replays a media file into a sample track until stopped.
// While disabled it keeps reading but writes nothing.
type FileTrack struct {
	id    string
	kind  domain.MediaKind
	path  string
	track *webrtc.TrackLocalStaticSample
	log   zerolog.Logger

	disabled atomic.Bool
	stopped  chan struct{}
	stopOnce sync.Once
}

var _ core.LocalTrack = (*FileTrack)(nil)

func newFileTrack(kind domain.MediaKind, path, streamID string, logger zerolog.Logger) (*FileTrack, error) {
	mime := webrtc.MimeTypeVP8
	if kind == domain.KindAudio {
		mime = webrtc.MimeTypeOpus
	}
	id := string(kind) + "-" + uuid.NewString()[:8]
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, id, streamID)
	if err != nil {
		return nil, err
	}
	return &FileTrack{
		id:      id,
		kind:    kind,
		path:    path,
		track:   track,
		log:     logger.With().Str("track", id).Logger(),
		stopped: make(chan struct{}),
	}, nil
}

func (t *FileTrack) ID() string                    { return t.id }
func (t *FileTrack) Kind() domain.MediaKind        { return t.kind }
func (t *FileTrack) Enabled() bool                 { return !t.disabled.Load() }
func (t *FileTrack) SetEnabled(v bool)             { t.disabled.Store(!v) }
func (t *FileTrack) TrackLocal() webrtc.TrackLocal { return t.track }

func (t *FileTrack) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func (t *FileTrack) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// run loops the source file until Stop or a read failure.
func (t *FileTrack) run() {
	pump := t.pumpIVF
	if t.kind == domain.KindAudio {
		pump = t.pumpOgg
	}
	for {
		err := pump()
		if t.isStopped() {
			t.log.Debug().Msg("source stopped")
			return
		}
		if err != nil {
			t.log.Error().Err(err).Str("path", t.path).Msg("source failed")
			return
		}
	}
}

func (t *FileTrack) pumpIVF() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, header, err := ivfreader.NewWith(f)
	if err != nil {
		return err
	}
	interval := defaultFrameInterval
	if header.TimebaseDenominator != 0 && header.TimebaseNumerator != 0 {
		interval = time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopped:
			return errStopped
		case <-ticker.C:
		}
		frame, _, err := r.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if t.disabled.Load() {
			continue
		}
		if err := t.track.WriteSample(media.Sample{Data: frame, Duration: interval}); err != nil {
			return err
		}
	}
}

func (t *FileTrack) pumpOgg() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, _, err := oggreader.NewWith(f)
	if err != nil {
		return err
	}

	var lastGranule uint64
	ticker := time.NewTicker(oggPageInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopped:
			return errStopped
		case <-ticker.C:
		}
		page, header, err := r.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		if t.disabled.Load() {
			continue
		}
		d := time.Duration(float64(samples) / opusSampleRate * float64(time.Second))
		if err := t.track.WriteSample(media.Sample{Data: page, Duration: d}); err != nil {
			return err
		}
	}
}
