// Package media provides file-backed capture devices and a recording
// playback surface for the headless client.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNothingRequested = errors.New("neither audio nor video requested")

type Config struct {
	CameraFile      string
	MicrophoneFile  string
	AllowCamera     bool
	AllowMicrophone bool
}

// Devices is a MediaDevices backed by an IVF (VP8) camera file and an Ogg
// (Opus) microphone file, both looped. A disallowed or missing source is
// reported as a denied permission.
type Devices struct {
	cfg Config
	log zerolog.Logger
}

var _ core.MediaDevices = (*Devices)(nil)

func NewDevices(cfg Config) *Devices {
	return &Devices{
		cfg: cfg,
		log: log.With().Str("module", "media.devices").Logger(),
	}
}

func (d *Devices) GetUserMedia(ctx context.Context, req core.MediaRequest) (core.LocalStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Audio && !req.Video {
		return nil, ErrNothingRequested
	}
	if req.Video {
		if err := d.check("camera", d.cfg.AllowCamera, d.cfg.CameraFile); err != nil {
			return nil, err
		}
	}
	if req.Audio {
		if err := d.check("microphone", d.cfg.AllowMicrophone, d.cfg.MicrophoneFile); err != nil {
			return nil, err
		}
	}

	ls := &LocalStream{id: "local-" + uuid.NewString()[:8]}
	if req.Audio {
		t, err := newFileTrack(domain.KindAudio, d.cfg.MicrophoneFile, ls.id, d.log)
		if err != nil {
			return nil, err
		}
		ls.tracks = append(ls.tracks, t)
	}
	if req.Video {
		t, err := newFileTrack(domain.KindVideo, d.cfg.CameraFile, ls.id, d.log)
		if err != nil {
			ls.Stop()
			return nil, err
		}
		ls.tracks = append(ls.tracks, t)
	}
	for _, t := range ls.tracks {
		go t.run()
	}

	d.log.Info().
		Str("stream", ls.id).
		Bool("audio", req.Audio).
		Bool("video", req.Video).
		Msg("capture granted")
	return ls, nil
}

func (d *Devices) check(device string, allowed bool, path string) error {
	if !allowed {
		d.log.Warn().Str("device", device).Msg("capture not allowed")
		return fmt.Errorf("%s: %w", device, core.ErrPermissionDenied)
	}
	if _, err := os.Stat(path); err != nil {
		d.log.Warn().Err(err).Str("device", device).Msg("capture source unavailable")
		return fmt.Errorf("%s: %w", device, core.ErrPermissionDenied)
	}
	return nil
}

// LocalStream is the set of tracks granted by one GetUserMedia call.
type LocalStream struct {
	id     string
	tracks []*FileTrack
}

var _ core.LocalStream = (*LocalStream)(nil)

func (s *LocalStream) ID() string { return s.id }

func (s *LocalStream) Tracks() []core.Track {
	out := make([]core.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

func (s *LocalStream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}
