// Command callclient mounts presenter or viewer call views against a room
// allocator and a Janus relay. Camera and microphone are read from media
// files, received media is recorded to disk.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/roomcast/internal/adapters/allocclient"
	"github.com/dkeye/roomcast/internal/adapters/janus"
	"github.com/dkeye/roomcast/internal/adapters/media"
	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/app/call"
	"github.com/dkeye/roomcast/internal/config"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/dkeye/roomcast/internal/logging"
)

var errQuit = errors.New("quit")

func main() {
	fs := pflag.NewFlagSet("callclient", pflag.ExitOnError)
	fs.String("config-env", "", "config environment (config/config.<env>.yaml)")
	fs.String("role", "viewer", "presenter or viewer")
	fs.Int64("room", 0, "room to watch (viewer only)")
	fs.Int("views", 1, "number of call views to mount")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.Log)

	if err := run(cfg); err != nil && !errors.Is(err, errQuit) {
		log.Fatal().Err(err).Msg("callclient")
	}
}

func run(cfg *config.Config) error {
	role, err := domain.ParseRole(cfg.Role)
	if err != nil {
		return err
	}
	room := domain.RoomID(cfg.Room)
	if role == domain.RoleViewer && !room.Valid() {
		return fmt.Errorf("--room: %w", domain.ErrInvalidRoom)
	}

	relay, err := janus.NewClient(janus.Config{
		Keepalive:      cfg.Relay.Keepalive,
		RequestTimeout: cfg.Relay.RequestTimeout,
		STUNServers:    cfg.Relay.STUNServers,
	})
	if err != nil {
		return err
	}

	reg := app.NewRegistry(allocclient.New(cfg.AllocatorURL), relay, call.Options{
		Plugin:         cfg.Relay.Plugin,
		RequestTimeout: cfg.Relay.RequestTimeout,
		Policy:         call.RetryOncePolicy{Delay: cfg.Playback.RetryDelay},
	})
	var recorders []*media.Recorder
	defer func() {
		reg.CloseAll()
		for _, rec := range recorders {
			rec.Close()
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	devices := media.NewDevices(media.Config{
		CameraFile:      cfg.Media.CameraFile,
		MicrophoneFile:  cfg.Media.MicrophoneFile,
		AllowCamera:     cfg.Media.AllowCamera,
		AllowMicrophone: cfg.Media.AllowMicrophone,
	})

	views := max(cfg.Views, 1)
	for i := range views {
		rec := media.NewRecorder(filepath.Join(cfg.Media.OutputDir, strconv.Itoa(i)))
		recorders = append(recorders, rec)

		s, err := reg.Mount(ctx, app.Mount{
			Role:     role,
			Room:     room,
			Devices:  devices,
			Preview:  &media.LogPreview{},
			Playback: rec,
		})
		if err != nil {
			return err
		}
		view := s.View()
		if err := s.OnChange(func(st call.State) { logState(view, st) }); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return commands(gctx, reg, readLines(os.Stdin))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		return nil
	})
	return g.Wait()
}

func logState(view string, st call.State) {
	ev := log.Info().
		Str("view", view).
		Stringer("role", st.Role).
		Stringer("room", st.Room).
		Stringer("phase", st.Phase).
		Bool("subscribed", st.Subscribed).
		Bool("remote", st.RemoteStreamActive).
		Bool("audio_muted", st.AudioMuted).
		Bool("video_off", st.VideoOff)
	if st.LastError != "" {
		ev = ev.Str("status", st.LastError)
	}
	ev.Msg("call state")
}

// readLines feeds stdin lines until EOF.
func readLines(f *os.File) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			out <- strings.TrimSpace(sc.Text())
		}
	}()
	return out
}

// commands applies operator input to every mounted view. A closed input
// keeps the views running until ctx ends.
func commands(ctx context.Context, reg *app.Registry, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if line == "quit" || line == "exit" {
				return errQuit
			}
			for _, view := range reg.Views() {
				s, ok := reg.Get(view)
				if !ok {
					continue
				}
				apply(s, line)
			}
		}
	}
}

func apply(s *call.Session, cmd string) {
	logger := log.With().Str("view", s.View()).Str("cmd", cmd).Logger()
	var (
		off bool
		err error
	)
	switch cmd {
	case "":
		return
	case "mute":
		off, err = s.ToggleAudio()
	case "camera":
		off, err = s.ToggleVideo()
	case "reconnect":
		err = s.Reconnect()
	case "state":
		logState(s.View(), s.State())
		return
	default:
		logger.Warn().Msg("unknown command, try mute, camera, reconnect, state or quit")
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
		return
	}
	logger.Info().Bool("off", off).Msg("done")
}
