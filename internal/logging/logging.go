// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/dkeye/roomcast/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. An unknown level falls back to info.
func Setup(cfg config.LogConfig) {
	setup(cfg, os.Stderr)
}

func setup(cfg config.LogConfig, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
