package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dkeye/roomcast/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetup_Level(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	setup(config.LogConfig{Level: "warn"}, &buf)

	log.Info().Str("module", "test").Msg("hidden")
	log.Warn().Str("module", "test").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	setup(config.LogConfig{Level: "chatty"}, &buf)
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("level = %s", got)
	}
}
