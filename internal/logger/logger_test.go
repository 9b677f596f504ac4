package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewStampsServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "talentgate-api", "info")

	log.Info().Msg("started")

	line := buf.String()
	if !strings.Contains(line, `"service":"talentgate-api"`) {
		t.Fatalf("log line missing service field: %s", line)
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "talentgate-api", "warn")
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Msg("too quiet")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %s", buf.String())
	}

	log.Warn().Msg("loud enough")
	if buf.Len() == 0 {
		t.Fatal("warn line suppressed at warn level")
	}
}

func TestNewDefaultsUnknownLevelToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "talentgate-api", "shouting")

	log.Info().Msg("still here")
	if buf.Len() == 0 {
		t.Fatal("info line suppressed after level fallback")
	}
}
