package sysutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel_AllVariants(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Fatalf("ParseLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func restoreLogging(t *testing.T) {
	t.Helper()
	lvl, lg, tf := zerolog.GlobalLevel(), log.Logger, zerolog.TimeFieldFormat
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(lvl)
		log.Logger = lg
		zerolog.TimeFieldFormat = tf
	})
}

func TestSetupLogger_JSON(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer

	SetupLogger("warn", false, &buf)
	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if m["message"] != "kept" || m["service"] != "faucetd" || m["time"] == nil {
		t.Fatalf("unexpected line: %v", m)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("global level = %v", zerolog.GlobalLevel())
	}
}

func TestSetupLogger_Pretty(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer

	lg := SetupLogger("debug", true, &buf)
	lg.Debug().Str("k", "v").Msg("hello")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") || !strings.Contains(out, "hello") {
		t.Fatalf("expected console output, got %q", out)
	}
}

func TestRedactSecret(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"short":            "*****",
		"12345678":         "********",
		"partner-key-9abc": "************9abc",
	}
	for in, want := range cases {
		if got := RedactSecret(in); got != want {
			t.Fatalf("RedactSecret(%q) = %q; want %q", in, got, want)
		}
	}
}
