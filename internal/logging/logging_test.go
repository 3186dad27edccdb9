package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.ErrorContains(t, err, `unknown level "loud"`)
}

func TestNew_JSON(t *testing.T) {
	t.Setenv(EnvLevel, "")
	var buf bytes.Buffer
	logger, err := New("nmeaparse", Config{Level: "warn", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("device", "/dev/ttyUSB0").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	require.Equal(t, "nmeaparse", ev["app"])
	require.Equal(t, "warn", ev["level"])
	require.Equal(t, "shown", ev["message"])
	require.Equal(t, "/dev/ttyUSB0", ev["device"])
	require.Contains(t, ev, "time")
}

func TestNew_EnvOverridesLevel(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	var buf bytes.Buffer
	logger, err := New("nmeaparse", Config{Level: "error", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	logger.Debug().Msg("visible")
	require.Contains(t, buf.String(), `"message":"visible"`)
}

func TestNew_Console(t *testing.T) {
	t.Setenv(EnvLevel, "")
	var buf bytes.Buffer
	logger, err := New("nmeaparse", Config{NoColor: true}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("gps enabled")
	out := buf.String()
	require.Contains(t, out, "INF")
	require.Contains(t, out, "gps enabled")
	require.Contains(t, out, "app=nmeaparse")
}

func TestNew_Rejects(t *testing.T) {
	t.Setenv(EnvLevel, "")
	_, err := New("x", Config{Format: "xml"}, &bytes.Buffer{})
	require.ErrorContains(t, err, `unknown format "xml"`)

	t.Setenv(EnvLevel, "chatty")
	_, err = New("x", Config{}, &bytes.Buffer{})
	require.ErrorContains(t, err, `unknown level "chatty"`)
}
