// Package logging builds the zerolog loggers used across the binary.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLevel overrides Config.Level when set.
const EnvLevel = "NMEAPARSE_LOG_LEVEL"

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Config struct {
	// Level is one of trace, debug, info, warn, error. Empty means info.
	Level string `yaml:"level"`
	// Format is "console" (default) or "json".
	Format  string `yaml:"format"`
	NoColor bool   `yaml:"no_color"`
}

// ParseLevel maps a level name to a zerolog level. "warning" is accepted
// as an alias of "warn".
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logging: unknown level %q", s)
	}
	return lvl, nil
}

// New returns a logger tagged with app and installs it as the global
// zerolog logger. A nil out writes to stdout.
func New(app string, cfg Config, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stdout
	}
	levelName := cfg.Level
	if env := strings.TrimSpace(os.Getenv(EnvLevel)); env != "" {
		levelName = env
	}
	lvl, err := ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger, nil
}
