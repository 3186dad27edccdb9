package nmea

import "github.com/rs/zerolog"

// diag routes info and warning grade diagnostics to a logger when enabled.
// Error grade conditions are returned as errors; diag only mirrors them.
type diag struct {
	log     zerolog.Logger
	enabled bool
}

func (d diag) infof(format string, args ...any) {
	if d.enabled {
		d.log.Info().Msgf(format, args...)
	}
}

func (d diag) warnf(format string, args ...any) {
	if d.enabled {
		d.log.Warn().Msgf(format, args...)
	}
}

func (d diag) error(err error) {
	if d.enabled {
		d.log.Error().Err(err).Msg("nmea parse error")
	}
}
