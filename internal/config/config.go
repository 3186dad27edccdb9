package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"nmeaparse/internal/gps"
	"nmeaparse/internal/logging"
	"nmeaparse/internal/nmea"
	"nmeaparse/internal/pps"
	"nmeaparse/internal/sim"
)

type Config struct {
	Log     logging.Config `yaml:"log"`
	Parser  ParserConfig   `yaml:"parser"`
	GPS     GPSConfig      `yaml:"gps"`
	PPS     PPSConfig      `yaml:"pps"`
	Sim     SimConfig      `yaml:"sim"`
	Web     WebConfig      `yaml:"web"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

type ParserConfig struct {
	MaxBufferSize int  `yaml:"max_buffer_size"`
	Log           bool `yaml:"log"`
}

type GPSConfig struct {
	Enable       bool                `yaml:"enable"`
	Source       string              `yaml:"source"`
	Device       string              `yaml:"device"`
	Baud         int                 `yaml:"baud"`
	File         string              `yaml:"file"`
	Replay       ReplayConfig        `yaml:"replay"`
	Record       RecordConfig        `yaml:"record"`
	QueryRates   []QueryRateConfig   `yaml:"query_rates"`
	SerialConfig *SerialConfigConfig `yaml:"serial_config"`
}

type ReplayConfig struct {
	Speed float64 `yaml:"speed"`
	// Interval paces untimed records. Zero feeds them back to back.
	Interval time.Duration `yaml:"interval"`
	Loop     bool          `yaml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type QueryRateConfig struct {
	Message         string `yaml:"message"`
	Mode            string `yaml:"mode"`
	Rate            int    `yaml:"rate"`
	DisableChecksum bool   `yaml:"disable_checksum"`
}

type SerialConfigConfig struct {
	Baud     int `yaml:"baud"`
	DataBits int `yaml:"data_bits"`
	StopBits int `yaml:"stop_bits"`
	Parity   int `yaml:"parity"`
}

type PPSConfig struct {
	Enable bool   `yaml:"enable"`
	Pin    int    `yaml:"pin"`
	Chip   string `yaml:"chip"`
}

type SimConfig struct {
	Interval     time.Duration `yaml:"interval"`
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m"`
	RadiusNm     float64       `yaml:"radius_nm"`
	Period       time.Duration `yaml:"period"`
	Talker       string        `yaml:"talker"`
	Satellites   int           `yaml:"satellites"`
	HDOP         float64       `yaml:"hdop"`
	VDOP         float64       `yaml:"vdop"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
	// SentenceTail bounds /api/sentences.
	SentenceTail int `yaml:"sentence_tail"`
	LogTail      int `yaml:"log_tail"`
}

type MetricsConfig struct {
	Enable bool `yaml:"enable"`
}

var supportedBauds = map[int]bool{
	2400: true, 4800: true, 9600: true, 19200: true,
	38400: true, 57600: true, 115200: true, 230400: true,
}

var talkerRE = regexp.MustCompile(`^[A-Z]{2}$`)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, decodeError(err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeError flattens yaml's unknown-field errors into one line.
func decodeError(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	fields := make([]string, 0, len(te.Errors))
	for _, msg := range te.Errors {
		if !strings.Contains(msg, "not found in type") {
			return err
		}
		if i := strings.Index(msg, ": "); i >= 0 && strings.HasPrefix(msg, "line ") {
			msg = msg[i+2:]
		}
		fields = append(fields, msg)
	}
	return fmt.Errorf("config contains unknown fields: %s", strings.Join(fields, "; "))
}

func (cfg *Config) applyDefaults() error {
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format must be console or json")
	}

	if cfg.Parser.MaxBufferSize < 0 {
		return fmt.Errorf("parser.max_buffer_size must be >= 0")
	}
	if cfg.Parser.MaxBufferSize == 0 {
		cfg.Parser.MaxBufferSize = nmea.DefaultMaxBufferSize
	}

	if err := cfg.GPS.validate(); err != nil {
		return err
	}

	if cfg.PPS.Enable && cfg.PPS.Pin < 1 {
		return fmt.Errorf("pps.pin must be >= 1")
	}

	// Simulator defaults (safe even if gps.source is not sim).
	if cfg.Sim.Interval <= 0 {
		cfg.Sim.Interval = time.Second
	}
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 120 * time.Second
	}
	if cfg.Sim.RadiusNm <= 0 {
		cfg.Sim.RadiusNm = 0.5
	}
	if cfg.Sim.AltM == 0 {
		cfg.Sim.AltM = 900
	}
	if cfg.Sim.Talker == "" {
		cfg.Sim.Talker = "GP"
	}
	if !talkerRE.MatchString(cfg.Sim.Talker) {
		return fmt.Errorf("sim.talker must be two uppercase letters")
	}
	if cfg.Sim.Satellites == 0 {
		cfg.Sim.Satellites = 8
	}
	if cfg.Sim.Satellites < 0 || cfg.Sim.Satellites > 12 {
		return fmt.Errorf("sim.satellites must be in [1,12]")
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}
	if cfg.Web.SentenceTail <= 0 {
		cfg.Web.SentenceTail = 200
	}
	if cfg.Web.LogTail <= 0 {
		cfg.Web.LogTail = 2000
	}
	if cfg.Metrics.Enable && !cfg.Web.Enable {
		return fmt.Errorf("metrics.enable requires web.enable")
	}
	return nil
}

func (g *GPSConfig) validate() error {
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = gps.SourceSerial
	}
	switch g.Source {
	case gps.SourceSerial, gps.SourceFile, gps.SourceSim:
	default:
		return fmt.Errorf("gps.source must be one of serial, file, sim")
	}

	if g.Baud == 0 {
		g.Baud = 4800
	}
	if !supportedBauds[g.Baud] {
		return fmt.Errorf("gps.baud %d is not supported", g.Baud)
	}

	if g.Source == gps.SourceFile && g.Enable && strings.TrimSpace(g.File) == "" {
		return fmt.Errorf("gps.file is required when gps.source is file")
	}
	if g.Replay.Speed == 0 {
		g.Replay.Speed = 1
	}
	if g.Replay.Speed < 0 {
		return fmt.Errorf("gps.replay.speed must be > 0")
	}
	if g.Replay.Interval < 0 {
		return fmt.Errorf("gps.replay.interval must be >= 0")
	}

	if g.Record.Enable {
		if g.Record.Path == "" {
			return fmt.Errorf("gps.record.path is required when gps.record.enable is true")
		}
		if g.Source == gps.SourceFile {
			return fmt.Errorf("gps.record cannot be used with gps.source=file")
		}
	}

	for i, q := range g.QueryRates {
		if _, err := nmea.ParseMessageID(q.Message); err != nil {
			return fmt.Errorf("gps.query_rates[%d].message %q is not a known sentence", i, q.Message)
		}
		if _, err := nmea.ParseQueryRateMode(q.Mode); err != nil {
			return fmt.Errorf("gps.query_rates[%d].mode must be setrate or query", i)
		}
		if q.Rate < 0 || q.Rate > 255 {
			return fmt.Errorf("gps.query_rates[%d].rate must be in [0,255]", i)
		}
		// The decoders require a checksum on every sentence.
		if q.DisableChecksum {
			return fmt.Errorf("gps.query_rates[%d].disable_checksum is not supported", i)
		}
	}

	if sc := g.SerialConfig; sc != nil {
		if sc.Baud == 0 {
			sc.Baud = 4800
		}
		if sc.DataBits == 0 {
			sc.DataBits = 8
		}
		if !supportedBauds[sc.Baud] {
			return fmt.Errorf("gps.serial_config.baud %d is not supported", sc.Baud)
		}
		if sc.DataBits != 7 && sc.DataBits != 8 {
			return fmt.Errorf("gps.serial_config.data_bits must be 7 or 8")
		}
		if sc.StopBits != 0 && sc.StopBits != 1 {
			return fmt.Errorf("gps.serial_config.stop_bits must be 0 or 1")
		}
		if sc.Parity < 0 || sc.Parity > 2 {
			return fmt.Errorf("gps.serial_config.parity must be 0 (none), 1 (odd) or 2 (even)")
		}
	}
	return nil
}

// GPSService converts the loaded configuration into the GPS service
// configuration. Load must have validated cfg.
func (cfg Config) GPSService() gps.Config {
	g := cfg.GPS
	out := gps.Config{
		Enable:         g.Enable,
		Source:         g.Source,
		Device:         g.Device,
		Baud:           g.Baud,
		File:           g.File,
		ReplaySpeed:    g.Replay.Speed,
		ReplayInterval: g.Replay.Interval,
		ReplayLoop:     g.Replay.Loop,
		SimInterval:    cfg.Sim.Interval,
		Sim: sim.Receiver{
			Path: sim.Path{
				CenterLatDeg: cfg.Sim.CenterLatDeg,
				CenterLonDeg: cfg.Sim.CenterLonDeg,
				AltM:         cfg.Sim.AltM,
				RadiusNm:     cfg.Sim.RadiusNm,
				Period:       cfg.Sim.Period,
			},
			Talker:     cfg.Sim.Talker,
			Satellites: cfg.Sim.Satellites,
			HDOP:       cfg.Sim.HDOP,
			VDOP:       cfg.Sim.VDOP,
		},
		MaxBufferSize: cfg.Parser.MaxBufferSize,
		ParserLog:     cfg.Parser.Log,
	}
	if g.Record.Enable {
		out.RecordPath = g.Record.Path
	}
	for _, q := range g.QueryRates {
		id, _ := nmea.ParseMessageID(q.Message)
		mode, _ := nmea.ParseQueryRateMode(q.Mode)
		out.QueryRates = append(out.QueryRates, nmea.QueryRate{
			Message:         id,
			Mode:            mode,
			Rate:            q.Rate,
			DisableChecksum: q.DisableChecksum,
		})
	}
	if sc := g.SerialConfig; sc != nil {
		out.SerialConfig = &nmea.SerialConfiguration{
			Baud:     sc.Baud,
			DataBits: sc.DataBits,
			StopBits: sc.StopBits,
			Parity:   sc.Parity,
		}
	}
	return out
}

func (cfg Config) PPSWatcher() pps.Config {
	return pps.Config{Enable: cfg.PPS.Enable, Pin: cfg.PPS.Pin, Chip: cfg.PPS.Chip}
}
