package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nmeaparse/internal/nmea"
	"nmeaparse/internal/replay"
	"nmeaparse/internal/sim"
)

// Sources accepted in Config.Source.
const (
	SourceSerial = "serial"
	SourceFile   = "file"
	SourceSim    = "sim"
)

// Config controls the GPS service.
//
// Device may be empty to auto-detect. Baud must be a rate the platform
// serial implementation supports.
type Config struct {
	Enable bool

	// Source selects where the byte stream comes from. Empty means "serial".
	Source string

	Device string
	Baud   int
	// QueryRates are sent to the receiver after the port is opened.
	QueryRates []nmea.QueryRate
	// SerialConfig, when set, is sent after QueryRates and the port is then
	// reopened with the new line settings.
	SerialConfig *nmea.SerialConfiguration

	// File is the NMEA log replayed when Source=="file".
	File           string
	ReplaySpeed    float64
	ReplayInterval time.Duration
	ReplayLoop     bool

	// Sim drives the simulated receiver when Source=="sim", one epoch per
	// SimInterval.
	Sim         sim.Receiver
	SimInterval time.Duration

	// RecordPath, when set, appends every valid sentence to a replay log.
	RecordPath string

	MaxBufferSize int
	// ParserLog enables the parser's info and warning diagnostics.
	ParserLog bool
}

// PulseSource reports pulse-per-second edges.
type PulseSource interface {
	Pulse() (last time.Time, count uint64)
}

// Service owns one parser and one tracker and feeds them from a single
// goroutine. Register extra handlers through Parser() and Tracker() before
// Start; after Start only Snapshot, Stats and HandlersCSV may be called
// concurrently.
type Service struct {
	cfg     Config
	log     zerolog.Logger
	parser  *nmea.Parser
	tracker *Tracker
	pps     PulseSource
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu     sync.Mutex
	closer io.Closer
}

func New(cfg Config, log zerolog.Logger) *Service {
	src := normalizeSource(cfg.Source)
	s := &Service{cfg: cfg, log: log, now: time.Now}
	s.parser = nmea.NewParser(nmea.Options{
		MaxBufferSize: cfg.MaxBufferSize,
		Log:           cfg.ParserLog,
		Logger:        log.With().Str("component", "nmea").Logger(),
	})
	s.tracker = NewTracker(s.parser, log)
	s.tracker.OnUpdate.Subscribe(func(f Fix) error {
		s.publish(f)
		return nil
	})
	s.last.Store(Snapshot{Enabled: cfg.Enable, Source: src, Device: cfg.Device, Baud: cfg.Baud, File: cfg.File})
	return s
}

func normalizeSource(src string) string {
	src = strings.ToLower(strings.TrimSpace(src))
	if src == "" {
		return SourceSerial
	}
	return src
}

// Parser returns the service's parser for handler registration.
func (s *Service) Parser() *nmea.Parser { return s.parser }

// Tracker returns the service's fix tracker.
func (s *Service) Tracker() *Tracker { return s.tracker }

// SetPulseSource attaches a PPS source reported in snapshots.
func (s *Service) SetPulseSource(p PulseSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pps = p
}

// HandlersCSV lists the sentence names the service decodes.
func (s *Service) HandlersCSV() string { return s.parser.RegisteredHandlersCSV() }

// Stats returns the parser counters.
func (s *Service) Stats() nmea.Stats { return s.parser.Stats() }

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	exit, err := s.startRecordingLocked()
	if err != nil {
		return err
	}
	switch src := normalizeSource(s.cfg.Source); src {
	case SourceSerial:
		err = s.startSerialLocked(ctx, exit)
	case SourceFile:
		err = s.startFileLocked(ctx, exit)
	case SourceSim:
		err = s.startSimLocked(ctx, exit)
	default:
		err = fmt.Errorf("gps: unknown source %q", src)
	}
	if err != nil {
		exit()
	}
	return err
}

// startRecordingLocked hooks the replay writer onto the parser. The returned
// func detaches and closes it; it runs on the reader goroutine when the run
// ends.
func (s *Service) startRecordingLocked() (func(), error) {
	path := strings.TrimSpace(s.cfg.RecordPath)
	if path == "" {
		return func() {}, nil
	}
	w, err := replay.CreateWriter(path)
	if err != nil {
		return nil, fmt.Errorf("gps: create record log: %w", err)
	}
	id := s.parser.RegisterAny(func(sn nmea.Sentence) error {
		if err := w.WriteSentence(s.now(), sn.Raw); err != nil {
			s.log.Warn().Err(err).Msg("gps record write failed")
		}
		return nil
	})
	s.log.Info().Str("path", path).Msg("gps recording")
	return func() {
		s.parser.RemoveAny(id)
		if err := w.Close(); err != nil {
			s.log.Warn().Err(err).Msg("gps record close failed")
		}
	}, nil
}

func (s *Service) startSerialLocked(ctx context.Context, exit func()) error {
	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			s.setErrorLocked("gps auto-detect failed: no serial receiver found")
			return fmt.Errorf("gps auto-detect failed")
		}
	}
	mode := serialMode{Baud: s.cfg.Baud, DataBits: 8, StopBits: 1}
	if mode.Baud == 0 {
		mode.Baud = 4800
	}

	port, mode, err := s.openAndConfigure(device, mode)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps open failed device=%s baud=%d: %v", device, mode.Baud, err))
		return err
	}
	s.closer = port

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer exit()
		defer func() { _ = port.Close() }()

		s.log.Info().Str("device", device).Int("baud", mode.Baud).Msg("gps enabled")
		buf := make([]byte, 512)
		for {
			if childCtx.Err() != nil {
				return
			}
			n, err := port.Read(buf)
			if n > 0 {
				s.feed(buf[:n])
			}
			if err != nil {
				if childCtx.Err() == nil {
					s.setError(fmt.Sprintf("gps read stopped: %v", err))
				}
				return
			}
		}
	}()

	s.last.Store(Snapshot{Enabled: true, Source: SourceSerial, Device: device, Baud: mode.Baud})
	return nil
}

// openAndConfigure opens the port and sends the configured commands. A
// PSRF100 changes the receiver's line settings, so the port is reopened to
// match.
func (s *Service) openAndConfigure(device string, mode serialMode) (io.ReadWriteCloser, serialMode, error) {
	port, err := openSerialFn(device, mode)
	if err != nil {
		return nil, mode, err
	}
	for _, q := range s.cfg.QueryRates {
		if err := writeCommand(port, q); err != nil {
			_ = port.Close()
			return nil, mode, err
		}
	}
	if s.cfg.SerialConfig == nil {
		return port, mode, nil
	}

	if err := writeCommand(port, *s.cfg.SerialConfig); err != nil {
		_ = port.Close()
		return nil, mode, err
	}
	next := modeFromCommand(*s.cfg.SerialConfig)
	if next == mode {
		return port, mode, nil
	}
	_ = port.Close()
	port, err = openSerialFn(device, next)
	if err != nil {
		return nil, next, err
	}
	return port, next, nil
}

var openSerialFn = openSerial

func writeCommand(w io.Writer, c nmea.Command) error {
	if _, err := io.WriteString(w, nmea.Encode(c)); err != nil {
		return fmt.Errorf("gps: send $%s: %w", c.Name(), err)
	}
	return nil
}

func (s *Service) startFileLocked(ctx context.Context, exit func()) error {
	path := strings.TrimSpace(s.cfg.File)
	if path == "" {
		return fmt.Errorf("gps: file source requires a file")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps replay load failed file=%s: %v", path, err))
		return err
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	player := replay.Player{
		Speed:    s.cfg.ReplaySpeed,
		Interval: s.cfg.ReplayInterval,
		Loop:     s.cfg.ReplayLoop,
		OnError:  s.parseError,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer exit()

		s.log.Info().Str("file", path).Int("records", len(recs)).Msg("gps replay started")
		err := player.Play(childCtx, recs, s.parser.WriteLine)
		switch {
		case err == nil:
			s.log.Info().Str("file", path).Msg("gps replay finished")
		case errors.Is(err, context.Canceled):
		default:
			s.setError(fmt.Sprintf("gps replay stopped: %v", err))
		}
	}()

	s.last.Store(Snapshot{Enabled: true, Source: SourceFile, File: path})
	return nil
}

func (s *Service) startSimLocked(ctx context.Context, exit func()) error {
	interval := s.cfg.SimInterval
	if interval <= 0 {
		interval = time.Second
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer exit()

		s.log.Info().Dur("interval", interval).Msg("gps simulator enabled")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			for _, line := range s.cfg.Sim.Sentences(s.now()) {
				s.feed([]byte(line))
			}
			select {
			case <-childCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	s.last.Store(Snapshot{Enabled: true, Source: SourceSim, Device: "sim"})
	return nil
}

// feed pushes b through the parser. Parse errors are recorded and the rest
// of b is still consumed.
func (s *Service) feed(b []byte) {
	for len(b) > 0 {
		n, err := s.parser.Write(b)
		if err != nil {
			s.parseError(err)
		}
		b = b[n:]
	}
}

func (s *Service) parseError(err error) {
	s.log.Debug().Err(err).Msg("gps sentence rejected")
	s.setError(err.Error())
}

func (s *Service) publish(f Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, _ := s.last.Load().(Snapshot)
	cur.applyFix(f, s.now().UTC())
	s.last.Store(cur)
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

// Snapshot returns the latest state, aged to the current time.
func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	out := v.(Snapshot)
	out.age(s.now().UTC())
	s.mu.Lock()
	pps := s.pps
	s.mu.Unlock()
	if pps != nil {
		if at, n := pps.Pulse(); n > 0 {
			out.PPSCount = n
			out.LastPPSUTC = at.Format(time.RFC3339Nano)
		}
	}
	return out
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(msg)
}

func (s *Service) setErrorLocked(msg string) {
	v, _ := s.last.Load().(Snapshot)
	v.LastError = msg
	// Transient parse issues do not flip validity.
	s.last.Store(v)
}
