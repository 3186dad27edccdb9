package nmea

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// invalidEchoWidth bounds how much of an invalid sentence is echoed in errors.
const invalidEchoWidth = 35

// SentenceHandler consumes one valid sentence. A returned error aborts the
// dispatch and propagates out of the ingestion call.
type SentenceHandler func(Sentence) error

// Options configures a Parser.
type Options struct {
	// MaxBufferSize bounds a frame in bytes. Zero means DefaultMaxBufferSize.
	MaxBufferSize int
	// Log enables info and warning diagnostics on Logger.
	Log    bool
	Logger zerolog.Logger
}

// Stats are cumulative parser counters. They are safe to read from any
// goroutine while the parser is in use.
type Stats struct {
	Frames           uint64 `json:"frames"`
	Overflows        uint64 `json:"overflows"`
	Sentences        uint64 `json:"sentences"`
	Invalid          uint64 `json:"invalid"`
	Errors           uint64 `json:"errors"`
	ChecksumFailures uint64 `json:"checksum_failures"`
}

type counters struct {
	frames           atomic.Uint64
	overflows        atomic.Uint64
	sentences        atomic.Uint64
	invalid          atomic.Uint64
	errors           atomic.Uint64
	checksumFailures atomic.Uint64
}

// Parser turns a byte stream into dispatched sentences.
type Parser struct {
	framer   *Framer
	handlers map[string]SentenceHandler
	diag     diag
	stats    counters

	// OnSentence runs for every valid sentence, before the named handler.
	OnSentence *Event[Sentence]
}

// NewParser returns a Parser with no handlers registered.
func NewParser(opts Options) *Parser {
	return &Parser{
		framer:     NewFramer(opts.MaxBufferSize),
		handlers:   make(map[string]SentenceHandler),
		diag:       diag{log: opts.Logger, enabled: opts.Log},
		OnSentence: NewEvent[Sentence](),
	}
}

// SetLogging toggles info and warning diagnostics.
func (p *Parser) SetLogging(on bool) {
	p.diag.enabled = on
}

// SetSentenceHandler registers h for sentences named name, replacing any
// earlier handler for that name. Names are case-sensitive.
func (p *Parser) SetSentenceHandler(name string, h SentenceHandler) {
	p.handlers[name] = h
}

// RemoveSentenceHandler drops the handler for name.
func (p *Parser) RemoveSentenceHandler(name string) {
	delete(p.handlers, name)
}

// RegisterAny subscribes h to every valid sentence.
func (p *Parser) RegisterAny(h SentenceHandler) HandlerID {
	if h == nil {
		return 0
	}
	return p.OnSentence.Subscribe(h)
}

// RemoveAny unsubscribes a handler added with RegisterAny.
func (p *Parser) RemoveAny(id HandlerID) bool {
	return p.OnSentence.Unsubscribe(id)
}

// RegisteredHandlersCSV lists the names with a registered handler, sorted and
// comma separated. A name registered with a nil handler is marked
// "(not callable)".
func (p *Parser) RegisteredHandlersCSV() string {
	names := make([]string, 0, len(p.handlers))
	for name, h := range p.handlers {
		if h == nil {
			name += "(not callable)"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Stats returns a copy of the parser counters.
func (p *Parser) Stats() Stats {
	return Stats{
		Frames:           p.stats.frames.Load(),
		Overflows:        p.stats.overflows.Load(),
		Sentences:        p.stats.sentences.Load(),
		Invalid:          p.stats.invalid.Load(),
		Errors:           p.stats.errors.Load(),
		ChecksumFailures: p.stats.checksumFailures.Load(),
	}
}

// WriteByte feeds one byte through the framer. When the byte completes a
// frame, the frame is parsed and dispatched before WriteByte returns. The
// framer is idle again before any error is returned, so the caller may keep
// feeding bytes without recovery steps.
func (p *Parser) WriteByte(b byte) error {
	frame, res := p.framer.Feed(b)
	switch res {
	case FeedComplete:
		p.stats.frames.Add(1)
		return p.ProcessSentence(frame)
	case FeedOverflow:
		p.stats.overflows.Add(1)
		p.diag.warnf("frame exceeded %d bytes without a newline, discarded", p.framer.Max())
	}
	return nil
}

// Write implements io.Writer. On error n is the number of bytes consumed,
// including the byte that completed the failing frame.
func (p *Parser) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := p.WriteByte(c); err != nil {
			return i + 1, err
		}
	}
	return len(b), nil
}

// ReadBuffer feeds b byte by byte and stops at the first error.
func (p *Parser) ReadBuffer(b []byte) error {
	_, err := p.Write(b)
	return err
}

// WriteLine feeds line followed by "\r\n".
func (p *Parser) WriteLine(line string) error {
	for i := 0; i < len(line); i++ {
		if err := p.WriteByte(line[i]); err != nil {
			return err
		}
	}
	if err := p.WriteByte('\r'); err != nil {
		return err
	}
	return p.WriteByte('\n')
}

// ProcessSentence parses and dispatches one complete sentence, bypassing the
// framer. Invalid sentences are not dispatched; they return a *ParseError
// wrapping ErrInvalidSentence.
func (p *Parser) ProcessSentence(text string) error {
	p.diag.infof("processing new string")

	s, err := parseLine(text, p.diag)
	if err != nil {
		p.stats.errors.Add(1)
		p.diag.error(err)
		return err
	}
	return p.dispatch(s)
}

func (p *Parser) dispatch(s Sentence) error {
	if !s.Valid() {
		p.stats.invalid.Add(1)
		echo := s.Text
		if len(echo) > invalidEchoWidth {
			echo = echo[:invalidEchoWidth] + "..."
		}
		err := NewParseError(ErrInvalidSentence, s, "invalid text (\""+echo+"\")")
		p.diag.error(err)
		return err
	}

	p.stats.sentences.Add(1)
	if s.ChecksumParsed && !s.ChecksumOK() {
		p.stats.checksumFailures.Add(1)
	}

	p.diag.infof("calling generic sentence handlers")
	if err := p.OnSentence.Emit(s); err != nil {
		return err
	}

	h := p.handlers[s.Name]
	if h == nil {
		p.diag.warnf("no handler for sentence type (name: %q)", s.Name)
		return nil
	}
	p.diag.infof("calling specific handler for sentence named %q", s.Name)
	return h(s)
}
