package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"nmeaparse/internal/nmea"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Timed lines are: <t_ns>,<sentence>
//   where t_ns is nanoseconds since START and sentence is the raw NMEA text.
// - Untimed lines are the raw sentence on its own, starting with '$'. They
//   are paced by Player.Interval, which makes plain receiver captures
//   replayable as they are.

type Record struct {
	At    time.Duration
	Timed bool
	// Line is the sentence without its terminator. Empty for START markers.
	Line string
}

func (r Record) isStart() bool { return r.Line == "" }

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 4096), 64*1024)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}
		if strings.HasPrefix(line, "$") {
			recs = append(recs, Record{Line: line})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("replay: line %d: missing timestamp separator: %q", lineNo, line)
		}
		tsStr := strings.TrimSpace(line[:comma])
		sentence := strings.TrimSpace(line[comma+1:])
		if sentence == "" {
			return nil, fmt.Errorf("replay: line %d: empty sentence", lineNo)
		}
		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("replay: line %d: invalid timestamp %q: %w", lineNo, tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("replay: line %d: negative timestamp %d", lineNo, tsNs)
		}
		recs = append(recs, Record{At: time.Duration(tsNs), Timed: true, Line: sentence})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// ReadFile reads every record of the log at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

type Writer struct {
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

// WriteSentence appends one timed record. The line terminator, if any, is
// dropped.
func (ww *Writer) WriteSentence(now time.Time, line string) error {
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return errors.New("sentence is empty")
	}

	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), line)
	return err
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Player replays records into a feed function.
type Player struct {
	// Speed scales timed waits: 1.0 real time, 2.0 twice as fast.
	// Zero means 1.0.
	Speed float64
	// Interval is the wait before each untimed record. With Loop it is also
	// the minimum pause between passes (one second when zero).
	Interval time.Duration
	Loop     bool
	Sleeper  Sleeper
	// OnError receives parse errors returned by the feed; replay continues.
	// Any other feed error stops the replay.
	OnError func(error)
}

// Play hands each record's sentence to feed, honoring record timing and START
// markers, until the records are exhausted (or forever with Loop) or ctx is
// done.
func (p Player) Play(ctx context.Context, records []Record, feed func(line string) error) error {
	speed := p.Speed
	if speed == 0 {
		speed = 1
	}
	if speed < 0 {
		return fmt.Errorf("replay: speed must be > 0")
	}
	if feed == nil {
		return errors.New("replay: feed is nil")
	}
	if len(records) == 0 {
		return errors.New("replay: no records")
	}
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = realSleeper{}
	}

	for {
		var origin, lastAt, slept time.Duration
		var haveLast bool

		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.isStart() {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			var wait time.Duration
			if r.Timed {
				at := r.At - origin
				if at < 0 {
					at = 0
				}
				if haveLast {
					wait = time.Duration(float64(at-lastAt) / speed)
				}
				lastAt = at
				haveLast = true
			} else {
				wait = p.Interval
			}
			if wait > 0 {
				if err := sleeper.Sleep(ctx, wait); err != nil {
					return err
				}
				slept += wait
			}

			if err := feed(r.Line); err != nil {
				var pe *nmea.ParseError
				if !errors.As(err, &pe) {
					return err
				}
				if p.OnError != nil {
					p.OnError(err)
				}
			}
		}

		if !p.Loop {
			return nil
		}
		if floor := p.loopFloor(); slept < floor {
			if err := sleeper.Sleep(ctx, floor-slept); err != nil {
				return err
			}
		}
	}
}

func (p Player) loopFloor() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return time.Second
}
