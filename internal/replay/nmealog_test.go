package replay

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"nmeaparse/internal/nmea"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	fs.slept = append(fs.slept, d)
	return nil
}

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# comment

START
0,$GPGGA,1,2,3*4A
10, $GPRMC,1*5B
$PSRF150,1*3E
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	if !recs[0].isStart() {
		t.Fatalf("expected START marker, got %+v", recs[0])
	}
	if recs[1].At != 0 || !recs[1].Timed || recs[1].Line != "$GPGGA,1,2,3*4A" {
		t.Fatalf("unexpected record 1: %+v", recs[1])
	}
	if recs[2].At != 10*time.Nanosecond || recs[2].Line != "$GPRMC,1*5B" {
		t.Fatalf("unexpected record 2: %+v", recs[2])
	}
	if recs[3].Timed || recs[3].Line != "$PSRF150,1*3E" {
		t.Fatalf("unexpected record 3: %+v", recs[3])
	}
}

func TestReaderReadAll_InvalidLine(t *testing.T) {
	for _, in := range []string{"not-a-valid-line\n", "abc,$GPGGA\n", "-5,$GPGGA\n", "5,\n"} {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestPlay_TimingAndStartMarkers(t *testing.T) {
	recs := []Record{
		{},
		{At: 0, Timed: true, Line: "a"},
		{At: 100 * time.Millisecond, Timed: true, Line: "b"},
		{At: 500 * time.Millisecond, Timed: true, Line: "c"},
		{},
		{At: 0, Timed: true, Line: "d"},
		{At: 200 * time.Millisecond, Timed: true, Line: "e"},
		{Line: "f"},
	}

	fs := &fakeSleeper{}
	var got []string
	p := Player{Speed: 2.0, Interval: 50 * time.Millisecond, Sleeper: fs}
	err := p.Play(context.Background(), recs, func(line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if want := []string{"a", "b", "c", "d", "e", "f"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("lines mismatch: got %v want %v", got, want)
	}
	want := []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, 100 * time.Millisecond, 50 * time.Millisecond}
	if !reflect.DeepEqual(fs.slept, want) {
		t.Fatalf("sleeps mismatch: got %v want %v", fs.slept, want)
	}
}

func TestPlay_ParseErrorsContinue(t *testing.T) {
	recs := []Record{{Line: "$GPGGA,1"}, {Line: "$,"}, {Line: "$GPGGA,2"}}
	parser := nmea.NewParser(nmea.Options{})
	var names []string
	parser.RegisterAny(func(s nmea.Sentence) error {
		names = append(names, s.Params[0])
		return nil
	})

	var errs []error
	p := Player{Sleeper: &fakeSleeper{}, OnError: func(err error) { errs = append(errs, err) }}
	if err := p.Play(context.Background(), recs, parser.WriteLine); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], nmea.ErrInvalidSentence) {
		t.Fatalf("expected one invalid sentence error, got %v", errs)
	}
	if !reflect.DeepEqual(names, []string{"1", "2"}) {
		t.Fatalf("unexpected dispatch: %v", names)
	}
}

func TestPlay_OtherErrorsStop(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	p := Player{Sleeper: &fakeSleeper{}}
	err := p.Play(context.Background(), []Record{{Line: "a"}, {Line: "b"}}, func(string) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestPlay_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Player{Loop: true, Sleeper: &fakeSleeper{}}
	err := p.Play(ctx, []Record{{Line: "a"}}, func(string) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

type cancelAfterSleeper struct {
	slept  []time.Duration
	limit  int
	cancel context.CancelFunc
}

func (cs *cancelAfterSleeper) Sleep(ctx context.Context, d time.Duration) error {
	cs.slept = append(cs.slept, d)
	if len(cs.slept) == cs.limit {
		cs.cancel()
	}
	return ctx.Err()
}

func TestPlay_LoopPausesBetweenPasses(t *testing.T) {
	cases := []struct {
		name     string
		interval time.Duration
		records  []Record
		want     []time.Duration
	}{
		{"StartMarkersOnly", 0, []Record{{At: time.Second, Timed: true}, {At: 2 * time.Second, Timed: true}}, []time.Duration{time.Second, time.Second}},
		{"SingleTimedRecord", 250 * time.Millisecond, []Record{{At: time.Second, Timed: true, Line: "a"}}, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}},
		{"IntervalCountsTowardFloor", 300 * time.Millisecond, []Record{{Line: "a"}}, []time.Duration{300 * time.Millisecond, 300 * time.Millisecond}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cs := &cancelAfterSleeper{limit: len(tc.want), cancel: cancel}
			p := Player{Loop: true, Interval: tc.interval, Sleeper: cs}
			err := p.Play(ctx, tc.records, func(string) error { return nil })
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
			if !reflect.DeepEqual(cs.slept, tc.want) {
				t.Fatalf("slept=%v want %v", cs.slept, tc.want)
			}
		})
	}
}

func TestPlay_Validation(t *testing.T) {
	feed := func(string) error { return nil }
	if err := (Player{}).Play(context.Background(), nil, feed); err == nil {
		t.Fatalf("expected error for no records")
	}
	if err := (Player{Speed: -1}).Play(context.Background(), []Record{{Line: "a"}}, feed); err == nil {
		t.Fatalf("expected error for negative speed")
	}
	if err := (Player{}).Play(context.Background(), []Record{{Line: "a"}}, nil); err == nil {
		t.Fatalf("expected error for nil feed")
	}
}

func TestRecordReplay_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nmea-record.log")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	now := time.Now()
	in := []string{
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n",
		"$GNGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*59\r\n",
	}
	for _, line := range in {
		if err := w.WriteSentence(now, line); err != nil {
			_ = w.Close()
			t.Fatalf("WriteSentence() error: %v", err)
		}
	}
	if err := w.WriteSentence(now, "\r\n"); err == nil {
		t.Fatalf("expected error for empty sentence")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteSentence(now, in[0]); err == nil {
		t.Fatalf("expected error after Close")
	}

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	parser := nmea.NewParser(nmea.Options{})
	var out []string
	parser.RegisterAny(func(s nmea.Sentence) error {
		if !s.ChecksumOK() {
			t.Errorf("checksum failed for %q", s.Raw)
		}
		out = append(out, s.Name)
		return nil
	})
	fs := &fakeSleeper{}
	if err := (Player{Sleeper: fs}).Play(context.Background(), recs, parser.WriteLine); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if len(fs.slept) != 0 {
		t.Fatalf("expected no sleeps, got %v", fs.slept)
	}
	if !reflect.DeepEqual(out, []string{"GPRMC", "GNGGA"}) {
		t.Fatalf("unexpected sentences: %v", out)
	}
}
