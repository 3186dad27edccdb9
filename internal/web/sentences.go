package web

import (
	"strings"
	"sync"
	"time"

	"nmeaparse/internal/nmea"
)

type SentenceEntry struct {
	AtUTC string `json:"at_utc"`
	Line  string `json:"line"`
}

type SentencesResponse struct {
	NowUTC    string          `json:"now_utc"`
	Total     uint64          `json:"total"`
	Sentences []SentenceEntry `json:"sentences"`
}

// SentenceLog is a bounded tail of recently dispatched sentences.
type SentenceLog struct {
	mu           sync.Mutex
	maxLines     int
	maxLineBytes int
	entries      []SentenceEntry
	total        uint64
	now          func() time.Time
}

func NewSentenceLog(maxLines int, maxLineBytes int) *SentenceLog {
	if maxLines < 0 {
		maxLines = 0
	}
	if maxLineBytes <= 0 {
		maxLineBytes = nmea.DefaultMaxBufferSize
	}
	return &SentenceLog{
		maxLines:     maxLines,
		maxLineBytes: maxLineBytes,
		entries:      make([]SentenceEntry, 0, maxLines),
		now:          time.Now,
	}
}

// Attach records every valid sentence p dispatches.
func (l *SentenceLog) Attach(p *nmea.Parser) nmea.HandlerID {
	return p.RegisterAny(func(s nmea.Sentence) error {
		l.Add(s.Raw)
		return nil
	})
}

func (l *SentenceLog) Add(line string) {
	if l == nil {
		return
	}
	line = strings.TrimRight(line, "\r\n")
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if l.maxLines == 0 {
		return
	}
	if len(line) > l.maxLineBytes {
		line = line[:l.maxLineBytes]
	}
	e := SentenceEntry{AtUTC: l.now().UTC().Format(time.RFC3339Nano), Line: line}
	if len(l.entries) < l.maxLines {
		l.entries = append(l.entries, e)
		return
	}
	copy(l.entries, l.entries[1:])
	l.entries[len(l.entries)-1] = e
}

// Snapshot returns up to tail of the newest entries and the count of
// sentences seen since creation.
func (l *SentenceLog) Snapshot(tail int) ([]SentenceEntry, uint64) {
	if l == nil {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if tail <= 0 || tail > len(l.entries) {
		tail = len(l.entries)
	}
	out := make([]SentenceEntry, 0, tail)
	out = append(out, l.entries[len(l.entries)-tail:]...)
	return out, l.total
}
