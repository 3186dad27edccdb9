package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"nmeaparse/internal/nmea"
	"nmeaparse/internal/replay"
)

type logSummary struct {
	Segments         int
	Records          int
	Sentences        int
	Invalid          int
	Errors           int
	ChecksumFailures int
	MaxDuration      time.Duration
	NameCounts       map[string]int
}

func summarizeNMEALog(records []replay.Record) logSummary {
	s := logSummary{NameCounts: map[string]int{}}

	p := nmea.NewParser(nmea.Options{})
	p.RegisterAny(func(sn nmea.Sentence) error {
		s.NameCounts[sn.Name]++
		return nil
	})

	origin := time.Duration(0)
	hasRecords := false
	segments := 0
	for _, r := range records {
		if r.Line == "" {
			segments++
			origin = r.At
			continue
		}
		hasRecords = true
		s.Records++

		if r.Timed {
			at := r.At - origin
			if at > s.MaxDuration {
				s.MaxDuration = at
			}
		}

		err := p.ProcessSentence(r.Line)
		switch {
		case err == nil:
		case errors.Is(err, nmea.ErrInvalidSentence):
			s.Invalid++
		default:
			s.Errors++
		}
	}
	if segments == 0 && hasRecords {
		segments = 1
	}
	s.Segments = segments

	st := p.Stats()
	s.Sentences = int(st.Sentences)
	s.ChecksumFailures = int(st.ChecksumFailures)
	return s
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	s := summarizeNMEALog(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "records: %d\n", s.Records)
	fmt.Fprintf(w, "sentences: %d\n", s.Sentences)
	fmt.Fprintf(w, "invalid: %d\n", s.Invalid)
	fmt.Fprintf(w, "errors: %d\n", s.Errors)
	fmt.Fprintf(w, "checksum_failures: %d\n", s.ChecksumFailures)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	names := make([]string, 0, len(s.NameCounts))
	for name := range s.NameCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "sentence_counts:\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.NameCounts[name])
	}
	return nil
}
