package sim

import (
	"math"
	"strings"
	"testing"
	"time"

	"nmeaparse/internal/nmea"
)

func TestPath_Position_StaysOnTrack(t *testing.T) {
	p := Path{
		CenterLatDeg: 45.0,
		CenterLonDeg: -122.0,
		RadiusNm:     1.0,
		Period:       60 * time.Second,
	}

	now := time.Date(2025, 12, 20, 19, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		lat, lon, trk := p.Position(now.Add(time.Duration(i) * time.Second))
		if math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(trk) {
			t.Fatalf("NaN at step %d", i)
		}
		if trk < 0 || trk >= 360 {
			t.Fatalf("track out of range: %v", trk)
		}
		radiusDeg := p.RadiusNm / 60.0
		if math.Abs(lat-p.CenterLatDeg) > radiusDeg*1.01 {
			t.Fatalf("lat offset too large: %f", math.Abs(lat-p.CenterLatDeg))
		}
		maxLonDeg := radiusDeg / math.Cos(p.CenterLatDeg*math.Pi/180.0)
		if math.Abs(lon-p.CenterLonDeg) > maxLonDeg*1.01 {
			t.Fatalf("lon offset too large: %f", math.Abs(lon-p.CenterLonDeg))
		}
	}
}

func TestPath_SpeedAndAltitude(t *testing.T) {
	p := Path{RadiusNm: 1, Period: 120 * time.Second, AltM: 500}
	now := time.Date(2025, 12, 20, 19, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i += 7 {
		at := now.Add(time.Duration(i) * time.Second)
		if kt := p.SpeedKnots(at); kt <= 0 || kt > 1000 {
			t.Fatalf("implausible speed %f at %d", kt, i)
		}
		if alt := p.Altitude(at); alt < 350-1e-9 || alt > 650+1e-9 {
			t.Fatalf("altitude out of band: %f", alt)
		}
	}
}

func TestFormatCoord(t *testing.T) {
	cases := []struct {
		deg        float64
		digits     int
		want, hemi string
	}{
		{48.1173, 2, "4807.0380", "N"},
		{-11.516666666666667, 3, "01131.0000", "W"},
		{-33.5, 2, "3330.0000", "S"},
		{7.9999999999, 3, "00800.0000", "E"},
	}
	for _, tc := range cases {
		got, hemi := formatCoord(tc.deg, tc.digits, "N", "S")
		if tc.digits == 3 {
			got, hemi = formatCoord(tc.deg, tc.digits, "E", "W")
		}
		if got != tc.want || hemi != tc.hemi {
			t.Fatalf("formatCoord(%v) = %s %s, want %s %s", tc.deg, got, hemi, tc.want, tc.hemi)
		}
	}
}

func TestReceiver_SentencesParse(t *testing.T) {
	r := Receiver{
		Path:       Path{CenterLatDeg: 47.5, CenterLonDeg: -122.3, RadiusNm: 2, Period: 90 * time.Second},
		Talker:     "GN",
		Satellites: 10,
	}
	now := time.Date(2025, 12, 20, 19, 4, 5, 250_000_000, time.UTC)

	p := nmea.NewParser(nmea.Options{})
	counts := map[string]int{}
	params := map[string]int{}
	p.RegisterAny(func(s nmea.Sentence) error {
		if !s.ChecksumOK() {
			t.Errorf("bad checksum: %q", s.Raw)
		}
		counts[s.Type()]++
		params[s.Type()] = len(s.Params)
		return nil
	})

	lines := r.Sentences(now)
	for _, line := range lines {
		if !strings.HasPrefix(line, "$GN") || !strings.HasSuffix(line, "\r\n") {
			t.Fatalf("unexpected line %q", line)
		}
		if _, err := p.Write([]byte(line)); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
	}

	if counts["GGA"] != 1 || counts["GSA"] != 1 || counts["RMC"] != 1 || counts["VTG"] != 1 {
		t.Fatalf("unexpected sentence mix: %v", counts)
	}
	if counts["GSV"] != 3 {
		t.Fatalf("expected 3 GSV pages for 10 satellites, got %d", counts["GSV"])
	}
	if params["GGA"] != 14 || params["GSA"] != 17 || params["RMC"] != 11 {
		t.Fatalf("unexpected field counts: %v", params)
	}
	if !strings.HasPrefix(lines[0], "$GNGGA,190405.25,") {
		t.Fatalf("unexpected GGA clock: %q", lines[0])
	}
}

func TestReceiver_Deterministic(t *testing.T) {
	r := Receiver{Path: Path{CenterLatDeg: 1, CenterLonDeg: 2}}
	now := time.Date(2025, 12, 20, 19, 0, 0, 123, time.UTC)
	a := r.Sentences(now)
	b := r.Sentences(now)
	if strings.Join(a, "") != strings.Join(b, "") {
		t.Fatalf("expected deterministic output for same now")
	}
}
