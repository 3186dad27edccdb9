package gps

import (
	"strings"
	"testing"
	"time"
)

func TestTimestamp_SetTimeAndDate(t *testing.T) {
	var ts Timestamp
	ts.SetTime(92750.5)
	ts.SetDate(311299)
	if ts.Hour != 9 || ts.Min != 27 || !almostEqual(ts.Sec, 50.5, 1e-9) {
		t.Fatalf("unexpected clock %+v", ts)
	}
	if ts.Day != 31 || ts.Month != 12 || ts.Year != 1999 {
		t.Fatalf("unexpected date %+v", ts)
	}
	want := time.Date(1999, 12, 31, 9, 27, 50, 500_000_000, time.UTC)
	if !ts.Time().Equal(want) {
		t.Fatalf("Time() = %v want %v", ts.Time(), want)
	}
	if got := ts.String(); !strings.Contains(got, "December 31 1999") {
		t.Fatalf("unexpected String() %q", got)
	}

	ts.SetDate(10125)
	if ts.Year != 2025 || ts.Month != 1 || ts.Day != 1 {
		t.Fatalf("unexpected date %+v", ts)
	}
}

func TestTimestamp_ZeroDate(t *testing.T) {
	var ts Timestamp
	ts.SetDate(0)
	if ts.Day != 1 || ts.Month != 1 || ts.Year != 1970 {
		t.Fatalf("zero date should map to the epoch, got %+v", ts)
	}
	var never Timestamp
	if !never.Time().Equal(time.Unix(0, 0)) {
		t.Fatalf("unset timestamp should be the epoch, got %v", never.Time())
	}
	if got := monthName(13); got != "[month:13]" {
		t.Fatalf("unexpected month name %q", got)
	}
}

func TestFix_TimeSinceLastUpdate(t *testing.T) {
	f := newFix()
	f.Timestamp.SetDate(230394)
	f.Timestamp.SetTime(123519)
	now := time.Date(1994, 3, 23, 12, 36, 19, 400_000_000, time.UTC)
	if got := f.TimeSinceLastUpdate(now); got != time.Minute {
		t.Fatalf("TimeSinceLastUpdate = %v", got)
	}
}

func TestFix_HasEstimate(t *testing.T) {
	f := newFix()
	if f.HasEstimate() {
		t.Fatalf("empty fix has no estimate")
	}
	f.Quality = 6
	if !f.HasEstimate() {
		t.Fatalf("dead reckoning counts as an estimate")
	}
	f = newFix()
	f.LatitudeDeg, f.LongitudeDeg = 1, 2
	if !f.HasEstimate() {
		t.Fatalf("position counts as an estimate")
	}
}

func TestFix_SetLock(t *testing.T) {
	f := newFix()
	if f.setLock(false) {
		t.Fatalf("no change expected")
	}
	if !f.setLock(true) || !f.Locked() {
		t.Fatalf("expected change to locked")
	}
	if f.setLock(true) {
		t.Fatalf("no change expected")
	}
}

func TestFix_String(t *testing.T) {
	f := newFix()
	s := f.String()
	for _, want := range []string{"SEARCHING...", "No satellite info", "(Void)", "(None)", "(Invalid)"} {
		if !strings.Contains(s, want) {
			t.Fatalf("String() missing %q:\n%s", want, s)
		}
	}
	f.locked = true
	f.Almanac.VisibleSize = 1
	f.Almanac.updateSatellite(Satellite{PRN: 7, SNR: 30, Elevation: 10, Azimuth: 100})
	s = f.String()
	if !strings.Contains(s, "LOCK!") || !strings.Contains(s, "PRN:   7") {
		t.Fatalf("unexpected String():\n%s", s)
	}
}

func TestCompassDirection(t *testing.T) {
	cases := []struct {
		deg    float64
		abbrev bool
		want   string
	}{
		{0, true, "N"},
		{22, true, "N"},
		{23, true, "NE"},
		{90, false, "East"},
		{180, true, "S"},
		{225, false, "South West"},
		{350, true, "N"},
		{360, true, "N"},
		{-90, true, "W"},
		{-45, false, "North West"},
	}
	for _, tc := range cases {
		if got := CompassDirection(tc.deg, tc.abbrev); got != tc.want {
			t.Fatalf("CompassDirection(%v, %t) = %q want %q", tc.deg, tc.abbrev, got, tc.want)
		}
	}
}

func TestEnumStrings(t *testing.T) {
	if StatusString('A') != "Active" || StatusString('V') != "Void" || StatusString('x') != "Unknown" {
		t.Fatalf("unexpected status strings")
	}
	if TypeString(1) != "None" || TypeString(2) != "2D" || TypeString(3) != "3D" || TypeString(9) != "Unknown" {
		t.Fatalf("unexpected type strings")
	}
	for q, want := range []string{"Invalid", "Standard", "DGPS", "PPS fix", "Real Time Kinetic", "Real Time Kinetic (float)", "Estimate", "Unknown"} {
		if got := QualityString(q); got != want {
			t.Fatalf("QualityString(%d) = %q want %q", q, got, want)
		}
	}
}

func TestAlmanac_MissedFirstPage(t *testing.T) {
	var a Almanac
	a.VisibleSize = 1
	a.updateSatellite(Satellite{PRN: 1})
	a.updateSatellite(Satellite{PRN: 2})
	// Two satellites already exceed the announced one; the next starts over.
	a.updateSatellite(Satellite{PRN: 3})
	if len(a.Satellites) != 1 || a.Satellites[0].PRN != 3 {
		t.Fatalf("expected reset almanac, got %+v", a.Satellites)
	}
	if a.MinSNR() != 0 || a.MaxSNR() != 0 || a.AverageSNR() != 0 {
		t.Fatalf("untracked satellites have no SNR stats")
	}
	if (Almanac{}).PercentComplete() != 0 {
		t.Fatalf("empty almanac is 0%% complete")
	}
}
