package gps

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Satellite is one entry of a GSV page.
type Satellite struct {
	PRN       uint32
	SNR       float64 // dB, 0 when not tracked
	Elevation float64 // deg
	Azimuth   float64 // deg
}

func (s Satellite) String() string {
	return fmt.Sprintf("[PRN: %3d   SNR: %3.0f dB   Azimuth: %3.0f deg   Elevation: %3.0f deg]",
		s.PRN, s.SNR, s.Azimuth, s.Elevation)
}

// Almanac collects the satellites reported by a GSV page set.
type Almanac struct {
	Satellites []Satellite

	VisibleSize    int
	LastPage       int
	TotalPages     int
	ProcessedPages int
}

func (a *Almanac) clear() {
	*a = Almanac{}
}

func (a *Almanac) updateSatellite(sat Satellite) {
	// More satellites than announced means the first page of a new set was
	// missed; start over.
	if len(a.Satellites) > a.VisibleSize {
		a.clear()
	}
	a.Satellites = append(a.Satellites, sat)
}

func (a Almanac) clone() Almanac {
	if a.Satellites != nil {
		a.Satellites = append([]Satellite(nil), a.Satellites...)
	}
	return a
}

// PercentComplete is the share of GSV pages received for the current set.
func (a Almanac) PercentComplete() float64 {
	if a.TotalPages == 0 {
		return 0
	}
	return float64(a.ProcessedPages) / float64(a.TotalPages) * 100
}

// AverageSNR averages the satellites with a non-zero SNR.
func (a Almanac) AverageSNR() float64 {
	var sum float64
	n := 0
	for _, s := range a.Satellites {
		if s.SNR > 0 {
			sum += s.SNR
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (a Almanac) MinSNR() float64 {
	min := math.Inf(1)
	for _, s := range a.Satellites {
		if s.SNR > 0 && s.SNR < min {
			min = s.SNR
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

func (a Almanac) MaxSNR() float64 {
	var max float64
	for _, s := range a.Satellites {
		if s.SNR > max {
			max = s.SNR
		}
	}
	return max
}

// Timestamp is the receiver's UTC clock as reported in GGA and RMC.
type Timestamp struct {
	Hour  int
	Min   int
	Sec   float64
	Month int // 1-12
	Day   int
	Year  int

	RawTime float64 // hhmmss.sss
	RawDate int     // ddmmyy
}

// SetTime splits an hhmmss.sss value.
func (t *Timestamp) SetTime(raw float64) {
	t.RawTime = raw
	t.Hour = int(math.Trunc(raw / 10000))
	t.Min = int(math.Trunc((raw - float64(t.Hour)*10000) / 100))
	t.Sec = raw - float64(t.Min)*100 - float64(t.Hour)*10000
}

// SetDate splits a ddmmyy value. Zero means no date and maps to 1970-01-01.
func (t *Timestamp) SetDate(raw int) {
	t.RawDate = raw
	if raw == 0 {
		t.Day, t.Month, t.Year = 1, 1, 1970
		return
	}
	t.Day = raw / 10000
	t.Month = (raw - t.Day*10000) / 100
	yy := raw - t.Day*10000 - t.Month*100
	// Two-digit years pivot at 1980, the start of GPS time.
	if yy >= 80 {
		t.Year = 1900 + yy
	} else {
		t.Year = 2000 + yy
	}
}

// Time returns the timestamp as a UTC time. A timestamp that never saw a date
// counts from 1970-01-01.
func (t Timestamp) Time() time.Time {
	year, month, day := t.Year, t.Month, t.Day
	if year == 0 && month == 0 && day == 0 {
		year, month, day = 1970, 1, 1
	}
	whole, frac := math.Modf(t.Sec)
	return time.Date(year, time.Month(month), day, t.Hour, t.Min, int(whole),
		int(math.Round(frac*1e9)), time.UTC)
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%dh %dm %gs  %s %d %d", t.Hour, t.Min, t.Sec, monthName(t.Month), t.Day, t.Year)
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return fmt.Sprintf("[month:%d]", m)
	}
	return time.Month(m).String()
}

// Fix status values from RMC.
const (
	StatusActive byte = 'A'
	StatusVoid   byte = 'V'
)

// Fix type values from GSA.
const (
	TypeNone = 1
	Type2D   = 2
	Type3D   = 3
)

// Fix is the aggregated receiver state. Each decoded sentence overwrites the
// fields it carries; nothing is cleared between sentences.
type Fix struct {
	Status  byte // 'A' active, 'V' void
	Type    int  // 1 none, 2 2D, 3 3D
	Quality int  // 0 invalid ... 6 estimate

	PDOP float64
	HDOP float64
	VDOP float64

	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeM    float64
	SpeedKmh     float64
	TravelAngle  float64 // deg

	TrackingSatellites int
	VisibleSatellites  int

	Almanac   Almanac
	Timestamp Timestamp

	locked bool
}

func newFix() Fix {
	f := Fix{Status: StatusVoid, Type: TypeNone}
	f.Timestamp.SetDate(0)
	return f
}

// Locked reports whether the receiver currently has a position lock.
func (f Fix) Locked() bool {
	return f.locked
}

// setLock updates the lock flag and reports whether it changed.
func (f *Fix) setLock(on bool) bool {
	if f.locked == on {
		return false
	}
	f.locked = on
	return true
}

// HorizontalAccuracy is the 95% horizontal error in meters.
func (f Fix) HorizontalAccuracy() float64 {
	return 4.0 * f.HDOP
}

// VerticalAccuracy is the 95% vertical error in meters.
func (f Fix) VerticalAccuracy() float64 {
	return 6.0 * f.VDOP
}

// HasEstimate reports whether the fix carries any position, measured or
// dead-reckoned.
func (f Fix) HasEstimate() bool {
	return (f.LatitudeDeg != 0 && f.LongitudeDeg != 0) || f.Quality == 6
}

// TimeSinceLastUpdate is the age of the receiver timestamp relative to now.
func (f Fix) TimeSinceLastUpdate(now time.Time) time.Duration {
	return now.Sub(f.Timestamp.Time()).Truncate(time.Second)
}

func (f Fix) clone() Fix {
	f.Almanac = f.Almanac.clone()
	return f
}

func (f Fix) String() string {
	var b strings.Builder
	status := "SEARCHING..."
	if f.locked {
		status = "LOCK!"
	}
	fmt.Fprintf(&b, "========================== GPS FIX ================================\n")
	fmt.Fprintf(&b, " Status:             %s\n", status)
	fmt.Fprintf(&b, " Satellites:         %d (tracking) of %d (visible)\n", f.TrackingSatellites, f.VisibleSatellites)
	fmt.Fprintf(&b, " < Fix Details >\n")
	fmt.Fprintf(&b, "   Timestamp:          %s UTC (raw: %g time, %d date)\n", f.Timestamp, f.Timestamp.RawTime, f.Timestamp.RawDate)
	fmt.Fprintf(&b, "   Raw Status:         %c  (%s)\n", f.Status, StatusString(f.Status))
	fmt.Fprintf(&b, "   Type:               %d  (%s)\n", f.Type, TypeString(f.Type))
	fmt.Fprintf(&b, "   Quality:            %d  (%s)\n", f.Quality, QualityString(f.Quality))
	fmt.Fprintf(&b, "   Lat/Lon (N,E):      %.6f' N, %.6f' E\n", f.LatitudeDeg, f.LongitudeDeg)
	fmt.Fprintf(&b, "   DOP (P,H,V):        %g,   %g,   %g\n", f.PDOP, f.HDOP, f.VDOP)
	fmt.Fprintf(&b, "   Accuracy(H,V):      %g m,   %g m\n", f.HorizontalAccuracy(), f.VerticalAccuracy())
	fmt.Fprintf(&b, "   Altitude:           %g m\n", f.AltitudeM)
	fmt.Fprintf(&b, "   Speed:              %g km/h\n", f.SpeedKmh)
	fmt.Fprintf(&b, "   Travel Dir:         %g deg  [%s]\n", f.TravelAngle, CompassDirection(f.TravelAngle, false))
	fmt.Fprintf(&b, "   SNR:                avg: %g dB   [min: %g dB,  max: %g dB]\n",
		f.Almanac.AverageSNR(), f.Almanac.MinSNR(), f.Almanac.MaxSNR())
	fmt.Fprintf(&b, " < Almanac (%g%%) >\n", f.Almanac.PercentComplete())
	if len(f.Almanac.Satellites) == 0 {
		fmt.Fprintf(&b, " > No satellite info in almanac.\n")
	}
	for i, s := range f.Almanac.Satellites {
		fmt.Fprintf(&b, "   [%2d]   %s\n", i+1, s)
	}
	return b.String()
}

var (
	compassAbbrev = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	compassLong   = [...]string{"North", "North East", "East", "South East", "South", "South West", "West", "North West"}
)

// CompassDirection names the eighth of the compass a heading falls in.
func CompassDirection(deg float64, abbrev bool) string {
	r := int(math.Round(deg/360*8)) % 8
	if r < 0 {
		r += 8
	}
	if abbrev {
		return compassAbbrev[r]
	}
	return compassLong[r]
}

func StatusString(status byte) string {
	switch status {
	case StatusActive:
		return "Active"
	case StatusVoid:
		return "Void"
	default:
		return "Unknown"
	}
}

func TypeString(t int) string {
	switch t {
	case TypeNone:
		return "None"
	case Type2D:
		return "2D"
	case Type3D:
		return "3D"
	default:
		return "Unknown"
	}
}

func QualityString(q int) string {
	switch q {
	case 0:
		return "Invalid"
	case 1:
		return "Standard"
	case 2:
		return "DGPS"
	case 3:
		return "PPS fix"
	case 4:
		return "Real Time Kinetic"
	case 5:
		return "Real Time Kinetic (float)"
	case 6:
		return "Estimate"
	default:
		return "Unknown"
	}
}
