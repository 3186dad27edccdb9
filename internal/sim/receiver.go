package sim

import (
	"fmt"
	"math"
	"strings"
	"time"

	"nmeaparse/internal/nmea"
)

// Receiver emits the NMEA output of a GPS receiver travelling along Path.
// Output is a pure function of the time passed to Sentences.
type Receiver struct {
	Path Path
	// Talker prefixes every sentence name. Empty means "GP".
	Talker string
	// Satellites in view. Zero means 8; at most 12 are reported.
	Satellites int
	HDOP       float64
	VDOP       float64
}

func (r Receiver) talker() string {
	if r.Talker == "" {
		return "GP"
	}
	return r.Talker
}

func (r Receiver) satellites() int {
	switch {
	case r.Satellites <= 0:
		return 8
	case r.Satellites > 12:
		return 12
	default:
		return r.Satellites
	}
}

func (r Receiver) dops() (pdop, hdop, vdop float64) {
	hdop, vdop = r.HDOP, r.VDOP
	if hdop <= 0 {
		hdop = 0.9
	}
	if vdop <= 0 {
		vdop = 1.3
	}
	return math.Round(math.Hypot(hdop, vdop)*10) / 10, hdop, vdop
}

// Sentences returns one epoch of output: GGA, GSA, the GSV page set, RMC and
// VTG, each terminated by "\r\n".
func (r Receiver) Sentences(now time.Time) []string {
	now = now.UTC()
	lat, lon, trk := r.Path.Position(now)
	latStr, ns := formatCoord(lat, 2, "N", "S")
	lonStr, ew := formatCoord(lon, 3, "E", "W")
	clock := fmt.Sprintf("%02d%02d%02d.%02d", now.Hour(), now.Minute(), now.Second(), now.Nanosecond()/1e7)
	date := fmt.Sprintf("%02d%02d%02d", now.Day(), int(now.Month()), now.Year()%100)
	knots := r.Path.SpeedKnots(now)
	sats := r.satellites()
	pdop, hdop, vdop := r.dops()

	out := make([]string, 0, 8)
	emit := func(typ, body string) {
		out = append(out, nmea.Encode(nmea.GenericCommand{Tag: r.talker() + typ, Message: body}))
	}

	emit("GGA", fmt.Sprintf("%s,%s,%s,%s,%s,1,%02d,%.1f,%.1f,M,0.0,M,,",
		clock, latStr, ns, lonStr, ew, sats, hdop, r.Path.Altitude(now)))

	prns := make([]string, 12)
	for i := 0; i < sats; i++ {
		prns[i] = fmt.Sprintf("%02d", prn(i))
	}
	emit("GSA", fmt.Sprintf("A,3,%s,%.1f,%.1f,%.1f", strings.Join(prns, ","), pdop, hdop, vdop))

	pages := (sats + 3) / 4
	for page := 1; page <= pages; page++ {
		var b strings.Builder
		fmt.Fprintf(&b, "%d,%d,%02d", pages, page, sats)
		for i := (page - 1) * 4; i < page*4 && i < sats; i++ {
			fmt.Fprintf(&b, ",%02d,%02d,%03d,%02d", prn(i), 15+(i*7)%70, (i*47)%360, 30+(i*5)%20)
		}
		emit("GSV", b.String())
	}

	emit("RMC", fmt.Sprintf("%s,A,%s,%s,%s,%s,%.1f,%.1f,%s,,",
		clock, latStr, ns, lonStr, ew, knots, trk, date))
	emit("VTG", fmt.Sprintf("%.1f,T,,M,%.1f,N,%.1f,K,A", trk, knots, knots*1.852))
	return out
}

func prn(i int) int {
	return i*3 + 1
}

// formatCoord renders decimal degrees as NMEA d..dmm.mmmm plus hemisphere.
func formatCoord(deg float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	whole := math.Floor(deg)
	mins := (deg - whole) * 60
	if mins >= 59.99995 {
		whole++
		mins = 0
	}
	return fmt.Sprintf("%0*d%07.4f", degDigits, int(whole), mins), hemi
}
