package sim

import (
	"math"
	"time"
)

// Path is a deterministic figure-eight track around a center point with a
// slow altitude oscillation.
type Path struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltM         float64
	RadiusNm     float64
	Period       time.Duration
}

func (p Path) period() time.Duration {
	if p.Period <= 0 {
		return 120 * time.Second
	}
	return p.Period
}

// Position returns the point on the path at now and the instantaneous track.
func (p Path) Position(now time.Time) (latDeg, lonDeg, trackDeg float64) {
	period := p.period()
	radiusNm := p.RadiusNm
	if radiusNm <= 0 {
		radiusNm = 0.5
	}
	radiusDeg := radiusNm / 60.0

	// Lissajous figure-eight:
	//	x = cos(2πt)      east-west, scaled by cos(lat) for longitude
	//	y = 0.5*sin(4πt)  north-south
	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	latDeg = p.CenterLatDeg + radiusDeg*y
	lonDeg = p.CenterLonDeg + (radiusDeg*x)/math.Cos(p.CenterLatDeg*math.Pi/180.0)

	vx := -2 * math.Pi * math.Sin(w)
	vy := 2 * math.Pi * math.Cos(2*w)
	trackDeg = math.Mod(math.Atan2(vx, vy)*180/math.Pi+360, 360)
	return latDeg, lonDeg, trackDeg
}

// SpeedKnots is the ground speed along the path at now.
func (p Path) SpeedKnots(now time.Time) float64 {
	period := p.period()
	radiusNm := p.RadiusNm
	if radiusNm <= 0 {
		radiusNm = 0.5
	}
	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase
	// Derivative of the unit curve over one period, in radii.
	vx := -2 * math.Pi * math.Sin(w)
	vy := 2 * math.Pi * math.Cos(2*w)
	nmPerSec := math.Hypot(vx, vy) * radiusNm / period.Seconds()
	return nmPerSec * 3600
}

// Altitude oscillates ±150 m around AltM over half the horizontal period.
func (p Path) Altitude(now time.Time) float64 {
	base := p.AltM
	if base == 0 {
		base = 900
	}
	vp := p.period() / 2
	if vp < 30*time.Second {
		vp = 30 * time.Second
	}
	phase := float64(now.UnixNano()%vp.Nanoseconds()) / float64(vp.Nanoseconds())
	return base + 150*math.Sin(2*math.Pi*phase)
}
