package gps

import (
	"math"
	"time"
)

const (
	metersToFeet = 3.280839895013123
	kmhToKnots   = 1 / knotsToKmh

	// staleAfter marks a fix stale when no sentence updated it for this long.
	staleAfter = 3 * time.Second
)

// Snapshot is a JSON view of the service state for status surfaces.
type Snapshot struct {
	Enabled  bool `json:"enabled"`
	Valid    bool `json:"valid"`
	Locked   bool `json:"locked"`
	FixStale bool `json:"fix_stale"`

	Source string `json:"source,omitempty"`
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud,omitempty"`
	File   string `json:"file,omitempty"`

	LatDeg     float64  `json:"lat_deg,omitempty"`
	LonDeg     float64  `json:"lon_deg,omitempty"`
	AltFeet    *int     `json:"alt_feet,omitempty"`
	GroundKt   *int     `json:"ground_kt,omitempty"`
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"`
	TrackDeg   *float64 `json:"track_deg,omitempty"`
	Compass    string   `json:"compass,omitempty"`
	FixQuality *int     `json:"fix_quality,omitempty"`
	Quality    string   `json:"quality,omitempty"`
	FixMode    *int     `json:"fix_mode,omitempty"`
	Status     string   `json:"status,omitempty"`

	Satellites        *int     `json:"satellites,omitempty"`
	VisibleSatellites *int     `json:"visible_satellites,omitempty"`
	AvgSNR            *float64 `json:"avg_snr,omitempty"`
	AlmanacPercent    float64  `json:"almanac_percent,omitempty"`

	PDOP      *float64 `json:"pdop,omitempty"`
	HDOP      *float64 `json:"hdop,omitempty"`
	VDOP      *float64 `json:"vdop,omitempty"`
	HorizAccM *float64 `json:"horiz_acc_m,omitempty"`
	VertAccM  *float64 `json:"vert_acc_m,omitempty"`

	FixAgeSec     float64 `json:"fix_age_sec,omitempty"`
	LastFixUTC    string  `json:"last_fix_utc,omitempty"`
	LastUpdateUTC string  `json:"last_update_utc,omitempty"`
	LastError     string  `json:"last_error,omitempty"`

	PPSCount   uint64 `json:"pps_count,omitempty"`
	LastPPSUTC string `json:"last_pps_utc,omitempty"`

	lastUpdate time.Time
}

// applyFix rebuilds the fix fields from f. Only the source fields, the last
// error and the last fix time carry over from the previous snapshot, so a
// value the fix no longer supports disappears.
func (out *Snapshot) applyFix(f Fix, nowUTC time.Time) {
	*out = Snapshot{
		Enabled:    out.Enabled,
		Source:     out.Source,
		Device:     out.Device,
		Baud:       out.Baud,
		File:       out.File,
		LastFixUTC: out.LastFixUTC,
		LastError:  out.LastError,
	}
	out.Valid = f.HasEstimate()
	out.Locked = f.Locked()
	out.LatDeg = f.LatitudeDeg
	out.LonDeg = f.LongitudeDeg
	out.Status = StatusString(f.Status)
	out.Quality = QualityString(f.Quality)
	out.lastUpdate = nowUTC
	out.LastUpdateUTC = nowUTC.Format(time.RFC3339Nano)
	if f.Timestamp.RawTime != 0 || f.Timestamp.RawDate != 0 {
		out.LastFixUTC = f.Timestamp.Time().Format(time.RFC3339Nano)
	}

	q := f.Quality
	out.FixQuality = &q
	mode := f.Type
	out.FixMode = &mode
	tracking := f.TrackingSatellites
	out.Satellites = &tracking
	visible := f.VisibleSatellites
	out.VisibleSatellites = &visible
	out.AlmanacPercent = f.Almanac.PercentComplete()
	if snr := f.Almanac.AverageSNR(); snr > 0 {
		out.AvgSNR = &snr
	}

	if !out.Valid {
		return
	}
	alt := int(math.Round(f.AltitudeM * metersToFeet))
	out.AltFeet = &alt
	gs := int(math.Round(f.SpeedKmh * kmhToKnots))
	out.GroundKt = &gs
	kmh := f.SpeedKmh
	out.SpeedKmh = &kmh
	trk := math.Mod(f.TravelAngle+360, 360)
	out.TrackDeg = &trk
	out.Compass = CompassDirection(trk, true)

	if f.PDOP > 0 {
		v := f.PDOP
		out.PDOP = &v
	}
	if f.HDOP > 0 {
		v := f.HDOP
		out.HDOP = &v
		acc := f.HorizontalAccuracy()
		out.HorizAccM = &acc
	}
	if f.VDOP > 0 {
		v := f.VDOP
		out.VDOP = &v
		acc := f.VerticalAccuracy()
		out.VertAccM = &acc
	}
}

// age fills the fields that depend on the read time.
func (out *Snapshot) age(nowUTC time.Time) {
	if out.lastUpdate.IsZero() {
		return
	}
	d := nowUTC.Sub(out.lastUpdate)
	out.FixAgeSec = d.Seconds()
	out.FixStale = d > staleAfter
}
