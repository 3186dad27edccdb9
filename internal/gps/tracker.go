package gps

import (
	"fmt"
	"math"
	"strings"

	gonmea "github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"

	"nmeaparse/internal/nmea"
)

const knotsToKmh = 1.852

// Tracker aggregates GPS sentences from a parser into a Fix. It registers
// its own named handlers and is driven entirely by the parser, so it shares
// the parser's goroutine and is not safe for concurrent use.
type Tracker struct {
	fix Fix
	log zerolog.Logger

	// OnLockStateChanged fires with the new lock state whenever it flips.
	OnLockStateChanged *nmea.Event[bool]
	// OnUpdate fires with a copy of the fix after every decoded sentence.
	OnUpdate *nmea.Event[Fix]
}

// NewTracker returns a Tracker attached to p.
func NewTracker(p *nmea.Parser, log zerolog.Logger) *Tracker {
	t := &Tracker{
		fix:                newFix(),
		log:                log,
		OnLockStateChanged: nmea.NewEvent[bool](),
		OnUpdate:           nmea.NewEvent[Fix](),
	}
	if p != nil {
		t.Attach(p)
	}
	return t
}

// Attach registers the tracker's handlers on p, replacing any handlers
// already registered under the same names.
func (t *Tracker) Attach(p *nmea.Parser) {
	for _, talker := range []string{"GP", "GN"} {
		p.SetSentenceHandler(talker+"GGA", t.decoder(14, t.readGGA))
		p.SetSentenceHandler(talker+"GSA", t.decoder(17, t.readGSA))
		p.SetSentenceHandler(talker+"GSV", t.decoder(3, t.readGSV))
		p.SetSentenceHandler(talker+"RMC", t.decoder(11, t.readRMC))
		p.SetSentenceHandler(talker+"VTG", t.decoder(8, t.readVTG))
		p.SetSentenceHandler(talker+"GLL", t.decoder(6, t.readGLL))
		p.SetSentenceHandler(talker+"ZDA", t.decoder(6, t.readZDA))
	}
	p.SetSentenceHandler("PSRF150", t.readPSRF150)
}

// Fix returns a copy of the current fix.
func (t *Tracker) Fix() Fix {
	return t.fix.clone()
}

// readFunc decodes s into the fix and reports whether the lock flag changed.
// It must not touch the fix before every field has been converted.
type readFunc func(s nmea.Sentence) (lockChanged bool, err error)

func (t *Tracker) decoder(minParams int, read readFunc) nmea.SentenceHandler {
	return func(s nmea.Sentence) error {
		if !s.ChecksumOK() {
			return nmea.NewParseError(nmea.ErrChecksumMismatch, s, "Checksum is invalid!")
		}
		if len(s.Params) < minParams {
			return nmea.NewParseError(nmea.ErrMissingParams, s,
				fmt.Sprintf("GPS data is missing parameters [$%s]: got %d, want %d", s.Name, len(s.Params), minParams))
		}
		lockChanged, err := read(s)
		if err != nil {
			return nmea.NewParseError(err, s, fmt.Sprintf("GPS number bad format [$%s]: %v", s.Name, err))
		}
		if lockChanged {
			t.log.Info().Bool("locked", t.fix.locked).Str("sentence", s.Name).Msg("gps lock changed")
			if err := t.OnLockStateChanged.Emit(t.fix.locked); err != nil {
				return err
			}
		}
		return t.OnUpdate.Emit(t.fix.clone())
	}
}

// fields converts sentence parameters, keeping the first error.
type fields struct {
	p   []string
	err error
}

func (f *fields) float(i int) float64 {
	v, err := nmea.ParseFloat(f.p[i])
	if err != nil && f.err == nil {
		f.err = err
	}
	return v
}

func (f *fields) int(i int) int {
	v, err := nmea.ParseInt(f.p[i], 10)
	if err != nil && f.err == nil {
		f.err = err
	}
	return int(v)
}

// latLon converts the ddmm.mmmm / hemisphere pair starting at i. ok is false
// when the value field is empty.
func (f *fields) latLon(i int) (deg float64, ok bool) {
	if f.p[i] == "" {
		return 0, false
	}
	v, err := parseLatLon(f.p[i], f.p[i+1])
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		return 0, false
	}
	return v, true
}

// parseLatLon converts NMEA ddmm.mmmm (or dddmm.mmmm) plus hemisphere to
// signed decimal degrees.
func parseLatLon(v, hemi string) (float64, error) {
	pd, err := nmea.ParseFloat(v)
	if err != nil {
		return 0, err
	}
	deg := math.Trunc(pd / 100)
	deg += (pd - deg*100) / 60
	switch strings.ToUpper(hemi) {
	case "N", "E", "":
		return deg, nil
	case "S", "W":
		return -deg, nil
	default:
		return 0, fmt.Errorf("gps: invalid coordinate direction %q", hemi)
	}
}

// GGA: 0 time, 1-2 lat, 3-4 lon, 5 quality, 6 satellites, 7 HDOP,
// 8 altitude (m).
func (t *Tracker) readGGA(s nmea.Sentence) (bool, error) {
	f := fields{p: s.Params}
	ts := f.float(0)
	lat, latOK := f.latLon(1)
	lon, lonOK := f.latLon(3)
	quality := f.int(5)
	tracking := f.int(6)
	hdop := f.float(7)
	alt := f.float(8)
	if f.err != nil {
		return false, f.err
	}

	fx := &t.fix
	if s.Params[0] != "" {
		fx.Timestamp.SetTime(ts)
	}
	if latOK {
		fx.LatitudeDeg = lat
	}
	if lonOK {
		fx.LongitudeDeg = lon
	}
	fx.Quality = quality
	fx.TrackingSatellites = tracking
	// The visible count comes from GSV; it is at least what is tracked.
	if fx.VisibleSatellites < tracking {
		fx.VisibleSatellites = tracking
	}
	if s.Params[7] != "" {
		fx.HDOP = hdop
	}
	if s.Params[8] != "" {
		fx.AltitudeM = alt
	}
	return fx.setLock(quality != 0), nil
}

// GSA: 0 mode, 1 fix type, 2-13 PRNs, 14 PDOP, 15 HDOP, 16 VDOP.
func (t *Tracker) readGSA(s nmea.Sentence) (bool, error) {
	f := fields{p: s.Params}
	typ := f.int(1)
	pdop := f.float(14)
	hdop := f.float(15)
	vdop := f.float(16)
	if f.err != nil {
		return false, f.err
	}

	fx := &t.fix
	if s.Params[1] != "" && typ == TypeNone {
		// Without a fix the dilution values no longer describe anything.
		fx.PDOP, fx.HDOP, fx.VDOP = 0, 0, 0
	} else {
		if s.Params[14] != "" {
			fx.PDOP = pdop
		}
		if s.Params[15] != "" {
			fx.HDOP = hdop
		}
		if s.Params[16] != "" {
			fx.VDOP = vdop
		}
	}
	if s.Params[1] == "" {
		return false, nil
	}
	fx.Type = typ
	return fx.setLock(typ != TypeNone), nil
}

// GSV: 0 total pages, 1 page, 2 visible satellites, then up to four groups of
// PRN, elevation, azimuth, SNR.
func (t *Tracker) readGSV(s nmea.Sentence) (bool, error) {
	f := fields{p: s.Params}
	pages := f.int(0)
	page := f.int(1)
	visible := f.int(2)
	var sats []Satellite
	for i := 0; i < 4; i++ {
		base := 3 + i*4
		if len(s.Params) < base+4 {
			break
		}
		sats = append(sats, Satellite{
			PRN:       uint32(f.int(base)),
			Elevation: f.float(base + 1),
			Azimuth:   f.float(base + 2),
			SNR:       f.float(base + 3),
		})
	}
	if f.err != nil {
		return false, f.err
	}

	fx := &t.fix
	if page == 1 {
		fx.Almanac.clear()
	}
	fx.Almanac.VisibleSize = visible
	fx.Almanac.LastPage = page
	fx.Almanac.TotalPages = pages
	fx.Almanac.ProcessedPages++
	for _, sat := range sats {
		fx.Almanac.updateSatellite(sat)
	}
	fx.VisibleSatellites = visible
	return false, nil
}

// RMC: 0 time, 1 status, 2-3 lat, 4-5 lon, 6 speed (knots), 7 course,
// 8 date (ddmmyy).
func (t *Tracker) readRMC(s nmea.Sentence) (bool, error) {
	f := fields{p: s.Params}
	ts := f.float(0)
	lat, latOK := f.latLon(2)
	lon, lonOK := f.latLon(4)
	knots := f.float(6)
	course := f.float(7)
	date := f.int(8)
	if f.err != nil {
		return false, f.err
	}

	fx := &t.fix
	if s.Params[0] != "" {
		fx.Timestamp.SetTime(ts)
	}
	if latOK {
		fx.LatitudeDeg = lat
	}
	if lonOK {
		fx.LongitudeDeg = lon
	}
	if s.Params[6] != "" {
		fx.SpeedKmh = knots * knotsToKmh
	}
	if s.Params[7] != "" {
		fx.TravelAngle = course
	}
	if s.Params[8] != "" {
		fx.Timestamp.SetDate(date)
	}

	switch s.Params[1] {
	case "A":
		fx.Status = StatusActive
		return fx.setLock(true), nil
	case "V":
		fx.Status = StatusVoid
		return fx.setLock(false), nil
	}
	return false, nil
}

// VTG: 0 true course, 2 magnetic course, 4 speed (knots), 6 speed (km/h).
func (t *Tracker) readVTG(s nmea.Sentence) (bool, error) {
	f := fields{p: s.Params}
	course := f.float(0)
	kmh := f.float(6)
	if f.err != nil {
		return false, f.err
	}

	fx := &t.fix
	if s.Params[0] != "" {
		fx.TravelAngle = course
	}
	if s.Params[6] != "" {
		fx.SpeedKmh = kmh
	}
	return false, nil
}

func (t *Tracker) readGLL(s nmea.Sentence) (bool, error) {
	parsed, err := gonmea.Parse(s.String())
	if err != nil {
		return false, err
	}
	gll, ok := parsed.(gonmea.GLL)
	if !ok {
		return false, fmt.Errorf("gps: unexpected sentence type %T", parsed)
	}

	fx := &t.fix
	if gll.Time.Valid {
		fx.Timestamp.SetTime(clockValue(gll.Time))
	}
	if gll.Validity == gonmea.ValidGLL {
		fx.LatitudeDeg = gll.Latitude
		fx.LongitudeDeg = gll.Longitude
	}
	return false, nil
}

func (t *Tracker) readZDA(s nmea.Sentence) (bool, error) {
	parsed, err := gonmea.Parse(s.String())
	if err != nil {
		return false, err
	}
	zda, ok := parsed.(gonmea.ZDA)
	if !ok {
		return false, fmt.Errorf("gps: unexpected sentence type %T", parsed)
	}

	fx := &t.fix
	if zda.Time.Valid {
		fx.Timestamp.SetTime(clockValue(zda.Time))
	}
	if zda.Day > 0 && zda.Month > 0 {
		fx.Timestamp.SetDate(int(zda.Day*10000 + zda.Month*100 + zda.Year%100))
	}
	return false, nil
}

func clockValue(tm gonmea.Time) float64 {
	return float64(tm.Hour*10000+tm.Minute*100+tm.Second) + float64(tm.Millisecond)/1000
}

// readPSRF150 logs the SiRF "ok to send" flag; it does not touch the fix.
func (t *Tracker) readPSRF150(s nmea.Sentence) error {
	if !s.ChecksumOK() {
		return nmea.NewParseError(nmea.ErrChecksumMismatch, s, "Checksum is invalid!")
	}
	ready, _ := s.Param(0)
	t.log.Info().Bool("ok_to_send", ready == "1").Msg("gps receiver readiness")
	return nil
}
