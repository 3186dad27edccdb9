package web

import (
	"time"

	"nmeaparse/internal/gps"
	"nmeaparse/internal/nmea"
)

// StatusSource is satisfied by *gps.Service.
type StatusSource interface {
	Snapshot() gps.Snapshot
	Stats() nmea.Stats
	HandlersCSV() string
}

type StatusResponse struct {
	Service   string       `json:"service"`
	NowUTC    string       `json:"now_utc"`
	UptimeSec float64      `json:"uptime_sec"`
	GPS       gps.Snapshot `json:"gps"`
	Parser    nmea.Stats   `json:"parser"`
}

func newStatusResponse(src StatusSource, started, now time.Time) StatusResponse {
	return StatusResponse{
		Service:   serviceName,
		NowUTC:    now.Format(time.RFC3339Nano),
		UptimeSec: now.Sub(started).Seconds(),
		GPS:       src.Snapshot(),
		Parser:    src.Stats(),
	}
}
