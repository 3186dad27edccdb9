// Package metrics exports parser and fix state to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nmeaparse/internal/gps"
	"nmeaparse/internal/nmea"
)

const namespace = "nmeaparse"

// Collector owns the instance metrics. Counters over parser statistics are
// read lazily at scrape time; the rest are driven by parser and tracker
// events.
type Collector struct {
	sentences    *prometheus.CounterVec
	locked       prometheus.Gauge
	lockChanges  prometheus.Counter
	satellites   prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collector on reg. stats is polled on every scrape.
func New(reg prometheus.Registerer, stats func() nmea.Stats) (*Collector, error) {
	c := &Collector{
		sentences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parser",
				Name:      "sentences_by_name_total",
				Help:      "Valid sentences dispatched, by sentence name.",
			},
			[]string{"name"},
		),
		locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gps",
			Name:      "locked",
			Help:      "1 while the receiver reports a position lock.",
		}),
		lockChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gps",
			Name:      "lock_changes_total",
			Help:      "Lock state transitions.",
		}),
		satellites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gps",
			Name:      "satellites_tracking",
			Help:      "Satellites used in the current fix.",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	cs := []prometheus.Collector{
		c.sentences, c.locked, c.lockChanges, c.satellites, c.httpRequests, c.httpDuration,
	}
	cs = append(cs, statsCounters(stats)...)
	for _, m := range cs {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func statsCounters(stats func() nmea.Stats) []prometheus.Collector {
	counter := func(name, help string, v func(nmea.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v(stats())) })
	}
	return []prometheus.Collector{
		counter("frames_total", "Frames completed by the framer.", func(s nmea.Stats) uint64 { return s.Frames }),
		counter("overflows_total", "Frames discarded for exceeding the buffer size.", func(s nmea.Stats) uint64 { return s.Overflows }),
		counter("sentences_total", "Valid sentences dispatched.", func(s nmea.Stats) uint64 { return s.Sentences }),
		counter("invalid_total", "Sentences rejected as invalid.", func(s nmea.Stats) uint64 { return s.Invalid }),
		counter("errors_total", "Sentences rejected with a parse error.", func(s nmea.Stats) uint64 { return s.Errors }),
		counter("checksum_failures_total", "Valid sentences whose checksum did not match.", func(s nmea.Stats) uint64 { return s.ChecksumFailures }),
	}
}

// AttachParser counts every valid sentence by name. It returns the wildcard
// handler id so callers can detach it.
func (c *Collector) AttachParser(p *nmea.Parser) nmea.HandlerID {
	return p.RegisterAny(func(s nmea.Sentence) error {
		c.sentences.WithLabelValues(s.Name).Inc()
		return nil
	})
}

// AttachTracker follows lock transitions and the satellite count.
func (c *Collector) AttachTracker(t *gps.Tracker) {
	t.OnLockStateChanged.Subscribe(func(locked bool) error {
		c.lockChanges.Inc()
		if locked {
			c.locked.Set(1)
		} else {
			c.locked.Set(0)
		}
		return nil
	})
	t.OnUpdate.Subscribe(func(f gps.Fix) error {
		c.satellites.Set(float64(f.TrackingSatellites))
		return nil
	})
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, path string, status int, d time.Duration) {
	statusLabel := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	c.httpDuration.WithLabelValues(method, path, statusLabel).Observe(d.Seconds())
}
