package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"nmeaparse/internal/config"
	"nmeaparse/internal/gps"
	"nmeaparse/internal/metrics"
	"nmeaparse/internal/pps"
	"nmeaparse/internal/web"
)

type app struct {
	cfg     config.Config
	log     zerolog.Logger
	gpsSvc  *gps.Service
	ppsSvc  *pps.Watcher
	handler http.Handler
}

// newApp builds every component and registers all parser handlers. The
// parser is not fed until run starts the GPS service.
func newApp(cfg config.Config, logger zerolog.Logger, logs *web.LogBuffer) (*app, error) {
	rt := &app{cfg: cfg, log: logger}

	rt.gpsSvc = gps.New(cfg.GPSService(), logger.With().Str("component", "gps").Logger())
	rt.gpsSvc.Tracker().OnLockStateChanged.Subscribe(func(locked bool) error {
		if locked {
			logger.Info().Msg("gps lock acquired")
		} else {
			logger.Warn().Msg("gps lock lost")
		}
		return nil
	})

	rt.ppsSvc = pps.New(cfg.PPSWatcher(), logger.With().Str("component", "pps").Logger())
	rt.gpsSvc.SetPulseSource(rt.ppsSvc)

	if !cfg.Web.Enable {
		return rt, nil
	}
	sentences := web.NewSentenceLog(cfg.Web.SentenceTail, cfg.Parser.MaxBufferSize)
	sentences.Attach(rt.gpsSvc.Parser())
	opts := web.Options{
		Status:    rt.gpsSvc,
		Sentences: sentences,
		Logs:      logs,
		Logger:    logger.With().Str("component", "web").Logger(),
	}
	if cfg.Metrics.Enable {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := metrics.New(reg, rt.gpsSvc.Stats)
		if err != nil {
			return nil, err
		}
		m.AttachParser(rt.gpsSvc.Parser())
		m.AttachTracker(rt.gpsSvc.Tracker())
		opts.Gatherer = reg
		opts.Metrics = m
	}
	rt.handler = web.Handler(opts)
	return rt, nil
}

// run blocks until ctx is done or the web server fails.
func (rt *app) run(ctx context.Context) error {
	if err := rt.ppsSvc.Start(ctx); err != nil {
		rt.log.Warn().Err(err).Msg("pps unavailable")
	}
	defer rt.ppsSvc.Close()

	if err := rt.gpsSvc.Start(ctx); err != nil {
		return err
	}
	defer rt.gpsSvc.Close()
	if !rt.cfg.GPS.Enable {
		rt.log.Warn().Msg("gps disabled")
	}

	if rt.handler == nil {
		<-ctx.Done()
		return nil
	}
	rt.log.Info().Str("listen", rt.cfg.Web.Listen).Msg("web enabled")
	err := web.Serve(ctx, rt.cfg.Web.Listen, rt.handler)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
