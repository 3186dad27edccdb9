// Package web serves the status API for a running parser.
package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"nmeaparse/internal/metrics"
)

const (
	defaultTail = 200
	maxTail     = 5000
)

// Options wires the data sources behind each route. Nil sources disable
// their routes.
type Options struct {
	Status    StatusSource
	Sentences *SentenceLog
	Logs      *LogBuffer
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Collector
	Logger    zerolog.Logger
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func Handler(opts Options) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(opts.Logger))
	if opts.Metrics != nil {
		r.Use(requestMetrics(opts.Metrics))
	}

	started := time.Now().UTC()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	api.GET("/about", aboutHandler)

	if opts.Status != nil {
		api.GET("/status", func(c *gin.Context) {
			c.Header("Cache-Control", "no-store")
			c.JSON(http.StatusOK, newStatusResponse(opts.Status, started, time.Now().UTC()))
		})
		api.GET("/handlers", func(c *gin.Context) {
			csv := opts.Status.HandlersCSV()
			names := []string{}
			if csv != "" {
				names = strings.Split(csv, ",")
			}
			c.JSON(http.StatusOK, gin.H{"csv": csv, "names": names})
		})
	}

	if opts.Sentences != nil {
		api.GET("/sentences", func(c *gin.Context) {
			tail, ok := tailParam(c)
			if !ok {
				return
			}
			entries, total := opts.Sentences.Snapshot(tail)
			if textFormat(c) {
				lines := make([]string, len(entries))
				for i, e := range entries {
					lines[i] = e.Line
				}
				writeText(c, 0, lines)
				return
			}
			c.Header("Cache-Control", "no-store")
			c.JSON(http.StatusOK, SentencesResponse{
				NowUTC:    time.Now().UTC().Format(time.RFC3339Nano),
				Total:     total,
				Sentences: entries,
			})
		})
	}

	if opts.Logs != nil {
		api.GET("/logs", func(c *gin.Context) {
			tail, ok := tailParam(c)
			if !ok {
				return
			}
			lines, dropped := opts.Logs.Snapshot(tail)
			if textFormat(c) {
				writeText(c, dropped, lines)
				return
			}
			c.Header("Cache-Control", "no-store")
			c.JSON(http.StatusOK, LogsResponse{
				NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
				Dropped: dropped,
				Lines:   lines,
			})
		})
	}

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// tailParam reads ?tail=N, writing a 400 when it is out of range.
func tailParam(c *gin.Context) (int, bool) {
	s := strings.TrimSpace(c.Query("tail"))
	if s == "" {
		return defaultTail, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > maxTail {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tail must be an integer in [1,5000]"})
		return 0, false
	}
	return v, true
}

func textFormat(c *gin.Context) bool {
	return strings.EqualFold(c.Query("format"), "text")
}

func writeText(c *gin.Context, dropped uint64, lines []string) {
	var b strings.Builder
	if dropped > 0 {
		b.WriteString("[dropped=" + strconv.FormatUint(dropped, 10) + "]\n")
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	c.Header("Cache-Control", "no-store")
	c.String(http.StatusOK, b.String())
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", routePath(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("http_request")
	}
}

func requestMetrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, routePath(c), c.Writer.Status(), time.Since(start))
	}
}

// routePath prefers the matched route so unknown paths do not explode label
// cardinality.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

func Serve(ctx context.Context, listenAddr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
