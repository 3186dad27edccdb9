package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nmeaparse/internal/config"
	"nmeaparse/internal/web"
)

func loadConfig(t *testing.T, body string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return cfg
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(b)
}

func TestApp_SimEndToEnd(t *testing.T) {
	cfg := loadConfig(t, `
gps:
  enable: true
  source: sim
sim:
  interval: 20ms
  center_lat_deg: 45.5
  center_lon_deg: -122.9
web:
  enable: true
metrics:
  enable: true
`)
	logs := web.NewLogBuffer(100)
	a, err := newApp(cfg, zerolog.New(logs), logs)
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.gpsSvc.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer a.gpsSvc.Close()

	ts := httptest.NewServer(a.handler)
	defer ts.Close()

	deadline := time.Now().Add(3 * time.Second)
	var status web.StatusResponse
	for {
		if err := json.Unmarshal([]byte(getBody(t, ts.URL+"/api/status")), &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.GPS.Locked && status.GPS.PDOP != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no lock from simulator: %+v", status.GPS)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status.GPS.Source != "sim" || status.Parser.Sentences == 0 || status.Parser.Invalid != 0 {
		t.Fatalf("unexpected status %+v", status)
	}

	if got := getBody(t, ts.URL+"/api/sentences?tail=1&format=text"); !strings.HasPrefix(got, "$GP") {
		t.Fatalf("sentences=%q", got)
	}
	if got := getBody(t, ts.URL+"/metrics"); !strings.Contains(got, "nmeaparse_gps_locked 1") ||
		!strings.Contains(got, `nmeaparse_parser_sentences_by_name_total{name="GPGGA"}`) {
		t.Fatalf("metrics output:\n%s", got)
	}
	if got := getBody(t, ts.URL+"/api/logs?format=text"); !strings.Contains(got, "gps lock acquired") {
		t.Fatalf("logs=%q", got)
	}
}

func TestApp_RunWithoutWeb(t *testing.T) {
	cfg := loadConfig(t, "gps:\n  enable: false\n")
	a, err := newApp(cfg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	if a.handler != nil {
		t.Fatalf("web handler built while web is disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestApp_RunFailsOnBadSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.nmea")
	cfg := loadConfig(t, "gps:\n  enable: true\n  source: file\n  file: "+path+"\n")
	a, err := newApp(cfg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	if err := a.run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
