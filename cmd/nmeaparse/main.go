package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"nmeaparse/internal/config"
	"nmeaparse/internal/gps"
	"nmeaparse/internal/logging"
	"nmeaparse/internal/web"
)

func main() {
	var (
		configPath  string
		summaryPath string
		listPorts   bool
	)
	flag.StringVar(&configPath, "config", "./nmeaparse.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "log-summary", "", "Print a summary of an NMEA replay log and exit")
	flag.BoolVar(&listPorts, "list-ports", false, "List serial ports and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printLogSummary(os.Stdout, summaryPath); err != nil {
			fmt.Fprintf(os.Stderr, "log summary failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if listPorts {
		ports, err := gps.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list ports failed: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logs := web.NewLogBuffer(cfg.Web.LogTail)
	logger, err := logging.New("nmeaparse", cfg.Log, io.MultiWriter(os.Stdout, logs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newApp(cfg, logger, logs)
	if err != nil {
		logger.Fatal().Err(err).Msg("app init failed")
	}

	logger.Info().Str("config", configPath).Msg("nmeaparse starting")
	if err := rt.run(ctx); err != nil {
		logger.Error().Err(err).Msg("nmeaparse stopped")
		os.Exit(1)
	}
	logger.Info().Msg("nmeaparse stopping")
}
