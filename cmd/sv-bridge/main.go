package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/capture"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/egress"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/gateway"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/metrics"
)

func main() {
	configPath := pflag.String("config", "config.toml", "path to the gateway TOML configuration file")
	ifaceOverride := pflag.String("interface", "", "override the configured capture interface")
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	metricsAddr := pflag.String("metrics-addr", "", "override the configured Prometheus listen address")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := gateway.LoadConfig(*configPath)
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}
	if *ifaceOverride != "" {
		cfg.Interface = *ifaceOverride
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	receiver, err := capture.NewAFPacketReceiver(cfg.Interface, cfg.MACAddress)
	if err != nil {
		logger.Error("capture init failed", "error", err)
		os.Exit(1)
	}
	defer receiver.Close()

	sender, err := egress.NewUDPSender()
	if err != nil {
		logger.Error("egress init failed", "error", err)
		os.Exit(1)
	}
	defer sender.Close()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		go serveMetrics(cfg.MetricsAddr, m, logger)
	}

	svc := gateway.NewService(cfg, receiver, sender, logger, m)
	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", "error", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
