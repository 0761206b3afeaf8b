package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/pathproxy/config"
	"github.com/angeloszaimis/pathproxy/internal/metrics"
	"github.com/angeloszaimis/pathproxy/internal/proxy"
	"github.com/angeloszaimis/pathproxy/internal/routetable"
	"github.com/angeloszaimis/pathproxy/internal/tcpserver"
	"github.com/angeloszaimis/pathproxy/pkg/logger"
)

func main() {
	flags := newFlagSet()
	_ = flags.Parse(os.Args[1:])

	// Positional LISTEN_ADDRESS and DEFAULT_BACKEND outrank the config file.
	if flags.NArg() >= 1 {
		viper.Set("server.address", flags.Arg(0))
	}
	if flags.NArg() >= 2 {
		viper.Set("proxy.default_backend", flags.Arg(1))
	}

	cfg, err := config.Load(flags)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table, err := buildRouteTable(cfg)
	if err != nil {
		log.Error("Failed to build route table", slog.Any("err", err))
		os.Exit(1)
	}

	logStartup(log, cfg, table)

	collector := metrics.NewCollector(cfg.Metrics.EventBuffer, log)
	collector.Start(ctx)

	if cfg.Metrics.Address != "" {
		go serveMetrics(log, cfg.Metrics.Address, collector)
	}

	handler := proxy.NewHandler(
		log,
		table,
		cfg.Proxy.Rewrite,
		cfg.Limits.MaxHeaderBytes,
		cfg.HeaderReadTimeout(),
		cfg.DialTimeout(),
		collector,
	)

	srv, err := tcpserver.New(cfg.Server.Address, handler, log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running proxy", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("pathproxy", pflag.ExitOnError)
	flags.StringArrayP("route", "r", nil,
		"path-based route in the format /path=ip:port (repeatable)")
	flags.Bool("rewrite", false,
		"strip the matched route prefix from forwarded requests")
	flags.String("log-level", config.LogLevelInfo,
		"log level: debug, info, warn or error")
	flags.String("metrics-address", "",
		"optional host:port serving a JSON metrics snapshot on /metrics")
	return flags
}

func buildRouteTable(cfg *config.Config) (*routetable.Table, error) {
	routes, err := cfg.RouteMap()
	if err != nil {
		return nil, err
	}

	return routetable.New(cfg.Proxy.DefaultBackend, routes)
}

func logStartup(log *slog.Logger, cfg *config.Config, table *routetable.Table) {
	log.Info("Reverse proxy starting",
		slog.String("listen", cfg.Server.Address),
		slog.String("default_backend", table.DefaultBackend()),
		slog.Bool("rewrite", cfg.Proxy.Rewrite))

	for path, backend := range table.Routes() {
		log.Info("Route configured",
			slog.String("path", path),
			slog.String("backend", backend))
	}
}

func serveMetrics(log *slog.Logger, addr string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", collector.Handler())

	log.Info("Metrics endpoint listening", slog.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Metrics server stopped", slog.Any("err", err))
	}
}
