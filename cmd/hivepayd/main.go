package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hivepay/hivepay"
	"github.com/hivepay/hivepay/clients"
	"github.com/hivepay/hivepay/config"
	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/server"
	"github.com/hivepay/hivepay/settlement"
)

func main() {
	configPath := flag.String("config", "", "path to gateway config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zlog := logger.NewZapLogger(cfg.LogLevel)
	rec := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)

	var store settlement.Store
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		pg, err := settlement.NewPostgresStore(context.Background(), dsn)
		if err != nil {
			log.Fatalf("postgres store error: %v", err)
		}
		defer pg.Close()
		store = pg
	} else {
		store = settlement.NewMemoryStore()
	}

	gwCfg := cfg.Gateway()
	opts := []hivepay.Option{
		hivepay.WithLogger(zlog),
		hivepay.WithMetrics(rec),
	}
	if cfg.Chain.Provider == "explorer" && cfg.Chain.Explorer != "" {
		opts = append(opts, hivepay.WithChainClient(
			clients.NewExplorerClient(cfg.Chain.Explorer, gwCfg.RequestTimeout, zlog, rec)))
	}

	gateway, err := hivepay.New(gwCfg, store, opts...)
	if err != nil {
		log.Fatalf("gateway error: %v", err)
	}

	srv := server.New(cfg.HTTP.Port, gateway, zlog)

	go func() {
		if err := srv.Start(); err != nil {
			zlog.Warn("server stopped", map[string]any{"error": err.Error()})
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
