package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/quickpoll/quickpoll/internal/config"
	"github.com/quickpoll/quickpoll/internal/event"
	"github.com/quickpoll/quickpoll/internal/metrics"
	"github.com/quickpoll/quickpoll/internal/pubsub"
	"github.com/quickpoll/quickpoll/internal/server"
	"github.com/quickpoll/quickpoll/internal/store"
)

func main() {
	cfg, err := config.Parse("quickpoll-server", os.Args[1:])
	if err != nil {
		logrus.Fatalf("failed to parse config: %v", err)
	}

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var engagement store.EngagementStore
	if cfg.RedisURL != "" {
		engagement, err = store.NewRedisEngagementStore(mainCtx, cfg.RedisURL)
		if err != nil {
			logrus.Fatalf("failed to connect to redis: %v", err)
		}
		logrus.Info("using redis engagement store")
	} else {
		engagement = store.NewMemoryEngagementStore()
		logrus.Info("using in-memory engagement store")
	}
	defer engagement.Close()

	var mirror server.EventMirror
	if len(cfg.KafkaBrokers) > 0 {
		kafkaMirror := event.NewKafkaMirror(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaMirror.Close()
		mirror = kafkaMirror
		logrus.Infof("mirroring events to kafka topic %q", cfg.KafkaTopic)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewServerMetrics(registry, "quickpoll")

	hub := pubsub.NewHub()
	go hub.Run(mainCtx)

	svc := server.New(engagement, hub, mirror, m)
	router := svc.Router()
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logrus.Infof("poll service listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("server error: %v", err)
			cancel()
		}
	}()

	select {
	case <-signalChan:
		logrus.Info("shutdown signal received, stopping the server...")
	case <-mainCtx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("shutdown error: %v", err)
	}
	cancel()

	logrus.Info("server terminated")
}
