package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/quickpoll/quickpoll/internal/api"
	"github.com/quickpoll/quickpoll/internal/config"
	"github.com/quickpoll/quickpoll/internal/simulation"
)

func main() {
	cfg, err := config.Parse("quickpoll-simulator", os.Args[1:])
	if err != nil {
		logrus.Fatalf("failed to parse config: %v", err)
	}

	sim := simulation.New(api.NewClient(cfg.APIURL))

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := sim.Run(mainCtx); err != nil {
			logrus.Errorf("error while running simulator: %v", err)
			cancel()
		}
	}()

	logrus.Info("simulator is running. Press Ctrl+C to exit")
	select {
	case <-signalChan:
		logrus.Info("shutdown signal received, stopping the simulator...")
	case <-mainCtx.Done():
	}
	cancel()

	logrus.Info("simulator terminated")
}
