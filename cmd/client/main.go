package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/quickpoll/quickpoll/internal/api"
	"github.com/quickpoll/quickpoll/internal/config"
	"github.com/quickpoll/quickpoll/internal/engine"
	"github.com/quickpoll/quickpoll/internal/event"
	"github.com/quickpoll/quickpoll/internal/metrics"
	"github.com/quickpoll/quickpoll/internal/notify"
	"github.com/quickpoll/quickpoll/internal/session"
	"github.com/quickpoll/quickpoll/internal/store"
	"github.com/quickpoll/quickpoll/internal/view"
)

func main() {
	cfg, err := config.Parse("quickpoll-client", os.Args[1:])
	if err != nil {
		logrus.Fatalf("failed to parse config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		logrus.Info("shutting client down...")
		cancel()
	}()

	client := api.NewClient(cfg.APIURL)
	notifier := notify.New()
	notifier.OnShow(func(msg string) {
		fmt.Printf(">> %s\n", msg)
	})

	var dial event.Dialer
	if cfg.UseKafkaFeed {
		dial = event.KafkaDialer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		logrus.Infof("consuming events from kafka topic %q", cfg.KafkaTopic)
	} else {
		dial = event.WebsocketDialer(cfg.WebsocketURL())
	}

	eng := engine.New(
		client,
		store.NewPollStore(),
		session.NewGuards(),
		notifier,
		metrics.NewEngineMetrics(prometheus.NewRegistry(), "quickpoll"),
		dial,
		engine.DefaultOptions(),
	)
	eng.SetTab(view.Tab(cfg.Tab))
	eng.OnChange(func() { render(eng) })

	if err := eng.Bootstrap(ctx); err != nil {
		logrus.Warnf("bootstrap failed: %v", err)
	}

	if eng.Tab() == view.TabSports {
		updates, err := eng.SportsUpdates(ctx)
		if err != nil {
			logrus.Warnf("failed to load sports updates: %v", err)
		}
		for _, u := range updates {
			fmt.Printf("  [%s] %s vs %s (%s)\n", u.Status, u.Away, u.Home, u.Date)
		}
	}

	logrus.Info("listening for poll updates...")
	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logrus.Errorf("sync loop error: %v", err)
	}

	logrus.Info("client terminated")
}

func render(eng *engine.Engine) {
	polls := eng.View()
	selected := eng.Selected()

	fmt.Printf("---- %s (%d polls) ----\n", eng.Tab(), len(polls))
	for _, p := range polls {
		marker := "  "
		if p.ID == selected {
			marker = "* "
		}
		fmt.Printf("%s%s  [votes=%d likes=%d dislikes=%d]\n", marker, p.Question, p.VoteCount, p.LikeCount, p.DislikeCount)
		for i, opt := range p.Options {
			fmt.Printf("    %d. %s: %d%% (%d option likes)\n", i+1, opt, view.Percentage(p, i), view.OptionLikeCount(p, i))
		}
	}
}
