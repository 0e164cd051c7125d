package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/washdeck/backend/internal/config"
	"github.com/washdeck/backend/internal/dataset"
	"github.com/washdeck/backend/internal/diag"
	"github.com/washdeck/backend/internal/feed"
	"github.com/washdeck/backend/internal/relay"
	"github.com/washdeck/backend/internal/watch"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	offline := flag.Bool("offline", false, "Skip the live feed even if an endpoint is configured")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First load before serving: every endpoint and the first websocket
	// client see a complete snapshot, real or synthetic.
	agg := dataset.NewAggregator(cfg)
	agg.LoadAll(ctx)

	bus := feed.NewBus()
	live := cfg.Feed.Endpoint != "" && !*offline

	hub := relay.NewHub(agg, bus, live, cfg.Server.SnapshotInterval)

	var manager *feed.Manager
	if live {
		manager = feed.NewManager(cfg.Feed.Endpoint, feed.Options{
			PingInterval:   cfg.Feed.PingInterval,
			BaseDelay:      cfg.Feed.ReconnectBase,
			MaxDelay:       cfg.Feed.ReconnectMax,
			MaxAttempts:    cfg.Feed.MaxAttempts,
			ConnectTimeout: cfg.Feed.ConnectTimeout,
		}, bus)
		manager.Connect()
	} else {
		log.Println("Feed disabled; running in polling mode")
	}

	go agg.RunPeriodic(ctx, cfg.Refresh.Interval, hub.PushSnapshot)

	if cfg.Refresh.Watch {
		if paths := cfg.Sources.LocalPaths(); len(paths) > 0 {
			watcher, err := watch.New(paths, func() {
				agg.Refresh(context.Background())
				hub.PushSnapshot()
			})
			if err != nil {
				log.Printf("[watch] disabled: %v", err)
			} else {
				go watcher.Run(ctx)
			}
		}
	}

	sampler := diag.NewSampler(cfg.Diag.SampleInterval)
	go sampler.Run(ctx)

	server := relay.NewServer(agg, hub, bus)
	server.SetSampler(sampler)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		if manager != nil {
			manager.Disconnect()
		}
		hub.Close()
		os.Exit(0)
	}()

	if err := relay.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
