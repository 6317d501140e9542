package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/watchgrid/backend/internal/config"
	"github.com/watchgrid/backend/internal/detect"
	"github.com/watchgrid/backend/internal/httpapi"
	"github.com/watchgrid/backend/internal/metrics"
	"github.com/watchgrid/backend/internal/mock"
	"github.com/watchgrid/backend/internal/notify"
	"github.com/watchgrid/backend/internal/session"
	"github.com/watchgrid/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	mockMode := flag.Bool("mock", false, "Run synthetic edge devices against this server")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	m := metrics.New()
	registry := session.NewRegistry()
	engine := detect.NewEngine(cfg.Detect.RequiredCount, cfg.Detect.Window, cfg.Detect.TrackedClass)
	frames := detect.NewFrameCache()
	detlog := detect.NewLog(cfg.Detect.LogCapacity)
	notifier := notify.NewDiscord(cfg.Discord.WebhookURL, cfg.Discord.Enabled)

	if cfg.Discord.WebhookURL == "" {
		log.Println("No Discord webhook URL configured, alerts disabled")
	}

	hub := ws.NewHub(m)
	relay := ws.NewRelay(hub, registry, engine, frames, detlog, notifier, m)
	wsServer := ws.NewServer(relay, cfg.Server.AllowedOrigins)

	api := httpapi.NewServer(registry, detlog, wsServer.HandleWS, m.Handler(), cfg.Server.AllowedOrigins)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	if *mockMode {
		log.Println("Starting synthetic edge devices")
		wsURL := fmt.Sprintf("ws://127.0.0.1:%d/ws", cfg.Server.Port)
		mock.NewGenerator(wsURL).Start(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	log.Printf("Server listening on %s", addr)
	log.Printf("Tracking %q: %d detections within %s confirm a sighting",
		cfg.Detect.TrackedClass, cfg.Detect.RequiredCount, cfg.Detect.Window)
	if err := http.ListenAndServe(addr, api.Handler()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
