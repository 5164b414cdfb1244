package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"GridSentinel/internal/collector"
	"GridSentinel/internal/config"
	"GridSentinel/internal/notifier"
	"GridSentinel/internal/recorder"
	"GridSentinel/internal/scheduler"
	"GridSentinel/internal/snapshot"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] GridSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		log.Fatalf("[FATAL] create data dir: %v", err)
	}

	fetcher := collector.NewTaipowerFetcher(cfg.Proxy)
	log.Printf("[INFO] data source: %s (%s)", fetcher.Name(), fetcher.URL)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Storage.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Storage.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Init notifier
	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	} else {
		log.Println("[INFO] telegram not configured, notifications disabled")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := scheduler.NewPoller(fetcher, snapshot.NewWriter(cfg.Storage.DataDir), rec, n)

	sched := scheduler.NewScheduler(ctx, poller, n, cfg.Storage.DataDir)
	if tn != nil {
		if err := sched.RegisterDigest(cfg.Schedule.DigestCron); err != nil {
			log.Fatalf("[FATAL] register cron tasks: %v", err)
		}
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}
	sched.Start()
	defer sched.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	log.Println("[INFO] GridSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	wg.Wait()
	log.Println("[INFO] GridSentinel stopped")
}
