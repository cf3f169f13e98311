package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabcanvas/canvas"
)

func main() {
	configPath := flag.String("config", os.Getenv("CANVAS_CONFIG"), "Path to a YAML config file")
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []canvas.Option{canvas.WithClearRedoOnCommit(cfg.History.ClearRedoOnCommit)}

	// --- Event journal (Redis pub/sub and PostgreSQL) ---
	sinks, closeSinks, err := openSinks(ctx, cfg)
	if err != nil {
		log.Fatalf("Could not open event journal: %v", err)
	}
	defer closeSinks()
	// The journal outlives ctx so the leaves of peers closed at shutdown
	// are still written.
	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()
	var journal *Journal
	if len(sinks) > 0 {
		journal = newJournal(cfg.JournalBuffer, sinks...)
		go journal.run(journalCtx)
		opts = append(opts, canvas.WithJournal(journal))
	} else {
		log.Println("Event journal disabled (set REDIS_ADDR or DATABASE_URL to enable).")
	}

	cv := canvas.New(opts...)
	hub := newHub()
	go hub.run(ctx)

	if cfg.MDNS {
		zc, err := advertise(cfg.MDNSInstance, cfg.Addr)
		if err != nil {
			log.Printf("mDNS advertisement disabled: %v", err)
		} else {
			defer zc.Shutdown()
			log.Printf("mDNS service registered: %s", serviceType)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, hub, cv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down: %v", err)
		}
	}()

	log.Printf("CollabCanvas server starting on %s...", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	hub.wait()
	stopJournal()
	if journal != nil {
		<-journal.Done()
	}
	log.Println("Server stopped.")
}
