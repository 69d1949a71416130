package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/isirmt/nextjs-go-admin-portfolio/internal/config"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/mock"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/works"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Generate synthetic visitor clicks")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	worksPath := flag.String("works", "", "Override the works catalogue file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *worksPath != "" {
		cfg.Feed.WorksFile = *worksPath
	}

	catalog, err := works.Load(cfg.Feed.WorksFile)
	if err != nil {
		log.Fatalf("Failed to load works: %v", err)
	}
	log.Printf("Loaded %d works from %s", catalog.Len(), cfg.Feed.WorksFile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var saved chan struct{}
	if cfg.Feed.CountsFile != "" {
		store := works.NewCountStore(cfg.Feed.CountsFile)
		counts, err := store.Load()
		if err != nil {
			log.Fatalf("Failed to load click counts: %v", err)
		}
		if skipped := catalog.Restore(counts); skipped > 0 {
			log.Printf("Ignored counts for %d works no longer in the catalogue", skipped)
		}
		saved = make(chan struct{})
		go func() {
			works.Autosave(ctx, catalog, store, cfg.Feed.SaveInterval)
			close(saved)
		}()
	}

	broadcaster := ws.NewBroadcaster(cfg.Feed, cfg.Server.MaxConnections)
	defer broadcaster.Close()
	server := ws.NewServer(cfg, broadcaster, catalog)

	if *mockMode {
		log.Println("Starting in mock mode")
		mock.NewGenerator(catalog, server, cfg.Feed.MockInterval).Start(ctx)
	}

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	if err := ws.ListenAndServe(ctx, cfg.Addr(), mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Shutting down...")
	if saved != nil {
		<-saved
	}
}
