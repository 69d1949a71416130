package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/app"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/client"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/config"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/physics"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	baseURL := flag.String("url", "", "HTTP base URL of the feed server")
	logPath := flag.String("log", "", "Log file (the terminal is owned by the UI)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}
	if *logPath != "" {
		cfg.Client.LogFile = *logPath
	}

	if cfg.Client.LogFile != "" {
		f, err := tea.LogToFile(cfg.Client.LogFile, "live-world")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	streamURL, err := stream.URLFromBase(cfg.Client.BaseURL, cfg.Client.StreamPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	feed := stream.NewClient(streamURL, stream.Options{
		BaseDelay: cfg.Stream.BaseDelay,
		MaxDelay:  cfg.Stream.MaxDelay,
		MaxRetry:  cfg.Stream.MaxRetry,
	})
	httpClient := client.NewHTTPClient(cfg.Client.BaseURL)
	log.Printf("live-world: api %s, stream %s", httpClient.BaseURL(), streamURL)

	m := app.New(httpClient, feed, app.Options{
		World:     cfg.World,
		Telemetry: cfg.Telemetry,
		Engine:    physics.RigidFactory(physics.EngineOptions{}),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())

	final, err := p.Run()
	if fm, ok := final.(app.Model); ok {
		fm.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
