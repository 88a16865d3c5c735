package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/b0ase/path402/apps/poeminter/internal/config"
	"github.com/b0ase/path402/apps/poeminter/internal/daemon"
	"github.com/b0ase/path402/apps/poeminter/internal/logging"
	"github.com/b0ase/path402/apps/poeminter/internal/mcpserver"
)

var Version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "path to poeminter.yaml")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools on stdio instead of waiting for signals")
	flag.Parse()

	// stdout carries the MCP protocol in -mcp mode, so the banner is skipped.
	if !*mcpMode {
		green := "\033[38;5;42m"
		reset := "\033[0m"
		dim := "\033[2m"
		fmt.Printf(green+`
   ___  ___  ___ __  __ _      _
  | _ \/ _ \| __|  \/  (_)_ _ | |_ ___ _ _
  |  _/ (_) | _|| |\/| | | ' \|  _/ -_) '_|
  |_|  \___/|___|_|  |_|_|_||_|\__\___|_|
`+reset+`
  `+dim+`Proof-of-Energy minting simulator  v%s`+reset+`
  `+green+`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`+reset+`
`, Version)
	}

	if *cfgPath == "" {
		home, _ := os.UserHomeDir()
		*cfgPath = filepath.Join(home, ".poeminter", "poeminter.yaml")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log)
	log := logging.For("main")

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}
	log.Infof("Data dir: %s", cfg.DataDir)

	d, err := daemon.New(cfg, Version)
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}
	if err := d.Start(); err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mcpMode {
		srv := mcpserver.New(Version, cfg.MCP.Instructions, d, d.Session())
		log.Info("Serving MCP on stdio")
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("MCP server exited")
		}
	} else {
		<-ctx.Done()
		log.Info("Received signal, shutting down...")
	}

	d.Stop()
	log.Info("Goodbye.")
}
