// Package main is the entry point for the CaretGlide demo host.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dshills/caretglide/internal/config"
	"github.com/dshills/caretglide/internal/demo"
	"github.com/dshills/caretglide/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath(), "path to the settings TOML file")
	debug := flag.Bool("debug", false, "enable debug logging to caretglide.log")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("caretglide %s (%s)\n", version, commit)
		return 0
	}

	logger := logging.NullLogger
	if *debug {
		logFile, err := os.OpenFile("caretglide.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
			return 1
		}
		defer logFile.Close()
		logger = logging.New(logging.Config{
			Level:  logging.LevelDebug,
			Output: logFile,
		})
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load settings: %v\n", err)
		return 1
	}
	if *debug {
		cfg.Debug = true
	}
	store := config.NewStore(cfg)

	// Live reload while the demo runs, if the settings directory
	// exists.
	if w, err := config.NewWatcher(loader, store, logger); err == nil {
		defer w.Close()
	} else {
		logger.Warn("settings watch unavailable: %v", err)
	}

	app, err := demo.New(store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize screen: %v\n", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		app.Quit()
	}()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "caretglide.toml"
	}
	return filepath.Join(dir, "caretglide", "settings.toml")
}
