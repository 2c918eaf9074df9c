// ABOUTME: Entry point for coven-desk, the conversational desktop client core
// ABOUTME: Subcommands for chatting, browsing history, export and clearing

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-desk/internal/config"
	"github.com/2389/coven-desk/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                         _           _
  ___ _____   _____ _ __             __| | ___  ___| | __
 / __/ _ \ \ / / _ \ '_ \ _____    / _' |/ _ \/ __| |/ /
| (_| (_) \ V /  __/ | | |_____|  | (_| |  __/\__ \   <
 \___\___/ \_/ \___|_| |_|         \__,_|\___||___/_|\_\
`

func usage() {
	fmt.Println("Usage: coven-desk <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  chat                         Start an interactive conversation")
	fmt.Println("  history [-n N]               Show the most recent saved messages")
	fmt.Println("  export -o FILE [-format F]   Write the saved transcript (md or html)")
	fmt.Println("  clear                        Delete the saved history")
	fmt.Println("  version                      Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx)
	case "history":
		err = runHistory(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "clear":
		err = runClear(ctx)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path and loads it, falling back to defaults.
func loadConfig() (*config.Config, string, error) {
	path := config.Path()
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// openStore opens the configured SQLite database.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}
