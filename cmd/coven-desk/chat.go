// ABOUTME: Interactive chat REPL on top of the desk
// ABOUTME: Reads lines from stdin while the presenter streams replies

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-desk/internal/conversation"
	"github.com/2389/coven-desk/internal/desk"
	"github.com/2389/coven-desk/internal/events"
)

func runChat(ctx context.Context) error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	grayText.Printf("    version: %s\n\n", version)

	logger := setupLogger(cfg.Logging, os.Stderr)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("History:   %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Personas:  %s\n", cfg.Personas.Path)
	fmt.Println()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	d, err := desk.New(cfg, desk.Deps{Store: st}, logger)
	if err != nil {
		st.Close()
		return fmt.Errorf("creating desk: %w", err)
	}
	defer d.Close()

	p := newPresenter(os.Stdout)
	feed, err := d.Subscribe(ctx, events.AnyType)
	if err != nil {
		return err
	}
	presenterDone := make(chan struct{})
	go func() {
		defer close(presenterDone)
		p.run(ctx, feed)
	}()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("starting desk: %w", err)
	}

	fmt.Println("Type a message and press Enter. Start with a persona name to address it. /help for commands.")
	fmt.Println()

	err = repl(ctx, d, p)
	feed.Cancel()
	<-presenterDone
	fmt.Println("\nGoodbye!")
	return err
}

func repl(ctx context.Context, d *desk.Desk, p *presenter) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	busy := false
	for {
		if !busy {
			fmt.Print("> ")
		}

		var input string
		select {
		case <-ctx.Done():
			return nil
		case <-p.settled:
			busy = false
			continue
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				return nil
			}
			input = strings.TrimSpace(line)
		}

		switch {
		case input == "":
			continue
		case input == "/quit" || input == "/exit" || input == "/q":
			return nil
		case input == "/help":
			printHelp()
		case input == "/cancel":
			if err := d.Cancel(ctx); errors.Is(err, conversation.ErrNothingToCancel) {
				fmt.Println("Nothing is streaming.")
			} else if err != nil {
				redText.Printf("[error] %v\n", err)
			}
		case input == "/clear":
			if err := d.Clear(ctx); err != nil {
				redText.Printf("[error] %v\n", err)
			}
		case input == "/status":
			printStatus(ctx, d)
		case strings.HasPrefix(input, "/"):
			fmt.Printf("Unknown command %s, try /help\n", input)
		default:
			err := d.Submit(ctx, input)
			switch {
			case errors.Is(err, conversation.ErrTurnInFlight):
				fmt.Println("Still answering. Wait for the reply or /cancel it.")
			case err != nil:
				redText.Printf("[error] %v\n", err)
			default:
				busy = true
			}
		}
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /cancel        Stop the reply that is streaming")
	fmt.Println("  /clear         Clear the conversation and saved history")
	fmt.Println("  /status        Show the session and turn state")
	fmt.Println("  /help          Show this help")
	fmt.Println("  /quit          Exit")
}

func printStatus(ctx context.Context, d *desk.Desk) {
	s, err := d.Status(ctx)
	if err != nil {
		redText.Printf("[error] %v\n", err)
		return
	}
	fmt.Printf("State:     %s (last turn %s)\n", s.State, s.LastSettled)
	fmt.Printf("Messages:  %d\n", s.Messages)
	if !s.HasContext {
		fmt.Println("Session:   none yet")
		return
	}
	fmt.Printf("Session:   %s\n", s.Context.SessionID)
	fmt.Printf("Persona:   %s (%s)\n", s.Context.PersonaID, s.Context.ModelID)
	fmt.Printf("Active:    %s\n", s.Context.LastActivity.Format("15:04:05"))
}
