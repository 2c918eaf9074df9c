// ABOUTME: Offline subcommands working directly on the history database
// ABOUTME: history lists saved messages, export writes a transcript, clear wipes it

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/2389/coven-desk/internal/desk"
	"github.com/2389/coven-desk/internal/export"
	"github.com/2389/coven-desk/internal/messages"
	"github.com/2389/coven-desk/internal/store"
)

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	n := fs.Int("n", 20, "number of messages to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.ListRecentMessages(ctx, *n)
	if err != nil {
		return fmt.Errorf("listing messages: %w", err)
	}
	printHistory(os.Stdout, rows)
	return nil
}

func printHistory(w io.Writer, rows []*store.Message) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No conversation history")
		return
	}
	fmt.Fprintf(w, "Recent history (%d messages):\n", len(rows))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range rows {
		stamp := grayText.Sprint(r.CreatedAt.Local().Format("01-02 15:04"))
		speaker := greenText.Sprint(r.Speaker)
		if r.Speaker == messages.SpeakerUser {
			speaker = yellowText.Sprint("you")
		}
		fmt.Fprintf(w, "%s %s: %s\n", stamp, speaker, truncate(r.Content, 200))
	}
}

// truncate shortens s to at most n runes, flattening newlines.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "output file (required)")
	formatName := fs.String("format", "", "md or html (default from the file extension)")
	title := fs.String("title", "Conversation", "transcript title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("export: -o FILE is required")
	}

	name := *formatName
	if name == "" {
		name = "md"
		if strings.HasSuffix(strings.ToLower(*out), ".html") {
			name = "html"
		}
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.ListRecentMessages(ctx, 0)
	if err != nil {
		return fmt.Errorf("listing messages: %w", err)
	}

	data, err := export.Render(format, desk.FromStored(rows), export.Options{Title: *title})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	fmt.Printf("Wrote %d messages to %s\n", len(rows), *out)
	return nil
}

func runClear(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteAllMessages(ctx); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	fmt.Println("History cleared")
	return nil
}
