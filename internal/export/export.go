// ABOUTME: Transcript export for the message log
// ABOUTME: Renders Markdown, and HTML by converting that Markdown with goldmark

// Package export renders conversation transcripts.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/coven-desk/internal/messages"
)

// Format selects the transcript encoding.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" and "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want md or html)", s)
	}
}

// Options controls transcript rendering.
type Options struct {
	Title string
	// Now stamps the export; zero means time.Now.
	Now time.Time
}

func (o Options) title() string {
	if o.Title == "" {
		return "Conversation"
	}
	return o.Title
}

// Render encodes msgs in the given format.
func Render(format Format, msgs []messages.Message, opts Options) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(msgs, opts)), nil
	case FormatHTML:
		return HTML(msgs, opts)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Markdown renders msgs as a Markdown transcript.
func Markdown(msgs []messages.Message, opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.title())
	fmt.Fprintf(&b, "_Exported %s, %d messages._\n", now.Format("2006-01-02 15:04"), len(msgs))

	for _, m := range msgs {
		fmt.Fprintf(&b, "\n### %s · %s\n\n", speakerLabel(m), m.CreatedAt.Local().Format("15:04"))
		content := strings.TrimRight(m.Content, "\n")
		if content == "" {
			content = "_(empty)_"
		}
		b.WriteString(content)
		b.WriteString("\n")
		if m.Streaming {
			b.WriteString("\n_(still streaming)_\n")
		}
	}
	return b.String()
}

func speakerLabel(m messages.Message) string {
	if m.FromUser() {
		return "You"
	}
	if m.ModelID != "" {
		return fmt.Sprintf("%s (%s)", m.Speaker, m.ModelID)
	}
	return m.Speaker
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
h3 { margin-bottom: 0.25rem; color: #555; font-size: 0.95rem; }
pre { background: #f4f4f4; padding: 0.75rem; overflow-x: auto; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders msgs as a standalone HTML page. Raw HTML inside messages is
// not passed through.
func HTML(msgs []messages.Message, opts Options) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(msgs, opts)), &body); err != nil {
		return nil, fmt.Errorf("converting transcript: %w", err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: opts.title(),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering transcript page: %w", err)
	}
	return out.Bytes(), nil
}
