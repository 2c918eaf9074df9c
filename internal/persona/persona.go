// ABOUTME: TOML-backed persona registry and first-token resolver
// ABOUTME: Maps personas to a system prompt and an Anthropic or default model

package persona

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Built-in models used when the file leaves them unset.
const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultModel          = "echo-1"
)

// trailing punctuation stripped from the addressing word
const addressPunct = ",.:;!?"

// reservedID is the speaker id of the local user's messages.
const reservedID = "user"

var (
	// ErrNoPersonas is returned for a file that defines none.
	ErrNoPersonas = errors.New("no personas defined")

	// ErrUnknownPersona is returned when the default names no persona.
	ErrUnknownPersona = errors.New("unknown persona")
)

// Persona is a named assistant identity.
type Persona struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	SystemPrompt string `toml:"system_prompt"`
	Anthropic    bool   `toml:"anthropic"`
}

// Models names the model for each model class.
type Models struct {
	Anthropic string `toml:"anthropic"`
	Default   string `toml:"default"`
}

type file struct {
	Default  string    `toml:"default"`
	Models   Models    `toml:"models"`
	Personas []Persona `toml:"persona"`
}

// Registry holds the known personas. It is immutable after construction.
type Registry struct {
	personas  map[string]Persona
	order     []string
	defaultID string
	models    Models
}

// Builtin returns the registry used when no persona file exists.
func Builtin() *Registry {
	r, err := New([]Persona{
		{
			ID:           "assistant",
			Name:         "Assistant",
			SystemPrompt: "You are a helpful assistant. Answer clearly and concisely.",
		},
		{
			ID:           "claude",
			Name:         "Claude",
			SystemPrompt: "You are Claude, a thoughtful assistant made by Anthropic.",
			Anthropic:    true,
		},
	}, Models{}, "assistant")
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads a persona file. A missing file yields Builtin. A non-empty
// defaultID overrides the file's default.
func Load(path, defaultID string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if defaultID == "" {
			return Builtin(), nil
		}
		b := Builtin()
		return New(b.List(), b.models, defaultID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading persona file: %w", err)
	}
	return Parse(string(data), defaultID)
}

// Parse decodes persona TOML.
func Parse(data, defaultID string) (*Registry, error) {
	var f file
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("parsing persona file: %w", err)
	}
	if defaultID == "" {
		defaultID = f.Default
	}
	return New(f.Personas, f.Models, defaultID)
}

// New builds a registry. Ids are matched case-insensitively; the first
// persona is the default when defaultID is empty.
func New(personas []Persona, models Models, defaultID string) (*Registry, error) {
	if len(personas) == 0 {
		return nil, ErrNoPersonas
	}
	if models.Anthropic == "" {
		models.Anthropic = DefaultAnthropicModel
	}
	if models.Default == "" {
		models.Default = DefaultModel
	}

	r := &Registry{
		personas: make(map[string]Persona, len(personas)),
		models:   models,
	}
	for i, p := range personas {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" {
			return nil, fmt.Errorf("persona %d: id is required", i)
		}
		if strings.ContainsAny(id, " \t\n") {
			return nil, fmt.Errorf("persona %q: id must be a single word", p.ID)
		}
		if id == reservedID {
			return nil, fmt.Errorf("persona %q: id is reserved for the local user", p.ID)
		}
		if _, dup := r.personas[id]; dup {
			return nil, fmt.Errorf("persona %q: duplicate id", p.ID)
		}
		p.ID = id
		if p.Name == "" {
			p.Name = id
		}
		r.personas[id] = p
		r.order = append(r.order, id)
	}

	defaultID = strings.ToLower(strings.TrimSpace(defaultID))
	if defaultID == "" {
		defaultID = r.order[0]
	}
	if _, ok := r.personas[defaultID]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownPersona, defaultID)
	}
	r.defaultID = defaultID
	return r, nil
}

// Resolve returns the persona raw is addressed to and the text with the
// addressing word removed. When nothing follows the persona word the raw
// text is kept.
func (r *Registry) Resolve(raw string) (string, string) {
	text := strings.TrimSpace(raw)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return r.defaultID, text
	}

	word := strings.ToLower(strings.TrimRight(fields[0], addressPunct))
	if _, ok := r.personas[word]; !ok {
		return r.defaultID, text
	}

	rest := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
	if rest == "" {
		return word, text
	}
	return word, rest
}

// SystemPrompt returns the persona's prompt, empty for unknown ids.
func (r *Registry) SystemPrompt(personaID string) string {
	return r.personas[strings.ToLower(personaID)].SystemPrompt
}

// ModelFor returns the Anthropic model for Anthropic personas and the
// default model for everything else.
func (r *Registry) ModelFor(personaID string) string {
	if p, ok := r.personas[strings.ToLower(personaID)]; ok && p.Anthropic {
		return r.models.Anthropic
	}
	return r.models.Default
}

// Get looks up a persona by id.
func (r *Registry) Get(personaID string) (Persona, bool) {
	p, ok := r.personas[strings.ToLower(personaID)]
	return p, ok
}

// Default returns the default persona id.
func (r *Registry) Default() string { return r.defaultID }

// Models returns the configured models.
func (r *Registry) Models() Models { return r.models }

// List returns personas in file order.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out
}

// IDs returns the persona ids, sorted.
func (r *Registry) IDs() []string {
	ids := slices.Clone(r.order)
	slices.Sort(ids)
	return ids
}
