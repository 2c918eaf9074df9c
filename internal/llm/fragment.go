// ABOUTME: Fragment stream element and the request sent to providers
// ABOUTME: Content, metadata, error and done variants keyed by FragmentKind

package llm

// FragmentKind discriminates stream fragments.
type FragmentKind int

const (
	FragmentContent FragmentKind = iota
	FragmentMetadata
	FragmentError
	FragmentDone
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentContent:
		return "content"
	case FragmentMetadata:
		return "metadata"
	case FragmentError:
		return "error"
	case FragmentDone:
		return "done"
	default:
		return "unknown"
	}
}

// Fragment is one unit of a response stream.
type Fragment struct {
	Kind     FragmentKind
	Text     string            // FragmentContent
	Metadata map[string]string // FragmentMetadata
	Err      error             // FragmentError
}

// Content builds a content fragment.
func Content(text string) Fragment { return Fragment{Kind: FragmentContent, Text: text} }

// Metadata builds a metadata fragment.
func Metadata(kv map[string]string) Fragment { return Fragment{Kind: FragmentMetadata, Metadata: kv} }

// Failure builds an error fragment.
func Failure(err error) Fragment { return Fragment{Kind: FragmentError, Err: err} }

// Done builds the end-of-stream fragment.
func Done() Fragment { return Fragment{Kind: FragmentDone} }

// Terminal reports whether the fragment ends the stream.
func (f Fragment) Terminal() bool {
	return f.Kind == FragmentDone || f.Kind == FragmentError
}

// Role identifies the author of a history turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message included in a request.
type Turn struct {
	Role    Role
	Speaker string
	Content string
}

// Request is everything a provider needs for one assistant turn. It is built
// fresh per turn and not modified afterwards.
type Request struct {
	Text         string
	PersonaID    string
	SystemPrompt string
	ModelID      string
	History      []Turn
}
