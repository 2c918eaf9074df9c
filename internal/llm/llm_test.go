// ABOUTME: Tests for the provider router, echo provider and error taxonomy
// ABOUTME: Covers synchronous failures, streaming output and cancellation

package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Fragment) []Fragment {
	t.Helper()
	var out []Fragment
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, f)
		case <-timeout:
			t.Fatal("stream never closed")
		}
	}
}

func TestEcho_StreamsWordsThenDone(t *testing.T) {
	e := NewEcho(EchoOptions{})

	ch, err := e.Send(t.Context(), &Request{Text: "hello brave new world", ModelID: "local-1"})
	require.NoError(t, err)

	frags := collect(t, ch)
	require.NotEmpty(t, frags)
	assert.Equal(t, FragmentMetadata, frags[0].Kind)
	assert.Equal(t, "local-1", frags[0].Metadata["model"])
	assert.Equal(t, FragmentDone, frags[len(frags)-1].Kind)

	var text strings.Builder
	for _, f := range frags {
		if f.Kind == FragmentContent {
			text.WriteString(f.Text)
		}
	}
	assert.Equal(t, "hello brave new world", text.String())
}

func TestEcho_StopsOnCancel(t *testing.T) {
	e := NewEcho(EchoOptions{Delay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := e.Send(ctx, &Request{Text: strings.Repeat("word ", 100), ModelID: "m"})
	require.NoError(t, err)

	cancel()
	frags := collect(t, ch)
	assert.Less(t, len(frags), 10)
}

func TestEcho_Serves(t *testing.T) {
	open := NewEcho(EchoOptions{})
	assert.True(t, open.Serves("whatever"))

	claude := NewEcho(EchoOptions{Name: "anthropic", ModelPrefixes: []string{"claude"}})
	assert.True(t, claude.Serves("Claude-Sonnet-4"))
	assert.False(t, claude.Serves("gpt-4o"))
	assert.Equal(t, "anthropic", claude.Name())
}

func TestRouter_RoutesByModel(t *testing.T) {
	anthropic := NewEcho(EchoOptions{Name: "anthropic", ModelPrefixes: []string{"claude"}, RequireKey: true})
	local := NewEcho(EchoOptions{Name: "local"})
	r := NewRouter(StaticCredentials{"anthropic": "sk-test"}, nil, anthropic, local)

	ch, err := r.Send(t.Context(), &Request{Text: "hi", ModelID: "claude-sonnet"})
	require.NoError(t, err)
	frags := collect(t, ch)
	assert.Equal(t, "anthropic", frags[0].Metadata["provider"])

	ch, err = r.Send(t.Context(), &Request{Text: "hi", ModelID: "gpt-4o"})
	require.NoError(t, err)
	frags = collect(t, ch)
	assert.Equal(t, "local", frags[0].Metadata["provider"])
}

func TestRouter_MissingCredentialsFailsSynchronously(t *testing.T) {
	anthropic := NewEcho(EchoOptions{Name: "anthropic", ModelPrefixes: []string{"claude"}, RequireKey: true})
	r := NewRouter(StaticCredentials{"anthropic": ""}, nil, anthropic)

	ch, err := r.Send(t.Context(), &Request{Text: "hi", ModelID: "claude-sonnet"})
	assert.Nil(t, ch)
	assert.ErrorIs(t, err, ErrCredentialsMissing)
	assert.Equal(t, KindCredentialsMissing, Classify(err))
}

func TestRouter_UnknownModelFailsSynchronously(t *testing.T) {
	r := NewRouter(nil, nil, NewEcho(EchoOptions{ModelPrefixes: []string{"local"}}))

	_, err := r.Send(t.Context(), &Request{ModelID: "gpt-4o"})
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = r.Send(t.Context(), &Request{ModelID: "  "})
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{fmt.Errorf("dial: %w", ErrNetwork), KindNetwork},
		{ErrRateLimited, KindRateLimited},
		{ErrInvalidResponse, KindInvalidResponse},
		{fmt.Errorf("wrapped: %w", &ProviderError{Provider: "openai", Message: "overloaded"}), KindProvider},
		{ErrStreaming, KindStreaming},
		{context.Canceled, KindCancelled},
		{fmt.Errorf("mystery"), KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "error %v", tt.err)
	}
}

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(nil))
	assert.Contains(t, Describe(ErrNetwork), "Network error")
	assert.Equal(t, "openai reported an error: overloaded",
		Describe(&ProviderError{Provider: "openai", Message: "overloaded"}))
	assert.Equal(t, "mystery", Describe(fmt.Errorf("mystery")))
}

func TestIsAnthropicModel(t *testing.T) {
	assert.True(t, IsAnthropicModel("claude-sonnet-4"))
	assert.True(t, IsAnthropicModel("Claude-3"))
	assert.False(t, IsAnthropicModel("gpt-4o"))
}

func TestFragment_Terminal(t *testing.T) {
	assert.True(t, Done().Terminal())
	assert.True(t, Failure(ErrNetwork).Terminal())
	assert.False(t, Content("x").Terminal())
	assert.False(t, Metadata(nil).Terminal())
	assert.Equal(t, "error", FragmentError.String())
}
