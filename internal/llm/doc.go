// Package llm defines the contract between coven-desk and streaming LLM
// providers, plus the provider error taxonomy.
//
// # Contract
//
// A Client turns a Request into a channel of Fragments:
//
//	frags, err := client.Send(ctx, req)
//
// Send may fail synchronously (missing credentials, unknown model) before any
// stream exists. Once a channel is returned, the provider writes Content and
// Metadata fragments and ends the stream with a Done or Error fragment, or
// simply closes the channel. Cancelling ctx tells the provider to stop and
// tear down its own I/O; it must then close the channel.
//
// # Errors
//
//   - ErrCredentialsMissing: no API key for the provider
//   - ErrInvalidModel: model id not served by any provider
//   - ErrNetwork: transport failure
//   - ErrRateLimited: provider throttled the request
//   - ErrInvalidResponse: unparseable payload
//   - ErrStreaming: failure after some fragments were delivered
//   - *ProviderError: provider-reported failure with its message
//
// Describe renders any of these for display; Classify maps them to a Kind.
//
// # Providers
//
// Router picks a Provider by model id and checks credentials before
// delegating. Echo is a local provider that streams the user's text back,
// used by the CLI and tests; real HTTP providers plug in as Providers.
package llm
