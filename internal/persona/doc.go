// Package persona resolves which assistant identity a line of user text is
// addressed to, and which model and system prompt that identity uses.
//
// Personas are read from a TOML file:
//
//	default = "assistant"
//
//	[models]
//	anthropic = "claude-sonnet-4-5"
//	default = "echo-1"
//
//	[[persona]]
//	id = "claude"
//	name = "Claude"
//	system_prompt = "You are Claude."
//	anthropic = true
//
// A message whose first word (ignoring case and trailing punctuation) is a
// persona id is routed to that persona, and the word is stripped from the
// text. Anything else goes to the default persona unchanged.
package persona
