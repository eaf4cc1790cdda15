// Package llm wraps an OpenAI-compatible chat-completions API behind the
// Backend interface used for answer synthesis. OpenRouter is the default
// endpoint; any compatible base URL works.
package llm
