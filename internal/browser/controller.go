// Package browser drives a real browser through natural-language
// instructions. Callers describe what they want ("click the search box",
// "extract the first three results"); the controller decides how to do it
// against the live page. Selectors, DOM structure, and the LLM that
// interprets instructions all stay behind this boundary.
package browser

import (
	"context"
	"errors"
)

// ErrNoCredential is returned when a session is requested but no LLM
// credential was configured. Retrying cannot fix it.
var ErrNoCredential = errors.New("no LLM credential configured: set OPENAI_API_KEY or ANTHROPIC_API_KEY")

// Controller is one live browser session.
type Controller interface {
	// Navigate loads a URL and waits for the document body.
	Navigate(ctx context.Context, url string) error

	// Act performs a single natural-language instruction against the
	// current page.
	Act(ctx context.Context, instruction string) error

	// ExtractStructured pulls data described by instruction out of the
	// current page. schema is a JSON sketch of the wanted shape; the decoded
	// document lands in out, which must be a pointer.
	ExtractStructured(ctx context.Context, instruction string, schema string, out any) error

	// Close releases the underlying browser. Safe to call once per session.
	Close() error
}

// Factory opens controller sessions. Open fails fast with ErrNoCredential
// when the LLM needed to interpret instructions is not configured.
type Factory interface {
	Open(ctx context.Context) (Controller, error)
}
