package generate

import "errors"

// Sentinel errors for generation requests. Quota exhaustion surfaces
// as repository.ErrQuotaExceeded wrapped with provider guidance; all
// of these leave the caller uncharged (failed requests after the
// reservation refund it before returning).
var (
	// ErrNoSource indicates the request carried neither text, a URL,
	// an article id, nor a file.
	ErrNoSource = errors.New("no source provided")

	// ErrSourceResolution indicates the chosen source could not be
	// turned into text (dead URL, unreadable file).
	ErrSourceResolution = errors.New("source could not be resolved")

	// ErrInsufficientSource indicates the provider judged the resolved
	// source too thin to ground a post. Never persisted as a draft.
	ErrInsufficientSource = errors.New("source insufficient to ground a post")

	// ErrInvalidOption indicates a knob value outside the closed
	// option sets.
	ErrInvalidOption = errors.New("invalid generation option")
)
