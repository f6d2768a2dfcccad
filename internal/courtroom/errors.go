package courtroom

import (
	"errors"
	"fmt"
)

// Gateway failure kinds. The scheduler converts these into a system turn
// in the transcript; they never propagate to the HTTP layer.
var (
	ErrMissingCredential = errors.New("missing provider credential")
	ErrInvalidCredential = errors.New("provider rejected credential")
	ErrRateLimited       = errors.New("provider rate limited")
)

// ErrBusy rejects a student turn while a persona response is still being
// generated for the same session.
var ErrBusy = errors.New("a response is already being generated")

// ProviderError covers any other provider-side failure.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Body)
}

// ValidationError rejects malformed student input before it touches
// session state.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// StateError rejects an operation attempted in a phase that does not
// allow it. The session is left unchanged.
type StateError struct {
	Op    string
	Phase Phase
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in phase %q", e.Op, e.Phase)
}

// UserMessage maps a gateway failure onto the Dutch message shown to the
// student in the transcript.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "OpenAI API key niet gevonden. Update je profiel."
	case errors.Is(err, ErrInvalidCredential):
		return "Ongeldige OpenAI API key. Update je profiel."
	case errors.Is(err, ErrRateLimited):
		return "OpenAI rate limit bereikt. Probeer later opnieuw."
	default:
		return "Er ging iets mis bij het genereren van een reactie. Probeer verder te gaan met het gesprek."
	}
}
