package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Resolution error kinds. All of them describe bad input data; none are retryable.
var (
	ErrNoActivePrice             = errors.New("no active price")
	ErrOverlappingPriceWindows   = errors.New("overlapping price windows")
	ErrCircularAssemblyReference = errors.New("circular assembly reference")
	ErrMissingExchangeRate       = errors.New("missing exchange rate")
	ErrNoMarkupRuleApplicable    = errors.New("no markup rule applicable")
	ErrUnknownReference          = errors.New("unknown reference")
	ErrInvalidMarkupRules        = errors.New("invalid markup rules")
	ErrInvalidInput              = errors.New("invalid input")
)

// ResolutionError is the single error type returned by the pricing engine.
// Kind is one of the Err* sentinels above and is matched with errors.Is.
type ResolutionError struct {
	Kind        error
	ComponentID uuid.UUID
	AssemblyID  uuid.UUID
	Path        []uuid.UUID // CircularAssemblyReference: root ... repeated id
	From        Currency    // MissingExchangeRate
	To          Currency
	Detail      string
}

// Error renders a message that can be shown to the user as a validation failure
func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())

	switch {
	case errors.Is(e.Kind, ErrCircularAssemblyReference):
		ids := make([]string, len(e.Path))
		for i, id := range e.Path {
			ids[i] = id.String()
		}
		b.WriteString(" via ")
		b.WriteString(strings.Join(ids, " -> "))
	case errors.Is(e.Kind, ErrMissingExchangeRate):
		fmt.Fprintf(&b, " %s->%s", e.From, e.To)
	}

	if e.ComponentID != uuid.Nil {
		fmt.Fprintf(&b, " (component %s)", e.ComponentID)
	}
	if e.AssemblyID != uuid.Nil {
		fmt.Fprintf(&b, " (assembly %s)", e.AssemblyID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap exposes Kind so errors.Is(err, ErrNoActivePrice) works
func (e *ResolutionError) Unwrap() error { return e.Kind }

// invalidInput builds an ErrInvalidInput resolution error
func invalidInput(format string, args ...interface{}) error {
	return &ResolutionError{Kind: ErrInvalidInput, Detail: fmt.Sprintf(format, args...)}
}
