package errortypes

import (
	"fmt"
	"strings"
)

// AggregateErrors reports every problem found in one pass, such as all the invalid settings
// of a configuration file.
type AggregateErrors struct {
	Message string
	Errors  []error
}

// NewAggregateErrors groups errs under msg.
func NewAggregateErrors(msg string, errs []error) AggregateErrors {
	return AggregateErrors{
		Message: msg,
		Errors:  errs,
	}
}

// Error lists the grouped errors, one per numbered line. It is empty when nothing was grouped.
func (e AggregateErrors) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}

	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d %s):\n", e.Message, len(e.Errors), noun)
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d: %v\n", i+1, err)
	}
	return sb.String()
}

// Unwrap lets errors.Is and errors.As match any grouped error.
func (e AggregateErrors) Unwrap() []error {
	return e.Errors
}
