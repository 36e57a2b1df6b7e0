package engine

import (
	"errors"
	"fmt"
)

// ErrNoAnalysis is returned by accessors before the first successful Analyze.
var ErrNoAnalysis = errors.New("no analysis has been run for this session")

// NotFoundError reports a lookup for an entity the current analysis does not
// contain.
type NotFoundError struct {
	Kind string // "symbol", "file", "candidate"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}
