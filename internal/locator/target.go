// File: internal/locator/target.go
package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrNotFound is matched by every resolution failure.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a target that no strategy could resolve. Its message
// is user facing, e.g. "Element not found: Save".
type NotFoundError struct {
	What   string
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Target)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(what, target string) error {
	return &NotFoundError{What: what, Target: target}
}

var refPattern = regexp.MustCompile(`^e([0-9]+)$`)

// Target names the element a command acts on: either a snapshot ref or a
// text description with an optional scope.
type Target struct {
	// Ref is the 1-based document order index when the target is e<N>.
	Ref   int
	Text  string
	Scope string
}

// ParseTarget builds a Target, recognizing refs of the form e<N>.
func ParseTarget(text, scope string) Target {
	if m := refPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return Target{Ref: n, Text: text}
		}
	}
	return Target{Text: text, Scope: scope}
}

// IsRef reports whether t addresses an element by snapshot ref.
func (t Target) IsRef() bool { return t.Ref > 0 }

func (t Target) String() string {
	if t.Scope != "" {
		return fmt.Sprintf("%s (in %q)", t.Text, t.Scope)
	}
	return t.Text
}
