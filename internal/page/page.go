// File: internal/page/page.go
package page

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnsupported is returned by drivers for primitives they cannot provide,
// e.g. script evaluation on a static document.
var ErrUnsupported = errors.New("operation not supported by this page driver")

// Point is a position in CSS pixels relative to the viewport.
type Point struct {
	X float64
	Y float64
}

// Clip is a capture rectangle in CSS pixels.
type Clip struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// KeyEventType distinguishes key-down from key-up.
type KeyEventType string

const (
	KeyDown KeyEventType = "keyDown"
	KeyUp   KeyEventType = "keyUp"
)

// KeyEvent is the identity of a key as the browser input pipeline expects it.
type KeyEvent struct {
	Type    KeyEventType
	Key     string
	Code    string
	KeyCode int64
	// Text is the character the key produces, empty for non-printing keys.
	Text string
}

// HistoryEntry is one entry of the session history of the page.
type HistoryEntry struct {
	ID    int64
	URL   string
	Title string
}

// EvalResult is the outcome of evaluating an expression in the page.
type EvalResult struct {
	// Value is the JSON representation of the returned value.
	Value json.RawMessage
	// Undefined is set when the expression produced undefined.
	Undefined bool
	// Exception carries the thrown error's description; when set, Value is
	// meaningless.
	Exception string
}

// AXNode is one node of the accessibility tree, listed in pre-order.
type AXNode struct {
	Role    string
	Name    string
	Ignored bool
}

// Navigator covers page level navigation. Navigate, Reload and
// NavigateToHistoryEntry arm the load signal that WaitForLoad observes.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	History(ctx context.Context) (current int, entries []HistoryEntry, err error)
	NavigateToHistoryEntry(ctx context.Context, id int64) error
	// WaitForLoad blocks until the most recent navigation finished loading
	// or ctx is done.
	WaitForLoad(ctx context.Context) error
}

// Reader exposes read-only page state.
type Reader interface {
	// Document returns a fresh snapshot of the DOM. Nodes are valid for the
	// duration of one command.
	Document(ctx context.Context) (*Node, error)
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// BodyText returns the rendered text of the document body.
	BodyText(ctx context.Context) (string, error)
	Checked(ctx context.Context, n *Node) (bool, error)
	AccessibilityTree(ctx context.Context) ([]AXNode, error)
}

// Input dispatches user input primitives.
type Input interface {
	ScrollIntoView(ctx context.Context, n *Node) error
	BoxCenter(ctx context.Context, n *Node) (Point, error)
	MovePointer(ctx context.Context, p Point) error
	// Click presses and releases the primary button over n clickCount times.
	Click(ctx context.Context, n *Node, clickCount int) error
	Focus(ctx context.Context, n *Node) error
	SetValue(ctx context.Context, n *Node, value string) error
	InsertText(ctx context.Context, text string) error
	// DispatchEvent fires a bubbling DOM event of the given type at n.
	DispatchEvent(ctx context.Context, n *Node, eventType string) error
	DispatchKey(ctx context.Context, ev KeyEvent) error
}

// Inspector covers evaluation and capture.
type Inspector interface {
	Evaluate(ctx context.Context, expression string) (EvalResult, error)
	// ContentSize returns the full scrollable size of the document.
	ContentSize(ctx context.Context) (width, height float64, err error)
	SetViewportOverride(ctx context.Context, width, height int64) error
	ClearViewportOverride(ctx context.Context) error
	// CaptureScreenshot returns PNG bytes of the viewport, or of clip when
	// it is non-nil.
	CaptureScreenshot(ctx context.Context, clip *Clip) ([]byte, error)
}

// Page is everything a command executor needs from a browser tab.
type Page interface {
	Navigator
	Reader
	Input
	Inspector
}
