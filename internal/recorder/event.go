// File: internal/recorder/event.go
package recorder

import "strings"

// EventKind is the DOM event family a page reports.
type EventKind string

const (
	EventClick    EventKind = "click"
	EventInput    EventKind = "input"
	EventChange   EventKind = "change"
	EventKeyDown  EventKind = "keydown"
	EventNavigate EventKind = "navigate"
)

// TargetInfo carries the facts about an event target that the page side
// collects. Synthesis never queries the page again.
type TargetInfo struct {
	Tag             string `json:"tag"`
	Type            string `json:"type,omitempty"`
	Role            string `json:"role,omitempty"`
	ID              string `json:"id,omitempty"`
	ClassName       string `json:"className,omitempty"`
	AriaLabel       string `json:"ariaLabel,omitempty"`
	LabelText       string `json:"labelText,omitempty"`
	Placeholder     string `json:"placeholder,omitempty"`
	Title           string `json:"title,omitempty"`
	Text            string `json:"text,omitempty"`
	Leaf            bool   `json:"leaf,omitempty"`
	ContentEditable bool   `json:"contentEditable,omitempty"`
	// Checked is the state of a checkable target when the event fired.
	Checked bool `json:"checked,omitempty"`
	// HasClickHandler is set when the page found a click listener, an
	// onclick attribute or a pointer cursor on the target.
	HasClickHandler bool `json:"hasClickHandler,omitempty"`
	// ItemText is the text of the nearest list item, row or article around
	// the target.
	ItemText string `json:"itemText,omitempty"`
	// ItemPrimary is the text of that item's first heading, label or
	// paragraph child.
	ItemPrimary string `json:"itemPrimary,omitempty"`
	// Control is the form control a clicked label is associated with.
	Control *TargetInfo `json:"control,omitempty"`
}

// Event is one raw page event.
type Event struct {
	Kind   EventKind  `json:"kind"`
	Target TargetInfo `json:"target"`
	// Value is the field value for input events and the selected option text
	// for select changes.
	Value string `json:"value,omitempty"`
	// Key is the KeyboardEvent.key of key-down events.
	Key string `json:"key,omitempty"`
	// URL and MainFrame describe navigations.
	URL       string `json:"url,omitempty"`
	MainFrame bool   `json:"mainFrame,omitempty"`
}

func (t TargetInfo) tag() string {
	return strings.ToLower(t.Tag)
}

func (t TargetInfo) role() string {
	return strings.ToLower(strings.TrimSpace(t.Role))
}

func (t TargetInfo) inputType() string {
	if t.tag() != "input" {
		return ""
	}
	if typ := strings.ToLower(strings.TrimSpace(t.Type)); typ != "" {
		return typ
	}
	return "text"
}

// IsCheckable reports whether the target is a checkbox, radio or switch.
func (t TargetInfo) IsCheckable() bool {
	switch t.inputType() {
	case "checkbox", "radio":
		return true
	}
	switch t.role() {
	case "checkbox", "radio", "switch", "menuitemcheckbox", "menuitemradio":
		return true
	}
	return false
}

func (t TargetInfo) isRadio() bool {
	return t.inputType() == "radio" || t.role() == "radio" || t.role() == "menuitemradio"
}

// IsEditable reports whether the target accepts typed text.
func (t TargetInfo) IsEditable() bool {
	if t.tag() == "textarea" || t.ContentEditable {
		return true
	}
	switch t.inputType() {
	case "text", "email", "password", "search", "tel", "url", "number", "date",
		"datetime-local", "month", "time", "week":
		return true
	}
	return t.role() == "textbox" || t.role() == "searchbox"
}

// IsButtonLike reports whether the target is a button or link.
func (t TargetInfo) IsButtonLike() bool {
	switch t.tag() {
	case "button", "a":
		return true
	}
	switch t.inputType() {
	case "submit", "button", "reset", "image":
		return true
	}
	switch t.role() {
	case "button", "link", "menuitem", "tab":
		return true
	}
	return false
}
