// File: internal/recorder/synthesize.go
package recorder

import (
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/page"
)

const (
	// maxTextName bounds the own text used as a locator name.
	maxTextName = 80
	// maxScope bounds the item text used as a click scope.
	maxScope = 50
)

// Op tells the recorder what to do with an event.
type Op int

const (
	OpNone Op = iota
	// OpEmit records Command right away, after flushing a pending fill.
	OpEmit
	// OpFill (re)starts the debounced fill of Target with Value.
	OpFill
)

// Decision is the pure outcome of synthesizing one event.
type Decision struct {
	Op      Op
	Command string
	Target  string
	Value   string
	// Suppress names a checkbox whose forwarded click must not be recorded
	// again, set when a label click was already recorded for it.
	Suppress string
	// Causal marks actions that commonly trigger a navigation.
	Causal bool
}

// destructiveWords identify per-item action buttons such as delete or edit
// buttons repeated in every row of a list.
var destructiveWords = []string{"delete", "remove", "edit", "close", "destroy", "×", "✕", "✖"}

// structuralTags are layout containers whose clicks carry no intent unless
// the element has a role or a click handler.
var structuralTags = map[string]bool{
	"html": true, "body": true, "main": true, "header": true, "footer": true,
	"nav": true, "section": true, "article": true, "aside": true, "form": true,
	"div": true, "ul": true, "ol": true, "li": true, "table": true, "thead": true,
	"tbody": true, "tr": true, "fieldset": true,
}

var specialKeys = map[string]string{
	"enter":  "Enter",
	"tab":    "Tab",
	"escape": "Escape",
}

// Name derives the locator text for a target: aria-label, then label text,
// then placeholder, then its own text when it is a short leaf, then title,
// and finally the tag name.
func Name(t TargetInfo) string {
	candidates := []string{t.AriaLabel, t.LabelText, t.Placeholder}
	for _, c := range candidates {
		if n := page.Normalize(c); n != "" {
			return n
		}
	}
	if text := page.Normalize(t.Text); t.Leaf && text != "" && utf8.RuneCountInString(text) < maxTextName {
		return text
	}
	if n := page.Normalize(t.Title); n != "" {
		return n
	}
	return t.tag()
}

// IsInternalURL reports URLs that never become goto commands.
func IsInternalURL(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	if lower == "" {
		return true
	}
	for _, prefix := range []string{"about:", "chrome:", "chrome-extension:", "chrome-search:", "devtools:", "edge:", "data:", "javascript:", "view-source:", "blob:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isStructural(t TargetInfo) bool {
	return structuralTags[t.tag()] && t.role() == "" && !t.HasClickHandler
}

func isDestructive(t TargetInfo) bool {
	if !t.IsButtonLike() {
		return false
	}
	haystacks := []string{
		strings.ToLower(page.Normalize(t.Text)),
		strings.ToLower(page.Normalize(t.AriaLabel)),
		strings.ToLower(page.Normalize(t.Title)),
		strings.ToLower(t.ClassName),
	}
	for _, h := range haystacks {
		if h == "" {
			continue
		}
		for _, w := range destructiveWords {
			if strings.Contains(h, w) {
				return true
			}
		}
	}
	return false
}

// itemScope extracts a short scope text from the item around an action
// button: the item's primary text, else its text without the button's own.
func itemScope(t TargetInfo) string {
	if primary := page.Normalize(t.ItemPrimary); primary != "" {
		return truncate(primary, maxScope)
	}
	item := page.Normalize(t.ItemText)
	if own := page.Normalize(t.Text); own != "" {
		item = page.Normalize(strings.Replace(item, own, " ", 1))
	}
	return truncate(item, maxScope)
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return strings.TrimSpace(string(r[:n]))
	}
	return s
}

// checkboxName prefers the primary text of the list item holding a
// checkbox, which the resolver's item rule finds again.
func checkboxName(t TargetInfo) string {
	if primary := page.Normalize(t.ItemPrimary); primary != "" {
		return truncate(primary, maxTextName)
	}
	return Name(t)
}

func checkCommand(name string, checked bool) string {
	verb := "check"
	if !checked {
		verb = "uncheck"
	}
	return verb + " " + command.Quote(name)
}

// Synthesize maps one event onto a recorder decision. It is pure.
func Synthesize(ev Event) Decision {
	t := ev.Target
	switch ev.Kind {
	case EventClick:
		return synthesizeClick(t)

	case EventInput:
		if !t.IsEditable() {
			return Decision{}
		}
		return Decision{Op: OpFill, Target: Name(t), Value: ev.Value}

	case EventChange:
		if t.tag() != "select" {
			return Decision{}
		}
		return Decision{Op: OpEmit, Command: "select " + command.Quote(Name(t)) + " " + command.Quote(ev.Value)}

	case EventKeyDown:
		key, ok := specialKeys[strings.ToLower(ev.Key)]
		if !ok {
			return Decision{}
		}
		return Decision{Op: OpEmit, Command: "press " + key, Causal: key == "Enter"}

	case EventNavigate:
		if !ev.MainFrame || IsInternalURL(ev.URL) {
			return Decision{}
		}
		return Decision{Op: OpEmit, Command: "goto " + ev.URL}
	}
	return Decision{}
}

func synthesizeClick(t TargetInfo) Decision {
	// A label forwards its click to the control; record the state the
	// control is about to get and drop the forwarded click.
	if t.tag() == "label" && t.Control != nil && t.Control.IsCheckable() {
		ctl := *t.Control
		name := checkboxName(ctl)
		want := !ctl.Checked || ctl.isRadio()
		return Decision{Op: OpEmit, Command: checkCommand(name, want), Suppress: name}
	}

	if t.IsCheckable() {
		checked := t.Checked || t.isRadio()
		return Decision{Op: OpEmit, Command: checkCommand(checkboxName(t), checked)}
	}

	// Focus clicks on fields and selects are covered by fill and select.
	if t.IsEditable() || t.tag() == "select" || t.tag() == "option" {
		return Decision{}
	}
	if isStructural(t) {
		return Decision{}
	}

	name := Name(t)
	unlabeled := t.IsButtonLike() && name == t.tag()
	if isDestructive(t) || unlabeled {
		if scope := itemScope(t); scope != "" {
			return Decision{Op: OpEmit, Command: "click " + command.Quote(name) + " " + command.Quote(scope), Causal: true}
		}
	}
	return Decision{Op: OpEmit, Command: "click " + command.Quote(name), Causal: true}
}
