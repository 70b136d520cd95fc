// File: internal/command/registry.go
package command

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies a canonical command. Aliases resolve to the same Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindGoto
	KindClick
	KindDblClick
	KindFill
	KindSelect
	KindCheck
	KindUncheck
	KindHover
	KindPress
	KindSnapshot
	KindScreenshot
	KindEval
	KindGoBack
	KindGoForward
	KindReload
	KindVerifyText
	KindVerifyNoText
	KindVerifyElement
	KindVerifyNoElement
	KindVerifyURL
	KindVerifyTitle
	KindExport
	KindHelp
)

// Category groups commands in help output.
type Category string

const (
	CategoryNavigation  Category = "Navigation"
	CategoryInteraction Category = "Interaction"
	CategoryInspection  Category = "Inspection"
	CategoryAssertion   Category = "Assertions"
	CategorySession     Category = "Session"
)

// Categories lists the help sections in display order.
var Categories = []Category{
	CategoryNavigation,
	CategoryInteraction,
	CategoryInspection,
	CategoryAssertion,
	CategorySession,
}

// Spec describes one canonical command.
type Spec struct {
	Kind     Kind
	Name     string
	Aliases  []string
	Usage    string
	Summary  string
	MinArgs  int
	Category Category
}

// Command is a parsed line with its alias resolved.
type Command struct {
	Kind Kind
	// Name is the canonical command name, never an alias.
	Name string
	Args []string
}

// Arg returns the i-th argument or "" when absent.
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

var specs = []Spec{
	{KindGoto, "goto", []string{"open"}, `goto <url>`, "Navigate to a URL (https:// is assumed)", 1, CategoryNavigation},
	{KindGoBack, "go-back", []string{"back"}, `go-back`, "Go back in history", 0, CategoryNavigation},
	{KindGoForward, "go-forward", []string{"forward"}, `go-forward`, "Go forward in history", 0, CategoryNavigation},
	{KindReload, "reload", nil, `reload`, "Reload the page", 0, CategoryNavigation},

	{KindClick, "click", []string{"c"}, `click "<target>" ["<scope>"]`, "Click an element, optionally inside the item containing <scope>", 1, CategoryInteraction},
	{KindDblClick, "dblclick", nil, `dblclick "<target>"`, "Double-click an element", 1, CategoryInteraction},
	{KindFill, "fill", []string{"f"}, `fill "<field>" "<text>"`, "Replace the value of a text field", 2, CategoryInteraction},
	{KindSelect, "select", nil, `select "<field>" "<option>"`, "Choose an option of a dropdown", 2, CategoryInteraction},
	{KindCheck, "check", nil, `check "<target>"`, "Check a checkbox or radio", 1, CategoryInteraction},
	{KindUncheck, "uncheck", nil, `uncheck "<target>"`, "Uncheck a checkbox", 1, CategoryInteraction},
	{KindHover, "hover", nil, `hover "<target>"`, "Move the pointer over an element", 1, CategoryInteraction},
	{KindPress, "press", []string{"p"}, `press <key>`, "Press a key (Enter, Tab, Escape, Backspace, Delete, arrows, Space or a character)", 1, CategoryInteraction},

	{KindSnapshot, "snapshot", []string{"s"}, `snapshot`, "List the accessibility tree with node refs", 0, CategoryInspection},
	{KindScreenshot, "screenshot", nil, `screenshot [full]`, "Capture the viewport, or the whole page with full", 0, CategoryInspection},
	{KindEval, "eval", nil, `eval "<expression>"`, "Evaluate a JavaScript expression", 1, CategoryInspection},

	{KindVerifyText, "verify-text", nil, `verify-text "<text>"`, "Assert the page text contains <text>", 1, CategoryAssertion},
	{KindVerifyNoText, "verify-no-text", nil, `verify-no-text "<text>"`, "Assert the page text does not contain <text>", 1, CategoryAssertion},
	{KindVerifyElement, "verify-element", nil, `verify-element "<target>"`, "Assert an element can be located", 1, CategoryAssertion},
	{KindVerifyNoElement, "verify-no-element", nil, `verify-no-element "<target>"`, "Assert no element matches", 1, CategoryAssertion},
	{KindVerifyURL, "verify-url", nil, `verify-url "<text>"`, "Assert the current URL contains <text>", 1, CategoryAssertion},
	{KindVerifyTitle, "verify-title", nil, `verify-title "<text>"`, "Assert the page title contains <text>", 1, CategoryAssertion},

	{KindExport, "export", nil, `export`, "Print the current script as a Playwright test", 0, CategorySession},
	{KindHelp, "help", nil, `help [command]`, "List commands, or show usage of one", 0, CategorySession},
}

var (
	byName = map[string]*Spec{}
	byKind = map[Kind]*Spec{}
)

func init() {
	for i := range specs {
		s := &specs[i]
		if _, dup := byKind[s.Kind]; dup {
			panic(fmt.Sprintf("command: duplicate kind for %q", s.Name))
		}
		byKind[s.Kind] = s
		for _, name := range append([]string{s.Name}, s.Aliases...) {
			if _, dup := byName[name]; dup {
				panic(fmt.Sprintf("command: duplicate name %q", name))
			}
			byName[name] = s
		}
	}
}

// Lookup finds the spec for a canonical name or alias, case-insensitively.
func Lookup(name string) (Spec, bool) {
	s, ok := byName[strings.ToLower(name)]
	if !ok {
		return Spec{}, false
	}
	return *s, true
}

// SpecFor returns the spec of a kind.
func SpecFor(k Kind) (Spec, bool) {
	s, ok := byKind[k]
	if !ok {
		return Spec{}, false
	}
	return *s, true
}

// Specs returns all command specs in registry order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// Names returns every accepted name, canonical and alias, sorted.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a parsed line onto its canonical command. Unknown names yield
// KindUnknown with the original name kept for error reporting.
func Resolve(p Parsed) Command {
	s, ok := byName[p.Name]
	if !ok {
		return Command{Kind: KindUnknown, Name: p.Name, Args: p.Args}
	}
	return Command{Kind: s.Kind, Name: s.Name, Args: p.Args}
}

// ParseLine parses and resolves raw in one step. It returns false for blank
// and comment lines.
func ParseLine(raw string) (Command, bool) {
	p, ok := Parse(raw)
	if !ok {
		return Command{}, false
	}
	return Resolve(p), true
}

// String returns the canonical name of k.
func (k Kind) String() string {
	if s, ok := byKind[k]; ok {
		return s.Name
	}
	return "unknown"
}

// Title returns the display form used in driver error messages, e.g.
// "Click failed: ...".
func (k Kind) Title() string {
	name := k.String()
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
