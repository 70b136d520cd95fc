// File: internal/command/keys.go
package command

import (
	"strings"
	"unicode/utf8"
)

// Key is the identity of a key press as browsers report it.
type Key struct {
	Key     string
	Code    string
	KeyCode int64
	// Text is the character the key produces, empty for non-printing keys.
	Text string
}

// Name is the key as Playwright's keyboard API spells it.
func (k Key) Name() string {
	if k.Key == " " {
		return "Space"
	}
	return k.Key
}

// namedKeys is the fixed press vocabulary, keyed by lowercased name.
var namedKeys = map[string]Key{
	"enter":      {Key: "Enter", Code: "Enter", KeyCode: 13, Text: "\r"},
	"tab":        {Key: "Tab", Code: "Tab", KeyCode: 9},
	"escape":     {Key: "Escape", Code: "Escape", KeyCode: 27},
	"backspace":  {Key: "Backspace", Code: "Backspace", KeyCode: 8},
	"delete":     {Key: "Delete", Code: "Delete", KeyCode: 46},
	"arrowleft":  {Key: "ArrowLeft", Code: "ArrowLeft", KeyCode: 37},
	"arrowup":    {Key: "ArrowUp", Code: "ArrowUp", KeyCode: 38},
	"arrowright": {Key: "ArrowRight", Code: "ArrowRight", KeyCode: 39},
	"arrowdown":  {Key: "ArrowDown", Code: "ArrowDown", KeyCode: 40},
	"space":      {Key: " ", Code: "Space", KeyCode: 32, Text: " "},
}

// keyAliases are accepted spellings of named keys.
var keyAliases = map[string]string{
	"return": "enter",
	"esc":    "escape",
	"left":   "arrowleft",
	"up":     "arrowup",
	"right":  "arrowright",
	"down":   "arrowdown",
}

// LookupKey maps user input to a key identity. Named keys are matched
// case-insensitively; any other single character becomes a key of its own
// with code "Key"+upper and its character code. Longer unknown names fail.
func LookupKey(name string) (Key, bool) {
	lower := strings.ToLower(name)
	if alias, ok := keyAliases[lower]; ok {
		lower = alias
	}
	if ev, ok := namedKeys[lower]; ok {
		return ev, true
	}
	if utf8.RuneCountInString(name) != 1 {
		return Key{}, false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return Key{
		Key:     name,
		Code:    "Key" + strings.ToUpper(name),
		KeyCode: int64(r),
		Text:    name,
	}, true
}
