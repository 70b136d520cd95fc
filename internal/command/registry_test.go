// File: internal/command/registry_test.go
package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasesResolveToCanonicalKind(t *testing.T) {
	t.Parallel()
	testCases := map[string]Kind{
		"goto":       KindGoto,
		"open":       KindGoto,
		"c":          KindClick,
		"f":          KindFill,
		"p":          KindPress,
		"s":          KindSnapshot,
		"back":       KindGoBack,
		"forward":    KindGoForward,
		"go-forward": KindGoForward,
		"verify-url": KindVerifyURL,
		"help":       KindHelp,
	}
	for name, want := range testCases {
		cmd, ok := ParseLine(name + " arg")
		require.True(t, ok, name)
		assert.Equal(t, want, cmd.Kind, name)
		spec, _ := SpecFor(want)
		assert.Equal(t, spec.Name, cmd.Name, "canonical name for %s", name)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	upper, _ := ParseLine(`OPEN example.com`)
	lower, _ := ParseLine(`open example.com`)
	assert.Equal(t, lower, upper)
	assert.Equal(t, "goto", upper.Name)
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	cmd, ok := ParseLine(`frobnicate "x"`)
	require.True(t, ok)
	assert.Equal(t, KindUnknown, cmd.Kind)
	assert.Equal(t, "frobnicate", cmd.Name)
	assert.Equal(t, "unknown", cmd.Kind.String())
}

func TestRegistryIsComplete(t *testing.T) {
	t.Parallel()
	// Every kind between the sentinel and the last declared kind is registered.
	for k := KindGoto; k <= KindHelp; k++ {
		spec, ok := SpecFor(k)
		require.True(t, ok, "kind %d has no spec", k)
		assert.NotEmpty(t, spec.Usage)
		assert.NotEmpty(t, spec.Summary)
		assert.Contains(t, Categories, spec.Category)
	}
	assert.Len(t, Specs(), int(KindHelp))
	assert.Len(t, Names(), 30)
}

func TestKindTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Click", KindClick.Title())
	assert.Equal(t, "Go-back", KindGoBack.Title())
	assert.Equal(t, "Unknown", KindUnknown.Title())
}

func TestCommandArg(t *testing.T) {
	t.Parallel()
	cmd, _ := ParseLine(`click "Delete" "Buy milk"`)
	assert.Equal(t, "Delete", cmd.Arg(0))
	assert.Equal(t, "Buy milk", cmd.Arg(1))
	assert.Equal(t, "", cmd.Arg(2))
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()
	testCases := map[string]string{
		"example.com":            "https://example.com",
		" example.com/a?b=1 ":    "https://example.com/a?b=1",
		"http://localhost:8080":  "http://localhost:8080",
		"https://x.com":          "https://x.com",
		"localhost:3000":         "https://localhost:3000",
		"file:///tmp/index.html": "file:///tmp/index.html",
		"about:blank":            "about:blank",
	}
	for in, want := range testCases {
		assert.Equal(t, want, NormalizeURL(in), in)
	}
}

func TestLookupKey(t *testing.T) {
	t.Parallel()
	enter, ok := LookupKey("ENTER")
	require.True(t, ok)
	assert.Equal(t, Key{Key: "Enter", Code: "Enter", KeyCode: 13, Text: "\r"}, enter)

	left, ok := LookupKey("left")
	require.True(t, ok)
	assert.Equal(t, int64(37), left.KeyCode)

	space, ok := LookupKey("Space")
	require.True(t, ok)
	assert.Equal(t, "Space", space.Name())

	a, ok := LookupKey("a")
	require.True(t, ok)
	assert.Equal(t, Key{Key: "a", Code: "KeyA", KeyCode: 97, Text: "a"}, a)

	_, ok = LookupKey("PageDown")
	assert.False(t, ok)
	_, ok = LookupKey("")
	assert.False(t, ok)
}
