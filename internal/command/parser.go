// File: internal/command/parser.go
package command

import "strings"

// Parsed is a tokenized command line before alias resolution.
type Parsed struct {
	// Name is the first token, lowercased.
	Name string
	Args []string
}

// IsComment reports whether the line is a comment: its first non-whitespace
// character is '#'.
func IsComment(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "#")
}

// IsExecutable reports whether the line carries a command, i.e. it is neither
// blank nor a comment.
func IsExecutable(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed != "" && !strings.HasPrefix(trimmed, "#")
}

// Tokenize splits a line into tokens. Spaces and tabs separate tokens outside
// quotes. A token opened with " or ' runs to the matching quote; an
// unterminated quote absorbs the rest of the line. Blank and comment lines
// yield no tokens.
func Tokenize(raw string) []string {
	if !IsExecutable(raw) {
		return []string{}
	}

	tokens := []string{}
	var (
		current  strings.Builder
		quote    rune
		inQuote  bool
		hasToken bool
	)

	flush := func() {
		if hasToken {
			tokens = append(tokens, current.String())
		}
		current.Reset()
		hasToken = false
	}

	for _, r := range strings.TrimRight(raw, "\r\n") {
		switch {
		case inQuote:
			if r == quote {
				inQuote = false
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			inQuote = true
			quote = r
			// An empty quoted string is still a token.
			hasToken = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
			hasToken = true
		}
	}
	flush()
	return tokens
}

// Parse tokenizes raw and splits it into a lowercased command name and its
// arguments. It returns false iff the line yields no tokens.
func Parse(raw string) (Parsed, bool) {
	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return Parsed{}, false
	}
	return Parsed{Name: strings.ToLower(tokens[0]), Args: tokens[1:]}, true
}

// Quote renders an argument so that Tokenize reads it back as one token.
// An argument holding both quote characters is written as adjacent quoted
// segments, which Tokenize joins.
func Quote(arg string) string {
	if !strings.Contains(arg, `"`) {
		return `"` + arg + `"`
	}
	if !strings.Contains(arg, `'`) {
		return `'` + arg + `'`
	}
	parts := strings.Split(arg, `"`)
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, `'"'`)
}
