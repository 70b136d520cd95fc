// File: internal/runner/buffer.go
package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
)

// ScriptBuffer is an editable script: an ordered list of lines, optionally
// backed by a file. Every edit bumps the revision, which is how runners
// notice that their step position no longer applies.
type ScriptBuffer struct {
	mu       sync.RWMutex
	path     string
	lines    []string
	revision uint64
}

// NewScriptBuffer creates an unnamed buffer holding lines.
func NewScriptBuffer(lines ...string) *ScriptBuffer {
	return &ScriptBuffer{lines: append([]string(nil), lines...)}
}

// LoadScript reads a script file. A leading ~ in path is expanded.
func LoadScript(path string) (*ScriptBuffer, error) {
	b := &ScriptBuffer{}
	if err := b.Load(path); err != nil {
		return nil, err
	}
	return b, nil
}

// SplitLines splits script text into lines. CRLF endings are accepted and
// one trailing newline does not produce an extra blank line.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return strings.Split(text, "\n")
}

// Load replaces the buffer with the contents of path and binds the buffer to
// that file.
func (b *ScriptBuffer) Load(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand path %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.path = expanded
	b.lines = SplitLines(string(data))
	b.revision++
	return nil
}

// Save writes the buffer verbatim to path, or to the bound file when path is
// empty, and binds the buffer to the written file.
func (b *ScriptBuffer) Save(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := b.path
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return fmt.Errorf("failed to expand path %s: %w", path, err)
		}
		target = expanded
	}
	if target == "" {
		return errors.New("script has no file name")
	}

	content := strings.Join(b.lines, "\n")
	if len(b.lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write script %s: %w", target, err)
	}
	b.path = target
	return nil
}

// Path returns the bound file, if any.
func (b *ScriptBuffer) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Name is the file name without directory and extension, used as the test
// name on export.
func (b *ScriptBuffer) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.path == "" {
		return ""
	}
	base := filepath.Base(b.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Lines returns a copy of the buffer contents.
func (b *ScriptBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.lines...)
}

// Len returns the number of lines.
func (b *ScriptBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Revision increases with every edit.
func (b *ScriptBuffer) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// snapshot returns the lines together with the revision they belong to.
func (b *ScriptBuffer) snapshot() ([]string, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.lines...), b.revision
}

// Append adds lines at the end.
func (b *ScriptBuffer) Append(lines ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, lines...)
	b.revision++
}

// Set replaces line i.
func (b *ScriptBuffer) Set(i int, line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.lines) {
		return fmt.Errorf("line %d out of range", i+1)
	}
	b.lines[i] = line
	b.revision++
	return nil
}

// Insert puts line before index i; i == Len appends.
func (b *ScriptBuffer) Insert(i int, line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i > len(b.lines) {
		return fmt.Errorf("line %d out of range", i+1)
	}
	b.lines = append(b.lines, "")
	copy(b.lines[i+1:], b.lines[i:])
	b.lines[i] = line
	b.revision++
	return nil
}

// Delete removes line i.
func (b *ScriptBuffer) Delete(i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.lines) {
		return fmt.Errorf("line %d out of range", i+1)
	}
	b.lines = append(b.lines[:i], b.lines[i+1:]...)
	b.revision++
	return nil
}

// Replace swaps in a complete new script.
func (b *ScriptBuffer) Replace(lines []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append([]string(nil), lines...)
	b.revision++
}
