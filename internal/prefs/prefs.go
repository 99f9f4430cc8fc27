// Package prefs persists operator console preferences between sessions:
// the chosen theme and the command history. They live in
// ~/.config/steward/console.toml, apart from the bot configuration, because
// the console rewrites the file on its own.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds console preferences.
type Prefs struct {
	Theme   string   `toml:"theme"`
	History []string `toml:"history"`
}

const (
	defaultPrefsPath = "~/.config/steward/console.toml"

	// MaxHistory is the number of commands kept across sessions.
	MaxHistory = 100
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. A missing or unreadable file yields
// theme, with an empty history; the console must start regardless.
func Load(path, theme string) Prefs {
	fallback := Prefs{Theme: theme}

	resolved, err := resolvePath(path)
	if err != nil {
		return fallback
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fallback
	}

	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return fallback
	}
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = theme
	}
	if n := len(p.History); n > MaxHistory {
		p.History = p.History[n-MaxHistory:]
	}
	return p
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// Remember appends line to the history, skipping blanks and immediate repeats.
func (p *Prefs) Remember(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(p.History); n > 0 && p.History[n-1] == line {
		return
	}
	p.History = append(p.History, line)
	if n := len(p.History); n > MaxHistory {
		p.History = p.History[n-MaxHistory:]
	}
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	return filepath.Abs(trimmed)
}
