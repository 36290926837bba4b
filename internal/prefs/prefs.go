// Package prefs persists dashboard preferences that the user changes from
// inside the UI. Preferences are stored in ~/.config/lookout/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Panel names the lower dashboard pane.
type Panel string

const (
	PanelFiles  Panel = "files"
	PanelEvents Panel = "events"
)

// Prefs holds user preferences for the dashboard.
type Prefs struct {
	Theme string `toml:"theme"`
	Panel Panel  `toml:"panel"`
}

const (
	defaultPrefsPath = "~/.config/lookout/prefs.toml"
	defaultTheme     = "Nightfox"
)

// Default returns the preferences used before anything was saved.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, Panel: PanelFiles}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path, returning the defaults when the file
// cannot be read or parsed.
func Load(path string) Prefs {
	p := Default()
	resolved, err := resolvePath(path)
	if err != nil {
		return p
	}

	file, err := os.Open(resolved)
	if err != nil {
		return p
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return p
	}
	if err := toml.Unmarshal(bytes, &p); err != nil {
		return Default()
	}
	return p.normalized()
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	switch p.Panel {
	case PanelFiles, PanelEvents:
	default:
		p.Panel = PanelFiles
	}
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		return errors.Join(fmt.Errorf("replace prefs: %w", err), os.Remove(tmp))
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
