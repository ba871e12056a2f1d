// Package prefs persists user preferences between sessions.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Prefs are the remembered user choices.
type Prefs struct {
	LastSelectedDir string `json:"last_selected_dir"`
}

const lastSelectedKey = "last_selected_dir"

// Path returns the location of the preferences file.
func Path() (string, error) {
	if v := strings.TrimSpace(os.Getenv("CAPNAME_HOME")); v != "" {
		return filepath.Join(v, "config.json"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "capname", "config.json"), nil
}

// Load reads preferences. A missing file yields empty preferences.
func Load() (Prefs, error) {
	raw, err := loadRaw()
	if err != nil {
		return Prefs{}, err
	}

	p := Prefs{}
	if v, ok := raw[lastSelectedKey]; ok {
		if err := json.Unmarshal(v, &p.LastSelectedDir); err != nil {
			return Prefs{}, fmt.Errorf("%s: %w", lastSelectedKey, err)
		}
	}
	return p, nil
}

// Save writes preferences, keeping any keys it does not know about.
func Save(p Prefs) error {
	path, err := Path()
	if err != nil {
		return err
	}

	raw, err := loadRaw()
	if err != nil {
		return err
	}

	v, err := json.Marshal(p.LastSelectedDir)
	if err != nil {
		return err
	}
	raw[lastSelectedKey] = v

	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func loadRaw() (map[string]json.RawMessage, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return raw, nil
}
