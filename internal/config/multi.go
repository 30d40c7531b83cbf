package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultLabel = "Default"

var ErrNoConfig = errors.New("no config selected")

func ConfigRoot() string {
	// Windows
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "mangapdf")
	}

	// Linux/macOS XDG
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mangapdf")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mangapdf")
}

// Store keeps labeled YAML profiles in Root/configs and the active label in
// Root/current_config.
type Store struct {
	Root string
}

func DefaultStore() *Store {
	return &Store{Root: ConfigRoot()}
}

func (s *Store) ConfigsDir() string {
	return filepath.Join(s.Root, "configs")
}

func (s *Store) currentLabelFile() string {
	return filepath.Join(s.Root, "current_config")
}

func (s *Store) Path(label string) string {
	return filepath.Join(s.ConfigsDir(), label+".yaml")
}

func (s *Store) ensureDirs() error {
	return os.MkdirAll(s.ConfigsDir(), 0755)
}

func (s *Store) CurrentLabel() (string, error) {
	b, err := os.ReadFile(s.currentLabelFile())
	if os.IsNotExist(err) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(string(b))
	if label == "" {
		return "", ErrNoConfig
	}

	return label, nil
}

func (s *Store) ActivePath() (string, error) {
	label, err := s.CurrentLabel()
	if err != nil {
		return "", err
	}

	return s.Path(label), nil
}

type ConfigInfo struct {
	Label  string
	Path   string
	Active bool
}

func (s *Store) List() ([]ConfigInfo, error) {
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.ConfigsDir())
	if err != nil {
		return nil, err
	}

	activeLabel, _ := s.CurrentLabel()
	var out []ConfigInfo

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}

		label := strings.TrimSuffix(name, ".yaml")
		out = append(out, ConfigInfo{
			Label:  label,
			Path:   s.Path(label),
			Active: label == activeLabel,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (s *Store) Switch(label string) error {
	if strings.TrimSpace(label) == "" {
		return errors.New("label cannot be empty")
	}
	if _, err := os.Stat(s.Path(label)); err != nil {
		return fmt.Errorf("config %q does not exist", label)
	}

	return os.WriteFile(s.currentLabelFile(), []byte(label), 0644)
}

func (s *Store) Save(label string, cfg *Config) (string, error) {
	if strings.TrimSpace(label) == "" {
		return "", errors.New("label cannot be empty")
	}
	if err := s.ensureDirs(); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := s.Path(label)
	return path, SaveYAML(cfg, path)
}

// Init writes the Default profile when it is missing and makes it active.
// It returns os.ErrExist when the profile was already there.
func (s *Store) Init() (string, error) {
	path := s.Path(DefaultLabel)
	if _, err := os.Stat(path); err == nil {
		return path, errors.Join(os.ErrExist, s.Switch(DefaultLabel))
	}

	if _, err := s.Save(DefaultLabel, DefaultConfig()); err != nil {
		return "", err
	}

	return path, s.Switch(DefaultLabel)
}
