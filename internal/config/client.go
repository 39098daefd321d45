package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	appName             = "focusflow"
	preferencesFileName = "preferences.yaml"
)

// ClientConfig holds the participant client's connection settings.
type ClientConfig struct {
	Server          string
	Token           string
	PreferencesPath string
}

// BindClientFlags registers the shared client flags on fs. Environment
// values seed the defaults so flags take precedence.
func BindClientFlags(fs *pflag.FlagSet, cfg *ClientConfig) {
	fs.StringVar(&cfg.Server, "server", getEnv("FOCUSFLOW_SERVER", "http://localhost:8080"), "FocusFlow server base URL")
	fs.StringVar(&cfg.Token, "token", getEnv("FOCUSFLOW_TOKEN", ""), "bearer token (defaults to the saved login)")
	fs.StringVar(&cfg.PreferencesPath, "preferences", "", "preferences file (defaults to the user config dir)")
}

// Preferences is explicit client configuration handed to the runner at
// construction.
type Preferences struct {
	Theme                   string
	AlarmSound              string
	AlarmVolume             float64
	Music                   string
	PauseBetweenPhases      bool
	BroadcastEveryTicks     int
	WatchdogIntervalSeconds int
	// Token is the last login's token, used when --token is empty.
	Token string
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                   "classic",
		AlarmSound:              "bell",
		AlarmVolume:             0.7,
		Music:                   "none",
		BroadcastEveryTicks:     5,
		WatchdogIntervalSeconds: 2,
	}
}

func (p Preferences) WatchdogInterval() time.Duration {
	return time.Duration(p.WatchdogIntervalSeconds) * time.Second
}

type yamlPreferences struct {
	Theme                   string   `yaml:"theme,omitempty"`
	AlarmSound              string   `yaml:"alarm_sound,omitempty"`
	AlarmVolume             *float64 `yaml:"alarm_volume,omitempty"`
	Music                   string   `yaml:"music,omitempty"`
	PauseBetweenPhases      bool     `yaml:"pause_between_phases"`
	BroadcastEveryTicks     int      `yaml:"broadcast_every_ticks,omitempty"`
	WatchdogIntervalSeconds int      `yaml:"watchdog_interval_seconds,omitempty"`
	Token                   string   `yaml:"token,omitempty"`
}

// PreferencesPath resolves path, falling back to the user config dir.
func PreferencesPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, preferencesFileName), nil
}

// LoadPreferences reads preferences from YAML. A missing file yields the
// defaults.
func LoadPreferences(path string) (Preferences, error) {
	prefs := DefaultPreferences()
	configPath, err := PreferencesPath(path)
	if err != nil {
		return prefs, err
	}

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("read preferences file: %w", err)
	}

	var fileData yamlPreferences
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return prefs, fmt.Errorf("parse preferences yaml: %w", err)
	}

	applyYamlPreferences(&prefs, fileData)
	return prefs, nil
}

func SavePreferences(path string, prefs Preferences) error {
	configPath, err := PreferencesPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	volume := prefs.AlarmVolume
	serialized, err := yaml.Marshal(yamlPreferences{
		Theme:                   prefs.Theme,
		AlarmSound:              prefs.AlarmSound,
		AlarmVolume:             &volume,
		Music:                   prefs.Music,
		PauseBetweenPhases:      prefs.PauseBetweenPhases,
		BroadcastEveryTicks:     prefs.BroadcastEveryTicks,
		WatchdogIntervalSeconds: prefs.WatchdogIntervalSeconds,
		Token:                   prefs.Token,
	})
	if err != nil {
		return fmt.Errorf("marshal preferences yaml: %w", err)
	}

	// The file may hold a token.
	if err := os.WriteFile(configPath, serialized, 0o600); err != nil {
		return fmt.Errorf("write preferences file: %w", err)
	}
	return nil
}

func applyYamlPreferences(prefs *Preferences, fileData yamlPreferences) {
	if theme := strings.TrimSpace(fileData.Theme); theme != "" {
		prefs.Theme = theme
	}
	if sound := strings.TrimSpace(fileData.AlarmSound); sound != "" {
		prefs.AlarmSound = sound
	}
	if fileData.AlarmVolume != nil && *fileData.AlarmVolume >= 0 && *fileData.AlarmVolume <= 1 {
		prefs.AlarmVolume = *fileData.AlarmVolume
	}
	if music := strings.TrimSpace(fileData.Music); music != "" {
		prefs.Music = music
	}
	if fileData.BroadcastEveryTicks > 0 {
		prefs.BroadcastEveryTicks = fileData.BroadcastEveryTicks
	}
	if fileData.WatchdogIntervalSeconds > 0 {
		prefs.WatchdogIntervalSeconds = fileData.WatchdogIntervalSeconds
	}
	prefs.PauseBetweenPhases = fileData.PauseBetweenPhases
	prefs.Token = fileData.Token
}
