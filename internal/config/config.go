// Package config provides configuration management for AutoInput setups.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Setups contains all named automation setups
	Setups []Setup `json:"setups" yaml:"setups"`

	// Hotkeys are the global start/stop/toggle shortcuts
	Hotkeys HotkeySettings `json:"hotkeys" yaml:"hotkeys"`

	// General contains general application settings
	General GeneralConfig `json:"general" yaml:"general"`
}

// HotkeySettings holds the global shortcuts. They act on General.ActiveSetup.
type HotkeySettings struct {
	Start  string `json:"start,omitempty" yaml:"start,omitempty"`
	Stop   string `json:"stop,omitempty" yaml:"stop,omitempty"`
	Toggle string `json:"toggle,omitempty" yaml:"toggle,omitempty"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// ActiveSetup is the setup driven by the global hotkeys
	ActiveSetup string `json:"active_setup" yaml:"active_setup"`

	// APIEnabled enables the local HTTP/WebSocket API
	APIEnabled bool `json:"api_enabled" yaml:"api_enabled"`

	// APIPort is the port for the API server (default: 18090)
	APIPort int `json:"api_port" yaml:"api_port"`

	// APIToken is an optional authentication token for API requests
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`

	// ShowTray shows the system tray menu
	ShowTray bool `json:"show_tray" yaml:"show_tray"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Setups: []Setup{
			DefaultSetup("Default"),
		},
		Hotkeys: HotkeySettings{
			Toggle: "F6",
		},
		General: GeneralConfig{
			ActiveSetup: "Default",
			APIEnabled:  true,
			APIPort:     18090,
			ShowTray:    true,
		},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  []func()
}

// NewManager creates a configuration manager for the per-user config file
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager for an explicit file.
// Files ending in .yaml or .yml are read and written as YAML, anything else as JSON.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: filepath.Clean(path),
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "autoinput")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "autoinput")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "autoinput")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the file the manager reads and writes
func (m *Manager) Path() string {
	return m.configPath
}

func (m *Manager) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.configPath))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	cfg.Setups = nil
	if m.isYAML() {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	m.config = cfg
	callbacks := append([]func(){}, m.onChanged...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if m.isYAML() {
		data, err = yaml.Marshal(m.config)
	} else {
		data, err = json.MarshalIndent(m.config, "", "  ")
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	callbacks := append([]func(){}, m.onChanged...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

// GetSetup returns a copy of the setup with the given name
func (m *Manager) GetSetup(name string) (Setup, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.config.Setups {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Setup{}, false
}

// SetSetup updates or adds a setup
func (m *Manager) SetSetup(setup Setup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Setups {
		if m.config.Setups[i].Name == setup.Name {
			m.config.Setups[i] = setup
			return
		}
	}
	// Not found, add new
	m.config.Setups = append(m.config.Setups, setup)
}

// DeleteSetup removes a setup by name
func (m *Manager) DeleteSetup(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Setups {
		if m.config.Setups[i].Name == name {
			m.config.Setups = append(m.config.Setups[:i], m.config.Setups[i+1:]...)
			return
		}
	}
}

// GetActiveSetup returns the setup driven by the global hotkeys
func (m *Manager) GetActiveSetup() (Setup, bool) {
	return m.GetSetup(m.Get().General.ActiveSetup)
}
