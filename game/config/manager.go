package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/kungfu-chess/game/engine"
	"github.com/wricardo/kungfu-chess/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// PiecesDir is the directory, relative to the config directory, holding
// <CODE>/moves.txt rule sources
const PiecesDir = "pieces"

// DefaultConfigName is tried first when picking the default configuration
const DefaultConfigName = "classic"

var configExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles game configuration loading and caching
type Manager struct {
	configDir     string
	pieces        fs.FS
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		pieces:    os.DirFS(configDir),
		configs:   make(map[string]*engine.GameConfig),
	}

	// Load default config
	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a configuration by name
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	name = trimExtension(name)

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	config, err := m.readConfig(name)
	if err != nil {
		return nil, err
	}

	// Cache the config
	m.configs[name] = config
	return config, nil
}

// readConfig parses, completes and validates one config file. Callers hold mu.
func (m *Manager) readConfig(name string) (*engine.GameConfig, error) {
	configPath, ext, err := m.findConfigFile(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config engine.GameConfig
	if ext == ".json" {
		err = json.Unmarshal(data, &config)
	} else {
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, filepath.Base(configPath), err)
	}

	config.ApplyDefaults()
	if err := m.attachMoveRules(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Validate config
	if err := engine.ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

// attachMoveRules fills in rule tables for every layout code the config does
// not define inline. A malformed rules file fails the whole config.
func (m *Manager) attachMoveRules(config *engine.GameConfig) error {
	if config.Moves == nil {
		config.Moves = make(map[string][]engine.Offset)
	}
	for _, code := range engine.LayoutCodes(config.Layout) {
		if _, inline := config.Moves[code]; inline {
			continue
		}
		if err := engine.ValidatePieceCode(code); err != nil {
			return err
		}
		rules, err := engine.LoadMoveRules(m.pieces, PiecesDir, code, config.Rows, config.Cols)
		if err != nil {
			return err
		}
		config.Moves[code] = rules.Offsets()
	}
	return nil
}

func (m *Manager) findConfigFile(name string) (string, string, error) {
	for _, ext := range configExtensions {
		p := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, ext, nil
		}
	}
	return "", "", ErrConfigNotFound
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !hasConfigExtension(entry.Name()) {
			continue
		}

		name := trimExtension(entry.Name())
		if seen[name] {
			continue
		}
		seen[name] = true

		// Try to load the config to get details
		config, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid configs
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    name, // This is the identifier to use for session creation
			Name:        config.Name,
			Description: config.Description,
			Rows:        config.Rows,
			Cols:        config.Cols,
			PieceCount:  countPieces(config.Layout),
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached configuration and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig loads the default configuration
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultConfigName)
	if err != nil {
		// Try to load the first available config
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.setDefault(MinimalConfig())
			return nil
		}

		config, err = m.LoadConfig(configs[0].ConfigID)
		if err != nil {
			m.setDefault(MinimalConfig())
			return nil
		}
	}

	m.setDefault(config)
	return nil
}

func (m *Manager) setDefault(config *engine.GameConfig) {
	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// SaveConfig saves a configuration to disk. A ".yaml" or ".yml" suffix on
// name selects YAML, anything else is written as JSON. Move rules resolved
// from the pieces directory are written inline.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	config.ApplyDefaults()
	if err := m.attachMoveRules(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Validate config before saving
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	ext := filepath.Ext(name)
	if ext != ".yaml" && ext != ".yml" {
		ext = ".json"
	}
	base := trimExtension(name)
	configPath := filepath.Join(m.configDir, base+ext)

	var (
		data []byte
		err  error
	)
	if ext == ".json" {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[base] = config
	m.mu.Unlock()

	return nil
}

// MinimalConfig is the built-in fallback: kings and pawns on a full board
func MinimalConfig() *engine.GameConfig {
	king := []engine.Offset{
		{DR: -1, DC: -1}, {DR: -1, DC: 0}, {DR: -1, DC: 1},
		{DR: 0, DC: -1}, {DR: 0, DC: 1},
		{DR: 1, DC: -1}, {DR: 1, DC: 0}, {DR: 1, DC: 1},
	}
	config := &engine.GameConfig{
		Name:        "default",
		Description: "Default minimal configuration: kings and pawns",
		Rows:        8,
		Cols:        8,
		Layout: []string{
			",,,,KB,,,",
			"PB,PB,PB,PB,PB,PB,PB,PB",
			",,,,,,,",
			",,,,,,,",
			",,,,,,,",
			",,,,,,,",
			"PW,PW,PW,PW,PW,PW,PW,PW",
			",,,,KW,,,",
		},
		Moves: map[string][]engine.Offset{
			"KW": king,
			"KB": king,
			"PW": {{DR: -1, DC: 0}, {DR: -2, DC: 0}},
			"PB": {{DR: 1, DC: 0}, {DR: 2, DC: 0}},
		},
	}
	config.ApplyDefaults()
	return config
}

func hasConfigExtension(filename string) bool {
	ext := filepath.Ext(filename)
	for _, e := range configExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func trimExtension(name string) string {
	if hasConfigExtension(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func countPieces(layout []string) int {
	n := 0
	for _, row := range layout {
		for _, code := range strings.Split(row, ",") {
			if strings.TrimSpace(code) != "" {
				n++
			}
		}
	}
	return n
}
