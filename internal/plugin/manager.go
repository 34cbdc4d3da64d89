package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager discovers plugins and looks them up.
type Manager struct {
	pluginDir string
	log       *zap.Logger

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager over pluginDir.
func NewManager(pluginDir string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		pluginDir: pluginDir,
		log:       log.With(zap.String("component", "plugins")),
		plugins:   make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. A missing directory means no
// plugins. Subdirectories without a readable manifest are skipped.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)
	defer func() {
		m.mu.Lock()
		m.plugins = found
		m.mu.Unlock()
	}()

	entries, err := os.ReadDir(m.pluginDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.pluginDir, entry.Name())

		data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			m.log.Warn("skip plugin", zap.String("dir", dir), zap.Error(err))
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			m.log.Warn("skip plugin with invalid manifest", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			m.log.Warn("skip plugin without name or executable", zap.String("dir", dir))
			continue
		}

		found[manifest.Name] = &Plugin{
			Manifest:   manifest,
			Path:       dir,
			Executable: filepath.Join(dir, manifest.Executable),
		}
		m.log.Info("plugin loaded", zap.String("name", manifest.Name), zap.Any("events", manifest.Events))
	}
	return nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return plugin, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// Subscribed returns the plugins that want kind, sorted by name.
func (m *Manager) Subscribed(kind gesture.EventKind) []*Plugin {
	var out []*Plugin
	for _, p := range m.List() {
		if p.Wants(kind) {
			out = append(out, p)
		}
	}
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
