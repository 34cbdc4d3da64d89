// Package plugin runs external executables in response to interaction
// events. Each plugin lives in its own directory with a plugin.json
// manifest naming its executable and the event kinds it wants.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// ManifestFile is the manifest name looked up in every plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and subscriptions.
type Manifest struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Executable  string              `json:"executable"`
	Events      []gesture.EventKind `json:"events"`
	// Config is passed to the plugin unchanged with every request.
	Config json.RawMessage `json:"config,omitempty"`
}

// Request is written to the plugin's stdin.
type Request struct {
	Event  gesture.Event   `json:"event"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether the plugin subscribed to kind.
func (p *Plugin) Wants(kind gesture.EventKind) bool {
	for _, k := range p.Manifest.Events {
		if k == kind {
			return true
		}
	}
	return false
}
