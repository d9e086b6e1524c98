// Package project implements the .lupine project file: identity, the main
// scene pointer and the hierarchical settings store the runtime reads its
// configuration from.
package project

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/lupine-engine/lupine/internal/core/identity"
)

// Project is the root description of a game: a UUID, descriptive metadata,
// the main scene path and a settings tree.
type Project struct {
	id            identity.UUID
	Name          string
	Version       string
	Description   string
	MainScene     string
	EngineVersion string

	AssetDirectories []string
	Scenes           []string

	settings map[string]any

	// Top-level keys we do not understand are preserved verbatim so tools
	// can extend the format without data loss.
	unknown map[string]json.RawMessage
}

func New(name string) *Project {
	return &Project{
		id:       identity.Generate(),
		Name:     name,
		Version:  "1.0.0",
		settings: make(map[string]any),
		unknown:  make(map[string]json.RawMessage),
	}
}

func (p *Project) UUID() identity.UUID      { return p.id }
func (p *Project) SetUUID(id identity.UUID) { p.id = id }

// --- settings ---

// Setting keys are hierarchical, slash-separated paths into the nested
// settings tree ("window/width"). Absent keys resolve to caller-supplied
// defaults; ints and floats coerce losslessly into each other on request.

func (p *Project) SetSettingBool(key string, v bool)     { p.setSetting(key, v) }
func (p *Project) SetSettingInt(key string, v int32)     { p.setSetting(key, v) }
func (p *Project) SetSettingFloat(key string, v float32) { p.setSetting(key, v) }
func (p *Project) SetSettingString(key string, v string) { p.setSetting(key, v) }

func (p *Project) GetSettingBool(key string, def bool) bool {
	if v, ok := p.lookup(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (p *Project) GetSettingInt(key string, def int32) int32 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int32:
		return n
	case int:
		return int32(n)
	case int64:
		return int32(n)
	case float32:
		if float32(int32(n)) == n {
			return int32(n)
		}
	case float64:
		if math.Trunc(n) == n && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n)
		}
	}
	return def
}

func (p *Project) GetSettingFloat(key string, def float32) float32 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float32:
		return n
	case float64:
		return float32(n)
	case int32:
		return float32(n)
	case int:
		return float32(n)
	case int64:
		return float32(n)
	}
	return def
}

func (p *Project) GetSettingString(key string, def string) string {
	if v, ok := p.lookup(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (p *Project) setSetting(key string, v any) {
	parts := strings.Split(key, "/")
	m := p.settings
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

func (p *Project) lookup(key string) (any, bool) {
	parts := strings.Split(key, "/")
	var cur any = p.settings
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// --- serialization ---

type projectWire struct {
	Name             string          `json:"name"`
	UUID             string          `json:"uuid"`
	Version          string          `json:"version"`
	Description      string          `json:"description"`
	MainScene        string          `json:"main_scene"`
	EngineVersion    string          `json:"engine_version"`
	Settings         map[string]any  `json:"settings"`
	AssetDirectories []string        `json:"asset_directories"`
	Scenes           []string        `json:"scenes"`
}

var knownKeys = map[string]struct{}{
	"name": {}, "uuid": {}, "version": {}, "description": {},
	"main_scene": {}, "engine_version": {}, "settings": {},
	"asset_directories": {}, "scenes": {},
}

// Marshal renders the project as UTF-8 JSON under a top-level "project"
// object. Map keys serialize in sorted order, so output is deterministic.
func (p *Project) Marshal() ([]byte, error) {
	wire := projectWire{
		Name:             p.Name,
		UUID:             p.id.String(),
		Version:          p.Version,
		Description:      p.Description,
		MainScene:        p.MainScene,
		EngineVersion:    p.EngineVersion,
		Settings:         p.settings,
		AssetDirectories: p.AssetDirectories,
		Scenes:           p.Scenes,
	}
	base, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, raw := range p.unknown {
		merged[k] = raw
	}
	return json.MarshalIndent(map[string]any{"project": merged}, "", "  ")
}

// Unmarshal parses a project file. Unknown top-level keys are retained for
// the next save.
func Unmarshal(data []byte) (*Project, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("project: parse: %w", err)
	}
	raw, ok := top["project"]
	if !ok {
		return nil, fmt.Errorf("project: missing top-level project object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("project: parse: %w", err)
	}
	var wire projectWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("project: parse: %w", err)
	}

	p := New(wire.Name)
	p.id = identity.Parse(wire.UUID)
	p.Version = wire.Version
	p.Description = wire.Description
	p.MainScene = wire.MainScene
	p.EngineVersion = wire.EngineVersion
	p.AssetDirectories = wire.AssetDirectories
	p.Scenes = wire.Scenes
	if wire.Settings != nil {
		p.settings = wire.Settings
	}
	for k, v := range fields {
		if _, known := knownKeys[k]; !known {
			p.unknown[k] = v
		}
	}
	return p, nil
}

// LoadFile reads and parses a .lupine file from disk.
func LoadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// SaveFile writes the project to disk.
func (p *Project) SaveFile(path string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
