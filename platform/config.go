package platform

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// WindowConfig is the persisted window geometry (spec.md §6).
type WindowConfig struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Title      string `toml:"title"`
	Resizable  bool   `toml:"resizable"`
	Fullscreen bool   `toml:"fullscreen"`
}

// DefaultWindowConfig is used when no config file exists yet.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:     1280,
		Height:    720,
		Title:     "vkengine",
		Resizable: true,
	}
}

// LoadConfig reads path as TOML into both a typed WindowConfig and the
// raw table it came from. The raw table is handed back to SaveConfig
// so a later save doesn't drop keys this version of the engine doesn't
// know about (a newer build's graphics-quality block, say) — the
// config file is shared with tooling that may write fields this
// package never reads.
func LoadConfig(path string) (WindowConfig, map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultWindowConfig(), map[string]interface{}{}, nil
	}
	if err != nil {
		return WindowConfig{}, nil, err
	}

	raw := map[string]interface{}{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return WindowConfig{}, nil, err
	}

	cfg := DefaultWindowConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return WindowConfig{}, nil, err
	}
	return cfg, raw, nil
}

// SaveConfig writes cfg back to path, merging its fields into extra
// (the raw table LoadConfig returned) so unrecognized keys survive
// the round trip.
func SaveConfig(path string, cfg WindowConfig, extra map[string]interface{}) error {
	merged := make(map[string]interface{}, len(extra)+5)
	for k, v := range extra {
		merged[k] = v
	}
	merged["width"] = cfg.Width
	merged["height"] = cfg.Height
	merged["title"] = cfg.Title
	merged["resizable"] = cfg.Resizable
	merged["fullscreen"] = cfg.Fullscreen

	data, err := toml.Marshal(merged)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
