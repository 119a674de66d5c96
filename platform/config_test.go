package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigMissingFileReturnsDefault(t *testing.T) {
	assert := assert.New(t)
	cfg, extra, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.NoError(err)
	assert.Equal(DefaultWindowConfig(), cfg)
	assert.Empty(extra)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "window.toml")

	cfg := WindowConfig{Width: 1920, Height: 1080, Title: "vkengine", Resizable: true}
	assert.NoError(SaveConfig(path, cfg, map[string]interface{}{}))

	got, _, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(cfg, got)
}

func TestSaveConfigPreservesUnknownKeys(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "window.toml")

	assert.NoError(os.WriteFile(path, []byte("width = 800\nheight = 600\ntitle = \"x\"\n\n[graphics]\nvsync = true\n"), 0644))

	cfg, extra, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(800, cfg.Width)

	cfg.Width = 1024
	assert.NoError(SaveConfig(path, cfg, extra))

	_, raw, err := LoadConfig(path)
	assert.NoError(err)
	graphics, ok := raw["graphics"].(map[string]interface{})
	assert.True(ok, "unknown [graphics] table must survive the save")
	assert.Equal(true, graphics["vsync"])
}
