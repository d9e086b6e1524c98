package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupine-engine/lupine/internal/core/identity"
)

func TestSettingsDefaults(t *testing.T) {
	p := New("demo")

	assert.Equal(t, int32(1280), p.GetSettingInt("window/width", 1280))
	assert.Equal(t, float32(1.0), p.GetSettingFloat("audio/volume", 1.0))
	assert.True(t, p.GetSettingBool("window/fullscreen", true))
	assert.Equal(t, "main", p.GetSettingString("startup/scene", "main"))
}

func TestSettingsNestedPaths(t *testing.T) {
	p := New("demo")
	p.SetSettingInt("window/width", 1920)
	p.SetSettingInt("window/height", 1080)
	p.SetSettingBool("physics/2d/enabled", true)
	p.SetSettingString("display/title", "Demo")

	assert.Equal(t, int32(1920), p.GetSettingInt("window/width", 0))
	assert.Equal(t, int32(1080), p.GetSettingInt("window/height", 0))
	assert.True(t, p.GetSettingBool("physics/2d/enabled", false))
	assert.Equal(t, "Demo", p.GetSettingString("display/title", ""))

	// A leaf is not a subtree.
	assert.Equal(t, int32(7), p.GetSettingInt("window/width/extra", 7))
}

func TestSettingsNumericCoercion(t *testing.T) {
	p := New("demo")

	p.SetSettingInt("render/max_lights", 5)
	assert.Equal(t, float32(5), p.GetSettingFloat("render/max_lights", 0))

	p.SetSettingFloat("physics/fixed_step", 2.5)
	assert.Equal(t, int32(9), p.GetSettingInt("physics/fixed_step", 9))

	p.SetSettingFloat("render/scale", 4.0)
	assert.Equal(t, int32(4), p.GetSettingInt("render/scale", 0))
}

func TestSettingsTypeMismatchFallsBackToDefault(t *testing.T) {
	p := New("demo")
	p.SetSettingString("window/width", "wide")

	assert.Equal(t, int32(640), p.GetSettingInt("window/width", 640))
	assert.Equal(t, float32(1), p.GetSettingFloat("window/width", 1))
	assert.False(t, p.GetSettingBool("window/width", false))
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	p := New("demo")
	p.Description = "A small demo game"
	p.MainScene = "scenes/main.scene"
	p.EngineVersion = "0.3.0"
	p.AssetDirectories = []string{"assets", "textures"}
	p.Scenes = []string{"scenes/main.scene", "scenes/menu.scene"}
	p.SetSettingInt("window/width", 1920)
	p.SetSettingFloat("audio/volume", 0.8)
	p.SetSettingBool("window/fullscreen", true)

	data, err := p.Marshal()
	require.NoError(t, err)

	q, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, p.UUID(), q.UUID())
	assert.Equal(t, "demo", q.Name)
	assert.Equal(t, "1.0.0", q.Version)
	assert.Equal(t, "A small demo game", q.Description)
	assert.Equal(t, "scenes/main.scene", q.MainScene)
	assert.Equal(t, []string{"assets", "textures"}, q.AssetDirectories)

	// JSON numbers come back as float64; the typed getters absorb that.
	assert.Equal(t, int32(1920), q.GetSettingInt("window/width", 0))
	assert.InDelta(t, 0.8, q.GetSettingFloat("audio/volume", 0), 1e-6)
	assert.True(t, q.GetSettingBool("window/fullscreen", false))
}

func TestUnknownTopLevelKeysSurvive(t *testing.T) {
	doc := `{
  "project": {
    "name": "demo",
    "uuid": "9f1c2c4e-7a11-4d21-8e0b-3f5a6d7c8e90",
    "version": "2.0.0",
    "custom_tool": {"palette": "pastel", "grid": 16}
  }
}`
	p, err := Unmarshal([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", p.Version)

	out, err := p.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"custom_tool"`)
	assert.Contains(t, string(out), `"palette"`)

	// The preserved block survives a second round trip unchanged.
	q, err := Unmarshal(out)
	require.NoError(t, err)
	out2, err := q.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))
}

func TestUnmarshalRejectsMissingProjectObject(t *testing.T) {
	_, err := Unmarshal([]byte(`{"name": "demo"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")

	_, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}

func TestUnmarshalMalformedUUIDBecomesNil(t *testing.T) {
	p, err := Unmarshal([]byte(`{"project": {"name": "demo", "uuid": "nope"}}`))
	require.NoError(t, err)
	assert.Equal(t, identity.Nil, p.UUID())
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.lupine")

	p := New("filetest")
	p.MainScene = "scenes/start.scene"
	require.NoError(t, p.SaveFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	q, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "filetest", q.Name)
	assert.Equal(t, "scenes/start.scene", q.MainScene)

	_, err = LoadFile(filepath.Join(dir, "missing.lupine"))
	assert.Error(t, err)
}
