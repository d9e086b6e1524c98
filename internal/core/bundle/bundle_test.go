package bundle

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupine-engine/lupine/internal/core/log"
)

func testLogger() log.Log { return log.New(log.LevelError) }

func writeBundle(t *testing.T, build func(w *Writer)) string {
	t.Helper()
	w := NewWriter(testLogger())
	build(w)
	path := filepath.Join(t.TempDir(), "assets.bundle")
	require.NoError(t, w.CreateBundle(path))
	return path
}

func TestWriteAndReadBundle(t *testing.T) {
	path := writeBundle(t, func(w *Writer) {
		require.NoError(t, w.AddData("a.png", []byte("iconpng")))
		require.NoError(t, w.AddData("b.txt", []byte("abc")))
	})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("LUPINEAB")))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"a.png", "b.txt"}, r.Paths())

	info, ok := r.AssetInfo("a.png")
	require.True(t, ok)
	assert.Equal(t, uint64(7), info.Size)

	data, err := r.LoadAsset("a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("iconpng"), data)

	data, err = r.LoadAsset("b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	assert.True(t, r.HasAsset("b.txt"))
	assert.False(t, r.HasAsset("c.txt"))

	_, err = r.LoadAsset("c.txt")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadAssetDetectsCorruption(t *testing.T) {
	path := writeBundle(t, func(w *Writer) {
		require.NoError(t, w.AddData("data.txt", []byte("hello bundle world")))
	})

	r, err := Open(path)
	require.NoError(t, err)
	info, ok := r.AssetInfo("data.txt")
	require.True(t, ok)
	require.NoError(t, r.Close())

	// Flip one payload byte on disk.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[info.Offset] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.LoadAsset("data.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))

	// The unverified path hands back the bytes as stored.
	data, err := r.LoadAssetUnverified("data.txt")
	require.NoError(t, err)
	assert.Len(t, data, len("hello bundle world"))
	assert.NotEqual(t, []byte("hello bundle world"), data)

	_, err = r.LoadAssetUnverified("missing.txt")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIdenticalContentIsStoredOnce(t *testing.T) {
	payload := bytes.Repeat([]byte("tile"), 256)
	path := writeBundle(t, func(w *Writer) {
		require.NoError(t, w.AddData("maps/a.tilemap", payload))
		require.NoError(t, w.AddData("maps/b.tilemap", payload))
		require.NoError(t, w.AddData("maps/c.tilemap", []byte("different")))
	})

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	a, _ := r.AssetInfo("maps/a.tilemap")
	b, _ := r.AssetInfo("maps/b.tilemap")
	c, _ := r.AssetInfo("maps/c.tilemap")

	assert.Equal(t, a.Offset, b.Offset)
	assert.NotEqual(t, a.Offset, c.Offset)

	data, err := r.LoadAsset("maps/b.tilemap")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestEmbedInExecutable(t *testing.T) {
	dir := t.TempDir()

	bundlePath := writeBundle(t, func(w *Writer) {
		require.NoError(t, w.AddData("scripts/boot.lua", []byte("print('hi')")))
	})

	exePath := filepath.Join(dir, "game.bin")
	fakeExe := bytes.Repeat([]byte{0x90}, 4096)
	require.NoError(t, os.WriteFile(exePath, fakeExe, 0o755))

	assert.False(t, HasEmbedded(exePath))
	require.NoError(t, EmbedInExecutable(exePath, bundlePath))
	assert.True(t, HasEmbedded(exePath))

	// The original executable bytes are untouched.
	raw, err := os.ReadFile(exePath)
	require.NoError(t, err)
	assert.Equal(t, fakeExe, raw[:4096])

	r, err := OpenEmbedded(exePath)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.HasAsset("scripts/boot.lua"))
	data, err := r.LoadAsset("scripts/boot.lua")
	require.NoError(t, err)
	assert.Equal(t, []byte("print('hi')"), data)
}

func TestOpenEmbeddedRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, 128), 0o644))

	assert.False(t, HasEmbedded(path))
	_, err := OpenEmbedded(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestAddDataRejectsBadPaths(t *testing.T) {
	w := NewWriter(testLogger())

	assert.True(t, errors.Is(w.AddData("", []byte("x")), ErrBadPath))
	assert.True(t, errors.Is(w.AddData("../escape.png", []byte("x")), ErrBadPath))
	assert.True(t, errors.Is(w.AddData("a/../b.png", []byte("x")), ErrBadPath))
	assert.True(t, errors.Is(w.AddData("bad\xff\xfe.png", []byte("x")), ErrBadPath))
}

func TestAddDataRejectsDuplicates(t *testing.T) {
	w := NewWriter(testLogger())
	require.NoError(t, w.AddData("ui/panel.png", []byte("a")))

	// Normalization makes these the same path.
	assert.True(t, errors.Is(w.AddData("./ui/panel.png", []byte("b")), ErrDuplicate))
	assert.True(t, errors.Is(w.AddData("/ui/panel.png", []byte("b")), ErrDuplicate))
	assert.Equal(t, 1, w.Count())
}

func TestAddAssetRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "model.blend")
	require.NoError(t, os.WriteFile(src, []byte("blend"), 0o644))

	w := NewWriter(testLogger())
	err := w.AddAsset(src, "models/model.blend")
	assert.True(t, errors.Is(err, ErrUnsupported))

	// AddData is the raw escape hatch and skips the extension check.
	require.NoError(t, w.AddData("models/model.blend", []byte("blend")))
}

func TestAddDirectoryFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "textures", "wall.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.orig"), []byte("skip me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("a: 1"), 0o644))

	w := NewWriter(testLogger())
	require.NoError(t, w.AddDirectory(dir, "assets"))
	assert.Equal(t, 2, w.Count())

	path := filepath.Join(t.TempDir(), "out.bundle")
	require.NoError(t, w.CreateBundle(path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.HasAsset("assets/textures/wall.png"))
	assert.True(t, r.HasAsset("assets/config.yaml"))
	assert.False(t, r.HasAsset("assets/notes.orig"))
}

func TestOpenRejectsBadHeaderMagic(t *testing.T) {
	path := writeBundle(t, func(w *Writer) {
		require.NoError(t, w.AddData("a.txt", []byte("payload")))
	})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(raw, "NOTABNDL")
	bad := filepath.Join(t.TempDir(), "bad.bundle")
	require.NoError(t, os.WriteFile(bad, raw, 0o644))

	_, err = Open(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}
