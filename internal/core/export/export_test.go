package export

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/project"
)

func testLogger() log.Log { return log.New(log.LevelError) }

// stageProject lays out a minimal exportable project on disk: descriptor,
// one asset and a fake runtime binary.
func stageProject(t *testing.T) (projectDir string, runtime string) {
	t.Helper()
	projectDir = t.TempDir()

	p := project.New("mygame")
	p.MainScene = "scenes/main.scene"
	require.NoError(t, p.SaveFile(filepath.Join(projectDir, "project.lupine")))

	assets := filepath.Join(projectDir, "assets")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "icon.png"), []byte("png-bytes"), 0o644))

	runtime = filepath.Join(t.TempDir(), "runtime.bin")
	require.NoError(t, os.WriteFile(runtime, []byte("#!ELF fake runtime"), 0o755))
	return projectDir, runtime
}

func TestWebValidate(t *testing.T) {
	e := NewWebExporter(testLogger())
	base := Config{
		Target:          TargetWeb,
		OutputDirectory: t.TempDir(),
		ExecutableName:  "game.html",
		RuntimeBinary:   "runtime.a",
	}

	cfg := base
	cfg.Web.MemorySizeMB = 32
	err := e.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory size")

	cfg.Web.MemorySizeMB = 4096
	assert.Error(t, e.Validate(cfg))

	cfg.Web.MemorySizeMB = 512
	assert.NoError(t, e.Validate(cfg))

	// Zero means "use the default", not "zero megabytes".
	cfg.Web.MemorySizeMB = 0
	assert.NoError(t, e.Validate(cfg))

	cfg = base
	cfg.RuntimeBinary = ""
	assert.Error(t, e.Validate(cfg))
}

func TestWindowsValidate(t *testing.T) {
	e := NewWindowsExporter(testLogger())
	cfg := Config{
		Target:          TargetWindows,
		OutputDirectory: t.TempDir(),
		ExecutableName:  "game.exe",
		RuntimeBinary:   "runtime.exe",
	}
	assert.NoError(t, e.Validate(cfg))

	bad := cfg
	bad.ExecutableName = ""
	assert.Error(t, e.Validate(bad))

	bad = cfg
	bad.OutputDirectory = ""
	assert.Error(t, e.Validate(bad))

	bad = cfg
	bad.RuntimeBinary = ""
	assert.Error(t, e.Validate(bad))

	bad = cfg
	bad.Windows.IconPath = filepath.Join(t.TempDir(), "missing.png")
	assert.Error(t, e.Validate(bad))
}

func TestLinuxValidateRejectsUnknownFormat(t *testing.T) {
	e := NewLinuxExporter(testLogger())
	cfg := Config{
		Target:          TargetLinux,
		OutputDirectory: t.TempDir(),
		ExecutableName:  "game",
		RuntimeBinary:   "runtime",
	}
	assert.NoError(t, e.Validate(cfg))

	cfg.Linux.PackageFormats = []string{"tar.gz", "msi"}
	err := e.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msi")
}

func TestLinuxExportProducesTarGz(t *testing.T) {
	projectDir, runtime := stageProject(t)
	outDir := t.TempDir()

	var mu sync.Mutex
	var fractions []float64
	progress := func(f float64, _ string) {
		mu.Lock()
		fractions = append(fractions, f)
		mu.Unlock()
	}

	e := NewLinuxExporter(testLogger())
	proj, err := project.LoadFile(filepath.Join(projectDir, "project.lupine"))
	require.NoError(t, err)

	res := e.Export(context.Background(), proj, projectDir, Config{
		Target:          TargetLinux,
		OutputDirectory: outDir,
		ExecutableName:  "mygame",
		RuntimeBinary:   runtime,
	}, progress)

	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, filepath.Join(outDir, "mygame-1.0.0-linux-x64.tar.gz"), res.OutputPath)

	info, err := os.Stat(res.OutputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	names := tarGzNames(t, res.OutputPath)
	assert.Contains(t, names, "mygame")
	assert.Contains(t, names, "assets.bundle")

	// Staging directories do not survive the run.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func tarGzNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	return names
}

func TestLinuxExportCancellation(t *testing.T) {
	projectDir, runtime := stageProject(t)
	outDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewLinuxExporter(testLogger())
	proj, err := project.LoadFile(filepath.Join(projectDir, "project.lupine"))
	require.NoError(t, err)

	res := e.Export(ctx, proj, projectDir, Config{
		Target:          TargetLinux,
		OutputDirectory: outDir,
		ExecutableName:  "mygame",
		RuntimeBinary:   runtime,
	}, nil)

	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, ErrCancelled))
	assert.False(t, res.Success)

	// No partial artifacts are left behind.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionProgressIsMonotonic(t *testing.T) {
	var fractions []float64
	s := newSession(context.Background(), func(f float64, _ string) {
		fractions = append(fractions, f)
	}, testLogger())

	s.report(0.2, "a")
	s.report(0.1, "b")
	s.report(0.5, "c")
	s.report(2.0, "d")

	assert.Equal(t, []float64{0.2, 0.2, 0.5, 1.0}, fractions)
}

func TestSessionRemovesFilesOnCancel(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.out")
	require.NoError(t, os.WriteFile(a, []byte("partial"), 0o644))

	s := newSession(context.Background(), nil, testLogger())
	s.record(a)

	res := s.fail(errors.Wrap(ErrCancelled, "context canceled"))
	require.Error(t, res.Err)
	_, err := os.Stat(a)
	assert.True(t, os.IsNotExist(err))

	// Non-cancellation failures keep partial output for inspection.
	b := filepath.Join(dir, "b.out")
	require.NoError(t, os.WriteFile(b, []byte("partial"), 0o644))
	s2 := newSession(context.Background(), nil, testLogger())
	s2.record(b)
	res = s2.fail(errors.New("disk full"))
	require.Error(t, res.Err)
	_, err = os.Stat(b)
	assert.NoError(t, err)
	assert.Equal(t, []string{b}, res.GeneratedFiles)
}

func TestLookupToolPrefersEnvOverride(t *testing.T) {
	t.Setenv("LUPINE_EMSCRIPTEN", "/opt/emsdk/emcc")
	p, err := lookupTool("LUPINE_EMSCRIPTEN", "emcc")
	require.NoError(t, err)
	assert.Equal(t, "/opt/emsdk/emcc", p)

	t.Setenv("LUPINE_EMSCRIPTEN", "")
	_, err = lookupTool("LUPINE_EMSCRIPTEN", "definitely-not-a-real-tool")
	assert.Error(t, err)
}

func TestForTarget(t *testing.T) {
	logger := testLogger()

	all := Exporters(logger)
	assert.Len(t, all, 4)

	e, ok := ForTarget(TargetLinux, logger)
	require.True(t, ok)
	assert.Equal(t, "Linux x64", e.DisplayName())

	_, ok = ForTarget(Target("playdate"), logger)
	assert.False(t, ok)
}
