// Package export packages a project and its assets into distributable
// artifacts for the supported platforms. Exporters run on worker
// goroutines; progress flows back through a callback and cancellation is
// cooperative via context, checked between phases.
package export

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/project"
)

// Target selects an exporter.
type Target string

const (
	TargetWindows Target = "windows"
	TargetLinux   Target = "linux"
	TargetMac     Target = "macos"
	TargetWeb     Target = "web"
)

// ErrCancelled is returned (wrapped) when an export is interrupted.
// Partial outputs are removed before the exporter reports it.
var ErrCancelled = errors.New("export cancelled")

// WindowsOptions tune the Windows target.
type WindowsOptions struct {
	IconPath         string
	VersionInfo      string
	ConsoleSubsystem bool
}

// LinuxOptions feed package metadata and the .desktop entry.
type LinuxOptions struct {
	DesktopFileName string
	AppCategory     string
	Dependencies    []string
	PackageFormats  []string
	Maintainer      string
	Homepage        string
	License         string
	Keywords        []string
}

// MacOptions feed Info.plist and the signing step.
type MacOptions struct {
	BundleIdentifier string
	VersionInfo      string
	MinimumOSVersion string
	IconPath         string
	CreateDMG        bool
	CodeSign         bool
	DeveloperID      string
}

// WebOptions become compiler flags and HTML canvas attributes.
type WebOptions struct {
	CanvasWidth   int
	CanvasHeight  int
	EnableThreads bool
	EnableSIMD    bool
	MemorySizeMB  int
}

// Config is the union of recognized options; each target's validator
// enforces its own subset.
type Config struct {
	Target          Target
	OutputDirectory string
	ExecutableName  string

	// RuntimeBinary is the prebuilt platform runtime the exporter wraps.
	RuntimeBinary string

	IncludeDebugSymbols bool
	OptimizeAssets      bool
	EmbedAssets         bool
	CreateInstaller     bool

	Windows WindowsOptions
	Linux   LinuxOptions
	Mac     MacOptions
	Web     WebOptions
}

// Result is what an export run hands back to the caller.
type Result struct {
	Success        bool
	Err            error
	OutputPath     string
	TotalBytes     int64
	GeneratedFiles []string
}

// ProgressFunc receives a monotonically non-decreasing fraction in [0,1]
// and a short status string at each phase transition. It may be called
// from the worker goroutine.
type ProgressFunc func(fraction float64, status string)

// Exporter is the per-target contract.
type Exporter interface {
	Target() Target
	DisplayName() string

	// Available reports whether the exporter's external tooling can be
	// found on this machine; unavailable exporters are not listed.
	Available() bool

	Validate(cfg Config) error
	Export(ctx context.Context, proj *project.Project, projectDir string, cfg Config, progress ProgressFunc) Result
}

// Exporters lists every known exporter, available or not.
func Exporters(logger log.Log) []Exporter {
	return []Exporter{
		NewWindowsExporter(logger),
		NewLinuxExporter(logger),
		NewMacExporter(logger),
		NewWebExporter(logger),
	}
}

// ForTarget resolves an exporter by tag.
func ForTarget(t Target, logger log.Log) (Exporter, bool) {
	for _, e := range Exporters(logger) {
		if e.Target() == t {
			return e, true
		}
	}
	return nil, false
}

func validateCommon(cfg Config) error {
	if cfg.OutputDirectory == "" {
		return errors.New("output directory must not be empty")
	}
	if cfg.ExecutableName == "" {
		return errors.New("executable name must not be empty")
	}
	return nil
}

// lookupTool resolves an external tool: the env var override wins, then
// PATH.
func lookupTool(envVar, name string) (string, error) {
	if p := os.Getenv(envVar); p != "" {
		return p, nil
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, "%s not found (set %s)", name, envVar)
	}
	return p, nil
}

func toolAvailable(envVar, name string) bool {
	_, err := lookupTool(envVar, name)
	return err == nil
}

// session tracks one export run: monotonic progress, generated files and
// cancellation. Cleanup on cancel removes everything recorded so far.
type session struct {
	ctx      context.Context
	progress ProgressFunc
	logger   log.Log

	mu    sync.Mutex
	last  float64
	files []string
	bytes int64
}

func newSession(ctx context.Context, progress ProgressFunc, logger log.Log) *session {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = log.Provide()
	}
	return &session{ctx: ctx, progress: progress, logger: logger}
}

func (s *session) report(fraction float64, status string) {
	s.mu.Lock()
	if fraction < s.last {
		fraction = s.last
	}
	if fraction > 1 {
		fraction = 1
	}
	s.last = fraction
	cb := s.progress
	s.mu.Unlock()
	if cb != nil {
		cb(fraction, status)
	}
}

// checkpoint is called between phases; a cancelled context stops the run.
func (s *session) checkpoint() error {
	select {
	case <-s.ctx.Done():
		return errors.Wrap(ErrCancelled, s.ctx.Err().Error())
	default:
		return nil
	}
}

func (s *session) record(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, path)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		s.bytes += info.Size()
	}
}

// unrecord drops a path consumed by a later phase, such as a staged
// bundle that was embedded into the executable.
func (s *session) unrecord(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f == path {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return
		}
	}
}

func (s *session) fail(err error) Result {
	if errors.Is(err, ErrCancelled) {
		s.removePartial()
	}
	return Result{Err: err, GeneratedFiles: s.files}
}

func (s *session) removePartial() {
	for i := len(s.files) - 1; i >= 0; i-- {
		if rmErr := os.RemoveAll(s.files[i]); rmErr != nil {
			s.logger.Warn("failed to remove partial output",
				log.String("path", s.files[i]), log.Error(rmErr))
		}
	}
	s.files = nil
	s.bytes = 0
}

func (s *session) done(outputPath string) Result {
	s.report(1, "done")
	return Result{
		Success:        true,
		OutputPath:     outputPath,
		TotalBytes:     s.bytes,
		GeneratedFiles: s.files,
	}
}

func copyFile(dst, src string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir for %s", dst)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, "create %s", dst)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "copy %s", dst)
	}
	return out.Sync()
}

func writeFile(s *session, path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir for %s", path)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	s.record(path)
	return nil
}

// buildBundle stages the project tree and writes the asset bundle used by
// every target.
func buildBundle(s *session, projectDir, outPath string) error {
	return buildProjectBundle(s.logger, projectDir, outPath)
}
