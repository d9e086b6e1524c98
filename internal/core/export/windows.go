package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lupine-engine/lupine/internal/core/bundle"
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/project"
)

// WindowsExporter wraps the prebuilt Windows runtime: copy the .exe,
// build the asset bundle, embed or place it beside the executable, and
// optionally patch the icon.
type WindowsExporter struct {
	logger log.Log
}

func NewWindowsExporter(logger log.Log) *WindowsExporter {
	if logger == nil {
		logger = log.Provide()
	}
	return &WindowsExporter{logger: logger}
}

func (e *WindowsExporter) Target() Target      { return TargetWindows }
func (e *WindowsExporter) DisplayName() string { return "Windows x64" }
func (e *WindowsExporter) Available() bool     { return true }

func (e *WindowsExporter) Validate(cfg Config) error {
	if err := validateCommon(cfg); err != nil {
		return err
	}
	if cfg.RuntimeBinary == "" {
		return errors.New("runtime binary path must not be empty")
	}
	if cfg.Windows.IconPath != "" {
		if _, err := os.Stat(cfg.Windows.IconPath); err != nil {
			return errors.Wrap(err, "icon path")
		}
	}
	return nil
}

func (e *WindowsExporter) Export(ctx context.Context, proj *project.Project, projectDir string, cfg Config, progress ProgressFunc) Result {
	if err := e.Validate(cfg); err != nil {
		return Result{Err: err}
	}
	s := newSession(ctx, progress, e.logger)
	s.report(0, "preparing output directory")

	if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
		return s.fail(errors.Wrap(err, "create output directory"))
	}

	name := cfg.ExecutableName
	if !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	exePath := filepath.Join(cfg.OutputDirectory, name)

	s.report(0.1, "copying runtime")
	if err := copyFile(exePath, cfg.RuntimeBinary, 0o755); err != nil {
		return s.fail(err)
	}
	s.record(exePath)
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	if cfg.Windows.IconPath != "" {
		s.report(0.25, "patching icon")
		if err := patchExecutableIcon(exePath, cfg.Windows.IconPath); err != nil {
			return s.fail(errors.Wrap(err, "patch icon"))
		}
		if err := s.checkpoint(); err != nil {
			return s.fail(err)
		}
	}

	s.report(0.4, "building asset bundle")
	bundlePath := filepath.Join(cfg.OutputDirectory, "assets.bundle")
	if err := buildBundle(s, projectDir, bundlePath); err != nil {
		return s.fail(errors.Wrap(err, "build bundle"))
	}
	s.record(bundlePath)
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	if cfg.EmbedAssets {
		s.report(0.8, "embedding bundle")
		if err := bundle.EmbedInExecutable(exePath, bundlePath); err != nil {
			return s.fail(errors.Wrap(err, "embed bundle"))
		}
		if err := os.Remove(bundlePath); err != nil {
			e.logger.Warn("failed to remove staged bundle", log.Error(err))
		}
		s.unrecord(bundlePath)
	}

	e.logger.Info("windows export complete",
		log.String("project", proj.Name),
		log.String("output", exePath))
	return s.done(exePath)
}
