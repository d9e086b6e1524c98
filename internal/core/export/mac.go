package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/project"
)

// MacExporter builds a .app bundle (Contents/MacOS, Resources,
// Frameworks), writes Info.plist from the project and config, and
// optionally code-signs and wraps the result in a compressed DMG.
type MacExporter struct {
	logger log.Log
}

func NewMacExporter(logger log.Log) *MacExporter {
	if logger == nil {
		logger = log.Provide()
	}
	return &MacExporter{logger: logger}
}

func (e *MacExporter) Target() Target      { return TargetMac }
func (e *MacExporter) DisplayName() string { return "macOS x64" }

// Available: the .app layout itself needs no tools, but signing and DMG
// creation only work on a mac host.
func (e *MacExporter) Available() bool { return true }

func (e *MacExporter) Validate(cfg Config) error {
	if err := validateCommon(cfg); err != nil {
		return err
	}
	if cfg.RuntimeBinary == "" {
		return errors.New("runtime binary path must not be empty")
	}
	if cfg.Mac.CodeSign && cfg.Mac.DeveloperID == "" {
		return errors.New("code signing requires a developer id")
	}
	if cfg.Mac.CreateDMG && runtime.GOOS != "darwin" && !toolAvailable("LUPINE_HDIUTIL", "hdiutil") {
		return errors.New("dmg creation requires hdiutil")
	}
	return nil
}

func (e *MacExporter) Export(ctx context.Context, proj *project.Project, projectDir string, cfg Config, progress ProgressFunc) Result {
	if err := e.Validate(cfg); err != nil {
		return Result{Err: err}
	}
	s := newSession(ctx, progress, e.logger)
	s.report(0, "laying out app bundle")

	name := strings.TrimSuffix(cfg.ExecutableName, ".app")
	appDir := filepath.Join(cfg.OutputDirectory, name+".app")
	contents := filepath.Join(appDir, "Contents")
	for _, dir := range []string{"MacOS", "Resources", "Frameworks"} {
		if err := os.MkdirAll(filepath.Join(contents, dir), 0o755); err != nil {
			return s.fail(errors.Wrap(err, "create bundle layout"))
		}
	}
	s.record(appDir)

	s.report(0.1, "copying runtime")
	exePath := filepath.Join(contents, "MacOS", name)
	if err := copyFile(exePath, cfg.RuntimeBinary, 0o755); err != nil {
		return s.fail(err)
	}
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	s.report(0.3, "building asset bundle")
	bundlePath := filepath.Join(contents, "Resources", "assets.bundle")
	if err := buildBundle(s, projectDir, bundlePath); err != nil {
		return s.fail(errors.Wrap(err, "build bundle"))
	}
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	if cfg.Mac.IconPath != "" {
		icns := filepath.Join(contents, "Resources", name+".icns")
		if err := copyFile(icns, cfg.Mac.IconPath, 0o644); err != nil {
			return s.fail(errors.Wrap(err, "copy icns"))
		}
	}

	s.report(0.5, "writing Info.plist")
	plist := infoPlist(proj, cfg, name)
	if err := os.WriteFile(filepath.Join(contents, "Info.plist"), []byte(plist), 0o644); err != nil {
		return s.fail(errors.Wrap(err, "write Info.plist"))
	}
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	if cfg.Mac.CodeSign {
		s.report(0.7, "code signing")
		tool, err := lookupTool("LUPINE_CODESIGN", "codesign")
		if err != nil {
			return s.fail(err)
		}
		cmd := exec.CommandContext(s.ctx, tool, "--force", "--deep",
			"--sign", cfg.Mac.DeveloperID, appDir)
		if out, err := cmd.CombinedOutput(); err != nil {
			return s.fail(errors.Wrapf(err, "codesign: %s", strings.TrimSpace(string(out))))
		}
		if err := s.checkpoint(); err != nil {
			return s.fail(err)
		}
	}

	outputPath := appDir
	if cfg.Mac.CreateDMG {
		s.report(0.85, "creating dmg")
		tool, err := lookupTool("LUPINE_HDIUTIL", "hdiutil")
		if err != nil {
			return s.fail(err)
		}
		dmg := filepath.Join(cfg.OutputDirectory, name+".dmg")
		cmd := exec.CommandContext(s.ctx, tool, "create",
			"-volname", name,
			"-srcfolder", appDir,
			"-format", "UDZO",
			"-ov", dmg)
		if out, err := cmd.CombinedOutput(); err != nil {
			return s.fail(errors.Wrapf(err, "hdiutil: %s", strings.TrimSpace(string(out))))
		}
		s.record(dmg)
		outputPath = dmg
	}

	e.logger.Info("macos export complete",
		log.String("project", proj.Name),
		log.String("output", outputPath))
	return s.done(outputPath)
}

func infoPlist(proj *project.Project, cfg Config, name string) string {
	identifier := cfg.Mac.BundleIdentifier
	if identifier == "" {
		identifier = "org.lupine." + sanitizeID(name)
	}
	version := cfg.Mac.VersionInfo
	if version == "" {
		version = proj.Version
	}
	minOS := cfg.Mac.MinimumOSVersion
	if minOS == "" {
		minOS = "10.13"
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString("<plist version=\"1.0\">\n<dict>\n")
	plistKV(&b, "CFBundleName", proj.Name)
	plistKV(&b, "CFBundleDisplayName", proj.Name)
	plistKV(&b, "CFBundleExecutable", name)
	plistKV(&b, "CFBundleIdentifier", identifier)
	plistKV(&b, "CFBundleVersion", version)
	plistKV(&b, "CFBundleShortVersionString", version)
	plistKV(&b, "CFBundlePackageType", "APPL")
	plistKV(&b, "LSMinimumSystemVersion", minOS)
	if cfg.Mac.IconPath != "" {
		plistKV(&b, "CFBundleIconFile", name+".icns")
	}
	b.WriteString("\t<key>NSHighResolutionCapable</key>\n\t<true/>\n")
	b.WriteString("</dict>\n</plist>\n")
	return b.String()
}

func plistKV(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "\t<key>%s</key>\n\t<string>%s</string>\n", key, value)
}
