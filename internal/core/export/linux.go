package export

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lupine-engine/lupine/internal/core/bundle"
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/project"
)

// Linux package formats. "all" expands to every format whose external
// tooling is present.
const (
	FormatTarGz    = "tar.gz"
	FormatAppImage = "appimage"
	FormatDeb      = "deb"
	FormatRpm      = "rpm"
	FormatFlatpak  = "flatpak"
	FormatSnap     = "snap"
	FormatAll      = "all"
)

var linuxFormats = map[string]bool{
	FormatTarGz: true, FormatAppImage: true, FormatDeb: true,
	FormatRpm: true, FormatFlatpak: true, FormatSnap: true,
}

// LinuxExporter stages the runtime plus bundle and wraps the staging tree
// in one or more package formats. tar.gz needs no external tools; the
// rest delegate to their native packagers.
type LinuxExporter struct {
	logger log.Log
}

func NewLinuxExporter(logger log.Log) *LinuxExporter {
	if logger == nil {
		logger = log.Provide()
	}
	return &LinuxExporter{logger: logger}
}

func (e *LinuxExporter) Target() Target      { return TargetLinux }
func (e *LinuxExporter) DisplayName() string { return "Linux x64" }
func (e *LinuxExporter) Available() bool     { return true }

func (e *LinuxExporter) Validate(cfg Config) error {
	if err := validateCommon(cfg); err != nil {
		return err
	}
	if cfg.RuntimeBinary == "" {
		return errors.New("runtime binary path must not be empty")
	}
	for _, f := range cfg.Linux.PackageFormats {
		f = strings.ToLower(f)
		if f != FormatAll && !linuxFormats[f] {
			return errors.Errorf("unknown package format %q", f)
		}
	}
	return nil
}

func (e *LinuxExporter) Export(ctx context.Context, proj *project.Project, projectDir string, cfg Config, progress ProgressFunc) Result {
	if err := e.Validate(cfg); err != nil {
		return Result{Err: err}
	}
	s := newSession(ctx, progress, e.logger)
	s.report(0, "preparing staging tree")

	if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
		return s.fail(errors.Wrap(err, "create output directory"))
	}

	staging, err := os.MkdirTemp(cfg.OutputDirectory, ".staging-")
	if err != nil {
		return s.fail(errors.Wrap(err, "create staging directory"))
	}
	defer os.RemoveAll(staging)

	name := strings.TrimSuffix(cfg.ExecutableName, filepath.Ext(cfg.ExecutableName))
	exePath := filepath.Join(staging, name)

	s.report(0.1, "copying runtime")
	if err := copyFile(exePath, cfg.RuntimeBinary, 0o755); err != nil {
		return s.fail(err)
	}
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	s.report(0.25, "building asset bundle")
	bundlePath := filepath.Join(staging, "assets.bundle")
	if err := buildBundle(s, projectDir, bundlePath); err != nil {
		return s.fail(errors.Wrap(err, "build bundle"))
	}
	if cfg.EmbedAssets {
		if err := bundle.EmbedInExecutable(exePath, bundlePath); err != nil {
			return s.fail(errors.Wrap(err, "embed bundle"))
		}
		if err := os.Remove(bundlePath); err != nil {
			return s.fail(errors.Wrap(err, "remove staged bundle"))
		}
	}
	if err := s.checkpoint(); err != nil {
		return s.fail(err)
	}

	formats := e.resolveFormats(cfg)
	s.report(0.5, "packaging "+strings.Join(formats, ", "))

	pk := &linuxPackager{logger: e.logger, proj: proj, cfg: cfg, name: name, staging: staging}

	var outputs []string
	if len(formats) > 1 {
		// Independent formats fan out; each writes its own artifact.
		var g errgroup.Group
		results := make([]string, len(formats))
		for i, f := range formats {
			i, f := i, f
			g.Go(func() error {
				out, err := pk.run(s, f)
				if err != nil {
					return errors.Wrap(err, f)
				}
				results[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return s.fail(err)
		}
		outputs = results
	} else {
		out, err := pk.run(s, formats[0])
		if err != nil {
			return s.fail(errors.Wrap(err, formats[0]))
		}
		outputs = []string{out}
	}

	e.logger.Info("linux export complete",
		log.String("project", proj.Name),
		log.Int("formats", len(outputs)))
	return s.done(outputs[0])
}

// resolveFormats honors the configured list, an executable-name suffix,
// or defaults to tar.gz. "all" expands to every format whose tooling is
// available.
func (e *LinuxExporter) resolveFormats(cfg Config) []string {
	requested := cfg.Linux.PackageFormats
	if len(requested) == 0 {
		if f := formatFromSuffix(cfg.ExecutableName); f != "" {
			return []string{f}
		}
		return []string{FormatTarGz}
	}

	var out []string
	seen := map[string]bool{}
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range requested {
		f = strings.ToLower(f)
		if f != FormatAll {
			add(f)
			continue
		}
		add(FormatTarGz)
		add(FormatFlatpak)
		add(FormatSnap)
		if toolAvailable("LUPINE_APPIMAGETOOL", "appimagetool") {
			add(FormatAppImage)
		}
		if toolAvailable("LUPINE_DPKG_DEB", "dpkg-deb") {
			add(FormatDeb)
		}
		if toolAvailable("LUPINE_RPMBUILD", "rpmbuild") {
			add(FormatRpm)
		}
	}
	return out
}

func formatFromSuffix(name string) string {
	switch {
	case strings.HasSuffix(name, ".AppImage"):
		return FormatAppImage
	case strings.HasSuffix(name, ".deb"):
		return FormatDeb
	case strings.HasSuffix(name, ".rpm"):
		return FormatRpm
	case strings.HasSuffix(name, ".flatpak"):
		return FormatFlatpak
	case strings.HasSuffix(name, ".snap"):
		return FormatSnap
	case strings.HasSuffix(name, ".tar.gz"):
		return FormatTarGz
	default:
		return ""
	}
}

// tarGzDirectory archives the contents of dir (not dir itself) into a
// gzip-compressed tar stream at outPath.
func tarGzDirectory(outPath, dir string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outPath)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// desktopEntry renders the freedesktop .desktop file for the project.
func desktopEntry(proj *project.Project, cfg Config, execName string) string {
	name := cfg.Linux.DesktopFileName
	if name == "" {
		name = proj.Name
	}
	category := cfg.Linux.AppCategory
	if category == "" {
		category = "Game"
	}
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", name)
	fmt.Fprintf(&b, "Comment=%s\n", proj.Description)
	fmt.Fprintf(&b, "Exec=%s\n", execName)
	fmt.Fprintf(&b, "Icon=%s\n", execName)
	fmt.Fprintf(&b, "Categories=%s;\n", category)
	if len(cfg.Linux.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords=%s;\n", strings.Join(cfg.Linux.Keywords, ";"))
	}
	return b.String()
}
