package export

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/core/project"
)

// linuxPackager wraps one staged runtime tree into a requested package
// format. Formats are independent of each other and safe to run
// concurrently; each works in its own scratch directory.
type linuxPackager struct {
	logger  log.Log
	proj    *project.Project
	cfg     Config
	name    string
	staging string
}

func (p *linuxPackager) run(s *session, format string) (string, error) {
	if err := s.checkpoint(); err != nil {
		return "", err
	}
	switch format {
	case FormatTarGz:
		return p.packageTarGz(s)
	case FormatAppImage:
		return p.packageAppImage(s)
	case FormatDeb:
		return p.packageDeb(s)
	case FormatRpm:
		return p.packageRpm(s)
	case FormatFlatpak:
		return p.packageFlatpak(s)
	case FormatSnap:
		return p.packageSnap(s)
	default:
		return "", errors.Errorf("unknown package format %q", format)
	}
}

func (p *linuxPackager) version() string {
	if p.proj.Version != "" {
		return p.proj.Version
	}
	return "0.0.0"
}

func (p *linuxPackager) packageTarGz(s *session) (string, error) {
	out := filepath.Join(p.cfg.OutputDirectory,
		fmt.Sprintf("%s-%s-linux-x64.tar.gz", p.name, p.version()))
	if err := tarGzDirectory(out, p.staging); err != nil {
		return "", err
	}
	s.record(out)
	return out, nil
}

// packageAppImage lays out an AppDir (usr/bin, AppRun, .desktop) and
// delegates the final squash to appimagetool.
func (p *linuxPackager) packageAppImage(s *session) (string, error) {
	tool, err := lookupTool("LUPINE_APPIMAGETOOL", "appimagetool")
	if err != nil {
		return "", err
	}

	appDir, err := os.MkdirTemp(p.cfg.OutputDirectory, ".appdir-")
	if err != nil {
		return "", errors.Wrap(err, "create AppDir")
	}
	defer os.RemoveAll(appDir)

	if err := copyTree(filepath.Join(appDir, "usr", "bin"), p.staging); err != nil {
		return "", err
	}
	appRun := fmt.Sprintf("#!/bin/sh\nHERE=$(dirname \"$(readlink -f \"$0\")\")\nexec \"$HERE/usr/bin/%s\" \"$@\"\n", p.name)
	if err := os.WriteFile(filepath.Join(appDir, "AppRun"), []byte(appRun), 0o755); err != nil {
		return "", errors.Wrap(err, "write AppRun")
	}
	desktop := desktopEntry(p.proj, p.cfg, p.name)
	if err := os.WriteFile(filepath.Join(appDir, p.name+".desktop"), []byte(desktop), 0o644); err != nil {
		return "", errors.Wrap(err, "write desktop entry")
	}

	out := filepath.Join(p.cfg.OutputDirectory,
		fmt.Sprintf("%s-%s-x86_64.AppImage", p.name, p.version()))
	cmd := exec.CommandContext(s.ctx, tool, appDir, out)
	cmd.Env = append(os.Environ(), "ARCH=x86_64")
	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrapf(err, "appimagetool: %s", strings.TrimSpace(string(outBytes)))
	}
	s.record(out)
	return out, nil
}

// packageDeb builds the DEBIAN/ control tree and delegates to dpkg-deb.
func (p *linuxPackager) packageDeb(s *session) (string, error) {
	tool, err := lookupTool("LUPINE_DPKG_DEB", "dpkg-deb")
	if err != nil {
		return "", err
	}

	root, err := os.MkdirTemp(p.cfg.OutputDirectory, ".debroot-")
	if err != nil {
		return "", errors.Wrap(err, "create deb root")
	}
	defer os.RemoveAll(root)

	if err := copyTree(filepath.Join(root, "usr", "bin"), p.staging); err != nil {
		return "", err
	}
	desktop := desktopEntry(p.proj, p.cfg, p.name)
	desktopPath := filepath.Join(root, "usr", "share", "applications", p.name+".desktop")
	if err := os.MkdirAll(filepath.Dir(desktopPath), 0o755); err != nil {
		return "", errors.Wrap(err, "mkdir applications")
	}
	if err := os.WriteFile(desktopPath, []byte(desktop), 0o644); err != nil {
		return "", errors.Wrap(err, "write desktop entry")
	}

	control := p.debControl()
	if err := os.MkdirAll(filepath.Join(root, "DEBIAN"), 0o755); err != nil {
		return "", errors.Wrap(err, "mkdir DEBIAN")
	}
	if err := os.WriteFile(filepath.Join(root, "DEBIAN", "control"), []byte(control), 0o644); err != nil {
		return "", errors.Wrap(err, "write control")
	}

	out := filepath.Join(p.cfg.OutputDirectory,
		fmt.Sprintf("%s_%s_amd64.deb", strings.ToLower(p.name), p.version()))
	cmd := exec.CommandContext(s.ctx, tool, "--build", root, out)
	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrapf(err, "dpkg-deb: %s", strings.TrimSpace(string(outBytes)))
	}
	s.record(out)
	return out, nil
}

func (p *linuxPackager) debControl() string {
	maintainer := p.cfg.Linux.Maintainer
	if maintainer == "" {
		maintainer = "unknown <unknown@localhost>"
	}
	description := p.proj.Description
	if description == "" {
		description = p.proj.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Package: %s\n", strings.ToLower(p.name))
	fmt.Fprintf(&b, "Version: %s\n", p.version())
	b.WriteString("Architecture: amd64\n")
	fmt.Fprintf(&b, "Maintainer: %s\n", maintainer)
	if len(p.cfg.Linux.Dependencies) > 0 {
		fmt.Fprintf(&b, "Depends: %s\n", strings.Join(p.cfg.Linux.Dependencies, ", "))
	}
	if p.cfg.Linux.Homepage != "" {
		fmt.Fprintf(&b, "Homepage: %s\n", p.cfg.Linux.Homepage)
	}
	fmt.Fprintf(&b, "Description: %s\n", description)
	return b.String()
}

// packageRpm writes a spec that installs the staged tree and delegates to
// rpmbuild.
func (p *linuxPackager) packageRpm(s *session) (string, error) {
	tool, err := lookupTool("LUPINE_RPMBUILD", "rpmbuild")
	if err != nil {
		return "", err
	}

	topDir, err := os.MkdirTemp(p.cfg.OutputDirectory, ".rpmtop-")
	if err != nil {
		return "", errors.Wrap(err, "create rpm topdir")
	}
	defer os.RemoveAll(topDir)

	specPath := filepath.Join(topDir, p.name+".spec")
	if err := os.WriteFile(specPath, []byte(p.rpmSpec()), 0o644); err != nil {
		return "", errors.Wrap(err, "write spec")
	}

	cmd := exec.CommandContext(s.ctx, tool, "-bb",
		"--define", "_topdir "+topDir,
		"--define", "_rpmdir "+p.cfg.OutputDirectory,
		specPath)
	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrapf(err, "rpmbuild: %s", strings.TrimSpace(string(outBytes)))
	}

	out := filepath.Join(p.cfg.OutputDirectory, "x86_64",
		fmt.Sprintf("%s-%s-1.x86_64.rpm", strings.ToLower(p.name), p.version()))
	s.record(out)
	return out, nil
}

func (p *linuxPackager) rpmSpec() string {
	license := p.cfg.Linux.License
	if license == "" {
		license = "Proprietary"
	}
	summary := p.proj.Description
	if summary == "" {
		summary = p.proj.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", strings.ToLower(p.name))
	fmt.Fprintf(&b, "Version: %s\n", p.version())
	b.WriteString("Release: 1\n")
	fmt.Fprintf(&b, "Summary: %s\n", summary)
	fmt.Fprintf(&b, "License: %s\n", license)
	b.WriteString("BuildArch: x86_64\n\n")
	b.WriteString("%description\n")
	b.WriteString(summary + "\n\n")
	b.WriteString("%install\n")
	fmt.Fprintf(&b, "mkdir -p %%{buildroot}/usr/bin\ncp -r %s/. %%{buildroot}/usr/bin/\n\n", p.staging)
	b.WriteString("%files\n/usr/bin/*\n")
	return b.String()
}

// flatpakManifest mirrors the org.flatpak.Builder schema for a prebuilt
// binary module.
type flatpakManifest struct {
	ID             string          `yaml:"id"`
	Runtime        string          `yaml:"runtime"`
	RuntimeVersion string          `yaml:"runtime-version"`
	SDK            string          `yaml:"sdk"`
	Command        string          `yaml:"command"`
	FinishArgs     []string        `yaml:"finish-args"`
	Modules        []flatpakModule `yaml:"modules"`
}

type flatpakModule struct {
	Name          string              `yaml:"name"`
	BuildSystem   string              `yaml:"buildsystem"`
	BuildCommands []string            `yaml:"build-commands"`
	Sources       []map[string]string `yaml:"sources"`
}

func (p *linuxPackager) packageFlatpak(s *session) (string, error) {
	id := fmt.Sprintf("org.lupine.%s", sanitizeID(p.name))
	manifest := flatpakManifest{
		ID:             id,
		Runtime:        "org.freedesktop.Platform",
		RuntimeVersion: "23.08",
		SDK:            "org.freedesktop.Sdk",
		Command:        p.name,
		FinishArgs: []string{
			"--socket=x11", "--socket=wayland", "--socket=pulseaudio",
			"--device=dri",
		},
		Modules: []flatpakModule{{
			Name:        p.name,
			BuildSystem: "simple",
			BuildCommands: []string{
				fmt.Sprintf("install -D %s /app/bin/%s", p.name, p.name),
			},
			Sources: []map[string]string{{
				"type": "dir",
				"path": p.staging,
			}},
		}},
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return "", errors.Wrap(err, "marshal flatpak manifest")
	}
	out := filepath.Join(p.cfg.OutputDirectory, id+".yml")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write flatpak manifest")
	}
	s.record(out)
	return out, nil
}

// snapManifest mirrors the snapcraft.yaml schema.
type snapManifest struct {
	Name        string              `yaml:"name"`
	Version     string              `yaml:"version"`
	Summary     string              `yaml:"summary"`
	Description string              `yaml:"description"`
	Grade       string              `yaml:"grade"`
	Confinement string              `yaml:"confinement"`
	Apps        map[string]snapApp  `yaml:"apps"`
	Parts       map[string]snapPart `yaml:"parts"`
}

type snapApp struct {
	Command string   `yaml:"command"`
	Plugs   []string `yaml:"plugs"`
}

type snapPart struct {
	Plugin string `yaml:"plugin"`
	Source string `yaml:"source"`
}

func (p *linuxPackager) packageSnap(s *session) (string, error) {
	summary := p.proj.Description
	if summary == "" {
		summary = p.proj.Name
	}
	manifest := snapManifest{
		Name:        strings.ToLower(sanitizeID(p.name)),
		Version:     p.version(),
		Summary:     summary,
		Description: summary,
		Grade:       "stable",
		Confinement: "strict",
		Apps: map[string]snapApp{
			strings.ToLower(sanitizeID(p.name)): {
				Command: "bin/" + p.name,
				Plugs:   []string{"x11", "wayland", "audio-playback", "opengl"},
			},
		},
		Parts: map[string]snapPart{
			"game": {Plugin: "dump", Source: p.staging},
		},
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return "", errors.Wrap(err, "marshal snap manifest")
	}
	out := filepath.Join(p.cfg.OutputDirectory, "snapcraft.yaml")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write snap manifest")
	}
	s.record(out)
	return out, nil
}

// sanitizeID strips characters not valid in reverse-DNS or snap names.
func sanitizeID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "game"
	}
	return b.String()
}

// copyTree copies the contents of src into dst, creating dst.
func copyTree(dst, src string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(target, p, info.Mode().Perm())
	})
}
