package runtime

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lupine-engine/lupine/internal/core/bundle"
)

// BundleFS serves project files out of an asset bundle, the shipping
// configuration.
type BundleFS struct {
	reader *bundle.Reader
}

func NewBundleFS(r *bundle.Reader) *BundleFS {
	return &BundleFS{reader: r}
}

func (b *BundleFS) Resolve(path string) (string, error) {
	path = filepath.ToSlash(path)
	if !b.reader.HasAsset(path) {
		return "", errors.Errorf("no such asset %q", path)
	}
	return path, nil
}

func (b *BundleFS) ReadFile(path string) ([]byte, error) {
	return b.reader.LoadAsset(filepath.ToSlash(path))
}

// DirFS serves project files from a loose directory tree, the editor and
// development configuration.
type DirFS struct {
	root string
}

func NewDirFS(root string) *DirFS {
	return &DirFS{root: root}
}

func (d *DirFS) Resolve(path string) (string, error) {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	if _, err := os.Stat(full); err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	return full, nil
}

func (d *DirFS) ReadFile(path string) ([]byte, error) {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}
