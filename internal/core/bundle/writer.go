package bundle

import (
	"hash/crc32"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/pkg/concurrent"
)

type pendingAsset struct {
	bundlePath string
	sourcePath string
	// data is set for in-memory assets added directly; sourcePath is
	// empty for those.
	data []byte
}

// Writer accumulates assets and writes them as one bundle. Not safe for
// concurrent use.
type Writer struct {
	logger log.Log
	assets []pendingAsset
	byPath map[string]int
}

func NewWriter(logger log.Log) *Writer {
	if logger == nil {
		logger = log.Provide()
	}
	return &Writer{
		logger: logger,
		byPath: make(map[string]int),
	}
}

func (w *Writer) Count() int { return len(w.assets) }

// AddAsset stages a file for packing under bundlePath. The path must be
// valid UTF-8, carry an allowed extension and be unique in the bundle.
func (w *Writer) AddAsset(sourcePath, bundlePath string) error {
	normalized, err := normalizePath(bundlePath)
	if err != nil {
		return err
	}
	if !extensionAllowed(normalized) {
		return errors.Wrap(ErrUnsupported, normalized)
	}
	if _, dup := w.byPath[normalized]; dup {
		return errors.Wrap(ErrDuplicate, normalized)
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return errors.Wrapf(err, "stat %s", sourcePath)
	}
	w.byPath[normalized] = len(w.assets)
	w.assets = append(w.assets, pendingAsset{bundlePath: normalized, sourcePath: sourcePath})
	return nil
}

// AddData stages an in-memory blob, used for generated files like the
// project descriptor.
func (w *Writer) AddData(bundlePath string, data []byte) error {
	normalized, err := normalizePath(bundlePath)
	if err != nil {
		return err
	}
	if _, dup := w.byPath[normalized]; dup {
		return errors.Wrap(ErrDuplicate, normalized)
	}
	w.byPath[normalized] = len(w.assets)
	w.assets = append(w.assets, pendingAsset{bundlePath: normalized, data: data})
	return nil
}

// AddDirectory walks dir recursively, staging every file with an allowed
// extension under prefix. Unsupported files are skipped, not errors.
func (w *Writer) AddDirectory(dir, prefix string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		bp := path.Join(prefix, filepath.ToSlash(rel))
		if !extensionAllowed(bp) {
			w.logger.Warn("skipping unsupported asset", log.String("path", bp))
			return nil
		}
		if addErr := w.AddAsset(p, bp); addErr != nil {
			return addErr
		}
		return nil
	})
}

// AddProject stages a whole project directory: the project descriptor as
// project.lupine plus the assets, scenes and scripts subtrees.
func (w *Writer) AddProject(projectDir string) error {
	descriptor := filepath.Join(projectDir, "project.lupine")
	if err := w.AddAsset(descriptor, "project.lupine"); err != nil {
		return errors.Wrap(err, "project descriptor")
	}
	for _, sub := range []string{"assets", "scenes", "scripts"} {
		dir := filepath.Join(projectDir, sub)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := w.AddDirectory(dir, sub); err != nil {
			return errors.Wrapf(err, "add %s", sub)
		}
	}
	return nil
}

// CreateBundle reads every staged asset, deduplicates identical payloads
// by content hash and writes the archive to outPath. Checksums are
// computed in parallel.
func (w *Writer) CreateBundle(outPath string) error {
	type blob struct {
		data   []byte
		offset uint64
		crc    uint32
	}

	blobs := make([]*blob, 0, len(w.assets))
	byHash := make(map[uint64]*blob)
	entryBlob := make([]*blob, len(w.assets))

	for i, a := range w.assets {
		data := a.data
		if a.sourcePath != "" {
			var err error
			data, err = os.ReadFile(a.sourcePath)
			if err != nil {
				return errors.Wrapf(err, "read %s", a.sourcePath)
			}
		}
		sum := xxhash.Sum64(data)
		b, seen := byHash[sum]
		if !seen {
			b = &blob{data: data}
			byHash[sum] = b
			blobs = append(blobs, b)
		}
		entryBlob[i] = b
	}

	if err := concurrent.ForEach(blobs, func(b *blob) error {
		b.crc = crc32.ChecksumIEEE(b.data)
		return nil
	}); err != nil {
		return err
	}

	offset := uint64(headerSize)
	for _, b := range blobs {
		b.offset = offset
		offset += uint64(len(b.data))
	}

	entries := make([]Entry, len(w.assets))
	for i, a := range w.assets {
		b := entryBlob[i]
		entries[i] = Entry{
			Path:   a.bundlePath,
			Offset: b.offset,
			Size:   uint64(len(b.data)),
			CRC:    b.crc,
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outPath)
	}
	defer f.Close()

	// Header is written twice: a placeholder up front, the real one once
	// the index offset is known.
	if _, err := f.Write(make([]byte, headerSize)); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, b := range blobs {
		if _, err := f.Write(b.data); err != nil {
			return errors.Wrap(err, "write payload")
		}
	}
	index := encodeIndex(entries)
	if _, err := f.Write(index); err != nil {
		return errors.Wrap(err, "write index")
	}

	h := header{
		version:     formatVersion,
		assetCount:  uint32(len(entries)),
		indexOffset: offset,
		indexSize:   uint64(len(index)),
	}
	if _, err := f.WriteAt(h.encode(), 0); err != nil {
		return errors.Wrap(err, "rewrite header")
	}

	w.logger.Info("bundle written",
		log.String("path", outPath),
		log.Int("assets", len(entries)),
		log.Int("unique_blobs", len(blobs)),
		log.Uint64("bytes", offset+uint64(len(index))))
	return f.Sync()
}

func normalizePath(p string) (string, error) {
	if p == "" || !utf8.ValidString(p) {
		return "", errors.Wrapf(ErrBadPath, "%q", p)
	}
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.Contains(p, "..") {
		return "", errors.Wrapf(ErrBadPath, "%q", p)
	}
	return p, nil
}
