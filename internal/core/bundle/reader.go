package bundle

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Reader serves assets out of a bundle file or a bundle embedded at the
// tail of an executable. Reads are positional, so a Reader is safe for
// concurrent LoadAsset calls.
type Reader struct {
	f       *os.File
	base    int64
	entries map[string]Entry
	order   []string
}

// Open reads the index of a standalone bundle file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	r, err := openAt(f, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// OpenEmbedded locates a bundle appended to the given executable via the
// trailer at the end of the file.
func OpenEmbedded(exePath string) (*Reader, error) {
	f, err := os.Open(exePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", exePath)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat")
	}
	if info.Size() < trailerSize+headerSize {
		f.Close()
		return nil, errors.Wrap(ErrCorrupt, "file too small for embedded bundle")
	}

	trailer := make([]byte, trailerSize)
	if _, err := f.ReadAt(trailer, info.Size()-trailerSize); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "read trailer")
	}
	if string(trailer[8:]) != trailerMagic {
		f.Close()
		return nil, errors.Wrap(ErrCorrupt, "no embedded bundle trailer")
	}
	bundleSize := int64(binary.LittleEndian.Uint64(trailer[:8]))
	base := info.Size() - trailerSize - bundleSize
	if base < 0 {
		f.Close()
		return nil, errors.Wrap(ErrCorrupt, "trailer bundle size exceeds file")
	}

	r, err := openAt(f, base)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// HasEmbedded reports whether the executable carries a bundle trailer
// without building an index.
func HasEmbedded(exePath string) bool {
	f, err := os.Open(exePath)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.Size() < trailerSize {
		return false
	}
	trailer := make([]byte, trailerSize)
	if _, err := f.ReadAt(trailer, info.Size()-trailerSize); err != nil {
		return false
	}
	return string(trailer[8:]) == trailerMagic
}

func openAt(f *os.File, base int64) (*Reader, error) {
	buf := make([]byte, headerSize)
	if _, err := f.ReadAt(buf, base); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	index := make([]byte, h.indexSize)
	if _, err := f.ReadAt(index, base+int64(h.indexOffset)); err != nil {
		return nil, errors.Wrap(err, "read index")
	}
	list, err := decodeIndex(index, h.assetCount)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Entry, len(list))
	order := make([]string, 0, len(list))
	for _, e := range list {
		entries[e.Path] = e
		order = append(order, e.Path)
	}
	return &Reader{f: f, base: base, entries: entries, order: order}, nil
}

func (r *Reader) Close() error { return r.f.Close() }

func (r *Reader) Count() int { return len(r.order) }

// Paths lists asset paths in index order.
func (r *Reader) Paths() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Reader) HasAsset(path string) bool {
	_, ok := r.entries[path]
	return ok
}

func (r *Reader) AssetInfo(path string) (Entry, bool) {
	e, ok := r.entries[path]
	return e, ok
}

// LoadAsset reads the asset bytes and verifies the stored checksum.
func (r *Reader) LoadAsset(path string) ([]byte, error) {
	data, e, err := r.read(path)
	if err != nil {
		return nil, err
	}
	if crc := crc32.ChecksumIEEE(data); crc != e.CRC {
		return nil, errors.Wrapf(ErrCorrupt, "%s checksum mismatch %08x != %08x", path, crc, e.CRC)
	}
	return data, nil
}

// LoadAssetUnverified reads the asset bytes without checking the stored
// checksum. Callers streaming large assets they validate elsewhere use
// this to skip the extra pass.
func (r *Reader) LoadAssetUnverified(path string) ([]byte, error) {
	data, _, err := r.read(path)
	return data, err
}

func (r *Reader) read(path string) ([]byte, Entry, error) {
	e, ok := r.entries[path]
	if !ok {
		return nil, Entry{}, errors.Wrap(ErrNotFound, path)
	}
	data := make([]byte, e.Size)
	if _, err := r.f.ReadAt(data, r.base+int64(e.Offset)); err != nil {
		return nil, Entry{}, errors.Wrapf(err, "read %s", path)
	}
	return data, e, nil
}

// EmbedInExecutable appends the bundle file to the executable and writes
// the size trailer so OpenEmbedded can find it later.
func EmbedInExecutable(exePath, bundlePath string) error {
	src, err := os.Open(bundlePath)
	if err != nil {
		return errors.Wrapf(err, "open %s", bundlePath)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return errors.Wrap(err, "stat bundle")
	}

	dst, err := os.OpenFile(exePath, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", exePath)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrap(err, "append bundle")
	}

	trailer := make([]byte, trailerSize)
	binary.LittleEndian.PutUint64(trailer, uint64(info.Size()))
	copy(trailer[8:], trailerMagic)
	if _, err := dst.Write(trailer); err != nil {
		return errors.Wrap(err, "write trailer")
	}
	return dst.Sync()
}
