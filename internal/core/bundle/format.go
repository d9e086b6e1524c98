// Package bundle packs game assets into a single archive that ships next
// to, or embedded inside, the runtime executable.
//
// Layout: a 32 byte header, the concatenated asset payload, then an index
// table. Header: magic "LUPINEAB", u32 version, u32 asset count, u64 index
// offset, u64 index size. Index entry: u32 path length, path bytes, u64
// payload offset, u64 size, u32 CRC-32. All integers little-endian. An
// embedded bundle is followed by a 16 byte trailer at the very end of the
// host binary: u64 bundle size, then magic "LUPBUNDL".
package bundle

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

const (
	headerMagic  = "LUPINEAB"
	trailerMagic = "LUPBUNDL"

	formatVersion = 1

	headerSize  = 32
	trailerSize = 16
)

var (
	ErrNotFound    = errors.New("bundle: asset not found")
	ErrDuplicate   = errors.New("bundle: duplicate asset path")
	ErrBadPath     = errors.New("bundle: invalid asset path")
	ErrUnsupported = errors.New("bundle: unsupported asset type")
	ErrCorrupt     = errors.New("bundle: corrupt data")
)

// Entry describes one asset in the index. Offset is relative to the start
// of the bundle, not the host file.
type Entry struct {
	Path   string
	Offset uint64
	Size   uint64
	CRC    uint32
}

type header struct {
	version     uint32
	assetCount  uint32
	indexOffset uint64
	indexSize   uint64
}

func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf, headerMagic)
	binary.LittleEndian.PutUint32(buf[8:], h.version)
	binary.LittleEndian.PutUint32(buf[12:], h.assetCount)
	binary.LittleEndian.PutUint64(buf[16:], h.indexOffset)
	binary.LittleEndian.PutUint64(buf[24:], h.indexSize)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerSize || string(buf[:8]) != headerMagic {
		return header{}, errors.Wrap(ErrCorrupt, "bad header magic")
	}
	h := header{
		version:     binary.LittleEndian.Uint32(buf[8:]),
		assetCount:  binary.LittleEndian.Uint32(buf[12:]),
		indexOffset: binary.LittleEndian.Uint64(buf[16:]),
		indexSize:   binary.LittleEndian.Uint64(buf[24:]),
	}
	if h.version != formatVersion {
		return header{}, errors.Wrapf(ErrCorrupt, "unsupported version %d", h.version)
	}
	return h, nil
}

func encodeIndex(entries []Entry) []byte {
	var buf []byte
	var scratch [8]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(e.Path)))
		buf = append(buf, scratch[:4]...)
		buf = append(buf, e.Path...)
		binary.LittleEndian.PutUint64(scratch[:], e.Offset)
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], e.Size)
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint32(scratch[:4], e.CRC)
		buf = append(buf, scratch[:4]...)
	}
	return buf
}

func decodeIndex(buf []byte, count uint32) ([]Entry, error) {
	entries := make([]Entry, 0, count)
	off := 0
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, errors.Wrap(ErrCorrupt, "truncated index")
		}
		pathLen := int(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		if off+pathLen+20 > len(buf) {
			return nil, errors.Wrap(ErrCorrupt, "truncated index entry")
		}
		e := Entry{Path: string(buf[off : off+pathLen])}
		off += pathLen
		e.Offset = binary.LittleEndian.Uint64(buf[off:])
		e.Size = binary.LittleEndian.Uint64(buf[off+8:])
		e.CRC = binary.LittleEndian.Uint32(buf[off+16:])
		off += 20
		entries = append(entries, e)
	}
	return entries, nil
}

// allowedExtensions is the set of asset types the bundler accepts. Paths
// with other extensions are skipped by directory scans and rejected by
// explicit adds.
var allowedExtensions = map[string]bool{
	".scene": true, ".lupine": true, ".tileset": true, ".tilemap": true,
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tga": true,
	".dds": true, ".ico": true,
	".obj": true, ".fbx": true, ".gltf": true, ".glb": true, ".dae": true,
	".3ds": true,
	".wav": true, ".mp3": true, ".ogg": true, ".flac": true, ".aiff": true,
	".m4a": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
	".lua": true, ".py": true, ".js": true, ".cs": true, ".cpp": true,
	".h": true,
	".json": true, ".xml": true, ".txt": true, ".yaml": true, ".yml": true,
	".cfg": true,
	".glsl": true, ".hlsl": true, ".vert": true, ".frag": true,
	".mat": true, ".anim": true, ".prefab": true,
	".dll": true, ".so": true, ".dylib": true, ".exe": true, ".app": true,
}

func extensionAllowed(path string) bool {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(path[dot:])]
}
