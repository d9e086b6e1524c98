package export

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// iconSizes are the square icon variants rebuilt from the source image.
var iconSizes = []int{16, 32, 48, 64, 128, 256}

const rtIcon = 3

// patchExecutableIcon replaces RT_ICON resources in a PE file in place.
// Each resource slot is rewritten with a PNG frame scaled from the source
// image; frames that do not fit their slot are skipped. PNG-compressed
// icon entries are valid on Vista and later.
func patchExecutableIcon(exePath, iconPath string) error {
	src, err := loadIconImage(iconPath)
	if err != nil {
		return err
	}
	frames := make(map[int][]byte, len(iconSizes))
	for _, size := range iconSizes {
		frame, err := encodeIconFrame(src, size)
		if err != nil {
			return err
		}
		frames[size] = frame
	}

	slots, err := iconResourceSlots(exePath)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		return errors.New("executable has no icon resources to patch")
	}

	f, err := os.OpenFile(exePath, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", exePath)
	}
	defer f.Close()

	patched := 0
	for _, slot := range slots {
		frame := bestFrame(frames, int(slot.size))
		if frame == nil {
			continue
		}
		// Pad to the slot size so the resource directory stays valid.
		buf := make([]byte, slot.size)
		copy(buf, frame)
		if _, err := f.WriteAt(buf, slot.offset); err != nil {
			return errors.Wrap(err, "write icon resource")
		}
		patched++
	}
	if patched == 0 {
		return errors.New("no icon frame fits the existing resource slots")
	}
	return f.Sync()
}

func loadIconImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// encodeIconFrame rescales the source to a square PNG of the given size.
func encodeIconFrame(src image.Image, size int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, errors.Wrap(err, "encode icon frame")
	}
	return buf.Bytes(), nil
}

// bestFrame picks the largest frame that fits in a resource slot.
func bestFrame(frames map[int][]byte, slotSize int) []byte {
	var best []byte
	for _, size := range iconSizes {
		frame := frames[size]
		if len(frame) <= slotSize && (best == nil || len(frame) > len(best)) {
			best = frame
		}
	}
	return best
}

type resourceSlot struct {
	offset int64
	size   uint32
}

// iconResourceSlots walks the PE resource directory and returns the file
// offset and size of every RT_ICON data entry.
func iconResourceSlots(exePath string) ([]resourceSlot, error) {
	pf, err := pe.Open(exePath)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", exePath)
	}
	defer pf.Close()

	var rsrc *pe.Section
	for _, s := range pf.Sections {
		if s.Name == ".rsrc" {
			rsrc = s
			break
		}
	}
	if rsrc == nil {
		return nil, errors.New("executable has no resource section")
	}
	data, err := rsrc.Data()
	if err != nil {
		return nil, errors.Wrap(err, "read resource section")
	}

	var slots []resourceSlot
	collectDataEntries(data, 0, rtIcon, 0, func(dataRVA, size uint32) {
		slots = append(slots, resourceSlot{
			offset: int64(dataRVA-rsrc.VirtualAddress) + int64(rsrc.Offset),
			size:   size,
		})
	})
	return slots, nil
}

// collectDataEntries recurses the three-level resource tree (type, name,
// language). Only subtrees under wantType at the root level are followed.
func collectDataEntries(data []byte, dirOffset uint32, wantType uint32, depth int, fn func(dataRVA, size uint32)) {
	if int(dirOffset)+16 > len(data) {
		return
	}
	named := binary.LittleEndian.Uint16(data[dirOffset+12:])
	ids := binary.LittleEndian.Uint16(data[dirOffset+14:])
	entryOff := dirOffset + 16
	total := uint32(named) + uint32(ids)
	for i := uint32(0); i < total; i++ {
		off := entryOff + i*8
		if int(off)+8 > len(data) {
			return
		}
		id := binary.LittleEndian.Uint32(data[off:])
		target := binary.LittleEndian.Uint32(data[off+4:])
		if depth == 0 && id != wantType {
			continue
		}
		if target&0x80000000 != 0 {
			collectDataEntries(data, target&0x7FFFFFFF, wantType, depth+1, fn)
			continue
		}
		if int(target)+16 > len(data) {
			continue
		}
		dataRVA := binary.LittleEndian.Uint32(data[target:])
		size := binary.LittleEndian.Uint32(data[target+4:])
		fn(dataRVA, size)
	}
}
