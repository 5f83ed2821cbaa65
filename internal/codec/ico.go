package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
)

const (
	icoDirSize   = 6
	icoEntrySize = 16
	bmpFileHdr   = 14
)

func isICO(data []byte) bool {
	return len(data) >= icoDirSize+icoEntrySize &&
		data[0] == 0 && data[1] == 0 && data[2] == 1 && data[3] == 0 &&
		binary.LittleEndian.Uint16(data[4:6]) > 0
}

// decodeICO decodes the first image of an icon directory. Entries are either
// a complete PNG or a headerless BMP whose height counts the AND mask too.
func decodeICO(data []byte) (image.Image, error) {
	if !isICO(data) {
		return nil, fmt.Errorf("ico: malformed directory")
	}
	entry := data[icoDirSize : icoDirSize+icoEntrySize]
	size := int(binary.LittleEndian.Uint32(entry[8:12]))
	offset := int(binary.LittleEndian.Uint32(entry[12:16]))
	if size <= 0 || offset < icoDirSize+icoEntrySize || offset+size > len(data) {
		return nil, fmt.Errorf("ico: entry out of range (offset %d, size %d)", offset, size)
	}

	payload := data[offset : offset+size]
	if hasCorrectPngSignature(payload) {
		return png.Decode(bytes.NewReader(payload))
	}
	return decodeICOBitmap(payload)
}

func decodeICOBitmap(dib []byte) (image.Image, error) {
	if len(dib) < 40 {
		return nil, fmt.Errorf("ico: bitmap header too short")
	}
	headerSize := int(binary.LittleEndian.Uint32(dib[0:4]))
	height := int32(binary.LittleEndian.Uint32(dib[8:12]))
	bpp := int(binary.LittleEndian.Uint16(dib[14:16]))
	colorsUsed := int(binary.LittleEndian.Uint32(dib[32:36]))

	paletteSize := 0
	if bpp <= 8 {
		n := colorsUsed
		if n == 0 {
			n = 1 << uint(bpp)
		}
		paletteSize = 4 * n
	}

	file := make([]byte, bmpFileHdr+len(dib))
	copy(file[bmpFileHdr:], dib)
	file[0], file[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(file[2:6], uint32(len(file)))
	binary.LittleEndian.PutUint32(file[10:14], uint32(bmpFileHdr+headerSize+paletteSize))
	binary.LittleEndian.PutUint32(file[bmpFileHdr+8:bmpFileHdr+12], uint32(height/2))

	img, err := bmp.Decode(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("ico: %w", err)
	}
	return img, nil
}
