package codec

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// WBMP type 0: two header bytes, width and height as multi-byte integers, then
// rows of packed bits (1 = white) padded to whole bytes.

const maxWBMPSide = 1 << 16

var errWBMPHeader = errors.New("wbmp: malformed header")

type wbmpHeader struct {
	width, height int
	dataOffset    int
}

func readWBMPHeader(data []byte) (wbmpHeader, error) {
	pos := 0
	typ, err := readMultiByteInt(data, &pos)
	if err != nil || typ != 0 {
		return wbmpHeader{}, errWBMPHeader
	}
	if pos >= len(data) || data[pos]&0x80 != 0 {
		// extension headers are not used by type 0 images
		return wbmpHeader{}, errWBMPHeader
	}
	pos++
	w, err := readMultiByteInt(data, &pos)
	if err != nil {
		return wbmpHeader{}, err
	}
	h, err := readMultiByteInt(data, &pos)
	if err != nil {
		return wbmpHeader{}, err
	}
	if w <= 0 || h <= 0 || w > maxWBMPSide || h > maxWBMPSide {
		return wbmpHeader{}, fmt.Errorf("wbmp: invalid dimensions %dx%d", w, h)
	}
	return wbmpHeader{width: w, height: h, dataOffset: pos}, nil
}

func readMultiByteInt(data []byte, pos *int) (int, error) {
	v := 0
	for i := 0; i < 4; i++ {
		if *pos >= len(data) {
			return 0, errWBMPHeader
		}
		b := data[*pos]
		*pos++
		v = v<<7 | int(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errWBMPHeader
}

// isWBMP has no magic number to go on, so it requires a valid header and a
// payload of exactly the expected size.
func isWBMP(data []byte) bool {
	if len(data) < 4 || data[0] != 0 || data[1] != 0 {
		return false
	}
	hdr, err := readWBMPHeader(data)
	if err != nil {
		return false
	}
	return len(data)-hdr.dataOffset == (hdr.width+7)/8*hdr.height
}

func decodeWBMP(data []byte) (image.Image, error) {
	hdr, err := readWBMPHeader(data)
	if err != nil {
		return nil, err
	}
	rowBytes := (hdr.width + 7) / 8
	if len(data)-hdr.dataOffset < rowBytes*hdr.height {
		return nil, fmt.Errorf("wbmp: truncated pixel data")
	}

	img := image.NewGray(image.Rect(0, 0, hdr.width, hdr.height))
	for y := 0; y < hdr.height; y++ {
		row := data[hdr.dataOffset+y*rowBytes:]
		for x := 0; x < hdr.width; x++ {
			if row[x/8]&(0x80>>uint(x%8)) != 0 {
				img.Pix[y*img.Stride+x] = 0xFF
			}
		}
	}
	return img, nil
}

func encodeWBMP(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	header := []byte{0, 0}
	header = appendMultiByteInt(header, b.Dx())
	header = appendMultiByteInt(header, b.Dy())
	if _, err := bw.Write(header); err != nil {
		return err
	}

	row := make([]byte, (b.Dx()+7)/8)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for i := range row {
			row[i] = 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y >= 0x80 {
				i := x - b.Min.X
				row[i/8] |= 0x80 >> uint(i%8)
			}
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func appendMultiByteInt(dst []byte, v int) []byte {
	var groups [5]byte
	n := 0
	for {
		groups[n] = byte(v & 0x7F)
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		b := groups[i]
		if i > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}
