package codec

import (
	"bytes"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"
)

var (
	xbmWidth  = regexp.MustCompile(`#define\s+\S*_width\s+(\d+)`)
	xbmHeight = regexp.MustCompile(`#define\s+\S*_height\s+(\d+)`)
)

func isXBM(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	head := bytes.TrimSpace(data[:n])
	return bytes.HasPrefix(head, []byte("#define")) && bytes.Contains(head, []byte("_width"))
}

// decodeXBM reads an X11 bitmap. Bits are LSB first; a set bit is black.
func decodeXBM(data []byte) (image.Image, error) {
	src := string(data)
	w, err := xbmDefine(xbmWidth, src, "width")
	if err != nil {
		return nil, err
	}
	h, err := xbmDefine(xbmHeight, src, "height")
	if err != nil {
		return nil, err
	}

	open := strings.IndexByte(src, '{')
	end := strings.LastIndexByte(src, '}')
	if open < 0 || end < open {
		return nil, fmt.Errorf("xbm: missing bits array")
	}

	// X10 bitmaps store 16-bit little-endian words and pad rows to them.
	words := strings.Contains(src[:open], "short")
	rowBytes := (w + 7) / 8
	if words {
		rowBytes = (w + 15) / 16 * 2
	}
	bits := make([]byte, 0, rowBytes*h)
	for _, tok := range strings.Split(src[open+1:end], ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseUint(tok, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("xbm: bad value %q: %w", tok, err)
		}
		if words {
			bits = append(bits, byte(v), byte(v>>8))
			continue
		}
		bits = append(bits, byte(v))
	}
	if len(bits) < rowBytes*h {
		return nil, fmt.Errorf("xbm: expected %d bytes, got %d", rowBytes*h, len(bits))
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bits[y*rowBytes+x/8]&(1<<uint(x%8)) == 0 {
				img.Pix[y*img.Stride+x] = 0xFF
			}
		}
	}
	return img, nil
}

func xbmDefine(re *regexp.Regexp, src, name string) (int, error) {
	m := re.FindStringSubmatch(src)
	if m == nil {
		return 0, fmt.Errorf("xbm: missing %s define", name)
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("xbm: invalid %s %q", name, m[1])
	}
	return v, nil
}
