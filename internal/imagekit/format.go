package imagekit

import (
	"path/filepath"
	"strings"
)

// Format identifies an image container format.
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatWBMP    Format = "wbmp"
	FormatWebP    Format = "webp"
	FormatAVIF    Format = "avif"
	FormatICO     Format = "ico"
	FormatXBM     Format = "xbm"
	FormatTIFF    Format = "tiff"
	FormatSVG     Format = "svg"
)

var mimeTypes = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatBMP:  "image/bmp",
	FormatWBMP: "image/vnd.wap.wbmp",
	FormatWebP: "image/webp",
	FormatAVIF: "image/avif",
	FormatICO:  "image/x-icon",
	FormatXBM:  "image/x-xbitmap",
	FormatTIFF: "image/tiff",
	FormatSVG:  "image/svg+xml",
}

// aliases maps MIME types and names that are not canonical.
var aliases = map[string]Format{
	"jpg":                      FormatJPEG,
	"jpe":                      FormatJPEG,
	"tif":                      FormatTIFF,
	"image/jpg":                FormatJPEG,
	"image/pjpeg":              FormatJPEG,
	"image/x-ms-bmp":           FormatBMP,
	"image/vnd.microsoft.icon": FormatICO,
	"image/x-xbm":              FormatXBM,
}

var extensions = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".jpe":  FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".wbmp": FormatWBMP,
	".webp": FormatWebP,
	".avif": FormatAVIF,
	".ico":  FormatICO,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
}

// MIME returns the media type of f, or "application/octet-stream".
func (f Format) MIME() string {
	if m, ok := mimeTypes[f]; ok {
		return m
	}
	return "application/octet-stream"
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// ParseFormat accepts a format name ("jpg", "webp") or a MIME type.
func ParseFormat(s string) (Format, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatUnknown, false
	}
	if f, ok := aliases[s]; ok {
		return f, true
	}
	for f, m := range mimeTypes {
		if s == string(f) || s == m {
			return f, true
		}
	}
	return FormatUnknown, false
}

// FormatFromPath returns the save format for the extension of path.
func FormatFromPath(path string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}
