package imagekit

import "sort"

// Capabilities is the result of probing a backend at startup. It is passed to
// the factory and to every adapter it opens.
type Capabilities struct {
	Backend string
	Decode  map[Format]bool
	Encode  map[Format]bool
}

func (c Capabilities) CanDecode(f Format) bool { return c.Decode[f] }
func (c Capabilities) CanEncode(f Format) bool { return c.Encode[f] }

// PreferredFormat picks the compression target when none was requested:
// WebP, then AVIF, then current.
func (c Capabilities) PreferredFormat(current Format) Format {
	for _, f := range []Format{FormatWebP, FormatAVIF} {
		if c.CanEncode(f) {
			return f
		}
	}
	return current
}

// DecodeFormats lists decodable formats in name order.
func (c Capabilities) DecodeFormats() []Format { return sortedKeys(c.Decode) }

// EncodeFormats lists encodable formats in name order.
func (c Capabilities) EncodeFormats() []Format { return sortedKeys(c.Encode) }

func sortedKeys(m map[Format]bool) []Format {
	out := make([]Format, 0, len(m))
	for f, ok := range m {
		if ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
