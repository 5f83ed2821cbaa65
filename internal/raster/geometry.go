package raster

import "math"

// ContainSize scales (srcW, srcH) down to fit inside (maxW, maxH), keeping the
// aspect ratio. Images that already fit are left at their size.
func ContainSize(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	if scale > 1 {
		scale = 1
	}
	w := clampSide(int(math.Round(float64(srcW)*scale)), maxW)
	h := clampSide(int(math.Round(float64(srcH)*scale)), maxH)
	return w, h
}

// CoverSize scales (srcW, srcH) so both sides are at least (maxW, maxH). The
// result is then centre-cropped to exactly maxW x maxH by the caller.
func CoverSize(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	scale := math.Max(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	w := int(math.Ceil(float64(srcW) * scale))
	h := int(math.Ceil(float64(srcH) * scale))
	if w < maxW {
		w = maxW
	}
	if h < maxH {
		h = maxH
	}
	return w, h
}

func clampSide(v, max int) int {
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}
