package pipeline

func init() {
	mustRegister("resize", NewResizeStep)
	mustRegister("thumbnail", NewThumbnailStep)
	mustRegister("crop", NewCropStep)
	mustRegister("rotate", NewRotateStep)
	mustRegister("flip", NewFlipStep)
	mustRegister("autoOrient", NewAutoOrientStep)
	mustRegister("orientation", NewOrientationStep)
	mustRegister("watermark", NewWatermarkStep)
	mustRegister("text", NewTextStep)
	mustRegister("grayscale", NewGrayscaleStep)
	mustRegister("invert", NewInvertStep)
	mustRegister("brightness", NewBrightnessStep)
	mustRegister("contrast", NewContrastStep)
	mustRegister("blur", NewBlurStep)
	mustRegister("sharpen", NewSharpenStep)
	mustRegister("dither", NewDitherStep)
	mustRegister("compress", NewCompressStep)
}
