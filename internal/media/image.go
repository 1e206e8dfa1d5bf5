package media

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	// This registers the supported formats for image.Decode.
	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// ImageSanitizer implements Sanitizer in pure Go. It never calls the transcoder.
type ImageSanitizer struct {
	scaler draw.Scaler
}

// NewImageSanitizer creates an ImageSanitizer that resamples with Catmull-Rom.
func NewImageSanitizer() *ImageSanitizer {
	return &ImageSanitizer{scaler: draw.CatmullRom}
}

// EvenDimensions returns w and h each reduced by one if odd.
func EvenDimensions(w, h int) (int, int) {
	if w%2 != 0 {
		w--
	}
	if h%2 != 0 {
		h--
	}
	return w, h
}

// Sanitize implements Sanitizer.Sanitize.
func (s *ImageSanitizer) Sanitize(ctx context.Context, src, dst string) (image.Point, error) {
	if err := ctx.Err(); err != nil {
		return image.Point{}, stageFailure(ErrImage, "sanitize", src, Result{}, err)
	}

	img, err := loadImg(src)
	if err != nil {
		return image.Point{}, stageFailure(ErrImage, "decode", src, Result{}, err)
	}

	rgb := toRGB(img)
	b := rgb.Bounds()
	w, h := EvenDimensions(b.Dx(), b.Dy())
	if w <= 0 || h <= 0 {
		return image.Point{}, stageFailure(ErrImage, "sanitize", src, Result{},
			fmt.Errorf("%w: %dx%d", ErrDegenerateImage, b.Dx(), b.Dy()))
	}

	out := rgb
	if w != b.Dx() || h != b.Dy() {
		out = image.NewNRGBA(image.Rect(0, 0, w, h))
		s.scaler.Scale(out, out.Bounds(), rgb, b, draw.Src, nil)
	}

	if err := writePNG(dst, out); err != nil {
		return image.Point{}, stageFailure(ErrImage, "encode", dst, Result{}, err)
	}
	return image.Point{X: w, Y: h}, nil
}

// loadImg loads an image given its path.
func loadImg(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304 - path is a scratch file created by the pipeline
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}
	return m, nil
}

// toRGB copies img onto an origin-anchored canvas and discards alpha, so
// palette, gray and transparent inputs all come out as opaque RGB.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	m := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(m.Pix); i += 4 {
		m.Pix[i] = 0xff
	}
	return m
}

// writePNG encodes the given image as a PNG file at the given path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path) // #nosec G304 - path is a scratch file created by the pipeline
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("could not encode to %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("could not close %s: %w", path, err)
	}
	return nil
}

// Verify interface implementation at compile time.
var _ Sanitizer = (*ImageSanitizer)(nil)
