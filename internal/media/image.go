package media

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// ImageFitter bounds images to a maximum size, preserving aspect ratio.
type ImageFitter struct {
	MaxWidth  int
	MaxHeight int
}

// Fit decodes the image at path and rewrites it in place when it exceeds the bounding box. Images
// already inside the box are left byte-for-byte untouched.
func (f ImageFitter) Fit(path string) error {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	if f.MaxWidth <= 0 || f.MaxHeight <= 0 {
		return nil
	}
	bounds := img.Bounds()
	if bounds.Dx() <= f.MaxWidth && bounds.Dy() <= f.MaxHeight {
		return nil
	}

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.JPEG
	}

	fitted := imaging.Fit(img, f.MaxWidth, f.MaxHeight, imaging.Lanczos)
	if err := writeImage(path, fitted, format); err != nil {
		return fmt.Errorf("encode fitted image: %w", err)
	}
	return nil
}

func writeImage(path string, img image.Image, format imaging.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := imaging.Encode(file, img, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
