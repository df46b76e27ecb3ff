package brightness

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"

	pkgerrors "github.com/pkg/errors"
)

// ErrDecode is returned when the capture cannot be parsed as an image.
var ErrDecode = errors.New("cannot decode image")

// FromJPEG decodes a JPEG stream and returns its median channel value.
func FromJPEG(b []byte) (float64, error) {
	if len(b) == 0 {
		return 0, pkgerrors.Wrap(ErrDecode, "empty image")
	}

	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		return 0, pkgerrors.Wrapf(ErrDecode, "%v", err)
	}

	if img.Bounds().Empty() {
		return 0, pkgerrors.Wrap(ErrDecode, "image has no pixels")
	}

	return Median(img), nil
}

// Median returns the median of every 8-bit channel value in img. Colour
// images contribute R, G and B of each pixel, gray images a single value.
// For an even number of samples the mean of the two middle ones is returned.
func Median(img image.Image) float64 {
	var hist [256]int
	var n int

	b := img.Bounds()
	switch m := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				hist[m.GrayAt(x, y).Y]++
				n++
			}
		}
	case *image.YCbCr:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := m.YCbCrAt(x, y)
				r, g, bl := color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
				hist[r]++
				hist[g]++
				hist[bl]++
				n += 3
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				hist[r>>8]++
				hist[g>>8]++
				hist[bl>>8]++
				n += 3
			}
		}
	}

	if n == 0 {
		return 0
	}

	lo := nth(&hist, (n-1)/2)
	if n%2 == 1 {
		return float64(lo)
	}
	hi := nth(&hist, n/2)
	return (float64(lo) + float64(hi)) / 2
}

// nth returns the value at zero-based rank k of the histogram.
func nth(hist *[256]int, k int) int {
	seen := 0
	for v, c := range hist {
		seen += c
		if seen > k {
			return v
		}
	}
	return 255
}
