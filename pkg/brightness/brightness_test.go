package brightness

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"
)

func uniformRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestMedian(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.Pix = []uint8{10, 20, 30, 40}

	oddGray := image.NewGray(image.Rect(0, 0, 3, 1))
	oddGray.Pix = []uint8{200, 0, 90}

	// One pixel: channels 0, 100, 255.
	mixed := uniformRGBA(1, 1, color.RGBA{R: 0, G: 100, B: 255, A: 255})

	// Half black half white, all channels counted.
	split := image.NewRGBA(image.Rect(0, 0, 2, 1))
	split.SetRGBA(0, 0, color.RGBA{A: 255})
	split.SetRGBA(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	tests := []struct {
		name string
		img  image.Image
		want float64
	}{
		{name: "gray even", img: gray, want: 25},
		{name: "gray odd", img: oddGray, want: 90},
		{name: "rgb channels", img: mixed, want: 100},
		{name: "split", img: split, want: 127.5},
		{name: "uniform", img: uniformRGBA(8, 8, color.RGBA{R: 42, G: 42, B: 42, A: 255}), want: 42},
		{name: "empty", img: image.NewGray(image.Rect(0, 0, 0, 0)), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.img); got != tt.want {
				t.Errorf("Median() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromJPEG(t *testing.T) {
	tests := []struct {
		name  string
		level uint8
	}{
		{name: "dark", level: 12},
		{name: "mid", level: 128},
		{name: "bright", level: 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := color.RGBA{R: tt.level, G: tt.level, B: tt.level, A: 255}
			b := encodeJPEG(t, uniformRGBA(32, 24, c))

			got, err := FromJPEG(b)
			if err != nil {
				t.Fatalf("FromJPEG() error = %v", err)
			}
			if math.Abs(got-float64(tt.level)) > 2 {
				t.Errorf("FromJPEG() = %v, want about %d", got, tt.level)
			}
		})
	}
}

func TestFromJPEGDecodeFailure(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("definitely not a jpeg")},
		{name: "truncated", data: []byte{0xff, 0xd8, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJPEG(tt.data)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("FromJPEG() error = %v, want ErrDecode", err)
			}
		})
	}
}
