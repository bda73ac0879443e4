// Package imaging covers the pixel-side work of the pipeline: decoding and
// preparing the target photo, converting between image and tensor form, and
// assembling comparison frames.
package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"ganblend/tensor"
)

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// PrepareTarget crops the largest centered square out of img and resamples it
// to size x size with a Catmull-Rom filter. An input that is already square
// at the requested size passes through pixel for pixel.
func PrepareTarget(img image.Image, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %d", size)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty input image")
	}

	s := w
	if h < s {
		s = h
	}
	crop := image.Rect(0, 0, s, s).Add(image.Pt(b.Min.X+(w-s)/2, b.Min.Y+(h-s)/2))

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	if s == size {
		draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)
		return out, nil
	}
	draw.CatmullRom.Scale(out, out.Bounds(), img, crop, draw.Src, nil)
	return out, nil
}

// TargetTensor converts an RGBA image to a channel-first [3, H, W] tensor
// with values in 0..255.
func TargetTensor(img *image.RGBA) *tensor.Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	t := tensor.New(3, h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			t.Data[0*h*w+y*w+x] = float64(img.Pix[off])
			t.Data[1*h*w+y*w+x] = float64(img.Pix[off+1])
			t.Data[2*h*w+y*w+x] = float64(img.Pix[off+2])
		}
	}
	return t
}

// FromTensor maps a [3, H, W] generator output, nominally in [-1, 1], to an
// 8-bit image with (x+1)*127.5 and clamps each value to [0, 255].
func FromTensor(t *tensor.Tensor) (*image.RGBA, error) {
	if len(t.Shape) != 3 || t.Shape[0] != 3 {
		return nil, fmt.Errorf("expected a [3, H, W] tensor, got %v", t.Shape)
	}
	h, w := t.Shape[1], t.Shape[2]
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := img.PixOffset(x, y)
			img.Pix[off] = clampByte(t.Data[0*h*w+y*w+x])
			img.Pix[off+1] = clampByte(t.Data[1*h*w+y*w+x])
			img.Pix[off+2] = clampByte(t.Data[2*h*w+y*w+x])
			img.Pix[off+3] = 255
		}
	}
	return img, nil
}

func clampByte(v float64) uint8 {
	v = (v + 1) * 127.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// HConcat joins equally sized images left to right into one frame.
func HConcat(imgs ...*image.RGBA) (*image.RGBA, error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}
	w, h := imgs[0].Bounds().Dx(), imgs[0].Bounds().Dy()
	for i, img := range imgs {
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			return nil, fmt.Errorf("panel %d is %dx%d, want %dx%d",
				i, img.Bounds().Dx(), img.Bounds().Dy(), w, h)
		}
	}
	out := image.NewRGBA(image.Rect(0, 0, w*len(imgs), h))
	for i, img := range imgs {
		draw.Draw(out, image.Rect(i*w, 0, (i+1)*w, h), img, img.Bounds().Min, draw.Src)
	}
	return out, nil
}

// SaveImage encodes by file extension: .png, or .jpg/.jpeg at quality 95.
func SaveImage(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode(f, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
}
