package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"ganblend/tensor"

	"github.com/stretchr/testify/require"
)

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: 64,
				A: 255,
			})
		}
	}
	return img
}

func TestPrepareTargetCropsCenterSquare(t *testing.T) {
	// 64x32 landscape: the crop is the middle 32x32
	src := gradientImage(64, 32)
	got, err := PrepareTarget(src, 32)
	require.NoError(t, err)
	require.Equal(t, 32, got.Bounds().Dx())
	require.Equal(t, 32, got.Bounds().Dy())
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			require.Equal(t, src.RGBAAt(x+16, y), got.RGBAAt(x, y))
		}
	}
}

func TestPrepareTargetIdempotent(t *testing.T) {
	src := gradientImage(32, 32)
	got, err := PrepareTarget(src, 32)
	require.NoError(t, err)
	require.Equal(t, src.Pix, got.Pix)
}

func TestPrepareTargetResamples(t *testing.T) {
	src := gradientImage(100, 80)
	got, err := PrepareTarget(src, 32)
	require.NoError(t, err)
	require.Equal(t, 32, got.Bounds().Dx())
	require.Equal(t, 32, got.Bounds().Dy())

	// Deterministic
	again, err := PrepareTarget(src, 32)
	require.NoError(t, err)
	require.Equal(t, got.Pix, again.Pix)
}

func TestTargetTensorLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	tt := TargetTensor(img)
	require.Equal(t, []int{3, 2, 2}, tt.Shape)
	require.Equal(t, 10.0, tt.At(0, 0, 1))
	require.Equal(t, 20.0, tt.At(1, 0, 1))
	require.Equal(t, 30.0, tt.At(2, 0, 1))
}

func TestFromTensorClamps(t *testing.T) {
	x := tensor.New(3, 1, 2)
	x.Data = []float64{-50, 0, 1, -1, 0.5, 2}
	img, err := FromTensor(x)
	require.NoError(t, err)

	require.Equal(t, color.RGBA{R: 0, G: 255, B: 191, A: 255}, img.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{R: 127, G: 0, B: 255, A: 255}, img.RGBAAt(1, 0))
}

func TestFromTensorRejectsBadShape(t *testing.T) {
	_, err := FromTensor(tensor.New(4, 2, 2))
	require.Error(t, err)
}

func TestTensorImageRoundTrip(t *testing.T) {
	img := gradientImage(8, 8)
	tt := TargetTensor(img)
	// Scale 0..255 into the generator range before converting back
	for i := range tt.Data {
		tt.Data[i] = tt.Data[i]/127.5 - 1
	}
	back, err := FromTensor(tt)
	require.NoError(t, err)
	for i := range img.Pix {
		require.InDelta(t, img.Pix[i], back.Pix[i], 1)
	}
}

func TestHConcat(t *testing.T) {
	a := gradientImage(8, 8)
	b := gradientImage(8, 8)
	c := gradientImage(8, 8)
	out, err := HConcat(a, b, c)
	require.NoError(t, err)
	require.Equal(t, 24, out.Bounds().Dx())
	require.Equal(t, 8, out.Bounds().Dy())
	require.Equal(t, a.RGBAAt(3, 5), out.RGBAAt(3, 5))
	require.Equal(t, b.RGBAAt(3, 5), out.RGBAAt(11, 5))
	require.Equal(t, c.RGBAAt(3, 5), out.RGBAAt(19, 5))

	_, err = HConcat(a, gradientImage(4, 8))
	require.Error(t, err)
}

func TestLoadAndSaveImage(t *testing.T) {
	dir := t.TempDir()
	src := gradientImage(16, 16)

	for _, name := range []string{"img.png", "img.jpg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveImage(src, path))
		img, err := LoadImage(path)
		require.NoError(t, err)
		require.Equal(t, 16, img.Bounds().Dx())
	}

	require.Error(t, SaveImage(src, filepath.Join(dir, "img.gif")))
	_, err := LoadImage(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
}

func TestLoadImageRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err := LoadImage(path)
	require.Error(t, err)
}

func TestPaletteStrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			c := color.RGBA{R: 200, G: 30, B: 30, A: 255}
			if x >= 16 {
				c = color.RGBA{R: 30, G: 30, B: 200, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	p := Palette(img, 2)
	require.NotEmpty(t, p)
	require.LessOrEqual(t, len(p), 2)

	path := filepath.Join(t.TempDir(), "palette.png")
	require.NoError(t, SavePaletteStrip(p, 16, path))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 16*len(p), cfg.Width)
	require.Equal(t, 16, cfg.Height)
}
