package video

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameBytesPacked(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	b := FrameBytes(img)
	require.Len(t, b, 4*4*2)
	require.Equal(t, img.Pix, b)
}

func TestFrameBytesSubImage(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range base.Pix {
		base.Pix[i] = byte(i % 251)
	}
	sub := base.SubImage(image.Rect(2, 2, 6, 6)).(*image.RGBA)

	b := FrameBytes(sub)
	require.Len(t, b, 4*4*4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			off := base.PixOffset(2+x, 2+y)
			require.Equal(t, base.Pix[off:off+4], b[(y*4+x)*4:(y*4+x)*4+4])
		}
	}
}
