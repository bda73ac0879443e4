// Package video streams rendered frames into an MP4 container.
package video

import (
	"fmt"
	"image"

	vidio "github.com/AlexEidt/Vidio"
)

// FrameWriter receives raw RGBA frames in display order. Close must be
// called after the last frame to flush the container; skipping it corrupts
// the output file.
type FrameWriter interface {
	Write(frame []byte) error
	Close() error
}

// mp4Writer encodes through ffmpeg via Vidio.
type mp4Writer struct {
	w *vidio.VideoWriter
}

// NewMP4Writer opens an H.264 MP4 stream at path for width x height RGBA
// frames at the given frame rate.
func NewMP4Writer(path string, width, height, fps int) (FrameWriter, error) {
	opts := vidio.Options{
		FPS:     float64(fps),
		Codec:   "libx264",
		Bitrate: 16_000_000,
	}
	w, err := vidio.NewVideoWriter(path, width, height, &opts)
	if err != nil {
		return nil, fmt.Errorf("opening video %s: %w", path, err)
	}
	return &mp4Writer{w: w}, nil
}

func (m *mp4Writer) Write(frame []byte) error {
	return m.w.Write(frame)
}

func (m *mp4Writer) Close() error {
	m.w.Close()
	return nil
}

// FrameBytes returns an image's pixels as the tightly packed RGBA stream a
// FrameWriter expects.
func FrameBytes(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == 4*w && b.Min == (image.Point{}) {
		return img.Pix[:4*w*h]
	}
	out := make([]byte, 4*w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*4*w:], img.Pix[off:off+4*w])
	}
	return out
}
