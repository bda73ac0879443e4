package pipeline

import (
	"archive/zip"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"ganblend/generator"
	"ganblend/utils"
	"ganblend/video"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/require"
)

// captureWriter records frames instead of spawning ffmpeg, but still writes
// the output file so directory-level assertions hold.
type captureWriter struct {
	path      string
	frameSize int
	frames    int
	closed    bool
}

func (c *captureWriter) Write(frame []byte) error {
	if len(frame) != c.frameSize {
		return os.ErrInvalid
	}
	c.frames++
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return os.WriteFile(c.path, []byte("mp4"), 0o644)
}

func writeTestNetwork(t *testing.T, dir, name string, seed uint64) string {
	t.Helper()
	g, err := generator.NewRandom(generator.Config{
		Resolution:   16,
		LatentDim:    4,
		ChannelBase:  64,
		MaxWidth:     16,
		MappingDepth: 1,
	}, seed)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, utils.SaveCheckpoint(path, g.ToCheckpoint()))
	return path
}

func writeTestPhoto(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, "face.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())
	return path
}

func TestRunEndToEnd(t *testing.T) {
	work := t.TempDir()
	outDir := t.TempDir()

	cfg := utils.DefaultRunConfig()
	cfg.Network1 = writeTestNetwork(t, work, "net1.json", 1)
	cfg.Network2 = writeTestNetwork(t, work, "net2.json", 2)
	cfg.InputImage = writeTestPhoto(t, work)
	cfg.OutDir = outDir
	cfg.BlendLayer = 8
	cfg.MaxWidth = 16
	cfg.Steps = 4
	cfg.Verbose = false

	r := New(cfg)
	var cw *captureWriter
	r.NewFrameWriter = func(path string, width, height, fps int) (video.FrameWriter, error) {
		require.Equal(t, 48, width) // three 16px panels
		require.Equal(t, 16, height)
		require.Equal(t, 10, fps)
		cw = &captureWriter{path: path, frameSize: 4 * width * height}
		return cw, nil
	}
	require.NoError(t, r.Run())

	require.NotNil(t, cw)
	require.True(t, cw.closed)
	require.Equal(t, 4, cw.frames)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	byExt := map[string][]string{}
	for _, e := range entries {
		byExt[filepath.Ext(e.Name())] = append(byExt[filepath.Ext(e.Name())], e.Name())
	}
	require.Len(t, byExt[".npz"], 1)
	require.Len(t, byExt[".mp4"], 1)
	require.ElementsMatch(t, []string{"face_synthesized.jpg", "face_blended.jpg"}, byExt[".jpg"])

	// The latent archive holds one batch of per-step latents.
	zr, err := zip.OpenReader(filepath.Join(outDir, "projected_w.npz"))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	npy, err := npyio.NewReader(rc)
	require.NoError(t, err)
	require.Equal(t, []int{1, 4, 3, 4}, npy.Header.Descr.Shape) // 16px nets have 3 blocks
}

func TestRunRejectsMissingInputs(t *testing.T) {
	cfg := utils.DefaultRunConfig()
	cfg.OutDir = t.TempDir()
	err := New(cfg).Run()
	require.Error(t, err)

	work := t.TempDir()
	cfg.Network1 = writeTestNetwork(t, work, "net1.json", 1)
	cfg.Network2 = writeTestNetwork(t, work, "net2.json", 2)
	cfg.InputImage = filepath.Join(work, "nope.jpg")
	cfg.BlendLayer = 8
	cfg.MaxWidth = 16
	cfg.Steps = 2
	err = New(cfg).Run()
	require.Error(t, err)
}

func TestRunRejectsOverWideNetwork(t *testing.T) {
	work := t.TempDir()
	cfg := utils.DefaultRunConfig()
	cfg.Network1 = writeTestNetwork(t, work, "net1.json", 1)
	cfg.Network2 = writeTestNetwork(t, work, "net2.json", 2)
	cfg.InputImage = writeTestPhoto(t, work)
	cfg.OutDir = t.TempDir()
	cfg.BlendLayer = 8
	cfg.MaxWidth = 8 // networks declare 16
	cfg.Steps = 2
	err := New(cfg).Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "channel width")
}
