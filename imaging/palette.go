package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Palette extracts the k most prominent colors of an image, darkest first.
// Dominant-color analysis is tried first; a k-means pass over subsampled
// pixels serves as the fallback when it yields nothing usable.
func Palette(img image.Image, k int) []colorful.Color {
	if k <= 0 {
		return nil
	}
	p := dominantPalette(img, k)
	if len(p) == 0 {
		p = kmeansPalette(img, k)
	}
	sortByBrightness(p)
	return p
}

func dominantPalette(img image.Image, k int) []colorful.Color {
	cands := dominantcolor.FindWeight(img, max(k*4, 16))
	out := make([]colorful.Color, 0, k)
	for _, c := range cands {
		col, _ := colorful.MakeColor(c.RGBA)
		out = append(out, col.Clamped())
		if len(out) == k {
			break
		}
	}
	return out
}

func kmeansPalette(img image.Image, k int) []colorful.Color {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Subsample large images so kmeans stays cheap.
	const maxSamples = 8000
	step := 1
	if w*h > maxSamples {
		step = int(math.Sqrt(float64(w*h)/maxSamples)) + 1
	}

	var dataset clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bb, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r) / 65535, float64(g) / 65535, float64(bb) / 65535,
			})
		}
	}
	if len(dataset) < k {
		return nil
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil
	}
	slices.SortFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	out := make([]colorful.Color, 0, k)
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		out = append(out, colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped())
	}
	return out
}

func sortByBrightness(palette []colorful.Color) {
	slices.SortFunc(palette, func(a, b colorful.Color) int {
		ra, ga, ba := a.LinearRgb()
		rb, gb, bb := b.LinearRgb()
		ya := 0.2126*ra + 0.7152*ga + 0.0722*ba
		yb := 0.2126*rb + 0.7152*gb + 0.0722*bb
		if ya < yb {
			return -1
		}
		if ya > yb {
			return 1
		}
		return 0
	})
}

// SavePaletteStrip writes the palette as a single row of square tiles.
func SavePaletteStrip(palette []colorful.Color, tile int, path string) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tile <= 0 {
		tile = 32
	}
	img := image.NewRGBA(image.Rect(0, 0, tile*len(palette), tile))
	for i, c := range palette {
		r, g, b := c.RGB255()
		for y := 0; y < tile; y++ {
			for x := i * tile; x < (i+1)*tile; x++ {
				img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}
	return SaveImage(img, path)
}
