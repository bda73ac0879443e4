// Package blend splices two compatible generators into a third one at a
// chosen synthesis-layer boundary: low-resolution structure from the first
// network, high-resolution texture from the second.
package blend

import (
	"fmt"
	"math"

	"ganblend/generator"
)

// Spec selects the blend boundary. Resolution names a synthesis block by its
// output resolution ("b32" is Resolution 32); Level shifts the boundary by
// whole blocks from there. Width 0 is a hard cut: every parameter below the
// boundary comes from the first network, everything at or above it from the
// second. A positive Width interpolates parameters with a logistic weight by
// block distance from the boundary, measured in blocks.
type Spec struct {
	Resolution int
	Level      int
	Width      float64
}

func (s Spec) validate() error {
	if s.Resolution < 4 || s.Resolution&(s.Resolution-1) != 0 {
		return fmt.Errorf("blend resolution must be a power of two >= 4, got %d", s.Resolution)
	}
	if s.Width < 0 {
		return fmt.Errorf("blend width must be non-negative, got %g", s.Width)
	}
	return nil
}

// blockIndex resolves the spec to an index on the synthesis axis
// (0 = "b4" block, NumWs = ToRGB).
func (s Spec) blockIndex(g *generator.Generator) (int, error) {
	idx := -1
	for i, blk := range g.Blocks() {
		if blk.Res == s.Resolution {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("no synthesis block b%d in a %dx%d generator", s.Resolution, g.Resolution(), g.Resolution())
	}
	idx += s.Level
	if idx < 0 || idx > g.NumWs() {
		return 0, fmt.Errorf("blend level %d puts the boundary outside the network", s.Level)
	}
	return idx, nil
}

// Blended builds a new generator from two architecturally identical ones.
// The mapping network is always taken from g1, and the result's declared
// resolution is g1's. Both inputs are left untouched.
func Blended(g1, g2 *generator.Generator, spec Spec) (*generator.Generator, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	c1, c2 := g1.Config(), g2.Config()
	if c1.Resolution != c2.Resolution || c1.LatentDim != c2.LatentDim ||
		c1.ChannelBase != c2.ChannelBase || c1.MaxWidth != c2.MaxWidth ||
		c1.MappingDepth != c2.MappingDepth {
		return nil, fmt.Errorf("generators are not architecturally compatible: %+v vs %+v",
			archOf(c1), archOf(c2))
	}

	boundary, err := spec.blockIndex(g1)
	if err != nil {
		return nil, err
	}

	out := g1.Clone()
	dst := out.NamedParams()
	src := g2.NamedParams()
	for i, p := range dst {
		if p.Pos < 0 {
			continue // mapping network stays g1's
		}
		t := blendWeight(p.Pos, boundary, spec.Width)
		if t == 0 {
			continue
		}
		for j := range p.Tensor.Data {
			p.Tensor.Data[j] = (1-t)*p.Tensor.Data[j] + t*src[i].Tensor.Data[j]
		}
	}
	return out, nil
}

// blendWeight is the second network's share for a parameter at block position
// pos: a unit step at the boundary when width is zero, otherwise a logistic
// ramp centered on it.
func blendWeight(pos, boundary int, width float64) float64 {
	x := float64(pos - boundary)
	if width == 0 {
		if x < 0 {
			return 0
		}
		return 1
	}
	return 1 / (1 + math.Exp(-x/width))
}

// archOf strips runtime settings from a config for error messages.
func archOf(c generator.Config) generator.Config {
	c.Workers = 0
	return c
}
