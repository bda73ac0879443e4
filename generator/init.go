package generator

import (
	"math"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// NewRandom builds a generator with Xavier-uniform weights. Real runs load
// pretrained checkpoints; random networks back tests, demos and cmd/mknet.
func NewRandom(cfg Config, seed uint64) (*Generator, error) {
	g, err := New(cfg)
	if err != nil {
		return nil, err
	}
	src := rand.NewSource(seed)
	for _, p := range g.NamedParams() {
		if strings.HasSuffix(p.Name, ".bias") {
			continue
		}
		// Fan-in = elements feeding one output unit
		fanIn := 1
		for _, d := range p.Tensor.Shape[1:] {
			fanIn *= d
		}
		fillUniform(p.Tensor.Data, float64(fanIn), src)
	}
	return g, nil
}

func fillUniform(data []float64, fanIn float64, src rand.Source) {
	dist := distuv.Uniform{
		Min: -1 / math.Sqrt(fanIn),
		Max: 1 / math.Sqrt(fanIn),
		Src: src,
	}
	for i := range data {
		data[i] = dist.Rand()
	}
}
