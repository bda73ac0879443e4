// Package projector inverts a generator: given a target photo it searches
// latent space with Adam for the code whose rendering best matches the
// target, and records the whole optimization trajectory.
package projector

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"ganblend/generator"
	"ganblend/nn"
	"ganblend/nn/layers"
	"ganblend/tensor"
	"ganblend/utils"
)

// Options control the latent search schedule.
type Options struct {
	NumSteps            int
	InitialLearningRate float64
	InitialNoiseFactor  float64 // exploration noise scale, fraction of the latent spread
	LRRampupLength      float64 // fraction of steps spent ramping the rate up
	LRRampdownLength    float64 // fraction of steps spent cosine-decaying it
	NoiseRampLength     float64 // fraction of steps over which noise decays to zero
	WAvgSamples         int     // mapped z samples for the latent center estimate
	Seed                uint64
	Verbose             bool
}

// DefaultOptions match the schedule the pipeline runs with.
func DefaultOptions() Options {
	return Options{
		NumSteps:            500,
		InitialLearningRate: 0.1,
		InitialNoiseFactor:  0.05,
		LRRampupLength:      0.05,
		LRRampdownLength:    0.25,
		NoiseRampLength:     0.75,
		WAvgSamples:         1024,
	}
}

func (o Options) validate() error {
	if o.NumSteps <= 0 {
		return fmt.Errorf("step count must be positive, got %d", o.NumSteps)
	}
	if o.InitialLearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", o.InitialLearningRate)
	}
	if o.WAvgSamples <= 0 {
		return fmt.Errorf("latent sample count must be positive, got %d", o.WAvgSamples)
	}
	return nil
}

// adam is a minimal Adam optimizer over a single flat parameter vector.
type adam struct {
	m, v []float64
	t    int
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

func newAdam(n int) *adam {
	return &adam{m: make([]float64, n), v: make([]float64, n)}
}

func (a *adam) step(param, grad []float64, lr float64) {
	a.t++
	c1 := 1 - math.Pow(adamBeta1, float64(a.t))
	c2 := 1 - math.Pow(adamBeta2, float64(a.t))
	for i := range param {
		a.m[i] = adamBeta1*a.m[i] + (1-adamBeta1)*grad[i]
		a.v[i] = adamBeta2*a.v[i] + (1-adamBeta2)*grad[i]*grad[i]
		mHat := a.m[i] / c1
		vHat := a.v[i] / c2
		param[i] -= lr * mHat / (math.Sqrt(vHat) + adamEps)
	}
}

// Project optimizes a single latent w so that g renders the target, a
// [3, R, R] tensor of 0..255 pixel values. It returns one [NumWs, LatentDim]
// latent matrix per step; the last element is the converged code.
func Project(g *generator.Generator, target *tensor.Tensor, opts Options) ([]*tensor.Tensor, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("projection options: %w", err)
	}
	r := g.Resolution()
	if len(target.Shape) != 3 || target.Shape[0] != 3 || target.Shape[1] != r || target.Shape[2] != r {
		return nil, fmt.Errorf("expected a [3, %d, %d] target, got %v", r, r, target.Shape)
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(opts.Seed)}

	wAvg, wStd, err := latentStats(g, normal, opts.WAvgSamples)
	if err != nil {
		return nil, err
	}

	// Scale the target into the generator's [-1, 1] output range and build
	// its pooled pyramid once.
	scaled := target.Clone()
	for i := range scaled.Data {
		scaled.Data[i] = scaled.Data[i]/127.5 - 1
	}
	pyramid, pools, err := targetPyramid(scaled, r)
	if err != nil {
		return nil, err
	}

	dim := g.LatentDim()
	w := wAvg.Clone()
	opt := newAdam(dim)
	noisy := tensor.New(dim)
	trajectory := make([]*tensor.Tensor, 0, opts.NumSteps)

	for step := 0; step < opts.NumSteps; step++ {
		frac := float64(step) / float64(opts.NumSteps)

		noiseScale := 0.0
		if opts.NoiseRampLength > 0 {
			ramp := 1 - frac/opts.NoiseRampLength
			if ramp < 0 {
				ramp = 0
			}
			noiseScale = wStd * opts.InitialNoiseFactor * ramp * ramp
		}
		lr := opts.InitialLearningRate * lrRamp(frac, opts.LRRampupLength, opts.LRRampdownLength)

		copy(noisy.Data, w.Data)
		if noiseScale > 0 {
			for i := range noisy.Data {
				noisy.Data[i] += normal.Rand() * noiseScale
			}
		}

		wPlus := broadcast(noisy, g.NumWs())
		img, err := g.Synthesis(wPlus)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}

		loss, gradImg, err := pyramidLoss(img, pyramid, pools)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		gradWPlus, err := g.SynthesisBackward(gradImg)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}

		// The same w feeds every block, so per-block gradients sum.
		grad := make([]float64, dim)
		for b := 0; b < g.NumWs(); b++ {
			for i := 0; i < dim; i++ {
				grad[i] += gradWPlus.Data[b*dim+i]
			}
		}
		opt.step(w.Data, grad, lr)

		trajectory = append(trajectory, broadcast(w, g.NumWs()))

		if opts.Verbose && (step%10 == 0 || step == opts.NumSteps-1) {
			fmt.Fprintf(utils.Output, "step %d/%d: loss %.6f, lr %.4f\n", step+1, opts.NumSteps, loss, lr)
		}
	}
	return trajectory, nil
}

// latentStats maps n random z vectors and returns their mean latent along
// with a scalar spread estimate.
func latentStats(g *generator.Generator, normal distuv.Normal, n int) (*tensor.Tensor, float64, error) {
	dim := g.LatentDim()
	avg := tensor.New(dim)
	samples := make([]*tensor.Tensor, n)
	z := tensor.New(dim)
	for s := 0; s < n; s++ {
		for i := range z.Data {
			z.Data[i] = normal.Rand()
		}
		w, err := g.Mapping(z)
		if err != nil {
			return nil, 0, fmt.Errorf("latent statistics: %w", err)
		}
		samples[s] = w
		if err := avg.AddScaled(1/float64(n), w); err != nil {
			return nil, 0, err
		}
	}

	variance := 0.0
	for _, w := range samples {
		for i := range w.Data {
			d := w.Data[i] - avg.Data[i]
			variance += d * d
		}
	}
	return avg, math.Sqrt(variance / float64(n)), nil
}

// targetPyramid pools the scaled target to half and quarter resolution. The
// returned pool layers are reused each step for the rendered image.
func targetPyramid(scaled *tensor.Tensor, r int) ([]*tensor.Tensor, []*layers.AvgPool2D, error) {
	pyramid := []*tensor.Tensor{scaled}
	var pools []*layers.AvgPool2D
	for _, p := range []int{2, 4} {
		if r%p != 0 {
			continue
		}
		pool := layers.NewAvgPool2D(p)
		down, err := pool.Forward(scaled)
		if err != nil {
			return nil, nil, err
		}
		pyramid = append(pyramid, down)
		pools = append(pools, pool)
	}
	return pyramid, pools, nil
}

// pyramidLoss sums the image MSE against the target at full, half and quarter
// resolution and returns the combined gradient at full resolution.
func pyramidLoss(img *tensor.Tensor, pyramid []*tensor.Tensor, pools []*layers.AvgPool2D) (float64, *tensor.Tensor, error) {
	total, gradImg, err := nn.MSE(img, pyramid[0])
	if err != nil {
		return 0, nil, err
	}
	for i, pool := range pools {
		down, err := pool.Forward(img)
		if err != nil {
			return 0, nil, err
		}
		loss, grad, err := nn.MSE(down, pyramid[i+1])
		if err != nil {
			return 0, nil, err
		}
		up, err := pool.Backward(grad)
		if err != nil {
			return 0, nil, err
		}
		if err := gradImg.AddScaled(1, up); err != nil {
			return 0, nil, err
		}
		total += loss
	}
	return total, gradImg, nil
}

// lrRamp follows the projection schedule: linear ramp-up over the first
// rampup fraction of steps and cosine decay over the last rampdown fraction.
func lrRamp(frac, rampup, rampdown float64) float64 {
	ramp := 1.0
	if rampdown > 0 {
		r := (1 - frac) / rampdown
		if r < 1 {
			ramp = 0.5 - 0.5*math.Cos(r*math.Pi)
		}
	}
	if rampup > 0 {
		r := frac / rampup
		if r < 1 {
			ramp *= r
		}
	}
	return ramp
}

func broadcast(w *tensor.Tensor, rows int) *tensor.Tensor {
	out := tensor.New(rows, w.Shape[0])
	for i := 0; i < rows; i++ {
		copy(out.Data[i*w.Shape[0]:(i+1)*w.Shape[0]], w.Data)
	}
	return out
}
