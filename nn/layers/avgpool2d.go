package layers

import (
	"fmt"

	"ganblend/tensor"
)

// AvgPool2D averages non-overlapping p×p blocks of a [C, H, W] tensor.
type AvgPool2D struct {
	poolSize int

	lastShape []int
}

func NewAvgPool2D(p int) *AvgPool2D {
	return &AvgPool2D{poolSize: p}
}

func (a *AvgPool2D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 3 {
		return nil, fmt.Errorf("avgpool2d: expected [C, H, W] input, got %v", x.Shape)
	}
	C, H, W := x.Shape[0], x.Shape[1], x.Shape[2]
	p := a.poolSize
	if H%p != 0 || W%p != 0 {
		return nil, fmt.Errorf("avgpool2d: input %dx%d not divisible by pool size %d", H, W, p)
	}
	a.lastShape = []int{C, H, W}
	outH, outW := H/p, W/p

	out := tensor.New(C, outH, outW)
	for c := 0; c < C; c++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				sum := 0.0
				for ph := 0; ph < p; ph++ {
					for pw := 0; pw < p; pw++ {
						sum += x.Data[(c*H+(oh*p+ph))*W+(ow*p+pw)]
					}
				}
				out.Data[(c*outH+oh)*outW+ow] = sum / float64(p*p)
			}
		}
	}
	return out, nil
}

// Backward spreads each output gradient uniformly over its pool window.
func (a *AvgPool2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if a.lastShape == nil {
		return nil, fmt.Errorf("avgpool2d: no cached input for backward pass")
	}
	C, H, W := a.lastShape[0], a.lastShape[1], a.lastShape[2]
	p := a.poolSize
	outH, outW := H/p, W/p
	if len(gradOut.Shape) != 3 || gradOut.Shape[0] != C || gradOut.Shape[1] != outH || gradOut.Shape[2] != outW {
		return nil, fmt.Errorf("avgpool2d: expected gradient shape [%d, %d, %d], got %v", C, outH, outW, gradOut.Shape)
	}

	gradIn := tensor.New(C, H, W)
	inv := 1.0 / float64(p*p)
	for c := 0; c < C; c++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				g := gradOut.Data[(c*outH+oh)*outW+ow] * inv
				for ph := 0; ph < p; ph++ {
					for pw := 0; pw < p; pw++ {
						gradIn.Data[(c*H+(oh*p+ph))*W+(ow*p+pw)] += g
					}
				}
			}
		}
	}
	return gradIn, nil
}
