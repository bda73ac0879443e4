package layers

import (
	"fmt"

	"ganblend/tensor"
)

// Upsample2D doubles the spatial resolution of a [C, H, W] tensor by
// nearest-neighbor replication.
type Upsample2D struct {
	factor int

	lastShape []int
}

// NewUpsample2D creates an upsampler with the given integer factor.
func NewUpsample2D(factor int) *Upsample2D {
	return &Upsample2D{factor: factor}
}

// Forward replicates each input pixel into a factor×factor block.
func (u *Upsample2D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 3 {
		return nil, fmt.Errorf("upsample2d: expected [C, H, W] input, got %v", x.Shape)
	}
	C, H, W := x.Shape[0], x.Shape[1], x.Shape[2]
	f := u.factor
	u.lastShape = []int{C, H, W}

	out := tensor.New(C, H*f, W*f)
	for c := 0; c < C; c++ {
		for y := 0; y < H*f; y++ {
			for xx := 0; xx < W*f; xx++ {
				out.Data[(c*H*f+y)*W*f+xx] = x.Data[(c*H+y/f)*W+xx/f]
			}
		}
	}
	return out, nil
}

// Backward sums each factor×factor block of the output gradient back into
// its source pixel.
func (u *Upsample2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if u.lastShape == nil {
		return nil, fmt.Errorf("upsample2d: no cached input for backward pass")
	}
	C, H, W := u.lastShape[0], u.lastShape[1], u.lastShape[2]
	f := u.factor
	if len(gradOut.Shape) != 3 || gradOut.Shape[0] != C || gradOut.Shape[1] != H*f || gradOut.Shape[2] != W*f {
		return nil, fmt.Errorf("upsample2d: expected gradient shape [%d, %d, %d], got %v", C, H*f, W*f, gradOut.Shape)
	}

	gradIn := tensor.New(C, H, W)
	for c := 0; c < C; c++ {
		for y := 0; y < H*f; y++ {
			for xx := 0; xx < W*f; xx++ {
				gradIn.Data[(c*H+y/f)*W+xx/f] += gradOut.Data[(c*H*f+y)*W*f+xx]
			}
		}
	}
	return gradIn, nil
}
