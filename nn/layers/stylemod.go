package layers

import (
	"fmt"

	"ganblend/tensor"
)

// StyleMod modulates a [C, H, W] feature map with a per-channel affine
// transform derived from a latent vector w:
//
//	y[c] = x[c]*(1 + s[c]) + b[c],  [s | b] = Affine(w)
//
// The latent is injected with SetLatent before Forward so StyleMod still
// satisfies the single-input Module interface. Backward additionally
// accumulates the latent gradient, readable via LatentGrad.
type StyleMod struct {
	channels int
	Affine   *Linear // latentDim -> 2*channels

	w         *tensor.Tensor
	lastInput *tensor.Tensor
	lastScale []float64
	gradW     *tensor.Tensor
}

// NewStyleMod creates a modulation layer for the given channel count.
func NewStyleMod(latentDim, channels int) *StyleMod {
	return &StyleMod{
		channels: channels,
		Affine:   NewLinear(latentDim, 2*channels),
	}
}

// SetLatent installs the latent vector used by the next Forward call.
func (s *StyleMod) SetLatent(w *tensor.Tensor) {
	s.w = w
}

// LatentGrad returns dL/dw from the most recent Backward call.
func (s *StyleMod) LatentGrad() *tensor.Tensor {
	return s.gradW
}

func (s *StyleMod) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if s.w == nil {
		return nil, fmt.Errorf("stylemod: no latent set")
	}
	if len(x.Shape) != 3 || x.Shape[0] != s.channels {
		return nil, fmt.Errorf("stylemod: expected [%d, H, W] input, got %v", s.channels, x.Shape)
	}
	sb, err := s.Affine.Forward(s.w)
	if err != nil {
		return nil, err
	}

	C := s.channels
	H, W := x.Shape[1], x.Shape[2]
	s.lastInput = x
	s.lastScale = make([]float64, C)

	out := tensor.New(C, H, W)
	for c := 0; c < C; c++ {
		scale := 1 + sb.Data[c]
		bias := sb.Data[C+c]
		s.lastScale[c] = scale
		for i := 0; i < H*W; i++ {
			out.Data[c*H*W+i] = x.Data[c*H*W+i]*scale + bias
		}
	}
	return out, nil
}

func (s *StyleMod) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if s.lastInput == nil {
		return nil, fmt.Errorf("stylemod: no cached input for backward pass")
	}
	if !tensor.SameShape(gradOut, s.lastInput) {
		return nil, fmt.Errorf("stylemod: gradient shape %v does not match input %v", gradOut.Shape, s.lastInput.Shape)
	}

	C := s.channels
	H, W := s.lastInput.Shape[1], s.lastInput.Shape[2]

	gradIn := tensor.New(C, H, W)
	gradSB := tensor.New(2 * C)
	for c := 0; c < C; c++ {
		scale := s.lastScale[c]
		for i := 0; i < H*W; i++ {
			g := gradOut.Data[c*H*W+i]
			gradIn.Data[c*H*W+i] = g * scale
			gradSB.Data[c] += g * s.lastInput.Data[c*H*W+i]
			gradSB.Data[C+c] += g
		}
	}

	gw, err := s.Affine.Backward(gradSB)
	if err != nil {
		return nil, err
	}
	s.gradW = gw
	return gradIn, nil
}
