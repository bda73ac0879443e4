package layers

import (
	"fmt"

	"ganblend/tensor"

	"gonum.org/v1/gonum/mat"
)

// Linear is a fully-connected layer computing y = Wx + b.
type Linear struct {
	W *tensor.Tensor // [outDim, inDim]
	B *tensor.Tensor // [outDim]

	lastInput *tensor.Tensor
}

// NewLinear allocates a zero-initialized inDim→outDim layer.
func NewLinear(inDim, outDim int) *Linear {
	return &Linear{
		W: tensor.New(outDim, inDim),
		B: tensor.New(outDim),
	}
}

// InDim returns the input dimension.
func (l *Linear) InDim() int { return l.W.Shape[1] }

// OutDim returns the output dimension.
func (l *Linear) OutDim() int { return l.W.Shape[0] }

// Forward computes Wx + b for a 1-D input vector.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	inDim, outDim := l.W.Shape[1], l.W.Shape[0]
	if len(x.Shape) != 1 || x.Shape[0] != inDim {
		return nil, fmt.Errorf("linear: expected input shape [%d], got %v", inDim, x.Shape)
	}
	l.lastInput = x.Clone()

	w := mat.NewDense(outDim, inDim, l.W.Data)
	xv := mat.NewVecDense(inDim, x.Data)
	var y mat.VecDense
	y.MulVec(w, xv)

	out := tensor.New(outDim)
	for i := 0; i < outDim; i++ {
		out.Data[i] = y.AtVec(i) + l.B.Data[i]
	}
	return out, nil
}

// Backward returns dL/dx = Wᵗ · dL/dy.
func (l *Linear) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	inDim, outDim := l.W.Shape[1], l.W.Shape[0]
	if len(gradOut.Shape) != 1 || gradOut.Shape[0] != outDim {
		return nil, fmt.Errorf("linear: expected gradient shape [%d], got %v", outDim, gradOut.Shape)
	}
	if l.lastInput == nil {
		return nil, fmt.Errorf("linear: no cached input for backward pass")
	}

	w := mat.NewDense(outDim, inDim, l.W.Data)
	g := mat.NewVecDense(outDim, gradOut.Data)
	var gi mat.VecDense
	gi.MulVec(w.T(), g)

	gradIn := tensor.New(inDim)
	copy(gradIn.Data, gi.RawVector().Data)
	return gradIn, nil
}
