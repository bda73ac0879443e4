package layers

import (
	"fmt"
	"math"

	"ganblend/tensor"
)

// ActFunc holds an elementwise activation and its derivative.
type ActFunc struct {
	Name  string
	Fn    func(float64) float64
	Deriv func(float64) float64
}

// SupportedActivations contains the activations the synthesis and mapping
// networks use.
var SupportedActivations = map[string]ActFunc{
	"LeakyReLU": {
		Name:  "LeakyReLU",
		Fn:    func(x float64) float64 { return leaky(x, 0.2) },
		Deriv: func(x float64) float64 { return leakyDeriv(x, 0.2) },
	},
	"ReLU": {
		Name:  "ReLU",
		Fn:    func(x float64) float64 { return leaky(x, 0) },
		Deriv: func(x float64) float64 { return leakyDeriv(x, 0) },
	},
	"Tanh": {
		Name:  "Tanh",
		Fn:    math.Tanh,
		Deriv: func(x float64) float64 { t := math.Tanh(x); return 1 - t*t },
	},
}

func leaky(x, alpha float64) float64 {
	if x > 0 {
		return x
	}
	return alpha * x
}

func leakyDeriv(x, alpha float64) float64 {
	if x > 0 {
		return 1
	}
	return alpha
}

// Activation is a layer that applies an elementwise function.
type Activation struct {
	fn ActFunc

	lastInput *tensor.Tensor
}

// NewActivation creates a new activation layer by name.
func NewActivation(name string) (*Activation, error) {
	fn, ok := SupportedActivations[name]
	if !ok {
		return nil, fmt.Errorf("unsupported activation: %s", name)
	}
	return &Activation{fn: fn}, nil
}

// MustActivation is NewActivation for compile-time-known names.
func MustActivation(name string) *Activation {
	a, err := NewActivation(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Forward applies the activation elementwise.
func (a *Activation) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	a.lastInput = x.Clone()
	out := tensor.New(x.Shape...)
	for i, v := range x.Data {
		out.Data[i] = a.fn.Fn(v)
	}
	return out, nil
}

// Backward multiplies the incoming gradient by the activation derivative at
// the cached input.
func (a *Activation) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if a.lastInput == nil {
		return nil, fmt.Errorf("activation: no cached input for backward pass")
	}
	if len(gradOut.Data) != len(a.lastInput.Data) {
		return nil, fmt.Errorf("activation: gradient shape %v does not match input %v", gradOut.Shape, a.lastInput.Shape)
	}
	gradIn := tensor.New(a.lastInput.Shape...)
	for i := range gradIn.Data {
		gradIn.Data[i] = gradOut.Data[i] * a.fn.Deriv(a.lastInput.Data[i])
	}
	return gradIn, nil
}
