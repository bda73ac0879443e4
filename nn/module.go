package nn

import (
	"ganblend/tensor"
)

// Module defines a single layer/unit in a network.
type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	// Backward propagates gradients. It takes the gradient of the loss with
	// respect to the module's output and returns the gradient of the loss
	// with respect to the module's input. Layer parameters stay frozen: the
	// networks this package runs are pretrained, and only input gradients
	// are needed to drive latent optimization.
	Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error)
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := x
	for _, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
