package nn

import (
	"fmt"

	"ganblend/tensor"
)

// MSE returns the mean squared error between pred and target along with the
// gradient of the loss with respect to pred.
func MSE(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	if !tensor.SameShape(pred, target) {
		return 0, nil, fmt.Errorf("shape mismatch: %v vs %v", pred.Shape, target.Shape)
	}
	n := float64(len(pred.Data))
	loss := 0.0
	grad := tensor.New(pred.Shape...)
	for i := range pred.Data {
		d := pred.Data[i] - target.Data[i]
		loss += d * d
		// d(mean(d^2))/dpred = 2d/n
		grad.Data[i] = 2 * d / n
	}
	return loss / n, grad, nil
}
