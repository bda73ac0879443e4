package layers

import (
	"math/rand"
	"testing"

	"ganblend/tensor"

	"github.com/stretchr/testify/require"
)

func TestUpsample2D_Forward(t *testing.T) {
	u := NewUpsample2D(2)
	x := &tensor.Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{1, 2, 2}}
	out, err := u.Forward(x)
	require.NoError(t, err)
	require.Equal(t, []int{1, 4, 4}, out.Shape)
	want := []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	require.Equal(t, want, out.Data)
}

func TestUpsample2D_BackwardMatchesNumeric(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	u := NewUpsample2D(2)
	x := tensor.New(2, 3, 3)
	for i := range x.Data {
		x.Data[i] = rng.NormFloat64()
	}
	out, err := u.Forward(x)
	require.NoError(t, err)

	coeff := tensor.New(out.Shape...)
	for i := range coeff.Data {
		coeff.Data[i] = rng.NormFloat64()
	}
	gradIn, err := u.Backward(coeff)
	require.NoError(t, err)

	want := numericInputGrad(t, u.Forward, x, coeff)
	for i := range want.Data {
		require.InDelta(t, want.Data[i], gradIn.Data[i], 1e-6)
	}
}

func TestAvgPool2D_ForwardReference(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	C, H, W, p := 2, 4, 4, 2
	x := tensor.New(C, H, W)
	for i := range x.Data {
		x.Data[i] = rng.Float64()
	}
	layer := NewAvgPool2D(p)
	out, err := layer.Forward(x)
	require.NoError(t, err)

	// Reference: compute manually
	for c := 0; c < C; c++ {
		for oh := 0; oh < H/p; oh++ {
			for ow := 0; ow < W/p; ow++ {
				sum := 0.0
				for ph := 0; ph < p; ph++ {
					for pw := 0; pw < p; pw++ {
						sum += x.Data[(c*H+(oh*p+ph))*W+(ow*p+pw)]
					}
				}
				require.InDelta(t, sum/float64(p*p), out.Data[(c*(H/p)+oh)*(W/p)+ow], 1e-10)
			}
		}
	}
}

func TestAvgPool2D_BackwardMatchesNumeric(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	layer := NewAvgPool2D(2)
	x := tensor.New(1, 4, 4)
	for i := range x.Data {
		x.Data[i] = rng.NormFloat64()
	}
	out, err := layer.Forward(x)
	require.NoError(t, err)

	coeff := tensor.New(out.Shape...)
	for i := range coeff.Data {
		coeff.Data[i] = rng.NormFloat64()
	}
	gradIn, err := layer.Backward(coeff)
	require.NoError(t, err)

	want := numericInputGrad(t, layer.Forward, x, coeff)
	for i := range want.Data {
		require.InDelta(t, want.Data[i], gradIn.Data[i], 1e-6)
	}
}

func TestAvgPool2D_RejectsIndivisible(t *testing.T) {
	layer := NewAvgPool2D(2)
	_, err := layer.Forward(tensor.New(1, 5, 4))
	require.Error(t, err)
}
