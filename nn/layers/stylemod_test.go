package layers

import (
	"math/rand"
	"testing"

	"ganblend/tensor"

	"github.com/stretchr/testify/require"
)

func TestStyleMod_ForwardAffine(t *testing.T) {
	s := NewStyleMod(4, 2)
	// Identity affine weights: zero scale offset, known bias
	s.Affine.B.Data[0] = 0.5  // scale channel 0 => 1.5
	s.Affine.B.Data[2] = -2.0 // bias channel 0

	w := tensor.New(4)
	s.SetLatent(w)

	x := tensor.New(2, 2, 2)
	for i := range x.Data {
		x.Data[i] = float64(i)
	}
	out, err := s.Forward(x)
	require.NoError(t, err)

	// Channel 0: x*1.5 - 2, channel 1: unchanged
	for i := 0; i < 4; i++ {
		require.InDelta(t, x.Data[i]*1.5-2.0, out.Data[i], 1e-12)
		require.InDelta(t, x.Data[4+i], out.Data[4+i], 1e-12)
	}
}

func TestStyleMod_BackwardMatchesNumeric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewStyleMod(3, 2)
	for i := range s.Affine.W.Data {
		s.Affine.W.Data[i] = rng.NormFloat64() * 0.3
	}

	w := tensor.New(3)
	for i := range w.Data {
		w.Data[i] = rng.NormFloat64()
	}
	x := tensor.New(2, 3, 3)
	for i := range x.Data {
		x.Data[i] = rng.NormFloat64()
	}

	s.SetLatent(w)
	out, err := s.Forward(x)
	require.NoError(t, err)

	coeff := tensor.New(out.Shape...)
	for i := range coeff.Data {
		coeff.Data[i] = rng.NormFloat64()
	}

	gradIn, err := s.Backward(coeff)
	require.NoError(t, err)

	// Input gradient against finite differences
	forward := func(in *tensor.Tensor) (*tensor.Tensor, error) {
		s.SetLatent(w)
		return s.Forward(in)
	}
	wantX := numericInputGrad(t, forward, x, coeff)
	for i := range wantX.Data {
		require.InDelta(t, wantX.Data[i], gradIn.Data[i], 1e-6)
	}

	// Latent gradient against finite differences
	gradW := s.LatentGrad()
	require.NotNil(t, gradW)
	forwardW := func(latent *tensor.Tensor) (*tensor.Tensor, error) {
		s.SetLatent(latent)
		return s.Forward(x)
	}
	wantW := numericInputGrad(t, forwardW, w, coeff)
	for i := range wantW.Data {
		require.InDelta(t, wantW.Data[i], gradW.Data[i], 1e-6)
	}
}
