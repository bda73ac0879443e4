package layers

import (
	"fmt"
	"sync"

	"ganblend/tensor"
)

// Conv2D is a stride-1 2D convolutional layer with symmetric zero padding.
type Conv2D struct {
	inChan, outChan int
	kh, kw          int
	pad             int

	W *tensor.Tensor // [outChan, inChan, kh, kw]
	B *tensor.Tensor // [outChan]

	// Workers splits the forward/backward channel loops across goroutines.
	// Zero or one keeps everything on the calling goroutine.
	Workers int

	lastInput *tensor.Tensor
}

// NewConv2D creates a new Conv2D layer.
func NewConv2D(inChan, outChan, kh, kw, pad int) *Conv2D {
	return &Conv2D{
		inChan:  inChan,
		outChan: outChan,
		kh:      kh,
		kw:      kw,
		pad:     pad,
		W:       tensor.New(outChan, inChan, kh, kw),
		B:       tensor.New(outChan),
	}
}

// OutputShape returns the spatial output size for a given input size.
func (c *Conv2D) OutputShape(inH, inW int) (outH, outW int) {
	return inH + 2*c.pad - c.kh + 1, inW + 2*c.pad - c.kw + 1
}

// Forward performs the convolution on a [inChan, H, W] input.
func (c *Conv2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 3 || input.Shape[0] != c.inChan {
		return nil, fmt.Errorf("conv2d: expected input shape [%d, H, W], got %v", c.inChan, input.Shape)
	}
	height, width := input.Shape[1], input.Shape[2]
	outHeight, outWidth := c.OutputShape(height, width)
	if outHeight <= 0 || outWidth <= 0 {
		return nil, fmt.Errorf("conv2d: input %dx%d too small for %dx%d kernel", height, width, c.kh, c.kw)
	}

	output := tensor.New(c.outChan, outHeight, outWidth)

	// Cache input for backward pass
	c.lastInput = input

	c.parallelChans(c.outChan, func(oc int) {
		for y := 0; y < outHeight; y++ {
			for x := 0; x < outWidth; x++ {
				sum := c.B.Data[oc] // Start with bias

				// Convolve with kernel
				for ic := 0; ic < c.inChan; ic++ {
					for dy := 0; dy < c.kh; dy++ {
						iy := y + dy - c.pad
						if iy < 0 || iy >= height {
							continue
						}
						for dx := 0; dx < c.kw; dx++ {
							ix := x + dx - c.pad
							if ix < 0 || ix >= width {
								continue
							}
							wIdx := ((oc*c.inChan+ic)*c.kh+dy)*c.kw + dx
							inIdx := (ic*height+iy)*width + ix
							sum += input.Data[inIdx] * c.W.Data[wIdx]
						}
					}
				}
				output.Data[(oc*outHeight+y)*outWidth+x] = sum
			}
		}
	})

	return output, nil
}

// Backward computes the input gradient (transposed convolution of gradOut
// with the kernel). Weights are frozen, so no parameter gradients are kept.
func (c *Conv2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if c.lastInput == nil {
		return nil, fmt.Errorf("conv2d: no cached input for backward pass")
	}
	if len(gradOut.Shape) != 3 || gradOut.Shape[0] != c.outChan {
		return nil, fmt.Errorf("conv2d: expected gradient shape [%d, H, W], got %v", c.outChan, gradOut.Shape)
	}
	inHeight, inWidth := c.lastInput.Shape[1], c.lastInput.Shape[2]
	outHeight, outWidth := gradOut.Shape[1], gradOut.Shape[2]

	inputGrad := tensor.New(c.inChan, inHeight, inWidth)

	c.parallelChans(c.inChan, func(ic int) {
		for y := 0; y < inHeight; y++ {
			for x := 0; x < inWidth; x++ {
				sum := 0.0
				for oc := 0; oc < c.outChan; oc++ {
					for dy := 0; dy < c.kh; dy++ {
						oy := y - dy + c.pad
						if oy < 0 || oy >= outHeight {
							continue
						}
						for dx := 0; dx < c.kw; dx++ {
							ox := x - dx + c.pad
							if ox < 0 || ox >= outWidth {
								continue
							}
							wIdx := ((oc*c.inChan+ic)*c.kh+dy)*c.kw + dx
							gradIdx := (oc*outHeight+oy)*outWidth + ox
							sum += c.W.Data[wIdx] * gradOut.Data[gradIdx]
						}
					}
				}
				inputGrad.Data[(ic*inHeight+y)*inWidth+x] = sum
			}
		}
	})

	return inputGrad, nil
}

// parallelChans runs fn for every channel index, fanning out across Workers
// goroutines when configured.
func (c *Conv2D) parallelChans(n int, fn func(ch int)) {
	if c.Workers <= 1 || n <= 1 {
		for ch := 0; ch < n; ch++ {
			fn(ch)
		}
		return
	}
	var wg sync.WaitGroup
	work := make(chan int)
	workers := c.Workers
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ch := range work {
				fn(ch)
			}
		}()
	}
	for ch := 0; ch < n; ch++ {
		work <- ch
	}
	close(work)
	wg.Wait()
}
