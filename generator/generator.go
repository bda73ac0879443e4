package generator

import (
	"fmt"
	"math"

	"ganblend/nn/layers"
	"ganblend/tensor"
	"ganblend/utils"
)

// Config describes a generator architecture. The serialized fields mirror
// utils.ArchSpec; Workers is a runtime execution setting and is never stored
// in checkpoints.
type Config struct {
	Resolution   int // final output resolution, power of two >= 8
	LatentDim    int // z and w dimensionality
	ChannelBase  int // channels per block = clamp(ChannelBase/res, 8, MaxWidth)
	MaxWidth     int // channel cap
	MappingDepth int // number of mapping layers

	Workers int // goroutines for convolution loops, 0/1 = serial
}

// DefaultConfig mirrors the widths of the pretrained networks this tool was
// built around.
func DefaultConfig() Config {
	return Config{
		Resolution:   256,
		LatentDim:    512,
		ChannelBase:  4096,
		MaxWidth:     512,
		MappingDepth: 2,
	}
}

func (c Config) validate() error {
	if c.Resolution < 8 || c.Resolution&(c.Resolution-1) != 0 {
		return fmt.Errorf("resolution must be a power of two >= 8, got %d", c.Resolution)
	}
	if c.LatentDim <= 0 {
		return fmt.Errorf("latent dim must be positive, got %d", c.LatentDim)
	}
	if c.ChannelBase <= 0 || c.MaxWidth <= 0 {
		return fmt.Errorf("channel base and max width must be positive")
	}
	if c.MappingDepth <= 0 {
		return fmt.Errorf("mapping depth must be positive, got %d", c.MappingDepth)
	}
	return nil
}

// NumChannels returns the feature-map width used at a given resolution.
func (c Config) NumChannels(res int) int {
	ch := c.ChannelBase / res
	if ch > c.MaxWidth {
		ch = c.MaxWidth
	}
	if ch < 8 {
		ch = 8
	}
	return ch
}

// SynthesisBlock is one resolution stage of the synthesis network. The first
// block (b4) operates on the learned constant; every later block doubles the
// resolution first.
type SynthesisBlock struct {
	Tag string // "b4", "b8", ...
	Res int

	Up    *layers.Upsample2D // nil for the first block
	Conv  *layers.Conv2D     // 3x3, pad 1
	Style *layers.StyleMod
	Act   *layers.Activation
}

// Generator maps latent vectors to images: a mapping network z→w plus a
// chain of style-modulated synthesis blocks ending in a 1x1 ToRGB.
type Generator struct {
	cfg Config

	mapping []*layers.Linear
	mapActs []*layers.Activation

	Const  *tensor.Tensor // [ch(4), 4, 4]
	blocks []*SynthesisBlock
	toRGB  *layers.Conv2D // 1x1, ch(R) -> 3
}

// New builds a zero-initialized generator for the given architecture.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("generator config: %w", err)
	}

	g := &Generator{cfg: cfg}

	for i := 0; i < cfg.MappingDepth; i++ {
		g.mapping = append(g.mapping, layers.NewLinear(cfg.LatentDim, cfg.LatentDim))
		g.mapActs = append(g.mapActs, layers.MustActivation("LeakyReLU"))
	}

	g.Const = tensor.New(cfg.NumChannels(4), 4, 4)

	prevCh := cfg.NumChannels(4)
	for res := 4; res <= cfg.Resolution; res *= 2 {
		ch := cfg.NumChannels(res)
		blk := &SynthesisBlock{
			Tag:   fmt.Sprintf("b%d", res),
			Res:   res,
			Conv:  layers.NewConv2D(prevCh, ch, 3, 3, 1),
			Style: layers.NewStyleMod(cfg.LatentDim, ch),
			Act:   layers.MustActivation("LeakyReLU"),
		}
		if res > 4 {
			blk.Up = layers.NewUpsample2D(2)
		}
		blk.Conv.Workers = cfg.Workers
		g.blocks = append(g.blocks, blk)
		prevCh = ch
	}

	g.toRGB = layers.NewConv2D(prevCh, 3, 1, 1, 0)
	g.toRGB.Workers = cfg.Workers

	return g, nil
}

// Config returns the architecture settings.
func (g *Generator) Config() Config { return g.cfg }

// Resolution returns the declared square output resolution.
func (g *Generator) Resolution() int { return g.cfg.Resolution }

// LatentDim returns the latent dimensionality.
func (g *Generator) LatentDim() int { return g.cfg.LatentDim }

// NumWs returns the number of per-block latent vectors Synthesis consumes.
func (g *Generator) NumWs() int { return len(g.blocks) }

// Blocks exposes the synthesis blocks in resolution order.
func (g *Generator) Blocks() []*SynthesisBlock { return g.blocks }

// Mapping transforms a latent z into the intermediate latent w.
func (g *Generator) Mapping(z *tensor.Tensor) (*tensor.Tensor, error) {
	if len(z.Shape) != 1 || z.Shape[0] != g.cfg.LatentDim {
		return nil, fmt.Errorf("mapping: expected input shape [%d], got %v", g.cfg.LatentDim, z.Shape)
	}

	// Normalize z to the unit hypersphere scale before the first layer.
	sq := 0.0
	for _, v := range z.Data {
		sq += v * v
	}
	norm := math.Sqrt(sq/float64(len(z.Data)) + 1e-8)
	w := z.Clone().Scale(1 / norm)

	var err error
	for i, fc := range g.mapping {
		if w, err = fc.Forward(w); err != nil {
			return nil, err
		}
		if w, err = g.mapActs[i].Forward(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Synthesis renders a [3, R, R] image tensor, roughly in [-1, 1], from a
// [NumWs, LatentDim] latent matrix (one w per block).
func (g *Generator) Synthesis(wPlus *tensor.Tensor) (*tensor.Tensor, error) {
	if len(wPlus.Shape) != 2 || wPlus.Shape[0] != len(g.blocks) || wPlus.Shape[1] != g.cfg.LatentDim {
		return nil, fmt.Errorf("synthesis: expected latent shape [%d, %d], got %v", len(g.blocks), g.cfg.LatentDim, wPlus.Shape)
	}

	x := g.Const
	var err error
	for i, blk := range g.blocks {
		if blk.Up != nil {
			if x, err = blk.Up.Forward(x); err != nil {
				return nil, fmt.Errorf("%s: %w", blk.Tag, err)
			}
		}
		if x, err = blk.Conv.Forward(x); err != nil {
			return nil, fmt.Errorf("%s: %w", blk.Tag, err)
		}
		blk.Style.SetLatent(g.latentRow(wPlus, i))
		if x, err = blk.Style.Forward(x); err != nil {
			return nil, fmt.Errorf("%s: %w", blk.Tag, err)
		}
		if x, err = blk.Act.Forward(x); err != nil {
			return nil, fmt.Errorf("%s: %w", blk.Tag, err)
		}
	}

	img, err := g.toRGB.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("torgb: %w", err)
	}
	return img, nil
}

// SynthesisBackward propagates an image gradient back through the synthesis
// network and returns dL/dwPlus of shape [NumWs, LatentDim]. It must follow
// a Synthesis call with the same latents.
func (g *Generator) SynthesisBackward(gradImg *tensor.Tensor) (*tensor.Tensor, error) {
	grad, err := g.toRGB.Backward(gradImg)
	if err != nil {
		return nil, fmt.Errorf("torgb: %w", err)
	}

	gradW := tensor.New(len(g.blocks), g.cfg.LatentDim)
	for i := len(g.blocks) - 1; i >= 0; i-- {
		blk := g.blocks[i]
		if grad, err = blk.Act.Backward(grad); err != nil {
			return nil, fmt.Errorf("%s: %w", blk.Tag, err)
		}
		if grad, err = blk.Style.Backward(grad); err != nil {
			return nil, fmt.Errorf("%s: %w", blk.Tag, err)
		}
		lg := blk.Style.LatentGrad()
		copy(gradW.Data[i*g.cfg.LatentDim:(i+1)*g.cfg.LatentDim], lg.Data)
		if grad, err = blk.Conv.Backward(grad); err != nil {
			return nil, fmt.Errorf("%s: %w", blk.Tag, err)
		}
		if blk.Up != nil {
			if grad, err = blk.Up.Backward(grad); err != nil {
				return nil, fmt.Errorf("%s: %w", blk.Tag, err)
			}
		}
	}
	return gradW, nil
}

// latentRow views row i of a [L, LatentDim] matrix without copying.
func (g *Generator) latentRow(wPlus *tensor.Tensor, i int) *tensor.Tensor {
	d := g.cfg.LatentDim
	return &tensor.Tensor{Data: wPlus.Data[i*d : (i+1)*d], Shape: []int{d}}
}

// NamedParam is one addressable weight tensor. Pos orders parameters along
// the synthesis axis for layer blending: -1 for the mapping network, block
// index for synthesis parameters, NumWs for ToRGB.
type NamedParam struct {
	Name   string
	Pos    int
	Tensor *tensor.Tensor
}

// NamedParams enumerates every parameter in a stable order.
func (g *Generator) NamedParams() []NamedParam {
	var params []NamedParam
	for i, fc := range g.mapping {
		params = append(params,
			NamedParam{Name: fmt.Sprintf("mapping.fc%d.weight", i), Pos: -1, Tensor: fc.W},
			NamedParam{Name: fmt.Sprintf("mapping.fc%d.bias", i), Pos: -1, Tensor: fc.B},
		)
	}
	params = append(params, NamedParam{Name: "const", Pos: 0, Tensor: g.Const})
	for i, blk := range g.blocks {
		params = append(params,
			NamedParam{Name: blk.Tag + ".conv.weight", Pos: i, Tensor: blk.Conv.W},
			NamedParam{Name: blk.Tag + ".conv.bias", Pos: i, Tensor: blk.Conv.B},
			NamedParam{Name: blk.Tag + ".style.weight", Pos: i, Tensor: blk.Style.Affine.W},
			NamedParam{Name: blk.Tag + ".style.bias", Pos: i, Tensor: blk.Style.Affine.B},
		)
	}
	params = append(params,
		NamedParam{Name: "torgb.weight", Pos: len(g.blocks), Tensor: g.toRGB.W},
		NamedParam{Name: "torgb.bias", Pos: len(g.blocks), Tensor: g.toRGB.B},
	)
	return params
}

// Clone returns a deep copy sharing no parameter storage.
func (g *Generator) Clone() *Generator {
	out, err := New(g.cfg)
	if err != nil {
		// cfg was already validated when g was built
		panic(err)
	}
	src := g.NamedParams()
	dst := out.NamedParams()
	for i := range src {
		copy(dst[i].Tensor.Data, src[i].Tensor.Data)
	}
	return out
}

// ToCheckpoint serializes the generator's architecture and parameters.
func (g *Generator) ToCheckpoint() *utils.Checkpoint {
	ck := &utils.Checkpoint{
		Version: utils.CheckpointVersion,
		Arch: utils.ArchSpec{
			Resolution:   g.cfg.Resolution,
			LatentDim:    g.cfg.LatentDim,
			ChannelBase:  g.cfg.ChannelBase,
			MaxWidth:     g.cfg.MaxWidth,
			MappingDepth: g.cfg.MappingDepth,
		},
		Params: make(map[string]utils.ParamData),
	}
	for _, p := range g.NamedParams() {
		ck.Params[p.Name] = utils.ParamData{
			Shape: append([]int(nil), p.Tensor.Shape...),
			F16:   utils.PackF16(p.Tensor.Data),
		}
	}
	return ck
}

// FromCheckpoint rebuilds a generator from a checkpoint. workers sets the
// runtime convolution parallelism.
func FromCheckpoint(ck *utils.Checkpoint, workers int) (*Generator, error) {
	cfg := Config{
		Resolution:   ck.Arch.Resolution,
		LatentDim:    ck.Arch.LatentDim,
		ChannelBase:  ck.Arch.ChannelBase,
		MaxWidth:     ck.Arch.MaxWidth,
		MappingDepth: ck.Arch.MappingDepth,
		Workers:      workers,
	}
	g, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for _, p := range g.NamedParams() {
		pd, ok := ck.Params[p.Name]
		if !ok {
			return nil, fmt.Errorf("checkpoint missing parameter %q", p.Name)
		}
		data, err := utils.UnpackF16(pd.F16)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		if len(data) != p.Tensor.Numel() {
			return nil, fmt.Errorf("parameter %q: expected %d values, got %d", p.Name, p.Tensor.Numel(), len(data))
		}
		copy(p.Tensor.Data, data)
	}
	return g, nil
}

// Load reads a checkpoint from a local path or http(s) URL.
func Load(src string, workers int) (*Generator, error) {
	r, err := utils.OpenSource(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	ck, err := utils.LoadCheckpoint(r)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src, err)
	}
	return FromCheckpoint(ck, workers)
}
