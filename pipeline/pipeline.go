// Package pipeline wires the full run together: load two networks, blend
// them, project the input photo into latent space, and write the stills,
// the latent archive and the progress video.
package pipeline

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"ganblend/blend"
	"ganblend/generator"
	"ganblend/imaging"
	"ganblend/projector"
	"ganblend/tensor"
	"ganblend/utils"
	"ganblend/video"
)

const (
	latentArchive = "projected_w.npz"
	videoName     = "proj_blended.mp4"
	videoFPS      = 10
)

// Runner executes one blend-and-project invocation. NewFrameWriter defaults
// to the MP4 encoder and exists so tests can capture frames without ffmpeg.
type Runner struct {
	Config         utils.RunConfig
	NewFrameWriter func(path string, width, height, fps int) (video.FrameWriter, error)

	Stats utils.TimingStats
}

func New(cfg utils.RunConfig) *Runner {
	return &Runner{Config: cfg, NewFrameWriter: video.NewMP4Writer}
}

// Run performs the whole pipeline and leaves its outputs in Config.OutDir:
// projected_w.npz, <name>_synthesized<ext>, <name>_blended<ext> and
// proj_blended.mp4.
func (r *Runner) Run() error {
	cfg := &r.Config
	if err := utils.Validate(cfg); err != nil {
		return err
	}
	start := time.Now()
	defer func() { r.Stats.TotalTime = time.Since(start) }()

	t0 := time.Now()
	g1, err := generator.Load(cfg.Network1, cfg.Workers)
	if err != nil {
		return fmt.Errorf("loading first network: %w", err)
	}
	g2, err := generator.Load(cfg.Network2, cfg.Workers)
	if err != nil {
		return fmt.Errorf("loading second network: %w", err)
	}
	r.Stats.LoadTime = time.Since(t0)
	if w := g1.Config().MaxWidth; w > cfg.MaxWidth {
		return fmt.Errorf("network channel width %d exceeds the configured maximum %d", w, cfg.MaxWidth)
	}
	r.progress("loaded networks (%dx%d, %d latent dims)\n", g1.Resolution(), g1.Resolution(), g1.LatentDim())

	t0 = time.Now()
	blended, err := blend.Blended(g1, g2, blend.Spec{
		Resolution: cfg.BlendLayer,
		Width:      cfg.BlendWidth,
	})
	if err != nil {
		return fmt.Errorf("blending: %w", err)
	}
	r.Stats.BlendTime = time.Since(t0)
	r.progress("blended at b%d (width %g)\n", cfg.BlendLayer, cfg.BlendWidth)

	t0 = time.Now()
	src, err := imaging.LoadImage(cfg.InputImage)
	if err != nil {
		return err
	}
	targetImg, err := imaging.PrepareTarget(src, g1.Resolution())
	if err != nil {
		return fmt.Errorf("preparing target: %w", err)
	}
	target := imaging.TargetTensor(targetImg)
	r.Stats.PreprocessTime = time.Since(t0)

	opts := projector.DefaultOptions()
	opts.NumSteps = cfg.Steps
	opts.Seed = uint64(cfg.Seed)
	opts.Verbose = cfg.Verbose
	t0 = time.Now()
	trajectory, err := projector.Project(g1, target, opts)
	if err != nil {
		return fmt.Errorf("projection: %w", err)
	}
	r.Stats.ProjectionTime = time.Since(t0)
	r.progress("projected %d steps\n", len(trajectory))

	if err := r.writeLatents(g1, trajectory); err != nil {
		return err
	}

	final := trajectory[len(trajectory)-1]
	t0 = time.Now()
	if err := r.writeStills(g1, blended, final); err != nil {
		return err
	}
	r.Stats.RenderTime = time.Since(t0)

	t0 = time.Now()
	if err := r.writeVideo(g1, blended, targetImg, trajectory); err != nil {
		return err
	}
	r.Stats.VideoTime = time.Since(t0)

	return nil
}

func (r *Runner) progress(format string, args ...any) {
	if r.Config.Verbose {
		fmt.Fprintf(utils.Output, format, args...)
	}
}

// writeLatents saves the trajectory as a [1, steps, L, dim] float64 array
// named "w", the layout numpy-side tooling expects.
func (r *Runner) writeLatents(g *generator.Generator, trajectory []*tensor.Tensor) error {
	steps := len(trajectory)
	dim := g.LatentDim()
	data := make([]float64, 0, steps*g.NumWs()*dim)
	for _, w := range trajectory {
		data = append(data, w.Data...)
	}
	path := filepath.Join(r.Config.OutDir, latentArchive)
	if err := utils.WriteNPZ(path, "w", []int{1, steps, g.NumWs(), dim}, data); err != nil {
		return err
	}
	r.progress("wrote %s\n", path)
	return nil
}

func (r *Runner) writeStills(g1, blended *generator.Generator, w *tensor.Tensor) error {
	ext := filepath.Ext(r.Config.InputImage)
	name := strings.TrimSuffix(filepath.Base(r.Config.InputImage), ext)

	for _, out := range []struct {
		g      *generator.Generator
		suffix string
	}{
		{g1, "_synthesized"},
		{blended, "_blended"},
	} {
		x, err := out.g.Synthesis(w)
		if err != nil {
			return fmt.Errorf("rendering%s: %w", out.suffix, err)
		}
		img, err := imaging.FromTensor(x)
		if err != nil {
			return err
		}
		path := filepath.Join(r.Config.OutDir, name+out.suffix+ext)
		if err := imaging.SaveImage(img, path); err != nil {
			return err
		}
		r.progress("wrote %s\n", path)

		if r.Config.Verbose {
			strip := filepath.Join(r.Config.OutDir, "palette"+out.suffix+".png")
			if p := imaging.Palette(img, 5); len(p) > 0 {
				if err := imaging.SavePaletteStrip(p, 32, strip); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeVideo renders one [target | unblended | blended] frame per trajectory
// element. The writer is closed on every path so the container is flushed.
func (r *Runner) writeVideo(g1, blended *generator.Generator, targetImg *image.RGBA, trajectory []*tensor.Tensor) (err error) {
	res := g1.Resolution()
	path := filepath.Join(r.Config.OutDir, videoName)
	w, err := r.NewFrameWriter(path, 3*res, res, videoFPS)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	for i, wp := range trajectory {
		x1, err := g1.Synthesis(wp)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		xb, err := blended.Synthesis(wp)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		left, err := imaging.FromTensor(x1)
		if err != nil {
			return err
		}
		right, err := imaging.FromTensor(xb)
		if err != nil {
			return err
		}
		frame, err := imaging.HConcat(targetImg, left, right)
		if err != nil {
			return err
		}
		if err := w.Write(video.FrameBytes(frame)); err != nil {
			return fmt.Errorf("encoding frame %d: %w", i, err)
		}
	}
	r.progress("wrote %s\n", path)
	return nil
}
