// blendproj: blend two generator networks and project a photo through them
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"ganblend/pipeline"
	"ganblend/utils"
)

var (
	network1   = flag.String("network1", "", "First network checkpoint (path or URL)")
	network2   = flag.String("network2", "", "Second network checkpoint (path or URL)")
	inputImage = flag.String("input", "", "Input photo (png/jpeg)")
	outDir     = flag.String("outdir", "", "Output directory")
	blendLayer = flag.Int("blend-layer", 32, "Resolution of the blend boundary block")
	blendWidth = flag.Float64("blend-width", 0, "Blend transition width, 0 = hard cut")
	maxWidth   = flag.Int("dim", 512, "Maximum network channel width")
	steps      = flag.Int("steps", 500, "Projection steps")
	seed       = flag.Int64("seed", 303, "Projection RNG seed")
	trunc      = flag.Float64("trunc", 1, "Truncation psi")
	noiseMode  = flag.String("noise-mode", "const", "Noise mode: const, random, none")
	workers    = flag.Int("workers", 0, "Convolution worker goroutines, 0 = serial")
	verbose    = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║            ganblend: network blending + projection           ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")

	cfg := utils.RunConfig{
		Network1:      *network1,
		Network2:      *network2,
		InputImage:    *inputImage,
		OutDir:        *outDir,
		BlendLayer:    *blendLayer,
		BlendWidth:    *blendWidth,
		MaxWidth:      *maxWidth,
		Steps:         *steps,
		Seed:          *seed,
		TruncationPsi: *trunc,
		NoiseMode:     *noiseMode,
		Workers:       *workers,
		Verbose:       *verbose,
	}
	if err := utils.Validate(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Networks: %s + %s\n", cfg.Network1, cfg.Network2)
	fmt.Printf("Blend: b%d, width %g\n", cfg.BlendLayer, cfg.BlendWidth)
	fmt.Printf("Projecting %s for %d steps (seed %d)\n", cfg.InputImage, cfg.Steps, cfg.Seed)

	start := time.Now()
	r := pipeline.New(cfg)
	if err := r.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Done in %.2fs, outputs in %s\n", time.Since(start).Seconds(), cfg.OutDir)

	utils.PrintTimingStats(&r.Stats, cfg.Steps)
}
