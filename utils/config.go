package utils

import (
	"fmt"
)

// NoiseModes are the accepted render noise settings. The value is validated
// but not threaded into synthesis, which is deterministic; the flag exists
// for checkpoint families whose renderers honor it.
var NoiseModes = map[string]bool{
	"const":  true,
	"random": true,
	"none":   true,
}

// RunConfig holds one pipeline invocation.
type RunConfig struct {
	Network1   string // first network source (path or URL)
	Network2   string // second network source (path or URL)
	InputImage string // photo to project
	OutDir     string // output directory

	BlendLayer int     // resolution tag to splice at ("b<BlendLayer>")
	BlendWidth float64 // 0 = hard switch, >0 = logistic transition width
	MaxWidth   int     // maximum channel width expected of the networks

	Steps int   // projection iterations
	Seed  int64 // projection RNG seed

	TruncationPsi float64 // accepted, not applied downstream
	NoiseMode     string  // accepted, not applied downstream

	Workers int // convolution parallelism, 0 = serial
	Verbose bool
}

// DefaultRunConfig mirrors the CLI defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		BlendLayer:    32,
		MaxWidth:      512,
		Steps:         500,
		Seed:          303,
		TruncationPsi: 1,
		NoiseMode:     "const",
	}
}

// Validate checks a run configuration before any work starts.
func Validate(cfg *RunConfig) error {
	if cfg.Network1 == "" || cfg.Network2 == "" {
		return fmt.Errorf("both network sources are required")
	}
	if cfg.InputImage == "" {
		return fmt.Errorf("input image is required")
	}
	if cfg.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if cfg.BlendLayer < 4 || cfg.BlendLayer&(cfg.BlendLayer-1) != 0 {
		return fmt.Errorf("blend layer must be a power of two >= 4, got %d", cfg.BlendLayer)
	}
	if cfg.BlendWidth < 0 {
		return fmt.Errorf("blend width must be >= 0, got %g", cfg.BlendWidth)
	}
	if cfg.MaxWidth <= 0 {
		return fmt.Errorf("max channel width must be positive, got %d", cfg.MaxWidth)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if !NoiseModes[cfg.NoiseMode] {
		return fmt.Errorf("noise mode must be one of const, random, none; got %q", cfg.NoiseMode)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}
