package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether progress and timing output is printed.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for the pipeline stages.
type TimingStats struct {
	TotalTime        time.Duration
	LoadTime         time.Duration
	BlendTime        time.Duration
	PreprocessTime   time.Duration
	ForwardPassTime  time.Duration
	BackwardPassTime time.Duration
	ProjectionTime   time.Duration
	RenderTime       time.Duration
	VideoTime        time.Duration
}

// PrintTimingStats prints a per-stage breakdown of one pipeline run.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, steps int) {
	if !Verbose {
		return
	}
	pct := func(d time.Duration) float64 {
		if stats.TotalTime == 0 {
			return 0
		}
		return float64(d) / float64(stats.TotalTime) * 100
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total pipeline time: %v\n", stats.TotalTime)
	fmt.Fprintln(Output, "\nBreakdown by stage:")
	fmt.Fprintf(Output, "  Network loading: %v (%.1f%%)\n", stats.LoadTime, pct(stats.LoadTime))
	fmt.Fprintf(Output, "  Blending: %v (%.1f%%)\n", stats.BlendTime, pct(stats.BlendTime))
	fmt.Fprintf(Output, "  Preprocessing: %v (%.1f%%)\n", stats.PreprocessTime, pct(stats.PreprocessTime))
	fmt.Fprintf(Output, "  Projection: %v (%.1f%%)\n", stats.ProjectionTime, pct(stats.ProjectionTime))
	fmt.Fprintf(Output, "    Forward passes: %v\n", stats.ForwardPassTime)
	fmt.Fprintf(Output, "    Backward passes: %v\n", stats.BackwardPassTime)
	fmt.Fprintf(Output, "  Still rendering: %v (%.1f%%)\n", stats.RenderTime, pct(stats.RenderTime))
	fmt.Fprintf(Output, "  Video encoding: %v (%.1f%%)\n", stats.VideoTime, pct(stats.VideoTime))
	if steps > 0 {
		fmt.Fprintf(Output, "\nAverage time per projection step: %v\n", stats.ProjectionTime/time.Duration(steps))
	}
}
