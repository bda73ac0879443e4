// mknet: generate a random generator checkpoint for testing and demos
package main

import (
	"flag"
	"fmt"
	"os"

	"ganblend/generator"
	"ganblend/utils"
)

var (
	out          = flag.String("out", "network.json", "Output checkpoint path")
	resolution   = flag.Int("res", 64, "Output resolution (power of two)")
	latentDim    = flag.Int("latent", 64, "Latent dimensionality")
	channelBase  = flag.Int("channel-base", 1024, "Channel base (channels at res r = channel-base / r)")
	maxWidth     = flag.Int("dim", 128, "Maximum channel width")
	mappingDepth = flag.Int("mapping-depth", 2, "Mapping network depth")
	seed         = flag.Uint64("seed", 0, "Weight init seed")
)

func main() {
	flag.Parse()

	cfg := generator.Config{
		Resolution:   *resolution,
		LatentDim:    *latentDim,
		ChannelBase:  *channelBase,
		MaxWidth:     *maxWidth,
		MappingDepth: *mappingDepth,
	}
	g, err := generator.NewRandom(cfg, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := utils.SaveCheckpoint(*out, g.ToCheckpoint()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s: %dx%d generator, %d latent dims, %d synthesis blocks\n",
		*out, cfg.Resolution, cfg.Resolution, cfg.LatentDim, g.NumWs())
}
