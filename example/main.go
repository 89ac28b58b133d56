// This is an example kissev program that paints and drops some things.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"git.fractalqb.de/fractalqb/kissev"
	"git.fractalqb.de/fractalqb/kissev/example/internal"
)

var (
	deferred bool
	rounds   = 3
	cfg      = kissev.DefaultConfig()
)

func flags() {
	if env, err := kissev.ConfigFromEnv(); err != nil {
		log.Println(err)
	} else {
		cfg = env
	}
	flag.BoolVar(&deferred, "defer", deferred, "Post events deferred")
	flag.IntVar(&rounds, "n", rounds, "Number of paint rounds")
	flag.IntVar(&cfg.Bees, "bees", cfg.Bees, "Number of bees for deferred posts")
	flag.StringVar(&cfg.Trace, "trace", cfg.Trace, "Set trace level: off, warn, info, debug")
	flag.Parse()
}

// palette counts how often things were painted in which color.
type palette struct {
	counts [3]atomic.Int64
}

func (p *palette) Accept(e internal.Painted) {
	if e.To >= 0 && int(e.To) < len(p.counts) {
		p.counts[e.To].Add(1)
	}
}

func main() {
	flags()

	sys, err := kissev.NewSystem(true, cfg)
	if err != nil {
		log.Fatal(err)
	}
	sys.Name = "example"
	sys.OnDeferErr = kissev.LogErr("deferred: ")

	var pal palette
	err = kissev.Setup(sys, func(sys *kissev.System) {
		kissev.MustRegister[internal.Painted](sys, &pal)
		kissev.MustRegisterFunc(sys, func(e internal.Painted) {
			fmt.Printf("%s: %s -> %s\n", e.Thing, e.From, e.To)
		})
		kissev.MustRegisterFunc(sys, func(e internal.Dropped) {
			fmt.Printf("%s dropped\n", e.Thing)
		})
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	post := func(e any) error {
		if deferred {
			return sys.Defer(ctx, e)
		}
		_, err := sys.Post(ctx, e)
		return err
	}
	things := []string{"box", "ball", "cup"}
	for r := 0; r < rounds; r++ {
		for i, th := range things {
			from := internal.Color((r + i) % 3)
			to := internal.Color((r + i + 1) % 3)
			kissev.LogMust(post(internal.Painted{Thing: th, From: from, To: to}))
		}
	}
	for _, th := range things {
		kissev.LogMust(post(internal.Dropped{Thing: th}))
	}
	if err := sys.Close(); err != nil {
		log.Println(err)
	}
	for c := range pal.counts {
		fmt.Fprintf(os.Stdout, "%s: %d\n", internal.Color(c), pal.counts[c].Load())
	}
}
