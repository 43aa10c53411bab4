package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hailam/boomchess/internal/datagen"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	p := datagen.DefaultParams()
	flag.IntVar(&p.MinNodes, "minnodes", p.MinNodes, "minimum nodes per self-play move")
	flag.IntVar(&p.MaxNodes, "maxnodes", p.MaxNodes, "maximum nodes per self-play move")
	flag.IntVar(&p.MaxPly, "maxply", p.MaxPly, "maximum game length in plies")
	flag.IntVar(&p.EvalDepth, "depth", p.EvalDepth, "search depth of the labels")
	flag.IntVar(&p.Count, "count", p.Count, "number of positions to write")
	flag.Float64Var(&p.SaveRate, "rate", p.SaveRate, "probability of labelling a position")
	flag.StringVar(&p.Output, "output", p.Output, "output CSV file")
	flag.IntVar(&p.Workers, "threads", p.Workers, "number of self-play workers")
	flag.Int64Var(&p.Seed, "seed", time.Now().UnixNano(), "random seed")
	flag.IntVar(&p.HashMB, "hash", p.HashMB, "hash size in MB per search")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log.Printf("%+v", p)
	start := time.Now()
	n, err := datagen.GenerateFile(ctx, p)
	log.Printf("wrote %d positions to %s in %v", n, p.Output, time.Since(start))
	return err
}
