// Package datagen generates evaluation training data from self-play games.
package datagen

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/boomchess/internal/board"
	"github.com/hailam/boomchess/internal/engine"
)

// Params controls dataset generation.
type Params struct {
	// Node budget range of the self-play moves.
	MinNodes int
	MaxNodes int

	MaxPly    int     // games are cut off after this many plies
	EvalDepth int     // search depth of the labelling search
	Count     int     // number of rows to write
	SaveRate  float64 // probability that a visited position is labelled
	Output    string
	Workers   int
	Seed      int64
	HashMB    int // transposition table size of each search
}

// DefaultParams returns the default generation settings.
func DefaultParams() Params {
	return Params{
		MinNodes:  5000,
		MaxNodes:  15000,
		MaxPly:    150,
		EvalDepth: 5,
		Count:     1000,
		SaveRate:  0.01,
		Output:    "dataset.csv",
		Workers:   runtime.NumCPU(),
		Seed:      1,
		HashMB:    16,
	}
}

// Validate reports settings generation cannot run with.
func (p Params) Validate() error {
	switch {
	case p.MinNodes <= 0 || p.MaxNodes < p.MinNodes:
		return fmt.Errorf("invalid node range [%d, %d]", p.MinNodes, p.MaxNodes)
	case p.MaxPly <= 0:
		return fmt.Errorf("invalid max ply %d", p.MaxPly)
	case p.EvalDepth <= 0:
		return fmt.Errorf("invalid eval depth %d", p.EvalDepth)
	case p.Count <= 0:
		return fmt.Errorf("invalid count %d", p.Count)
	case p.SaveRate <= 0 || p.SaveRate > 1:
		return fmt.Errorf("save rate %v outside (0, 1]", p.SaveRate)
	case p.Workers <= 0:
		return fmt.Errorf("invalid worker count %d", p.Workers)
	}
	return nil
}

// Sample is one labelled position.
type Sample struct {
	FEN      string
	Eval     int // centipawns from white's point of view
	BestMove string
	Nodes    uint64
	key      uint64
}

// Record returns the CSV fields fen, eval, bestmove, nodes.
func (s Sample) Record() []string {
	return []string{s.FEN, strconv.Itoa(s.Eval), s.BestMove, strconv.FormatUint(s.Nodes, 10)}
}

// GenerateFile writes the dataset to p.Output.
func GenerateFile(ctx context.Context, p Params) (int, error) {
	file, err := os.Create(p.Output)
	if err != nil {
		return 0, err
	}
	n, err := Generate(ctx, p, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Generate plays self-play games on p.Workers goroutines and writes
// p.Count labelled positions to w. It returns the number of rows written.
func Generate(ctx context.Context, p Params, w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	log.Println("generate started")
	defer log.Println("generate finished")

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(genCtx)

	var samples = make(chan Sample, 128)
	var written int

	g.Go(func() error {
		var err error
		written, err = saveDataset(samples, w, p.Count)
		// Enough rows: stop the players.
		cancel()
		return err
	})

	var wg = &sync.WaitGroup{}
	for i := 0; i < p.Workers; i++ {
		wg.Add(1)
		seed := p.Seed + int64(i)
		g.Go(func() error {
			defer wg.Done()
			return newPlayer(p, seed).run(gctx, samples)
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(samples)
		return nil
	})

	if err := g.Wait(); err != nil {
		return written, err
	}
	if written < p.Count && ctx.Err() != nil {
		return written, ctx.Err()
	}
	return written, nil
}

// saveDataset owns the output. Repeated positions are written once.
func saveDataset(samples <-chan Sample, w io.Writer, count int) (int, error) {
	out := csv.NewWriter(w)
	repeats := make(map[uint64]struct{})
	var positionCount, repeatCount int

	for s := range samples {
		if positionCount >= count {
			continue
		}
		if _, found := repeats[s.key]; found {
			repeatCount++
			continue
		}
		repeats[s.key] = struct{}{}

		if err := out.Write(s.Record()); err != nil {
			return positionCount, err
		}
		positionCount++
		if positionCount%100 == 0 {
			log.Println("saveDataset", "positionCount", positionCount)
		}
		if positionCount == count {
			break
		}
	}

	out.Flush()
	log.Println("saveDataset",
		"positionCount", positionCount,
		"repeatCount", repeatCount)
	return positionCount, out.Error()
}

// player runs self-play games and labels a random subset of their positions.
type player struct {
	params   Params
	rng      *rand.Rand
	explorer *engine.Engine
	labeller *engine.Engine
}

func newPlayer(p Params, seed int64) *player {
	return &player{
		params:   p,
		rng:      rand.New(rand.NewSource(seed)),
		explorer: engine.NewEngine(p.HashMB),
		labeller: engine.NewEngine(p.HashMB),
	}
}

func (pl *player) run(ctx context.Context, samples chan<- Sample) error {
	for ctx.Err() == nil {
		if err := pl.playGame(ctx, samples); err != nil {
			return err
		}
	}
	return nil
}

// playGame plays one game from the start position. Every move is searched
// with a random node budget on a cleared engine.
func (pl *player) playGame(ctx context.Context, samples chan<- Sample) error {
	p := pl.params
	pos := board.NewPosition()

	for ply := 0; ply < p.MaxPly; ply++ {
		if ctx.Err() != nil {
			return nil
		}
		if !pos.HasLegalMove() || pos.IsRepetition() || pos.IsFiftyMoveDraw() {
			return nil
		}

		if pl.rng.Float64() < p.SaveRate {
			s, ok, err := pl.label(pos)
			if err != nil {
				return err
			}
			if ok {
				select {
				case <-ctx.Done():
					return nil
				case samples <- s:
				}
			}
		}

		nodes := p.MinNodes + pl.rng.Intn(p.MaxNodes-p.MinNodes+1)
		pl.explorer.Clear()
		res, err := pl.explorer.Search(pos, engine.SearchLimits{Nodes: uint64(nodes)})
		if err != nil {
			return err
		}
		if res.BestMove == board.NoMove {
			return nil
		}
		pos.MakeMove(res.BestMove)
	}
	return nil
}

// label searches pos to the evaluation depth.
func (pl *player) label(pos *board.Position) (Sample, bool, error) {
	pl.labeller.Clear()
	res, err := pl.labeller.Search(pos, engine.SearchLimits{Depth: pl.params.EvalDepth})
	if err != nil {
		return Sample{}, false, err
	}
	// Forced moves come back unsearched and carry no score.
	if res.BestMove == board.NoMove || res.Depth == 0 {
		return Sample{}, false, nil
	}

	eval := res.Score
	if pos.SideToMove == board.Black {
		eval = -eval
	}
	return Sample{
		FEN:      pos.ToFEN(),
		Eval:     eval,
		BestMove: res.BestMove.String(),
		Nodes:    res.Nodes,
		key:      pos.Hash,
	}, true, nil
}
