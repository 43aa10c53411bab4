package datagen

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hailam/boomchess/internal/board"
)

func smallParams() Params {
	p := DefaultParams()
	p.MinNodes = 100
	p.MaxNodes = 300
	p.MaxPly = 40
	p.EvalDepth = 2
	p.Count = 6
	p.SaveRate = 0.5
	p.Workers = 2
	p.HashMB = 1
	return p
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	n, err := Generate(context.Background(), smallParams(), &buf)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n != 6 {
		t.Fatalf("rows written = %d, want 6", n)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading dataset: %v", err)
	}
	if len(records) != n {
		t.Fatalf("dataset has %d rows, want %d", len(records), n)
	}

	seen := make(map[string]bool)
	for _, rec := range records {
		if len(rec) != 4 {
			t.Fatalf("row %v has %d fields", rec, len(rec))
		}
		fen := rec[0]
		if seen[fen] {
			t.Errorf("duplicate position %s", fen)
		}
		seen[fen] = true

		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Errorf("bad FEN %q: %v", fen, err)
			continue
		}
		if _, err := strconv.Atoi(rec[1]); err != nil {
			t.Errorf("bad eval %q", rec[1])
		}
		if _, err := pos.ParseMove(rec[2]); err != nil {
			t.Errorf("%s: best move %s is not legal", fen, rec[2])
		}
		if nodes, err := strconv.ParseUint(rec[3], 10, 64); err != nil || nodes == 0 {
			t.Errorf("bad node count %q", rec[3])
		}
	}
}

func TestGenerateFile(t *testing.T) {
	p := smallParams()
	p.Count = 2
	p.Output = filepath.Join(t.TempDir(), "dataset.csv")

	n, err := GenerateFile(context.Background(), p)
	if err != nil || n != 2 {
		t.Fatalf("GenerateFile = %d, %v", n, err)
	}
	data, err := os.ReadFile(p.Output)
	if err != nil {
		t.Fatal(err)
	}
	if got := bytes.Count(data, []byte("\n")); got != 2 {
		t.Errorf("file has %d lines, want 2", got)
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	p := smallParams()
	p.Count = 1000
	n, err := Generate(ctx, p, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if n >= p.Count {
		t.Errorf("cancelled run wrote %d rows", n)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"node range", func(p *Params) { p.MaxNodes = p.MinNodes - 1 }},
		{"zero nodes", func(p *Params) { p.MinNodes = 0 }},
		{"max ply", func(p *Params) { p.MaxPly = 0 }},
		{"eval depth", func(p *Params) { p.EvalDepth = -1 }},
		{"count", func(p *Params) { p.Count = 0 }},
		{"save rate", func(p *Params) { p.SaveRate = 1.5 }},
		{"workers", func(p *Params) { p.Workers = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.modify(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate accepted invalid params")
			}
		})
	}
}
