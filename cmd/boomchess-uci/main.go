package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/hailam/boomchess/internal/config"
	"github.com/hailam/boomchess/internal/engine"
	"github.com/hailam/boomchess/internal/storage"
	"github.com/hailam/boomchess/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	configFile = flag.String("config", "", "config file (default: XDG config dir)")
	_          = flag.Int("hash", 0, "transposition table size in MB")
	evalType   = flag.String("eval", "", "evaluator: FULL, SIMPLE or NNUE")
	nnuePath   = flag.String("nnue", "", "NNUE network file")
	bookFile   = flag.String("book", "", "polyglot opening book")
	dataDir    = flag.String("datadir", "", "database directory")
	noStore    = flag.Bool("nostore", false, "do not open the database")
)

func main() {
	flag.Parse()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("Warning: %v (using defaults)", err)
		def := config.DefaultConfig
		cfg = &def
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	eng := engine.NewEngine(cfg.Hash)
	protocol := uci.New(eng, os.Stdin, os.Stdout)
	if err := protocol.Configure(cfg); err != nil {
		log.Printf("Warning: %v", err)
	}

	if !*noStore {
		store, err := storage.Open(cfg.DatabaseDir())
		if err != nil {
			log.Printf("Warning: database not opened: %v", err)
		} else {
			defer store.Close()
			if err := protocol.AttachStorage(store); err != nil {
				log.Printf("Warning: saved options not restored: %v", err)
			}
		}
	}

	// Flags given on the command line win over saved options.
	flag.Visit(func(f *flag.Flag) {
		var name string
		switch f.Name {
		case "hash":
			name = uci.OptHash
		case "eval":
			name = uci.OptEvalType
		case "nnue":
			name = uci.OptNNUEPath
		case "book":
			name = uci.OptBookFile
		default:
			return
		}
		if err := protocol.SetOption(name, f.Value.String()); err != nil {
			log.Printf("Warning: -%s: %v", f.Name, err)
		}
	})

	if err := protocol.Run(); err != nil {
		log.Printf("input error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *configFile != "" {
		return config.LoadFile(*configFile)
	}
	return config.Load()
}
