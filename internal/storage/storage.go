package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys
const (
	keyOptions        = "options"
	keyStats          = "stats"
	keyAnalysisPrefix = "analysis/"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Analysis is a finished search result cached by position hash.
type Analysis struct {
	BestMove string    `json:"best_move"`
	Score    int       `json:"score"`
	Depth    int       `json:"depth"`
	Nodes    uint64    `json:"nodes"`
	Stored   time.Time `json:"stored"`
}

// SearchStats accumulates counters over all searches run by the engine.
type SearchStats struct {
	Searches   int           `json:"searches"`
	TotalNodes uint64        `json:"total_nodes"`
	TotalTime  time.Duration `json:"total_time"`
	LastSearch time.Time     `json:"last_search"`
}

// NPS returns the average search speed in nodes per second.
func (s *SearchStats) NPS() uint64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return uint64(float64(s.TotalNodes) / s.TotalTime.Seconds())
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens (creating if needed) the database in dir.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging
	return open(opts)
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get decodes the value at key into v, returning ErrNotFound if it is missing.
func (s *Storage) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// SaveOptions replaces the stored UCI option values.
func (s *Storage) SaveOptions(options map[string]string) error {
	return s.put(keyOptions, options)
}

// LoadOptions loads stored UCI option values, returns an empty map if none are stored
func (s *Storage) LoadOptions() (map[string]string, error) {
	options := make(map[string]string)
	err := s.get(keyOptions, &options)
	if errors.Is(err, ErrNotFound) {
		return options, nil
	}
	return options, err
}

// SetOption stores a single option value, keeping the others.
func (s *Storage) SetOption(name, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		options := make(map[string]string)
		item, err := txn.Get([]byte(keyOptions))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &options)
			}); err != nil {
				return err
			}
		}

		options[name] = value
		data, err := json.Marshal(options)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyOptions), data)
	})
}

// analysisKey scopes cached results by evaluator, since a move found with
// one evaluator says nothing about another.
func analysisKey(evaluator string, hash uint64) string {
	return fmt.Sprintf("%s%s/%016x", keyAnalysisPrefix, evaluator, hash)
}

// SaveAnalysis caches a search result for the position with the given hash
// as found with the named evaluator.
func (s *Storage) SaveAnalysis(evaluator string, hash uint64, a Analysis) error {
	if a.Stored.IsZero() {
		a.Stored = time.Now()
	}
	return s.put(analysisKey(evaluator, hash), a)
}

// LoadAnalysis returns the cached result of evaluator for hash or ErrNotFound.
func (s *Storage) LoadAnalysis(evaluator string, hash uint64) (Analysis, error) {
	var a Analysis
	err := s.get(analysisKey(evaluator, hash), &a)
	return a, err
}

// ClearAnalysis drops every cached search result.
func (s *Storage) ClearAnalysis() error {
	return s.db.DropPrefix([]byte(keyAnalysisPrefix))
}

// SaveStats saves search statistics
func (s *Storage) SaveStats(stats *SearchStats) error {
	return s.put(keyStats, stats)
}

// LoadStats loads search statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*SearchStats, error) {
	stats := &SearchStats{}
	err := s.get(keyStats, stats)
	if errors.Is(err, ErrNotFound) {
		return stats, nil
	}
	return stats, err
}

// RecordSearch adds a finished search to the statistics.
func (s *Storage) RecordSearch(nodes uint64, elapsed time.Duration) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.Searches++
	stats.TotalNodes += nodes
	stats.TotalTime += elapsed
	stats.LastSearch = time.Now()

	return s.SaveStats(stats)
}
