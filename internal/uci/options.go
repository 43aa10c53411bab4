package uci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hailam/boomchess/internal/book"
	"github.com/hailam/boomchess/internal/config"
	"github.com/hailam/boomchess/internal/engine"
	"github.com/hailam/boomchess/internal/nnue"
	"github.com/hailam/boomchess/internal/storage"
)

// Option names as announced to the GUI.
const (
	OptVariant       = "UCI_Variant"
	OptHash          = "Hash"
	OptEvalType      = "EvalType"
	OptNNUEPath      = "NNUEPath"
	OptOwnBook       = "OwnBook"
	OptBookFile      = "BookFile"
	OptAnalysisCache = "AnalysisCache"
)

// optionOrder is the order options are restored in; files load before the
// options that use them.
var optionOrder = []string{
	OptVariant, OptHash, OptNNUEPath, OptEvalType, OptBookFile, OptOwnBook, OptAnalysisCache,
}

const emptyValue = "<empty>"

// Options holds the current value of every UCI option.
type Options struct {
	Variant       string
	Hash          int
	EvalType      string
	NNUEPath      string
	OwnBook       bool
	BookFile      string
	AnalysisCache bool
}

// DefaultOptions returns the options of a fresh engine with a hash table of
// hashMB megabytes.
func DefaultOptions(hashMB int) Options {
	return Options{
		Variant:  "atomic",
		Hash:     hashMB,
		EvalType: engine.EvalFull.String(),
	}
}

func orEmpty(s string) string {
	if s == "" {
		return emptyValue
	}
	return s
}

// Describe returns the "option" lines sent in reply to "uci".
func (o Options) Describe() []string {
	return []string{
		"option name UCI_Variant type combo default atomic var atomic",
		fmt.Sprintf("option name Hash type spin default %d min %d max %d", o.Hash, config.MinHash, config.MaxHash),
		fmt.Sprintf("option name EvalType type combo default %s var FULL var SIMPLE var NNUE", o.EvalType),
		fmt.Sprintf("option name NNUEPath type string default %s", orEmpty(o.NNUEPath)),
		fmt.Sprintf("option name OwnBook type check default %t", o.OwnBook),
		fmt.Sprintf("option name BookFile type string default %s", orEmpty(o.BookFile)),
		fmt.Sprintf("option name AnalysisCache type check default %t", o.AnalysisCache),
	}
}

// Options returns the current option values.
func (u *UCI) Options() Options {
	return u.options
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	if err := u.SetOption(name, value); err != nil {
		msg := err.Error()
		u.info("%s", strings.ToUpper(msg[:1])+msg[1:])
	}
}

// SetOption applies an option and persists it when storage is attached.
func (u *UCI) SetOption(name, value string) error {
	canonical, ok := canonicalName(name)
	if !ok {
		return fmt.Errorf("unrecognized option name: %s", name)
	}
	if err := u.apply(canonical, value); err != nil {
		return err
	}
	if u.store != nil {
		if err := u.store.SetOption(canonical, value); err != nil {
			return fmt.Errorf("failed to save option %s: %w", canonical, err)
		}
	}
	return nil
}

func canonicalName(name string) (string, bool) {
	for _, opt := range optionOrder {
		if strings.EqualFold(opt, name) {
			return opt, true
		}
	}
	return "", false
}

func parseCheck(name, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("unrecognized value for %s: %s", name, value)
	}
	return b, nil
}

// apply changes one option. A failed change leaves the previous value.
func (u *UCI) apply(name, value string) error {
	if value == emptyValue {
		value = ""
	}

	switch name {
	case OptVariant:
		if !strings.EqualFold(value, "atomic") {
			return fmt.Errorf("unsupported variant: %s", value)
		}

	case OptHash:
		mb, err := strconv.Atoi(value)
		if err != nil || mb < config.MinHash || mb > config.MaxHash {
			return fmt.Errorf("hash must be between %d and %d", config.MinHash, config.MaxHash)
		}
		u.engine.SetHashSize(mb)
		u.options.Hash = mb

	case OptEvalType:
		evalType := strings.ToUpper(value)
		if evalType == "NNUE" {
			if err := u.useNetwork(); err != nil {
				return err
			}
		} else {
			t, err := engine.ParseEvalType(value)
			if err != nil {
				return fmt.Errorf("unrecognized value for EvalType: %s", value)
			}
			u.engine.SetEvaluator(engine.NewHandCrafted(t))
		}
		u.options.EvalType = evalType

	case OptNNUEPath:
		u.options.NNUEPath = value
		u.network = nil
		if u.options.EvalType == "NNUE" {
			return u.useNetwork()
		}

	case OptOwnBook:
		b, err := parseCheck(name, value)
		if err != nil {
			return err
		}
		u.options.OwnBook = b

	case OptBookFile:
		if value == "" {
			u.book = nil
			u.options.BookFile = ""
			return nil
		}
		bk, err := book.LoadPolyglot(storage.ResolveDataFile(value))
		if err != nil {
			return fmt.Errorf("failed to load book: %w", err)
		}
		u.book = bk
		u.options.BookFile = value
		u.info("Book loaded: %d positions", bk.Size())

	case OptAnalysisCache:
		b, err := parseCheck(name, value)
		if err != nil {
			return err
		}
		u.options.AnalysisCache = b
	}
	return nil
}

// useNetwork loads the network named by NNUEPath if needed and makes it the
// engine's evaluator.
func (u *UCI) useNetwork() error {
	if u.network == nil {
		if u.options.NNUEPath == "" {
			return errors.New("NNUEPath is not set")
		}
		ev, err := nnue.LoadEvaluator(storage.ResolveDataFile(u.options.NNUEPath))
		if err != nil {
			return fmt.Errorf("failed to load NNUE: %w", err)
		}
		u.network = ev
		u.info("NNUE network loaded from %s", u.options.NNUEPath)
	}
	u.engine.SetEvaluator(u.network)
	return nil
}

// Configure applies settings from the config file. Nothing is persisted.
func (u *UCI) Configure(cfg *config.Config) error {
	values := map[string]string{
		OptHash:          strconv.Itoa(cfg.Hash),
		OptNNUEPath:      cfg.NNUEPath,
		OptEvalType:      cfg.EvalType,
		OptBookFile:      cfg.BookFile,
		OptOwnBook:       strconv.FormatBool(cfg.OwnBook),
		OptAnalysisCache: strconv.FormatBool(cfg.AnalysisCache),
	}
	return u.applyAll(values)
}

// AttachStorage restores the options saved by earlier sessions and
// persists later changes, cached analysis and search statistics to s.
func (u *UCI) AttachStorage(s *storage.Storage) error {
	saved, err := s.LoadOptions()
	if err != nil {
		return err
	}
	u.store = s
	return u.applyAll(saved)
}

func (u *UCI) applyAll(values map[string]string) error {
	var errs []error
	for _, name := range optionOrder {
		v, ok := values[name]
		if !ok || (v == "" && name != OptNNUEPath && name != OptBookFile) {
			continue
		}
		// An unchanged file option would reload the same file.
		if name == OptBookFile && v == u.options.BookFile {
			continue
		}
		if err := u.apply(name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
