// Package config loads and saves the engine settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

var (
	cfgFile = "boomchess/config.json"
	dataDir = "boomchess"
)

// Hash size bounds in megabytes, matching the UCI Hash option.
const (
	MinHash = 1
	MaxHash = 1024
)

// Evaluator names accepted for EvalType.
var evalTypes = []string{"FULL", "SIMPLE", "NNUE"}

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("Config error: %s", e.err)
}

type Config struct {
	Hash          int    `json:"hash"`
	EvalType      string `json:"eval_type"`
	NNUEPath      string `json:"nnue_path"`
	OwnBook       bool   `json:"own_book"`
	BookFile      string `json:"book_file"`
	AnalysisCache bool   `json:"analysis_cache"`
	DataDir       string `json:"data_dir"`
}

var DefaultConfig = Config{
	Hash:     64,
	EvalType: "FULL",
}

// Load reads the config file from the XDG config directories. A missing
// file yields DefaultConfig.
func Load() (*Config, error) {
	absPath, err := xdg.SearchConfigFile(cfgFile)
	if err != nil {
		config := DefaultConfig
		return &config, nil
	}
	return LoadFile(absPath)
}

// LoadFile reads the config at path over DefaultConfig and validates it.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig
	if err := readCfgFile(path, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Hash < MinHash || c.Hash > MaxHash {
		return &InvalidConfig{fmt.Sprintf("hash must be between %d and %d MB, got %d", MinHash, MaxHash, c.Hash)}
	}
	for _, name := range evalTypes {
		if strings.EqualFold(c.EvalType, name) {
			return nil
		}
	}
	return &InvalidConfig{fmt.Sprintf("unknown eval type %q", c.EvalType)}
}

// Save writes the config to the user's XDG config directory.
func (c *Config) Save() error {
	absPath, err := xdg.ConfigFile(cfgFile)
	if err != nil {
		return err
	}
	return c.SaveFile(absPath)
}

// SaveFile writes the config to path.
func (c *Config) SaveFile(path string) error {
	return saveCfgFile(path, c, 0664)
}

// DatabaseDir returns the directory of the engine database.
func (c *Config) DatabaseDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(xdg.DataHome, dataDir, "db")
}

func saveCfgFile(filePath string, a any, perm fs.FileMode) error {
	jsonData, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, perm)
}

func readCfgFile(filePath string, a any) error {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return &InvalidConfig{fmt.Sprintf("%s: %v", filePath, err)}
	}
	return nil
}
