package latency

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for timing configurations the pipeline cannot
// be built with.
var ErrInvalidConfig = errors.New("invalid timing config")

// Bounds of LongALULatency.
const (
	MinLongALULatency = 2
	MaxLongALULatency = 63
)

// TimingConfig holds the tunable parameters of the pipeline model.
type TimingConfig struct {
	// LongALULatency is the number of cycles a long-latency arithmetic
	// operation (multiply, divide) spends in the late ALU. Default: 3.
	LongALULatency uint64 `json:"long_alu_latency" yaml:"longALULatency"`

	// BHTSize is the number of 2-bit counters in the branch history table.
	// Must be a power of two. Default: 1024.
	BHTSize uint64 `json:"bht_size" yaml:"bhtSize"`

	// BTBSize is the number of branch target buffer entries. Default: 256.
	BTBSize uint64 `json:"btb_size" yaml:"btbSize"`

	// BTBWays is the associativity of the branch target buffer. Default: 4.
	BTBWays uint64 `json:"btb_ways" yaml:"btbWays"`

	// ClockFrequencyGHz converts cycles into simulated time. Default: 1.0.
	ClockFrequencyGHz float64 `json:"clock_frequency_ghz" yaml:"clockFrequencyGHz"`

	// MaxCycles stops the simulation after this many cycles. 0 means no
	// limit.
	MaxCycles uint64 `json:"max_cycles" yaml:"maxCycles"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		LongALULatency:    3,
		BHTSize:           1024,
		BTBSize:           256,
		BTBWays:           4,
		ClockFrequencyGHz: 1.0,
		MaxCycles:         0,
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// LoadConfig loads a TimingConfig from a JSON or YAML file, chosen by file
// extension. Fields missing from the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON or YAML file, chosen by file
// extension.
func (c *TimingConfig) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a buildable pipeline.
func (c *TimingConfig) Validate() error {
	if c.LongALULatency < MinLongALULatency || c.LongALULatency > MaxLongALULatency {
		return fmt.Errorf("%w: long_alu_latency must be in [%d, %d], got %d",
			ErrInvalidConfig, MinLongALULatency, MaxLongALULatency, c.LongALULatency)
	}
	if c.BHTSize == 0 || c.BHTSize&(c.BHTSize-1) != 0 {
		return fmt.Errorf("%w: bht_size must be a power of two, got %d",
			ErrInvalidConfig, c.BHTSize)
	}
	if c.BTBWays == 0 {
		return fmt.Errorf("%w: btb_ways must be > 0", ErrInvalidConfig)
	}
	if c.BTBSize == 0 || c.BTBSize%c.BTBWays != 0 {
		return fmt.Errorf("%w: btb_size must be a positive multiple of btb_ways",
			ErrInvalidConfig)
	}
	if c.ClockFrequencyGHz <= 0 {
		return fmt.Errorf("%w: clock_frequency_ghz must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
