// Package config provides configuration loading and management for dcemri.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the simulation configuration loaded from YAML
type Config struct {
	// Acquisition parameters of the simulated SPGR sequence
	Acquisition struct {
		// TR is the repetition time in seconds
		TR float64 `yaml:"tr"`

		// FlipAngleDeg is the flip angle in degrees; converted to radians
		// at the boundary via FlipAngleRad
		FlipAngleDeg float64 `yaml:"flipAngleDeg"`

		// T10 is the baseline T1 of the tissue in seconds
		T10 float64 `yaml:"t10"`

		// R1Relaxivity is the relaxivity r1 of the contrast agent
		R1Relaxivity float64 `yaml:"r1Relaxivity"`

		// S0 is the mean pre-bolus signal; 0 leaves the fully relaxed
		// signal at its default of 1
		S0 float64 `yaml:"s0"`
	} `yaml:"acquisition"`

	// Simulation parameters
	Simulation struct {
		// Model is the kinetic model: patlak, tofts or extended_tofts
		Model string `yaml:"model"`

		// Duration is the simulated exam length in seconds
		Duration float64 `yaml:"duration"`

		// Interval is the sampling interval of the output grid in seconds
		Interval float64 `yaml:"interval"`

		// BolusOnset is the contrast arrival time in seconds
		BolusOnset float64 `yaml:"bolusOnset"`

		// NumWorkers specifies how many goroutines evaluate the kinetic
		// model in parallel
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"simulation"`

	// AIF optionally replaces the built-in population curve
	AIF struct {
		// Samples are the plasma concentration values
		Samples []float64 `yaml:"samples"`

		// Timestamps are the matching sample times in seconds
		Timestamps []float64 `yaml:"timestamps"`
	} `yaml:"aif"`

	// Output parameters
	Output struct {
		// CSVFile is the path the simulated signal matrix is written to
		CSVFile string `yaml:"csvFile"`

		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// FlipAngleRad returns the configured flip angle in radians
func (c *Config) FlipAngleRad() float64 {
	return c.Acquisition.FlipAngleDeg * math.Pi / 180
}

// TimeGrid builds the output time grid from the configured duration and
// sampling interval
func (c *Config) TimeGrid() []float64 {
	n := int(c.Simulation.Duration/c.Simulation.Interval) + 1
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * c.Simulation.Interval
	}
	return t
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default acquisition parameters (typical 3T gadolinium protocol)
	cfg.Acquisition.TR = 0.005
	cfg.Acquisition.FlipAngleDeg = 20.0
	cfg.Acquisition.T10 = 1.0
	cfg.Acquisition.R1Relaxivity = 4.5
	cfg.Acquisition.S0 = 0

	// Set default simulation parameters matching the population AIF span
	cfg.Simulation.Model = "extended_tofts"
	cfg.Simulation.Duration = 238.0
	cfg.Simulation.Interval = 1.75
	cfg.Simulation.BolusOnset = 0
	cfg.Simulation.NumWorkers = runtime.NumCPU()

	// Set default output parameters
	cfg.Output.CSVFile = "signal.csv"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
