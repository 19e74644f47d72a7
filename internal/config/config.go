// Package config provides unified configuration loading for smdsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/archive"
	"github.com/embruze/SexualEqualityABM-1/internal/constants"
	"github.com/embruze/SexualEqualityABM-1/internal/network"
	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
	"github.com/embruze/SexualEqualityABM-1/internal/store"
)

// DirName is the name of the smdsim data directory in the user's home.
const DirName = store.DirName

// FileName is the name of the config file inside the data directory.
const FileName = "config.yaml"

// SmdConfig contains all smdsim configuration settings.
type SmdConfig struct {
	// Simulation names the run and fixes its seed.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Network holds the construction parameters of the ER network.
	Network network.Params `json:"network" yaml:"network"`

	// Initial holds optional fixed initial values. Unset values are drawn
	// at random per agent.
	Initial agent.Initial `json:"initial" yaml:"initial"`

	// Impacts are the causal coefficients of the depression model.
	Impacts agent.Impacts `json:"impacts" yaml:"impacts"`

	// Step are the per-timestep coefficients.
	Step agent.StepImpacts `json:"step" yaml:"step"`

	// Sensitivity selects the analysis passes.
	Sensitivity SensitivityConfig `json:"sensitivity" yaml:"sensitivity"`

	// Logging contains settings for operational logging and trial traces.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures the results database.
	Store StoreConfig `json:"store" yaml:"store"`
}

// SimulationConfig configures a single run.
type SimulationConfig struct {
	Name string `json:"name" yaml:"name"`

	// Seed fixes every random stream of the run.
	Seed uint64 `json:"seed" yaml:"seed"`

	// StageWorkers bounds the goroutines staging agents within a step.
	// Values below 2 stage sequentially.
	StageWorkers int `json:"stage_workers" yaml:"stage_workers"`
}

// SensitivityConfig configures the sensitivity analysis.
type SensitivityConfig struct {
	sensitivity.Options `yaml:",inline"`

	// Timeout bounds the whole analysis. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LoggingConfig configures smdsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the trial trace in the data directory.
	// "trace" additionally logs every timestep of every trial.
	Level string `json:"level" yaml:"level"`

	// Format selects the stderr log format: "text" (default) or "json".
	Format string `json:"format" yaml:"format"`
}

// StoreConfig configures result persistence.
type StoreConfig struct {
	// Enabled stores every sensitivity analysis in the results database.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the data directory. Supports ${VAR} syntax and a leading ~.
	// Empty means ~/.smdsim.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Retention limits the run archives kept in the exports directory.
	Retention archive.RetentionConfig `json:"retention" yaml:"retention"`
}

// Default returns a SmdConfig with the documented defaults.
func Default() *SmdConfig {
	return &SmdConfig{
		Simulation: SimulationConfig{
			Name: "default",
			Seed: 1,
		},
		Network: network.DefaultParams(),
		Impacts: agent.DefaultImpacts(),
		Step:    agent.DefaultStepImpacts(),
		Sensitivity: SensitivityConfig{
			Options: sensitivity.AllPasses(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Enabled:   true,
			Retention: archive.RetentionConfig{MaxRuns: 10},
		},
	}
}

// DefaultPath returns ~/.smdsim/config.yaml.
func DefaultPath() (string, error) {
	dir, err := store.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load loads configuration from path, or from the default location when path
// is empty, then applies environment variables.
// Order: defaults -> config file -> environment variables
func Load(path string) (*SmdConfig, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	} else if defaultPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(defaultPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields absent
// from the file keep their defaults.
func LoadFromFile(path string) (*SmdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Dir = expandEnvVars(config.Store.Dir)

	return config, nil
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *SmdConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *SmdConfig) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}

	if c.Simulation.StageWorkers < 0 {
		return fmt.Errorf("stage_workers must be non-negative, got %d", c.Simulation.StageWorkers)
	}
	if c.Sensitivity.Workers < 0 {
		return fmt.Errorf("sensitivity workers must be non-negative, got %d", c.Sensitivity.Workers)
	}
	if c.Sensitivity.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Sensitivity.Timeout)
	}

	impacts := map[string]float64{
		"support_depression":      c.Impacts.SupportDepression,
		"conceal_discriminate":    c.Impacts.ConcealDiscriminate,
		"discriminate_conceal":    c.Impacts.DiscriminateConceal,
		"discriminate_depression": c.Impacts.DiscriminateDepression,
		"conceal_depression":      c.Impacts.ConcealDepression,
		"time":                    c.Step.Time,
		"coach":                   c.Step.Coach,
		"past":                    c.Step.Past,
		"social":                  c.Step.Social,
	}
	for name, v := range impacts {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("impact %s must be a non-negative number, got %v", name, v)
		}
	}

	if err := checkInitial("attitude", c.Initial.Attitude, -1, 1); err != nil {
		return err
	}
	for name, v := range map[string]*float64{
		"support":        c.Initial.Support,
		"discrimination": c.Initial.Discrimination,
		"conceal":        c.Initial.Conceal,
		"depression":     c.Initial.Depression,
	} {
		if err := checkInitial(name, v, 0, 1); err != nil {
			return err
		}
	}
	if err := checkInitial("policy_score", c.Initial.PolicyScore, 0, constants.MaxPolicyScore); err != nil {
		return err
	}

	if _, err := c.Store.Retention.Retention(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true, "warn": true, "error": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, warn, error, or empty for default)", c.Logging.Level)
	}

	validFormats := map[string]bool{"": true, "text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	return nil
}

func checkInitial(name string, v *float64, lo, hi float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v < lo || *v > hi {
		return fmt.Errorf("initial %s must be between %v and %v, got %v", name, lo, hi, *v)
	}
	return nil
}

// Scenario returns the simulation scenario the configuration describes.
func (c *SmdConfig) Scenario() simulation.Scenario {
	return simulation.Scenario{
		Name:    c.Simulation.Name,
		Params:  c.Network,
		Initial: c.Initial,
		Impacts: c.Impacts,
		Step:    c.Step,
		Seed:    c.Simulation.Seed,
	}
}

// DataDir returns the resolved data directory.
func (c *SmdConfig) DataDir() (string, error) {
	dir := c.Store.Dir
	if dir == "" {
		path, err := DefaultPath()
		if err != nil {
			return "", err
		}
		return filepath.Dir(path), nil
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(homeDir, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// A set but unparseable numeric variable is an error.
func applyEnvOverrides(config *SmdConfig) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"SMDSIM_NODE_COUNT", &config.Network.NodeCount},
		{"SMDSIM_TIME_SPAN", &config.Network.TimeSpan},
		{"SMDSIM_STAGE_WORKERS", &config.Simulation.StageWorkers},
		{"SMDSIM_WORKERS", &config.Sensitivity.Workers},
	}
	for _, e := range ints {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", e.name, err)
			}
			*e.dst = n
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"SMDSIM_P", &config.Network.P},
		{"SMDSIM_PERCENT_MINORITY", &config.Network.PercentMinority},
		{"SMDSIM_COACH_RATE", &config.Network.CoachRate},
	}
	for _, e := range floats {
		if v := os.Getenv(e.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", e.name, err)
			}
			*e.dst = f
		}
	}

	if v := os.Getenv("SMDSIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SMDSIM_SEED: %w", err)
		}
		config.Simulation.Seed = seed
	}

	if v := os.Getenv("SMDSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SMDSIM_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	if v := os.Getenv("SMDSIM_DATA_DIR"); v != "" {
		config.Store.Dir = expandEnvVars(v)
	}
	if v := os.Getenv("SMDSIM_STORE_ENABLED"); v != "" {
		config.Store.Enabled = v == "true" || v == "1"
	}

	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
