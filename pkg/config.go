package fuzzydirhash

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-ini/ini"
)

// Config represents the fdh configuration
type Config struct {
	configPath string
	ini        *ini.File
}

// MatchConfig represents signature matching configuration
type MatchConfig struct {
	Threshold int // Minimum score reported as a match (1-100)
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // Default output format: human, sigfile
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int // Number of concurrent hash workers (default: 4)
}

// AllConfig represents all configuration options
type AllConfig struct {
	Match       *MatchConfig
	Output      *OutputConfig
	Verbose     *VerboseConfig
	Performance *PerformanceConfig
}

// LoadConfig loads configuration from the .fdh/config file
func LoadConfig(stateDir string) (*Config, error) {
	configPath := filepath.Join(stateDir, ConfigName)

	cfg := &Config{
		configPath: configPath,
	}

	// Load existing config or create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	} else {
		iniFile, err := ini.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.ini = iniFile
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	matchSection, err := c.ini.NewSection("match")
	if err != nil {
		return fmt.Errorf("failed to create match section: %w", err)
	}
	if _, err := matchSection.NewKey("threshold", strconv.Itoa(DefaultMatchThreshold)); err != nil {
		return fmt.Errorf("failed to set default match threshold: %w", err)
	}

	outputSection, err := c.ini.NewSection("output")
	if err != nil {
		return fmt.Errorf("failed to create output section: %w", err)
	}
	if _, err := outputSection.NewKey("format", "human"); err != nil {
		return fmt.Errorf("failed to set default output format: %w", err)
	}

	verboseSection, err := c.ini.NewSection("verbose")
	if err != nil {
		return fmt.Errorf("failed to create verbose section: %w", err)
	}
	if _, err := verboseSection.NewKey("level", "0"); err != nil {
		return fmt.Errorf("failed to set default verbose level: %w", err)
	}
	if _, err := verboseSection.NewKey("debug", ""); err != nil {
		return fmt.Errorf("failed to set default debug flags: %w", err)
	}

	performanceSection, err := c.ini.NewSection("performance")
	if err != nil {
		return fmt.Errorf("failed to create performance section: %w", err)
	}
	if _, err := performanceSection.NewKey("hash_workers", strconv.Itoa(DefaultHashWorkers)); err != nil {
		return fmt.Errorf("failed to set default hash workers: %w", err)
	}

	return nil
}

// Save writes the configuration to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := c.ini.SaveTo(c.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GetMatchConfig returns the signature matching configuration
func (c *Config) GetMatchConfig() *MatchConfig {
	matchConfig := &MatchConfig{
		Threshold: DefaultMatchThreshold, // fallback default
	}

	if c.ini.HasSection("match") {
		section := c.ini.Section("match")
		if section.HasKey("threshold") {
			if threshold, err := section.Key("threshold").Int(); err == nil {
				if threshold >= MatchScoreMin && threshold <= MatchScoreMax {
					matchConfig.Threshold = threshold
				}
			}
		}
	}

	return matchConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: "human", // fallback default
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
	}

	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{
		Level: 0,
		Debug: "",
	}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers: DefaultHashWorkers, // fallback default
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil && workers > 0 {
				performanceConfig.HashWorkers = workers
			}
		}
	}

	return performanceConfig
}

// GetAllConfig returns all configuration sections
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Match:       c.GetMatchConfig(),
		Output:      c.GetOutputConfig(),
		Verbose:     c.GetVerboseConfig(),
		Performance: c.GetPerformanceConfig(),
	}
}

// SetValue sets a configuration value in the given section and saves
func (c *Config) SetValue(section, key, value string) error {
	sec := c.ini.Section(section)
	sec.Key(key).SetValue(value)
	return c.Save()
}

// GetValue returns a configuration value, or "" if not present
func (c *Config) GetValue(section, key string) string {
	if !c.ini.HasSection(section) {
		return ""
	}
	sec := c.ini.Section(section)
	if !sec.HasKey(key) {
		return ""
	}
	return sec.Key(key).String()
}
