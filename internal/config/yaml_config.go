package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Tracked projects and rollup schedules are easier to manage in YAML than env vars.
type YAMLConfig struct {
	Projects []ProjectConfig `yaml:"projects"`
	Rollups  []RollupConfig  `yaml:"rollups"`
}

// ProjectConfig declares a project and the keywords it tracks.
type ProjectConfig struct {
	Slug     string   `yaml:"slug"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// RollupConfig declares aggregation windows to precompute on a schedule.
type RollupConfig struct {
	Project      string   `yaml:"project"`            // Project slug
	Keywords     []string `yaml:"keywords,omitempty"` // Empty means every tracked keyword
	Metrics      []string `yaml:"metrics,omitempty"`  // Defaults to avg, min, max
	Granularity  string   `yaml:"granularity,omitempty"`
	LookbackDays int      `yaml:"lookback_days,omitempty"`
	Engine       string   `yaml:"engine,omitempty"`
	Locale       string   `yaml:"locale,omitempty"`
}

// LoadYAMLConfig loads the YAML configuration file at path.
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	for i := range cfg.Rollups {
		r := &cfg.Rollups[i]
		if len(r.Metrics) == 0 {
			r.Metrics = []string{"avg", "min", "max"}
		}
		if r.Granularity == "" {
			r.Granularity = "daily"
		}
		if r.LookbackDays <= 0 {
			r.LookbackDays = 30
		}
	}

	return &cfg, nil
}

// GetProjectBySlug finds a project by its slug.
func (c *YAMLConfig) GetProjectBySlug(slug string) *ProjectConfig {
	if c == nil {
		return nil
	}
	for i := range c.Projects {
		if c.Projects[i].Slug == slug {
			return &c.Projects[i]
		}
	}
	return nil
}

// GetRollups returns the configured rollup targets.
func (c *YAMLConfig) GetRollups() []RollupConfig {
	if c == nil {
		return nil
	}
	return c.Rollups
}
