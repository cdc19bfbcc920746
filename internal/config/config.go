package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qazbilim/training-backend/internal/logger"
)

// Config is the optional YAML runtime configuration. Every field has a
// built-in fallback, so a missing file is not an error.
type Config struct {
	Models ModelsConfig `yaml:"models"`
	Worker WorkerConfig `yaml:"worker"`
	Clones ClonesConfig `yaml:"clones"`
}

// ModelsConfig names the grading and generation models. The premium model
// is used for Kazakh-language subjects.
type ModelsConfig struct {
	Premium string `yaml:"premium"`
	Default string `yaml:"default"`
}

type WorkerConfig struct {
	PollSeconds         int `yaml:"poll_seconds"`
	MaxAttempts         int `yaml:"max_attempts"`
	RetryDelaySeconds   int `yaml:"retry_delay_seconds"`
	StaleRunningSeconds int `yaml:"stale_running_seconds"`
}

type ClonesConfig struct {
	PerBatch            int `yaml:"per_batch"`
	PregenerateParallel int `yaml:"pregenerate_parallel"`
}

func defaults() *Config {
	return &Config{
		Models: ModelsConfig{
			Premium: "gpt-4o",
			Default: "gpt-4o-mini",
		},
		Worker: WorkerConfig{
			PollSeconds:         1,
			MaxAttempts:         5,
			RetryDelaySeconds:   30,
			StaleRunningSeconds: 120,
		},
		Clones: ClonesConfig{
			PerBatch:            3,
			PregenerateParallel: 3,
		},
	}
}

// Load reads CONFIG_PATH (default config.yaml) over the built-in defaults.
// Unset fields keep their fallback values.
func Load(log *logger.Logger) *Config {
	cfg := defaults()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Config file unreadable, using defaults", "path", path, "error", err)
		}
		return cfg
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		log.Warn("Config file invalid, using defaults", "path", path, "error", err)
		return cfg
	}

	if loaded.Models.Premium != "" {
		cfg.Models.Premium = loaded.Models.Premium
	}
	if loaded.Models.Default != "" {
		cfg.Models.Default = loaded.Models.Default
	}
	if loaded.Worker.PollSeconds > 0 {
		cfg.Worker.PollSeconds = loaded.Worker.PollSeconds
	}
	if loaded.Worker.MaxAttempts > 0 {
		cfg.Worker.MaxAttempts = loaded.Worker.MaxAttempts
	}
	if loaded.Worker.RetryDelaySeconds > 0 {
		cfg.Worker.RetryDelaySeconds = loaded.Worker.RetryDelaySeconds
	}
	if loaded.Worker.StaleRunningSeconds > 0 {
		cfg.Worker.StaleRunningSeconds = loaded.Worker.StaleRunningSeconds
	}
	if loaded.Clones.PerBatch > 0 {
		cfg.Clones.PerBatch = loaded.Clones.PerBatch
	}
	if loaded.Clones.PregenerateParallel > 0 {
		cfg.Clones.PregenerateParallel = loaded.Clones.PregenerateParallel
	}
	return cfg
}
