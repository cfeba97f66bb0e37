// Package config loads the agent's YAML configuration, layering file values
// over defaults and environment variables over both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Agent struct {
		Model          string `yaml:"model"`
		CheapModel     string `yaml:"cheap_model"`
		DeepModel      string `yaml:"deep_model"`
		SystemPrompt   string `yaml:"system_prompt"`
		MaxIterations  int    `yaml:"max_iterations"`
		RecoveryBudget int    `yaml:"recovery_budget"`
		MaxTokens      int    `yaml:"max_tokens"`
	} `yaml:"agent"`
	LLM struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		MaxFailures     int    `yaml:"max_failures"`
		CooldownSeconds int    `yaml:"cooldown_seconds"`
	} `yaml:"llm"`
	Permissions struct {
		Mode                  string `yaml:"mode"` // readonly, default, all
		ConfirmTimeoutSeconds int    `yaml:"confirm_timeout_seconds"`
	} `yaml:"permissions"`
	Browser struct {
		Headless       bool     `yaml:"headless"`
		UserDataDir    string   `yaml:"user_data_dir"`
		StartURL       string   `yaml:"start_url"`
		Width          int      `yaml:"width"`
		Height         int      `yaml:"height"`
		AllowedDomains []string `yaml:"allowed_domains"`
		BlockedDomains []string `yaml:"blocked_domains"`
	} `yaml:"browser"`
	Shell struct {
		Shell          string `yaml:"shell"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"shell"`
	Capture struct {
		MaxDimension int `yaml:"max_dimension"`
		Quality      int `yaml:"quality"`
	} `yaml:"capture"`
	Output struct {
		Dir     string `yaml:"dir"` // audit logs, notes, command transcripts
		Verbose bool   `yaml:"verbose"`
	} `yaml:"output"`
}

func Default() Config {
	var cfg Config
	cfg.Agent.Model = "gpt-4o"
	cfg.Agent.CheapModel = "gpt-4o-mini"
	cfg.Agent.DeepModel = "gpt-4o"
	cfg.Agent.MaxIterations = 25
	cfg.Agent.RecoveryBudget = 8
	cfg.Agent.MaxTokens = 2048
	cfg.LLM.MaxFailures = 3
	cfg.LLM.CooldownSeconds = 60
	cfg.Permissions.Mode = "default"
	cfg.Permissions.ConfirmTimeoutSeconds = 60
	cfg.Browser.Headless = true
	cfg.Browser.Width = 1440
	cfg.Browser.Height = 900
	cfg.Shell.TimeoutSeconds = 30
	cfg.Capture.MaxDimension = 1440
	cfg.Capture.Quality = 80
	cfg.Output.Dir = "runs"
	return cfg
}

func DefaultPath() string {
	return filepath.Join("config", "deskpilot.yaml")
}

// Load reads path over the defaults. A missing file is only an error when
// the path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults only.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DESKPILOT_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("DESKPILOT_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("DESKPILOT_MODEL"); v != "" {
		c.Agent.Model = v
	}
	if v := os.Getenv("DESKPILOT_PERMISSION_MODE"); v != "" {
		c.Permissions.Mode = v
	}
	if v := os.Getenv("DESKPILOT_HEADLESS"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = parsed
		}
	}
	if v := os.Getenv("DESKPILOT_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
}

func (c *Config) validate() error {
	switch c.Permissions.Mode {
	case "readonly", "default", "all":
	default:
		return fmt.Errorf("invalid permission mode %q", c.Permissions.Mode)
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.Agent.RecoveryBudget < 0 {
		return fmt.Errorf("recovery_budget must not be negative")
	}
	if c.Capture.Quality < 0 || c.Capture.Quality > 100 {
		return fmt.Errorf("capture quality must be between 0 and 100")
	}
	return nil
}

func (c Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Permissions.ConfirmTimeoutSeconds) * time.Second
}

func (c Config) ShellTimeout() time.Duration {
	return time.Duration(c.Shell.TimeoutSeconds) * time.Second
}

func (c Config) LLMCooldown() time.Duration {
	return time.Duration(c.LLM.CooldownSeconds) * time.Second
}
