// Package config loads the server configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/maksimsarychau/mcp-zebrunner/internal/zebrunner"
)

// Config is the full configuration of the MCP server and its debug CLI.
type Config struct {
	Zebrunner ZebrunnerConfig `yaml:"zebrunner"`
	Video     VideoConfig     `yaml:"video"`
	Log       LogConfig       `yaml:"log"`
}

// ZebrunnerConfig locates and authenticates against the workspace.
type ZebrunnerConfig struct {
	BaseURL string `yaml:"baseUrl"`
	// AccessToken is the bearer token; TokenFile is an alternative holding
	// the token on its first line.
	AccessToken string `yaml:"accessToken"`
	TokenFile   string `yaml:"tokenFile"`
	// ProjectKey is the default project when a request names none.
	ProjectKey string `yaml:"projectKey"`
}

// VideoConfig tunes the analysis pipeline.
type VideoConfig struct {
	WorkDir              string  `yaml:"workDir"`
	Mode                 string  `yaml:"mode"`
	FailureWindowSeconds int     `yaml:"failureWindowSeconds"`
	FrameInterval        float64 `yaml:"frameInterval"`
	IncludeOCR           bool    `yaml:"includeOcr"`
	// MaxConcurrentAnalyses bounds in-flight pipeline runs; each run owns
	// exclusive scratch storage and an ffmpeg process.
	MaxConcurrentAnalyses int `yaml:"maxConcurrentAnalyses"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Video: VideoConfig{
			WorkDir:               filepath.Join(os.TempDir(), "mcp-zebrunner"),
			Mode:                  "failure_focused",
			FailureWindowSeconds:  10,
			FrameInterval:         2,
			MaxConcurrentAnalyses: 2,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config file on top of the defaults, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.resolveToken(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Environment variables recognized by applyEnv.
const (
	EnvBaseURL    = "ZEBRUNNER_URL"
	EnvToken      = "ZEBRUNNER_TOKEN"
	EnvProjectKey = "ZEBRUNNER_PROJECT"
	EnvWorkDir    = "ZEBRUNNER_VIDEO_DIR"
	EnvLogLevel   = "ZEBRUNNER_LOG_LEVEL"
	EnvMaxRuns    = "ZEBRUNNER_MAX_ANALYSES"
)

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Zebrunner.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Zebrunner.AccessToken = v
	}
	if v := os.Getenv(EnvProjectKey); v != "" {
		cfg.Zebrunner.ProjectKey = v
	}
	if v := os.Getenv(EnvWorkDir); v != "" {
		cfg.Video.WorkDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvMaxRuns); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Video.MaxConcurrentAnalyses = n
		}
	}
}

func (c *Config) resolveToken() error {
	if c.Zebrunner.AccessToken != "" || c.Zebrunner.TokenFile == "" {
		return nil
	}
	token, err := zebrunner.ReadAccessToken(c.Zebrunner.TokenFile)
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	c.Zebrunner.AccessToken = token
	return nil
}

// Validate checks the fields without which the server cannot run.
func (c *Config) Validate() error {
	if c.Zebrunner.BaseURL == "" {
		return fmt.Errorf("zebrunner.baseUrl is required (or set %s)", EnvBaseURL)
	}
	if c.Zebrunner.AccessToken == "" {
		return fmt.Errorf("zebrunner.accessToken is required (or set %s)", EnvToken)
	}
	if c.Video.MaxConcurrentAnalyses <= 0 {
		return fmt.Errorf("video.maxConcurrentAnalyses must be positive")
	}
	return nil
}
