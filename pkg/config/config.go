package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for everything neither khoji.yaml nor the environment overrides.
const (
	DefaultOutputDir          = "./research_outputs"
	DefaultTemporalAddress    = "127.0.0.1:7233"
	DefaultTemporalNamespace  = "default"
	DefaultMaxConcurrentSteps = 3
	DefaultStepsPerSecond     = 5.0
	DefaultLogLevel           = "info"
)

type Config struct {
	// LLM provider credentials. At least one is needed to drive the browser.
	OpenAIKey    string
	AnthropicKey string
	Model        string

	// Browser placement.
	RemoteBrowserWS    string
	RemoteBrowserToken string
	Headful            bool

	// Report output.
	OutputDir string

	// Orchestrator connection.
	TemporalAddress   string
	TemporalNamespace string

	// Worker throughput caps, handed to the orchestrator's worker runtime.
	MaxConcurrentSteps int
	StepsPerSecond     float64

	ChaosEnabled bool
	LogLevel     string
}

// fileConfig is the shape of the optional khoji.yaml tuning file. Only
// deployment tuning lives there; credentials stay in the environment.
type fileConfig struct {
	Worker struct {
		MaxConcurrentSteps int     `yaml:"max_concurrent_steps"`
		StepsPerSecond     float64 `yaml:"steps_per_second"`
	} `yaml:"worker"`
	Orchestrator struct {
		Address   string `yaml:"address"`
		Namespace string `yaml:"namespace"`
	} `yaml:"orchestrator"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load assembles the configuration: defaults first, then the optional yaml
// file at path, then environment variables. A .env file is honored when one
// exists in the working directory.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		OutputDir:          DefaultOutputDir,
		TemporalAddress:    DefaultTemporalAddress,
		TemporalNamespace:  DefaultTemporalNamespace,
		MaxConcurrentSteps: DefaultMaxConcurrentSteps,
		StepsPerSecond:     DefaultStepsPerSecond,
		ChaosEnabled:       true,
		LogLevel:           DefaultLogLevel,
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// The tuning file is optional.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fc.Worker.MaxConcurrentSteps > 0 {
		c.MaxConcurrentSteps = fc.Worker.MaxConcurrentSteps
	}
	if fc.Worker.StepsPerSecond > 0 {
		c.StepsPerSecond = fc.Worker.StepsPerSecond
	}
	if fc.Orchestrator.Address != "" {
		c.TemporalAddress = fc.Orchestrator.Address
	}
	if fc.Orchestrator.Namespace != "" {
		c.TemporalNamespace = fc.Orchestrator.Namespace
	}
	if fc.Output.Dir != "" {
		c.OutputDir = fc.Output.Dir
	}
	if fc.Log.Level != "" {
		c.LogLevel = fc.Log.Level
	}
	return nil
}

func (c *Config) applyEnv() {
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	c.Model = os.Getenv("KHOJI_MODEL")
	c.RemoteBrowserWS = os.Getenv("REMOTE_BROWSER_WS")
	c.RemoteBrowserToken = os.Getenv("REMOTE_BROWSER_TOKEN")
	if v := os.Getenv("KHOJI_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("TEMPORAL_ADDRESS"); v != "" {
		c.TemporalAddress = v
	}
	if v := os.Getenv("TEMPORAL_NAMESPACE"); v != "" {
		c.TemporalNamespace = v
	}
	if v := os.Getenv("KHOJI_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.Headful = envBool("KHOJI_HEADFUL", false)
	c.ChaosEnabled = envBool("KHOJI_CHAOS", true)
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// LLMCredential returns the provider name and key of the first configured
// credential. OpenAI wins when both are set.
func (c *Config) LLMCredential() (provider, key string) {
	if c.OpenAIKey != "" {
		return "openai", c.OpenAIKey
	}
	if c.AnthropicKey != "" {
		return "anthropic", c.AnthropicKey
	}
	return "", ""
}

func (c *Config) HasLLMCredential() bool {
	return c.OpenAIKey != "" || c.AnthropicKey != ""
}

// ModelName returns the configured model, or the provider's demo default.
func (c *Config) ModelName(provider string) string {
	if c.Model != "" {
		return c.Model
	}
	if provider == "anthropic" {
		return "claude-3-5-haiku-latest"
	}
	return "gpt-4o-mini"
}
