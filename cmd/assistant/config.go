// In file: cmd/assistant/config.go
package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dileep-u-k/weather-assistant/internal/agent"
	"github.com/dileep-u-k/weather-assistant/internal/assistant"
	"github.com/dileep-u-k/weather-assistant/internal/llm"
	"github.com/dileep-u-k/weather-assistant/internal/logging"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	defaultOpenAIModel    = "mistralai/mistral-7b-instruct"
	defaultGeminiModel    = "gemini-1.5-flash"
	defaultAnthropicModel = "claude-3-haiku-20240307"
	defaultTemperature    = 0.7
	defaultPort           = "8000"
	defaultConfigFile     = "config.yaml"
	defaultBreakerLimit   = 5
)

var validate = validator.New()

// AgentSettings bounds the reasoning loop. It can come from the YAML file
// and is overridden by the AGENT_* variables.
type AgentSettings struct {
	MaxIterations    int           `yaml:"max_iterations" validate:"gte=1"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" validate:"gt=0"`
}

// AppConfig holds all configuration for the assistant, loaded from the environment and an optional config file.
type AppConfig struct {
	LLMProvider    string  `validate:"oneof=openai gemini anthropic"`
	LLMAPIKey      string  `validate:"required"`
	LLMBaseURL     string  `validate:"omitempty,url"`
	LLMModel       string  `validate:"required"`
	LLMTemperature float32 `validate:"gte=0,lte=2"`

	WeatherAPIKey  string
	WeatherBaseURL string `validate:"omitempty,url"`

	Agent   AgentSettings
	Breaker llm.BreakerSettings

	RedisAddr  string
	SessionTTL time.Duration `validate:"gt=0"`

	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	GinMode  string `validate:"omitempty,oneof=debug release test"`

	Insights assistant.InsightTable
}

// fileConfig is the shape of the optional YAML file.
type fileConfig struct {
	Agent    AgentSettings          `yaml:"agent"`
	Insights assistant.InsightTable `yaml:"insights"`
}

// LoadConfig loads all configuration from a .env file, environment variables, and config.yaml.
func LoadConfig() (*AppConfig, error) {
	// In containers (GIN_MODE=release) configuration comes straight from the environment.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			logging.Default().Debug("no .env file found, relying on the environment")
		}
	}

	cfg := &AppConfig{
		LLMProvider:    strings.ToLower(getenv("LLM_PROVIDER", ProviderOpenAI)),
		WeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		WeatherBaseURL: os.Getenv("OPENWEATHER_BASE_URL"),
		Agent: AgentSettings{
			MaxIterations:    agent.DefaultMaxIterations,
			MaxExecutionTime: agent.DefaultMaxExecutionTime,
		},
		Breaker: llm.BreakerSettings{
			ConsecutiveFailures: defaultBreakerLimit,
		},
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		SessionTTL: assistant.DefaultSessionTTL,
		Port:       getenv("PORT", defaultPort),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		GinMode:    os.Getenv("GIN_MODE"),
		Insights:   assistant.DefaultInsightTable(),
	}

	switch cfg.LLMProvider {
	case ProviderGemini:
		cfg.LLMAPIKey = os.Getenv("GEMINI_API_KEY")
		cfg.LLMModel = getenv("LLM_MODEL", defaultGeminiModel)
	case ProviderAnthropic:
		cfg.LLMAPIKey = os.Getenv("ANTHROPIC_API_KEY")
		cfg.LLMModel = getenv("LLM_MODEL", defaultAnthropicModel)
		cfg.LLMBaseURL = getenv("LLM_BASE_URL", llm.DefaultAnthropicURL)
	default:
		cfg.LLMAPIKey = getenv("OPENROUTER_API_KEY", os.Getenv("OPENAI_API_KEY"))
		cfg.LLMModel = getenv("LLM_MODEL", defaultOpenAIModel)
		cfg.LLMBaseURL = getenv("LLM_BASE_URL", llm.DefaultOpenRouterURL)
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	var err error
	if cfg.LLMTemperature, err = envFloat32("LLM_TEMPERATURE", defaultTemperature); err != nil {
		return nil, err
	}
	if cfg.Agent.MaxIterations, err = envInt("AGENT_MAX_ITERATIONS", cfg.Agent.MaxIterations); err != nil {
		return nil, err
	}
	if cfg.Agent.MaxExecutionTime, err = envDuration("AGENT_MAX_EXECUTION_TIME", cfg.Agent.MaxExecutionTime); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describeValidationError(err)
	}
	return cfg, nil
}

// loadFile applies the optional YAML file. A missing default file is not an
// error; a missing file named by CONFIG_FILE is.
func (cfg *AppConfig) loadFile() error {
	path, explicit := os.LookupEnv("CONFIG_FILE")
	if !explicit || path == "" {
		path = defaultConfigFile
		explicit = false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	if file.Agent.MaxIterations > 0 {
		cfg.Agent.MaxIterations = file.Agent.MaxIterations
	}
	if file.Agent.MaxExecutionTime > 0 {
		cfg.Agent.MaxExecutionTime = file.Agent.MaxExecutionTime
	}
	cfg.Insights = cfg.Insights.Merge(file.Insights)
	return nil
}

// AgentConfig converts the settings into the agent's own configuration.
func (cfg *AppConfig) AgentConfig() agent.Config {
	temperature := cfg.LLMTemperature
	return agent.Config{
		Model:            cfg.LLMModel,
		Temperature:      &temperature,
		MaxIterations:    cfg.Agent.MaxIterations,
		MaxExecutionTime: cfg.Agent.MaxExecutionTime,
	}
}

func describeValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return goerr.Wrap(err, "invalid configuration")
	}
	first := fieldErrs[0]
	if first.Field() == "LLMAPIKey" {
		return goerr.New("completion model API key is not set; set OPENROUTER_API_KEY, or GEMINI_API_KEY / ANTHROPIC_API_KEY with the matching LLM_PROVIDER")
	}
	return goerr.Wrap(err, "invalid configuration", goerr.V("field", first.Field()), goerr.V("rule", first.Tag()))
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid integer in environment", goerr.V("key", key), goerr.V("value", raw))
	}
	return v, nil
}

func envFloat32(key string, fallback float32) (float32, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid number in environment", goerr.V("key", key), goerr.V("value", raw))
	}
	return float32(v), nil
}

// envDuration accepts Go durations ("45s") and bare seconds ("45").
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid duration in environment", goerr.V("key", key), goerr.V("value", raw))
	}
	return v, nil
}
