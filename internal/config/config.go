package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/config"
)

var ErrMissingSetting = errors.New("missing required setting")

const (
	DEFAULT_CONFIG_PATH = "./config/dev.yml"

	AgentModeLLM    = "agent"
	AgentModeDirect = "direct"
)

type serverConfig struct {
	Addr string
}

type schedulerConfig struct {
	PollInterval time.Duration
}

type gatewayConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type AgentConfig struct {
	Mode     string
	APIKey   string
	BaseURL  string
	Model    string
	MaxTurns int
}

type rabbitMQConfig struct {
	URL     string
	Queue   string
	Retries int
}

type Config struct {
	ServerConfig    serverConfig
	SchedulerConfig schedulerConfig
	GatewayConfig   gatewayConfig
	AgentConfig     AgentConfig
	RabbitMQConfig  rabbitMQConfig
}

// NewAppConfig loads .env when present, then the yaml file. Every key can be
// overridden from the environment: "gateway.token" is read from GATEWAY_TOKEN.
// Secrets live only in the environment.
func NewAppConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DEFAULT_CONFIG_PATH
	}

	cfg := config.New()
	setDefaults(cfg)
	if err := cfg.Load(path, "", ""); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appConfig := &Config{}
	appConfig.ServerConfig.Addr = cfg.GetString("server.addr")
	appConfig.SchedulerConfig.PollInterval = cfg.GetDuration("scheduler.poll_interval")

	appConfig.GatewayConfig.URL = cfg.GetString("gateway.url")
	appConfig.GatewayConfig.Token = cfg.GetString("gateway.token")
	appConfig.GatewayConfig.Timeout = cfg.GetDuration("gateway.timeout")

	appConfig.AgentConfig.Mode = cfg.GetString("agent.mode")
	appConfig.AgentConfig.APIKey = cfg.GetString("llm.api_key")
	appConfig.AgentConfig.BaseURL = cfg.GetString("agent.base_url")
	appConfig.AgentConfig.Model = cfg.GetString("agent.model")
	appConfig.AgentConfig.MaxTurns = cfg.GetInt("agent.max_turns")

	appConfig.RabbitMQConfig.URL = cfg.GetString("rabbitmq.url")
	appConfig.RabbitMQConfig.Queue = cfg.GetString("rabbitmq.queue")
	appConfig.RabbitMQConfig.Retries = cfg.GetInt("rabbitmq.retries")

	if err := appConfig.validate(); err != nil {
		return nil, err
	}
	return appConfig, nil
}

func setDefaults(cfg *config.Config) {
	cfg.SetDefault("server.addr", ":8080")
	cfg.SetDefault("scheduler.poll_interval", time.Second)
	cfg.SetDefault("gateway.timeout", 10*time.Second)
	cfg.SetDefault("agent.mode", AgentModeLLM)
	cfg.SetDefault("agent.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	cfg.SetDefault("agent.model", "gemini-2.0-flash")
	cfg.SetDefault("agent.max_turns", 4)
	cfg.SetDefault("rabbitmq.queue", "reminder_dispatches")
	cfg.SetDefault("rabbitmq.retries", 3)
}

func (c *Config) validate() error {
	var missing []string
	if c.AgentConfig.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.GatewayConfig.URL == "" {
		missing = append(missing, "GATEWAY_URL")
	}
	if c.GatewayConfig.Token == "" {
		missing = append(missing, "GATEWAY_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}

	if c.AgentConfig.Mode != AgentModeLLM && c.AgentConfig.Mode != AgentModeDirect {
		return fmt.Errorf("unknown agent.mode %q, expected %q or %q", c.AgentConfig.Mode, AgentModeLLM, AgentModeDirect)
	}
	if c.SchedulerConfig.PollInterval <= 0 {
		return fmt.Errorf("scheduler.poll_interval must be positive, got %s", c.SchedulerConfig.PollInterval)
	}
	if c.GatewayConfig.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive, got %s", c.GatewayConfig.Timeout)
	}
	if c.AgentConfig.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be positive, got %d", c.AgentConfig.MaxTurns)
	}
	return nil
}
