package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug      bool
	Server     ServerConfig
	CodesFile  string
	ReportPath string
	OpenAI     OpenAIConfig
	Suggestion SuggestionConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Addr    string
	GinMode string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type SuggestionConfig struct {
	PollInterval    time.Duration
	MaxWait         time.Duration
	PollRetries     int
	FallbackOnError bool
}

type CORSConfig struct {
	AllowOrigins []string
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("codes.file", "OBD2.csv")
	v.SetDefault("report.path", "diagnostic_report.txt")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("suggestion.poll_interval", time.Second)
	v.SetDefault("suggestion.max_wait", 90*time.Second)
	v.SetDefault("suggestion.poll_retries", 3)
	v.SetDefault("suggestion.fallback_on_error", false)
	v.SetDefault("cors.allow_origins", "*")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.addr", "SERVER_ADDR", "PORT")
	_ = v.BindEnv("server.gin_mode", "SERVER_GIN_MODE", "GIN_MODE")
}

// Load reads .env into the process environment, then the config file set on
// v (if any), and returns the resolved configuration.
func Load(v *viper.Viper) (*Config, error) {
	_ = godotenv.Load()
	SetDefaults(v)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{
		Debug: v.GetBool("debug"),
		Server: ServerConfig{
			Addr:    normalizeAddr(v.GetString("server.addr")),
			GinMode: v.GetString("server.gin_mode"),
		},
		CodesFile:  v.GetString("codes.file"),
		ReportPath: v.GetString("report.path"),
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString("openai.api_key"),
			BaseURL: v.GetString("openai.base_url"),
			Model:   v.GetString("openai.model"),
		},
		Suggestion: SuggestionConfig{
			PollInterval:    v.GetDuration("suggestion.poll_interval"),
			MaxWait:         v.GetDuration("suggestion.max_wait"),
			PollRetries:     v.GetInt("suggestion.poll_retries"),
			FallbackOnError: v.GetBool("suggestion.fallback_on_error"),
		},
		CORS: CORSConfig{AllowOrigins: splitList(v.Get("cors.allow_origins"))},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.gin_mode %q must be debug, release or test", c.Server.GinMode))
	}
	if c.Suggestion.PollInterval <= 0 {
		errs = append(errs, errors.New("suggestion.poll_interval must be positive"))
	}
	if c.Suggestion.MaxWait < c.Suggestion.PollInterval {
		errs = append(errs, errors.New("suggestion.max_wait must not be shorter than suggestion.poll_interval"))
	}
	if c.Suggestion.PollRetries < 0 {
		errs = append(errs, errors.New("suggestion.poll_retries must not be negative"))
	}
	return errors.Join(errs...)
}

// normalizeAddr turns a bare port number (as PORT usually holds) into a
// listen address.
func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if _, err := strconv.Atoi(addr); err == nil {
		return ":" + addr
	}
	return addr
}

// splitList accepts either a list (config file) or a comma separated string
// (environment).
func splitList(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case []string:
		parts = v
	case []any:
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
	case string:
		parts = strings.Split(v, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
