package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type SpeechConfig struct {
	DefaultVoice    string `yaml:"default_voice"`
	DefaultFormat   string `yaml:"default_format"`
	MaxChunkLength  int    `yaml:"max_chunk_length"`
	Concurrency     int    `yaml:"concurrency"`
	RefreshSkewMin  int    `yaml:"refresh_skew_min"`
	RequestTimeoutS int    `yaml:"request_timeout_s"`
}

type BackendConfig struct {
	Mode      string `yaml:"mode"` // azure, exec, mock
	TokenURL  string `yaml:"token_url"`
	Command   string `yaml:"command"`
	UserAgent string `yaml:"user_agent"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type AuditConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRequests   int    `yaml:"max_requests"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Auth        AuthConfig      `yaml:"auth"`
	Speech      SpeechConfig    `yaml:"speech"`
	Backend     BackendConfig   `yaml:"backend"`
	Bus         BusConfig       `yaml:"bus"`
	Audit       AuditConfig     `yaml:"audit"`
}

func Default() Config {
	return Config{
		ServiceName: "altavox-gateway",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Speech: SpeechConfig{
			DefaultVoice:    "en-US-AvaMultilingualNeural",
			DefaultFormat:   "mp3",
			MaxChunkLength:  300,
			Concurrency:     5,
			RefreshSkewMin:  5,
			RequestTimeoutS: 120,
		},
		Backend: BackendConfig{
			Mode:      "azure",
			TokenURL:  "https://dev.microsofttranslator.com/apps/endpoint?api-version=1.0",
			UserAgent: "okhttp/4.5.0",
			TimeoutMS: 30000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Audit: AuditConfig{
			Path:          "./data/altavox-audit.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxRequests:   100000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "ALTAVOX_SERVICE_NAME")
	overrideString(&cfg.Environment, "ALTAVOX_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "ALTAVOX_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "ALTAVOX_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "ALTAVOX_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "ALTAVOX_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "ALTAVOX_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Auth.APIKey, "ALTAVOX_AUTH_API_KEY")
	overrideString(&cfg.Speech.DefaultVoice, "ALTAVOX_SPEECH_DEFAULT_VOICE")
	overrideString(&cfg.Speech.DefaultFormat, "ALTAVOX_SPEECH_DEFAULT_FORMAT")
	overrideInt(&cfg.Speech.MaxChunkLength, "ALTAVOX_SPEECH_MAX_CHUNK_LENGTH")
	overrideInt(&cfg.Speech.Concurrency, "ALTAVOX_SPEECH_CONCURRENCY")
	overrideInt(&cfg.Speech.RefreshSkewMin, "ALTAVOX_SPEECH_REFRESH_SKEW_MIN")
	overrideInt(&cfg.Speech.RequestTimeoutS, "ALTAVOX_SPEECH_REQUEST_TIMEOUT_S")
	overrideString(&cfg.Backend.Mode, "ALTAVOX_BACKEND_MODE")
	overrideString(&cfg.Backend.TokenURL, "ALTAVOX_BACKEND_TOKEN_URL")
	overrideString(&cfg.Backend.Command, "ALTAVOX_BACKEND_COMMAND")
	overrideString(&cfg.Backend.UserAgent, "ALTAVOX_BACKEND_USER_AGENT")
	overrideInt(&cfg.Backend.TimeoutMS, "ALTAVOX_BACKEND_TIMEOUT_MS")
	overrideBool(&cfg.Bus.Enabled, "ALTAVOX_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "ALTAVOX_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "ALTAVOX_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "ALTAVOX_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "ALTAVOX_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "ALTAVOX_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "ALTAVOX_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "ALTAVOX_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "ALTAVOX_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Audit.Path, "ALTAVOX_AUDIT_PATH")
	overrideString(&cfg.Audit.RetentionMode, "ALTAVOX_AUDIT_RETENTION_MODE")
	overrideInt(&cfg.Audit.RetentionDays, "ALTAVOX_AUDIT_RETENTION_DAYS")
	overrideInt(&cfg.Audit.MaxRequests, "ALTAVOX_AUDIT_MAX_REQUESTS")
	overrideBool(&cfg.Audit.VacuumOnStart, "ALTAVOX_AUDIT_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Speech.MaxChunkLength <= 0 {
		return errors.New("speech.max_chunk_length must be positive")
	}
	if cfg.Speech.Concurrency <= 0 {
		return errors.New("speech.concurrency must be positive")
	}
	switch cfg.Backend.Mode {
	case "azure", "exec", "mock":
	default:
		return fmt.Errorf("backend.mode must be one of azure, exec, mock; got %q", cfg.Backend.Mode)
	}
	if cfg.Backend.Mode == "azure" && cfg.Backend.TokenURL == "" {
		return errors.New("backend.token_url must not be empty in azure mode")
	}
	if cfg.Backend.Mode == "exec" && strings.TrimSpace(cfg.Backend.Command) == "" {
		return errors.New("backend.command must not be empty in exec mode")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.Audit.RetentionMode {
	case "ephemeral", "persistent":
	default:
		return fmt.Errorf("audit.retention_mode must be ephemeral or persistent; got %q", cfg.Audit.RetentionMode)
	}
	return nil
}
