// Package config loads service configuration from defaults, an optional
// YAML file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
)

// Secret sources.
const (
	SecretSourceEnv           = "env"
	SecretSourceSecretManager = "secretmanager"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Fast2SMS Fast2SMSConfig `yaml:"fast2sms"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// HashKey keys the recipient_hash log field. Empty means a random
	// per-process key, so hashes do not correlate across restarts.
	HashKey string `yaml:"hash_key"`
}

type AuthConfig struct {
	Mode          string `yaml:"mode"`           // firebase | jwt
	JWTSigningKey string `yaml:"jwt_signing_key"` // jwt mode only
	JWTIssuer     string `yaml:"jwt_issuer"`
}

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsPath string `yaml:"credentials_path"`
	// Emulator support for local runs and integration testing
	UseEmulator      bool   `yaml:"use_emulator"`
	EmulatorAuthHost string `yaml:"emulator_auth_host"`
}

type Fast2SMSConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"` // 0 = no client timeout
	SecretName   string        `yaml:"secret_name"`
	SecretSource string        `yaml:"secret_source"` // env | secretmanager
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Env:  "development",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			Mode:      AuthModeFirebase,
			JWTIssuer: "absence-sms.local",
		},
		Firebase: FirebaseConfig{
			EmulatorAuthHost: "localhost:9099",
		},
		Fast2SMS: Fast2SMSConfig{
			Endpoint:     "https://www.fast2sms.com/dev/bulkV2",
			SecretName:   "FAST2SMS_KEY",
			SecretSource: SecretSourceEnv,
		},
	}
}

// Load returns configuration built from defaults, the YAML file at path
// (skipped when path is empty) and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	// PORT (Cloud Run standard) is checked first, then SERVICE_PORT.
	cfg.Server.Port = getEnv("PORT", getEnv("SERVICE_PORT", cfg.Server.Port))
	cfg.Server.Env = getEnv("ENV", cfg.Server.Env)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.HashKey = getEnv("LOG_HASH_KEY", cfg.Log.HashKey)

	cfg.Auth.Mode = getEnv("AUTH_MODE", cfg.Auth.Mode)
	cfg.Auth.JWTSigningKey = getEnv("JWT_SIGNING_KEY", cfg.Auth.JWTSigningKey)
	cfg.Auth.JWTIssuer = getEnv("JWT_ISSUER", cfg.Auth.JWTIssuer)

	cfg.Firebase.ProjectID = getEnv("FIREBASE_PROJECT_ID", getEnv("GOOGLE_CLOUD_PROJECT", cfg.Firebase.ProjectID))
	cfg.Firebase.CredentialsPath = getEnv("FIREBASE_CREDENTIALS_PATH", cfg.Firebase.CredentialsPath)
	cfg.Firebase.UseEmulator = getEnvBool("USE_FIREBASE_EMULATOR", cfg.Firebase.UseEmulator)
	cfg.Firebase.EmulatorAuthHost = getEnv("FIREBASE_AUTH_EMULATOR_HOST", cfg.Firebase.EmulatorAuthHost)

	cfg.Fast2SMS.Endpoint = getEnv("FAST2SMS_ENDPOINT", cfg.Fast2SMS.Endpoint)
	cfg.Fast2SMS.Timeout = getEnvDuration("FAST2SMS_TIMEOUT", cfg.Fast2SMS.Timeout)
	cfg.Fast2SMS.SecretSource = getEnv("SECRET_SOURCE", cfg.Fast2SMS.SecretSource)
}

// Validate reports configuration that cannot start the service.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case AuthModeFirebase:
	case AuthModeJWT:
		if c.Auth.JWTSigningKey == "" {
			return fmt.Errorf("config: JWT_SIGNING_KEY is required when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("config: unknown auth mode %q", c.Auth.Mode)
	}

	switch c.Fast2SMS.SecretSource {
	case SecretSourceEnv:
	case SecretSourceSecretManager:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("config: FIREBASE_PROJECT_ID is required when SECRET_SOURCE=secretmanager")
		}
	default:
		return fmt.Errorf("config: unknown secret source %q", c.Fast2SMS.SecretSource)
	}

	if c.Fast2SMS.SecretName == "" {
		return fmt.Errorf("config: fast2sms secret name is empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
