package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "SERVICE_PORT", "ENV", "LOG_LEVEL", "LOG_HASH_KEY",
		"AUTH_MODE", "JWT_SIGNING_KEY", "JWT_ISSUER",
		"FIREBASE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "FIREBASE_CREDENTIALS_PATH",
		"USE_FIREBASE_EMULATOR", "FIREBASE_AUTH_EMULATOR_HOST",
		"FAST2SMS_ENDPOINT", "FAST2SMS_TIMEOUT", "SECRET_SOURCE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Auth.Mode != AuthModeFirebase {
		t.Errorf("Auth.Mode = %q", cfg.Auth.Mode)
	}
	if cfg.Fast2SMS.Endpoint != "https://www.fast2sms.com/dev/bulkV2" {
		t.Errorf("Endpoint = %q", cfg.Fast2SMS.Endpoint)
	}
	if cfg.Fast2SMS.SecretName != "FAST2SMS_KEY" {
		t.Errorf("SecretName = %q", cfg.Fast2SMS.SecretName)
	}
	if cfg.Fast2SMS.Timeout != 0 {
		t.Errorf("Timeout = %v, want none", cfg.Fast2SMS.Timeout)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
server:
  port: "9000"
  env: staging
log:
  level: debug
firebase:
  project_id: attendance-prod
fast2sms:
  endpoint: http://localhost:9999/dev/bulkV2
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_HASH_KEY", "hash-key-from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "7000" {
		t.Errorf("env should override file: Port = %q", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("env should override file: Level = %q", cfg.Log.Level)
	}
	if cfg.Log.HashKey != "hash-key-from-env" {
		t.Errorf("HashKey = %q", cfg.Log.HashKey)
	}
	if cfg.Server.Env != "staging" {
		t.Errorf("file should override default: Env = %q", cfg.Server.Env)
	}
	if cfg.Firebase.ProjectID != "attendance-prod" {
		t.Errorf("ProjectID = %q", cfg.Firebase.ProjectID)
	}
	if cfg.Fast2SMS.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Fast2SMS.Timeout)
	}
	if cfg.Fast2SMS.SecretName != "FAST2SMS_KEY" {
		t.Errorf("default should survive partial file: SecretName = %q", cfg.Fast2SMS.SecretName)
	}
}

func TestLoadEnvHelpers(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_FIREBASE_EMULATOR", "true")
	t.Setenv("FAST2SMS_TIMEOUT", "250ms")
	t.Setenv("SERVICE_PORT", "8181")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Firebase.UseEmulator {
		t.Error("UseEmulator should be true")
	}
	if cfg.Fast2SMS.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Fast2SMS.Timeout)
	}
	if cfg.Server.Port != "8181" {
		t.Errorf("Port = %q, want SERVICE_PORT fallback", cfg.Server.Port)
	}

	t.Setenv("USE_FIREBASE_EMULATOR", "not-a-bool")
	cfg, _ = Load("")
	if cfg.Firebase.UseEmulator {
		t.Error("unparseable bool should keep the default")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"jwt without key", map[string]string{"AUTH_MODE": "jwt"}, "JWT_SIGNING_KEY"},
		{"unknown auth", map[string]string{"AUTH_MODE": "basic"}, "unknown auth mode"},
		{"secretmanager without project", map[string]string{"SECRET_SOURCE": "secretmanager"}, "FIREBASE_PROJECT_ID"},
		{"unknown secret source", map[string]string{"SECRET_SOURCE": "vault"}, "unknown secret source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
