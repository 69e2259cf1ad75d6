package fields

import (
	"strings"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.Defaults()

	if cfg.Port != 8080 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.SessionLifetime != DefaultSessionLifetime {
		t.Errorf("session lifetime = %d, want %d", cfg.SessionLifetime, DefaultSessionLifetime)
	}
	if cfg.BaseDomain != "alumnihuddle.com" {
		t.Errorf("base domain = %q", cfg.BaseDomain)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing jwt key", Config{ProviderURL: "https://id.example.com"}, "configuration_error"},
		{"missing provider url", Config{JWTKey: "k"}, "configuration_error"},
		{"valid", Config{JWTKey: "k", ProviderURL: "https://id.example.com"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HUDDLE_JWT_KEY", "env-secret")
	t.Setenv("HUDDLE_PROVIDER_URL", "https://id.example.com")
	t.Setenv("HUDDLE_SESSION_LIFETIME", "7200")
	t.Setenv("HUDDLE_DEFAULT_TENANT", "engineering-huddle")

	cfg := ConfigFromEnv()
	if cfg.JWTKey != "env-secret" {
		t.Errorf("jwt key = %q", cfg.JWTKey)
	}
	if cfg.SessionLifetime != 7200 {
		t.Errorf("session lifetime = %d", cfg.SessionLifetime)
	}
	if cfg.DefaultTenantID != "engineering-huddle" {
		t.Errorf("default tenant = %q", cfg.DefaultTenantID)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}
