package config

import (
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STORAGE_DRIVER": "memory",
		"JWT_SECRET":     "s3cret",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.JWTTTL != 24*time.Hour || cfg.CheckoutStoreTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TxMaxRetries != 3 || !cfg.TaxRate.IsZero() {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres needs url", map[string]string{"JWT_SECRET": "x"}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo", "JWT_SECRET": "x"}, "STORAGE_DRIVER"},
		{"missing secret", map[string]string{"STORAGE_DRIVER": "memory"}, "JWT_SECRET"},
		{"bad duration", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": "x", "DB_LOCK_TIMEOUT": "soon"}, "DB_LOCK_TIMEOUT"},
		{"bad tax", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": "x", "TAX_RATE": "ten"}, "TAX_RATE"},
		{"negative tax", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": "x", "TAX_RATE": "-0.1"}, "TAX_RATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
