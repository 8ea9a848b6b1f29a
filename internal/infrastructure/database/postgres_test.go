package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  postgres://u:p@h:5432/db  ", "postgres://u:p@h:5432/db"},
		{"postgresql+asyncpg://u:p@h/db", "postgresql://u:p@h/db"},
		{"postgres+asyncpg://u:p@h/db", "postgres://u:p@h/db"},
		{"postgresql+pgx://u:p@h/db", "postgresql://u:p@h/db"},
		{"mysql://u:p@h/db", "mysql://u:p@h/db"},
	}
	for _, tt := range tests {
		if got := normalizeDSN(tt.in); got != tt.want {
			t.Errorf("normalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithMaxConns(t *testing.T) {
	cfg := &pgxpool.Config{MaxConns: 4}
	WithMaxConns(0)(cfg)
	if cfg.MaxConns != 4 {
		t.Fatalf("zero should keep the existing value, got %d", cfg.MaxConns)
	}
	WithMaxConns(16)(cfg)
	if cfg.MaxConns != 16 {
		t.Fatalf("MaxConns = %d, want 16", cfg.MaxConns)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &pgxpool.Config{}
	applyDefaults(cfg)
	WithMaxConns(20)(cfg)
	if cfg.MaxConns != 20 {
		t.Fatalf("options must run after defaults, MaxConns = %d", cfg.MaxConns)
	}
	if cfg.MaxConnIdleTime == 0 || cfg.MaxConnLifetime == 0 || cfg.HealthCheckPeriod == 0 {
		t.Fatalf("expected pool timings to be set: %+v", cfg)
	}
}
