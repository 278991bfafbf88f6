package config_test

import (
	"testing"
	"time"

	"github.com/johnayoung/cowsolver/internal/config"
)

func TestDefaultHasSaneFallbacks(t *testing.T) {
	cfg := config.Default()
	if cfg.Deadline != 10*time.Second {
		t.Fatalf("expected default deadline 10s, got %v", cfg.Deadline)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr :8080, got %q", cfg.ListenAddr)
	}
	if len(cfg.Intermediaries) != 0 {
		t.Fatalf("expected no default intermediaries, got %d", len(cfg.Intermediaries))
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("ETHEREUM_RPC_URL", "https://example.invalid/rpc")
	t.Setenv("SOLVER_ADDRESS", "0x00000000000000000000000000000000000099")
	t.Setenv("SOLVER_DEADLINE_MS", "5000")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("INTERMEDIARY_TOKENS", "0x0000000000000000000000000000000000000001, 0x0000000000000000000000000000000000000002")

	cfg := config.LoadFromEnv("/nonexistent/.env")

	if cfg.EthereumRPCURL != "https://example.invalid/rpc" {
		t.Fatalf("expected RPC URL override, got %q", cfg.EthereumRPCURL)
	}
	if cfg.Deadline != 5*time.Second {
		t.Fatalf("expected 5s deadline override, got %v", cfg.Deadline)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("expected listen addr override, got %q", cfg.ListenAddr)
	}
	if len(cfg.Intermediaries) != 2 {
		t.Fatalf("expected 2 intermediaries, got %d", len(cfg.Intermediaries))
	}
}

func TestLoadFromEnvIgnoresMalformedDeadline(t *testing.T) {
	t.Setenv("SOLVER_DEADLINE_MS", "not-a-number")
	cfg := config.LoadFromEnv("/nonexistent/.env")
	if cfg.Deadline != 10*time.Second {
		t.Fatalf("expected default deadline preserved on malformed override, got %v", cfg.Deadline)
	}
}
