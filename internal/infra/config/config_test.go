package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Env != "dev" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.OutboxPollInterval != 500*time.Millisecond {
		t.Fatalf("poll interval = %v", cfg.OutboxPollInterval)
	}
	if len(cfg.RetryBackoff) != 3 || cfg.RetryBackoff[0] != time.Second {
		t.Fatalf("backoff = %v", cfg.RetryBackoff)
	}
	if cfg.CancelPending {
		t.Fatal("CancelPending defaults on")
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("brokers = %v, want none", cfg.KafkaBrokers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2s")
	t.Setenv("RETRY_BACKOFF", "100ms,1s")
	t.Setenv("CANCEL_PENDING", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.OutboxPollInterval != 2*time.Second {
		t.Fatalf("poll interval = %v", cfg.OutboxPollInterval)
	}
	if len(cfg.RetryBackoff) != 2 || cfg.RetryBackoff[0] != 100*time.Millisecond {
		t.Fatalf("backoff = %v", cfg.RetryBackoff)
	}
	if !cfg.CancelPending {
		t.Fatal("CancelPending not parsed")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
	t.Setenv("OUTBOX_POLL_INTERVAL", "")
	t.Setenv("CANCEL_PENDING", "maybe")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}
