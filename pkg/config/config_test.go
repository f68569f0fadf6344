package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
monitor:
  symbols: [AAPL, MSFT]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("environment = %q, want dev", cfg.Environment)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Monitor.Interval != 5*time.Minute {
		t.Errorf("monitor.interval = %s, want 5m", cfg.Monitor.Interval)
	}
	if cfg.Monitor.Window != 30 {
		t.Errorf("monitor.window = %d, want 30", cfg.Monitor.Window)
	}
	if cfg.Anomaly.TriggerThreshold != 5 {
		t.Errorf("anomaly.trigger_threshold = %v, want 5", cfg.Anomaly.TriggerThreshold)
	}
	if cfg.Anomaly.FactorCaps.Price != 2 || cfg.Anomaly.FactorCaps.RSI != 1 {
		t.Errorf("factor caps = %+v, want price 2 rsi 1", cfg.Anomaly.FactorCaps)
	}
	if cfg.Investigation.MaxRetries != 3 {
		t.Errorf("investigation.max_retries = %d, want 3", cfg.Investigation.MaxRetries)
	}
	if cfg.Investigation.AcceptConfidence != 0.70 || cfg.Investigation.PartialFloor != 0.40 {
		t.Errorf("thresholds = %v/%v, want 0.70/0.40",
			cfg.Investigation.AcceptConfidence, cfg.Investigation.PartialFloor)
	}
	sum := cfg.Aggregation.CredibilityWeight + cfg.Aggregation.RelevanceWeight + cfg.Aggregation.SpecificityWeight
	if sum != 1.0 {
		t.Errorf("default aggregation weights sum to %v, want 1", sum)
	}
	if cfg.Search.BaseURL != "https://api.tavily.com" {
		t.Errorf("search.base_url = %q", cfg.Search.BaseURL)
	}
	if cfg.Kafka.SignalTopic != "sleuth.signals" || cfg.Kafka.VerdictTopic != "sleuth.verdicts" {
		t.Errorf("kafka topics = %q/%q", cfg.Kafka.SignalTopic, cfg.Kafka.VerdictTopic)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
environment: prod
monitor:
  symbols: [TSLA]
  interval: 1m
investigation:
  max_retries: 1
credibility_tiers:
  - { pattern: "sec.gov", tier: 1, score: 1.0 }
  - { pattern: "reddit.com", tier: 5, score: 0.35 }
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "prod" {
		t.Errorf("environment = %q, want prod", cfg.Environment)
	}
	if cfg.Monitor.Interval != time.Minute {
		t.Errorf("interval = %s, want 1m", cfg.Monitor.Interval)
	}
	if cfg.Investigation.MaxRetries != 1 {
		t.Errorf("max_retries = %d, want 1", cfg.Investigation.MaxRetries)
	}
	if len(cfg.CredibilityTiers) != 2 || cfg.CredibilityTiers[0].Pattern != "sec.gov" {
		t.Errorf("credibility_tiers = %+v", cfg.CredibilityTiers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no symbols",
			yaml: `environment: dev`,
			want: "symbols",
		},
		{
			name: "partial floor above accept",
			yaml: minimalConfig + `
investigation:
  accept_confidence: 0.5
  partial_floor: 0.9
`,
			want: "partial_floor",
		},
		{
			name: "kafka enabled without brokers",
			yaml: minimalConfig + `
kafka:
  enabled: true
`,
			want: "brokers",
		},
		{
			name: "stream enabled without url",
			yaml: minimalConfig + `
stream:
  enabled: true
`,
			want: "websocket_url",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "GOOG,META")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Monitor.Symbols) != 2 || cfg.Monitor.Symbols[0] != "GOOG" {
		t.Errorf("symbols = %v, want [GOOG META]", cfg.Monitor.Symbols)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("llm.api_key = %q", cfg.LLM.APIKey)
	}
	if cfg.Search.APIKey != "tvly-test" {
		t.Errorf("search.api_key = %q", cfg.Search.APIKey)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("kafka = enabled=%v brokers=%v", cfg.Kafka.Enabled, cfg.Kafka.Brokers)
	}
}
