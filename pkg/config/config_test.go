package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if c.Server.Port != 8080 || c.Service.CheckInterval != time.Minute {
		t.Errorf("unexpected server/service defaults: port=%d interval=%s", c.Server.Port, c.Service.CheckInterval)
	}
	if len(c.Service.Symbols) != 5 || c.Service.Symbols[4] != "MATICUSDT" {
		t.Errorf("symbols = %v", c.Service.Symbols)
	}
	if !c.Service.AutoStart || !c.Service.NotifyOnSignal {
		t.Errorf("auto_start and notify_on_signal should default to true")
	}
	if c.Service.MinVolumeUSD != 2_000_000 || c.Service.MinConfidence != 60 {
		t.Errorf("thresholds = %v / %v", c.Service.MinVolumeUSD, c.Service.MinConfidence)
	}
	if c.Fetcher.Source != SourceSynthetic || c.Kafka.RequiredAcks != -1 || c.Pipeline.BufferSize != 256 {
		t.Errorf("unexpected defaults %+v %+v", c.Fetcher, c.Pipeline)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeFile(t, "config.yaml", `
environment: production
service:
  auto_start: false
  symbols: [BTCUSDT]
  check_interval: 5s
fetcher:
  source: http
  base_url: http://market:3000
kafka:
  enabled: true
  brokers: [k1:9092, k2:9092]
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "production" || c.Service.AutoStart {
		t.Errorf("yaml values not applied: %+v", c.Service)
	}
	if c.Service.CheckInterval != 5*time.Second || len(c.Service.Symbols) != 1 {
		t.Errorf("service = %+v", c.Service)
	}
	// untouched keys keep their defaults
	if c.Service.MinConfidence != 60 || c.Kafka.SignalsTopic != "extremescan.signals" {
		t.Errorf("defaults lost: %+v", c.Kafka)
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", c.Kafka.Brokers)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"http without url":        {"fetcher:\n  source: http\n", "fetcher.base_url"},
		"clickhouse without host": {"fetcher:\n  source: clickhouse\n", "clickhouse.host"},
		"unknown source":          {"fetcher:\n  source: ftp\n", "fetcher.source"},
		"kafka without brokers":   {"kafka:\n  enabled: true\n", "kafka.brokers"},
		"short interval":          {"service:\n  check_interval: 500ms\n", "check_interval"},
		"confidence range":        {"service:\n  min_confidence: 120\n", "min_confidence"},
		"collector needs kafka":   {"logger:\n  collector:\n    enabled: true\n", "collector"},
	}
	for name, tc := range cases {
		_, err := Load(writeFile(t, "c.yaml", tc.body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want mention of %q", name, err, tc.want)
		}
	}
}

func TestLoadWithEnv(t *testing.T) {
	env := writeFile(t, ".env", "SYMBOLS=BTCUSDT, ETHUSDT\nLOG_LEVEL=debug\n")
	t.Cleanup(func() { _ = os.Unsetenv("SYMBOLS") })
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("HTTP_PORT", "9090")
	// godotenv does not override variables that are already set
	t.Setenv("LOG_LEVEL", "warn")

	c, err := LoadWithEnv("", env, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c.Service.Symbols; len(got) != 2 || got[1] != "ETHUSDT" {
		t.Errorf("symbols = %v", got)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Errorf("kafka = %+v", c.Kafka)
	}
	if c.Server.Port != 9090 || c.Logger.Level != "warn" {
		t.Errorf("port=%d level=%s", c.Server.Port, c.Logger.Level)
	}

	t.Setenv("HTTP_PORT", "nope")
	if _, err := LoadWithEnv("", env); err == nil {
		t.Fatalf("expected error for bad HTTP_PORT")
	}
}
