package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Learning.WeightThreshold != 0.7 {
		t.Errorf("Learning.WeightThreshold = %v, expected 0.7", cfg.Learning.WeightThreshold)
	}
	if cfg.Learning.SafetyWindow != 5 {
		t.Errorf("Learning.SafetyWindow = %d, expected 5", cfg.Learning.SafetyWindow)
	}
	if GlobalConfig != cfg {
		t.Error("GlobalConfig should point at the loaded config")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"9090\"\nlearning:\n  weight_threshold: 1.5\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "9090")
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, expected default", cfg.Server.Host)
	}
	if cfg.Learning.WeightThreshold != 1.5 {
		t.Errorf("Learning.WeightThreshold = %v, expected 1.5", cfg.Learning.WeightThreshold)
	}
	if cfg.Learning.ConfidenceSaturation != 10 {
		t.Errorf("Learning.ConfidenceSaturation = %d, expected 10", cfg.Learning.ConfidenceSaturation)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("LEARNING_FORCE_BASELINE", "true")
	t.Setenv("LEARNING_WEIGHT_THRESHOLD", "0.9")
	t.Setenv("REDIS_URL", "redis://:secret@cache:6380/2")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, expected postgres", cfg.Database.Driver)
	}
	if !cfg.Learning.ForceBaseline {
		t.Error("Learning.ForceBaseline should be true")
	}
	if cfg.Learning.WeightThreshold != 0.9 {
		t.Errorf("Learning.WeightThreshold = %v, expected 0.9", cfg.Learning.WeightThreshold)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis should be enabled by REDIS_URL")
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Errorf("Redis.Addr = %q, expected %q", cfg.Redis.Addr, "cache:6380")
	}
	if cfg.Redis.Password != "secret" {
		t.Errorf("Redis.Password = %q, expected %q", cfg.Redis.Password, "secret")
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("Redis.DB = %d, expected 2", cfg.Redis.DB)
	}
}

func TestLearningConfig_Normalize(t *testing.T) {
	l := LearningConfig{
		WeightThreshold: -1,
		SuccessRating:   9,
		SafetyWindow:    0,
		RecentPrompts:   3,
		DriftTolerance:  -2,
	}
	l.normalize()

	if l.DriftTolerance != 1 {
		t.Errorf("DriftTolerance = %d, expected 1", l.DriftTolerance)
	}

	if l.WeightThreshold != 0.7 {
		t.Errorf("WeightThreshold = %v, expected 0.7", l.WeightThreshold)
	}
	if l.SuccessRating != 4 {
		t.Errorf("SuccessRating = %d, expected 4", l.SuccessRating)
	}
	if l.SafetyWindow != 5 {
		t.Errorf("SafetyWindow = %d, expected 5", l.SafetyWindow)
	}
	if l.RecentPrompts != 3 {
		t.Errorf("RecentPrompts = %d, expected 3 (explicit values are kept)", l.RecentPrompts)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = "7000"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, expected %q", loaded.Server.Port, "7000")
	}
}

func TestLoad_NotifyChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`notify:
  channels:
    - name: ops
      type: slack
      webhook: https://hooks.slack.example/T000
    - name: oncall
      type: telegram
      webhook: https://api.telegram.example/bot1/sendMessage
      extra: "-1001"
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Notify.Channels) != 2 {
		t.Fatalf("len(Notify.Channels) = %d, expected 2", len(cfg.Notify.Channels))
	}
	if cfg.Notify.Channels[0].Type != "slack" || cfg.Notify.Channels[0].Webhook == "" {
		t.Errorf("Channels[0] = %+v", cfg.Notify.Channels[0])
	}
	if cfg.Notify.Channels[1].Extra != "-1001" {
		t.Errorf("Channels[1].Extra = %q, expected -1001", cfg.Notify.Channels[1].Extra)
	}
}
