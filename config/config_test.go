package config

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreateCreatesAndReloadsConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("LINGUACHAT_DATA_DIR", tempDir)
	t.Setenv("LINGUACHAT_BACKEND_URL", "")
	t.Setenv("LINGUACHAT_WS_URL", "")

	firstCfg, firstPath, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("first LoadOrCreate failed: %v", err)
	}
	if firstCfg.DeviceID == "" {
		t.Fatalf("expected non-empty device ID")
	}
	if firstCfg.BackendBaseURL != DefaultBackendBaseURL {
		t.Fatalf("expected default backend URL %q, got %q", DefaultBackendBaseURL, firstCfg.BackendBaseURL)
	}
	if firstCfg.TargetLanguage != DefaultTargetLanguage {
		t.Fatalf("expected default target language %q, got %q", DefaultTargetLanguage, firstCfg.TargetLanguage)
	}

	expectedConfigPath := filepath.Join(tempDir, "config.json")
	if firstPath != expectedConfigPath {
		t.Fatalf("expected config path %q, got %q", expectedConfigPath, firstPath)
	}

	secondCfg, secondPath, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}

	if secondPath != firstPath {
		t.Fatalf("expected config path to be stable, got %q then %q", firstPath, secondPath)
	}
	if secondCfg.DeviceID != firstCfg.DeviceID {
		t.Fatalf("expected stable device ID, got %q then %q", firstCfg.DeviceID, secondCfg.DeviceID)
	}
	if secondCfg.DownloadDir != firstCfg.DownloadDir {
		t.Fatalf("expected stable download dir, got %q then %q", firstCfg.DownloadDir, secondCfg.DownloadDir)
	}
}

func TestLoadOrCreateNormalizesMissingFields(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("LINGUACHAT_DATA_DIR", tempDir)
	t.Setenv("LINGUACHAT_BACKEND_URL", "")
	t.Setenv("LINGUACHAT_WS_URL", "")

	if err := EnsureDataDirectories(tempDir); err != nil {
		t.Fatalf("EnsureDataDirectories failed: %v", err)
	}

	legacy := &ClientConfig{
		DeviceID:     "legacy-device",
		AccountEmail: "user@example.com",
	}
	cfgPath := ConfigPath(tempDir)
	if err := Save(cfgPath, legacy); err != nil {
		t.Fatalf("Save legacy config failed: %v", err)
	}

	cfg, _, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if cfg.DeviceID != "legacy-device" {
		t.Fatalf("expected legacy device ID preserved, got %q", cfg.DeviceID)
	}
	if cfg.AccountEmail != "user@example.com" {
		t.Fatalf("expected legacy account email preserved, got %q", cfg.AccountEmail)
	}
	if cfg.BackendBaseURL != DefaultBackendBaseURL {
		t.Fatalf("expected normalized backend URL, got %q", cfg.BackendBaseURL)
	}
	if cfg.BackendWSURL != DefaultBackendWSURL {
		t.Fatalf("expected normalized websocket URL, got %q", cfg.BackendWSURL)
	}
	if cfg.TargetLanguage != DefaultTargetLanguage {
		t.Fatalf("expected normalized target language, got %q", cfg.TargetLanguage)
	}

	// Normalization must have been written back.
	reloaded, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load after normalization failed: %v", err)
	}
	if reloaded.BackendBaseURL != DefaultBackendBaseURL {
		t.Fatalf("expected persisted backend URL, got %q", reloaded.BackendBaseURL)
	}
}

func TestLoadOrCreateEnvOverridesAreNotPersisted(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("LINGUACHAT_DATA_DIR", tempDir)
	t.Setenv("LINGUACHAT_BACKEND_URL", "https://staging.example.com")
	t.Setenv("LINGUACHAT_WS_URL", "wss://staging.example.com")

	cfg, cfgPath, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if cfg.BackendBaseURL != "https://staging.example.com" {
		t.Fatalf("expected env backend URL override, got %q", cfg.BackendBaseURL)
	}
	if cfg.BackendWSURL != "wss://staging.example.com" {
		t.Fatalf("expected env websocket URL override, got %q", cfg.BackendWSURL)
	}

	onDisk, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if onDisk.BackendBaseURL == "https://staging.example.com" && onDisk.BackendBaseURL != DefaultBackendBaseURL {
		t.Fatalf("env override leaked into persisted config: %q", onDisk.BackendBaseURL)
	}
}
