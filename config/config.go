package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "linguachat"
	// DefaultBackendBaseURL is the REST endpoint used when no override exists.
	DefaultBackendBaseURL = "https://api.linguachat.app"
	// DefaultBackendWSURL is the live-feed endpoint used when no override exists.
	DefaultBackendWSURL = "wss://api.linguachat.app"
	// DefaultTargetLanguage is the translation target used before the user picks one.
	DefaultTargetLanguage = "en"
	// configFileName is the persisted configuration file.
	configFileName = "config.json"
)

// ClientConfig contains persistent local-client settings.
type ClientConfig struct {
	DeviceID       string `json:"device_id"`
	AccountEmail   string `json:"account_email"`
	BackendBaseURL string `json:"backend_base_url"`
	BackendWSURL   string `json:"backend_ws_url"`
	TargetLanguage string `json:"target_language"`
	DownloadDir    string `json:"download_dir"`
}

// ResolveDataDir returns the OS-aware app data directory.
//
// If LINGUACHAT_DATA_DIR is set, its value is used as an explicit override.
func ResolveDataDir() (string, error) {
	if override := os.Getenv("LINGUACHAT_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// ConfigPath returns the full path to config.json for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// EnsureDataDirectories creates the app data directory layout if needed.
func EnsureDataDirectories(dataDir string) error {
	dirs := []string{
		dataDir,
		filepath.Join(dataDir, "downloads"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	return nil
}

// Load reads and unmarshals config.json from disk.
func Load(path string) (*ClientConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Save marshals and writes config.json to disk.
func Save(path string, cfg *ClientConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LoadOrCreate ensures directories and config exist, then returns both.
//
// A .env file in the working directory is honored before environment
// variables are read, so LINGUACHAT_* overrides can live next to the binary.
func LoadOrCreate() (*ClientConfig, string, error) {
	_ = godotenv.Load()

	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, "", err
	}
	if err := EnsureDataDirectories(dataDir); err != nil {
		return nil, "", err
	}

	cfgPath := ConfigPath(dataDir)
	cfg, err := Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}

		cfg = defaultConfig(dataDir)
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}
		applyEnvOverrides(cfg)

		return cfg, cfgPath, nil
	}

	if normalizeDefaults(cfg, dataDir) {
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}
	}
	applyEnvOverrides(cfg)

	return cfg, cfgPath, nil
}

func defaultConfig(dataDir string) *ClientConfig {
	return &ClientConfig{
		DeviceID:       uuid.NewString(),
		BackendBaseURL: DefaultBackendBaseURL,
		BackendWSURL:   DefaultBackendWSURL,
		TargetLanguage: DefaultTargetLanguage,
		DownloadDir:    filepath.Join(dataDir, "downloads"),
	}
}

func normalizeDefaults(cfg *ClientConfig, dataDir string) bool {
	updated := false

	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
		updated = true
	}

	if cfg.BackendBaseURL == "" {
		cfg.BackendBaseURL = DefaultBackendBaseURL
		updated = true
	}

	if cfg.BackendWSURL == "" {
		cfg.BackendWSURL = DefaultBackendWSURL
		updated = true
	}

	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = DefaultTargetLanguage
		updated = true
	}

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(dataDir, "downloads")
		updated = true
	}

	return updated
}

// applyEnvOverrides layers process environment on top of the persisted file.
// Overrides are never written back to config.json.
func applyEnvOverrides(cfg *ClientConfig) {
	if v := os.Getenv("LINGUACHAT_BACKEND_URL"); v != "" {
		cfg.BackendBaseURL = v
	}
	if v := os.Getenv("LINGUACHAT_WS_URL"); v != "" {
		cfg.BackendWSURL = v
	}
	if v := os.Getenv("LINGUACHAT_ACCOUNT_EMAIL"); v != "" {
		cfg.AccountEmail = v
	}
}
