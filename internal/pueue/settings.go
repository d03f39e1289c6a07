package pueue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
)

// SharedSettings is the part of the daemon config both the daemon and its
// clients read: where the daemon lives and how to reach it.
type SharedSettings struct {
	PueueDirectory   *string `yaml:"pueue_directory,omitempty"`
	RuntimeDirectory *string `yaml:"runtime_directory,omitempty"`
	UseUnixSocket    bool    `yaml:"use_unix_socket"`
	UnixSocketPath   *string `yaml:"unix_socket_path,omitempty"`
	Host             string  `yaml:"host"`
	Port             string  `yaml:"port"`
	SharedSecretPath *string `yaml:"shared_secret_path,omitempty"`
}

// DaemonSettings carries the daemon-side options the bridge exposes through
// the /config/callback endpoints.
type DaemonSettings struct {
	Callback         *string `yaml:"callback,omitempty"`
	CallbackLogLines int     `yaml:"callback_log_lines"`
}

// Settings mirrors the daemon's YAML configuration file. Unknown sections
// are preserved on save so the bridge never strips daemon options it does
// not understand.
type Settings struct {
	Shared SharedSettings `yaml:"shared"`
	Daemon DaemonSettings `yaml:"daemon"`
	Client map[string]any `yaml:"client,omitempty"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Shared: SharedSettings{
			UseUnixSocket: true,
			Host:          "127.0.0.1",
			Port:          "6924",
		},
		Daemon: DaemonSettings{CallbackLogLines: 10},
	}
}

// ConfigPathOverride returns the config file path from PUEUE_CONFIG, if set.
func ConfigPathOverride() *string {
	if path, ok := os.LookupEnv("PUEUE_CONFIG"); ok && path != "" {
		return &path
	}
	return nil
}

// defaultConfigPath is where the daemon itself writes its config.
func defaultConfigPath() string {
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && dir != "" {
		return filepath.Join(dir, "pueue", "pueue.yml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "pueue.yml")
	}
	return filepath.Join(home, ".config", "pueue", "pueue.yml")
}

// ReadSettings loads the daemon config file. pathOverride wins over the
// default location. found reports whether a file existed; when it did not,
// defaults are returned with a nil error so callers can decide whether a
// missing file is fatal.
func ReadSettings(pathOverride *string) (Settings, bool, error) {
	path := defaultConfigPath()
	if pathOverride != nil {
		path = *pathOverride
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), false, nil
	}
	if err != nil {
		return Settings{}, false, &domain.ConfigError{Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, false, &domain.ConfigError{Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return settings, true, nil
}

// SaveSettings writes the settings back to the config file, creating parent
// directories as needed.
func SaveSettings(settings Settings, pathOverride *string) error {
	path := defaultConfigPath()
	if pathOverride != nil {
		path = *pathOverride
	}

	raw, err := yaml.Marshal(settings)
	if err != nil {
		return &domain.ConfigError{Reason: fmt.Sprintf("encode settings: %v", err)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.ConfigError{Reason: fmt.Sprintf("mkdir %s: %v", filepath.Dir(path), err)}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &domain.ConfigError{Reason: fmt.Sprintf("write %s: %v", path, err)}
	}
	return nil
}

// ApplyEnvOverrides layers PUEUE_DIRECTORY, PUEUE_RUNTIME_DIRECTORY and
// PUEUE_SOCKET_PATH on top of the file-based settings.
func ApplyEnvOverrides(settings *Settings) {
	if dir, ok := os.LookupEnv("PUEUE_DIRECTORY"); ok && dir != "" {
		settings.Shared.PueueDirectory = &dir
	}
	if dir, ok := os.LookupEnv("PUEUE_RUNTIME_DIRECTORY"); ok && dir != "" {
		settings.Shared.RuntimeDirectory = &dir
	}
	if socket, ok := os.LookupEnv("PUEUE_SOCKET_PATH"); ok && socket != "" {
		settings.Shared.UseUnixSocket = true
		settings.Shared.UnixSocketPath = &socket
	}
}

// pueueDirectory resolves the daemon's data directory.
func (s SharedSettings) pueueDirectory() string {
	if s.PueueDirectory != nil {
		return *s.PueueDirectory
	}
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "pueue")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "pueue")
}

// runtimeDirectory resolves where the daemon keeps its socket.
func (s SharedSettings) runtimeDirectory() string {
	if s.RuntimeDirectory != nil {
		return *s.RuntimeDirectory
	}
	if dir, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && dir != "" {
		return dir
	}
	return s.pueueDirectory()
}

// SocketPath returns the unix socket the daemon listens on.
func (s SharedSettings) SocketPath() string {
	if s.UnixSocketPath != nil {
		return *s.UnixSocketPath
	}
	return filepath.Join(s.runtimeDirectory(), fmt.Sprintf("pueue_%s.socket", currentUser()))
}

// SharedSecretPathResolved returns the location of the shared secret file.
func (s SharedSettings) SharedSecretPathResolved() string {
	if s.SharedSecretPath != nil {
		return *s.SharedSecretPath
	}
	return filepath.Join(s.pueueDirectory(), "shared_secret")
}

// ReadSharedSecret loads the handshake secret the daemon generated.
func ReadSharedSecret(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("read shared secret %s: %v", path, err)}
	}
	return secret, nil
}

func currentUser() string {
	if user, ok := os.LookupEnv("USER"); ok && user != "" {
		return user
	}
	return "unknown"
}
