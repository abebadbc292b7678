// Package config resolves storage locations and loads the optional YAML
// configuration file for geocap.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appName = "geocap"

	// DefaultLocationTimeout bounds how long a capture waits for a fix.
	DefaultLocationTimeout = 8 * time.Second
)

// GetDataDir resolves the base directory for all geocap storage. GEOCAP_DIR
// wins, then the XDG data home, then ~/.local/share.
func GetDataDir() string {
	if explicit := os.Getenv("GEOCAP_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, appName)
}

// GetDBPath returns the absolute path to the SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "geocap.db")
}

// GetMediaDir returns the directory that stores captured images.
func GetMediaDir() string {
	return filepath.Join(GetDataDir(), "media")
}

// GetConfigPath returns the location of the YAML config file. GEOCAP_CONFIG
// overrides the XDG config home.
func GetConfigPath() string {
	if explicit := os.Getenv("GEOCAP_CONFIG"); explicit != "" {
		return explicit
	}
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Config is the file-backed configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Media    MediaConfig    `yaml:"media"`
	Location LocationConfig `yaml:"location"`
	Camera   CameraConfig   `yaml:"camera"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MediaConfig holds the image storage location
type MediaConfig struct {
	Dir string `yaml:"dir"`
}

// LocationConfig controls how fixes are acquired during a capture.
type LocationConfig struct {
	Timeout           time.Duration `yaml:"-"`
	TimeoutRaw        string        `yaml:"timeout"`
	LastKnownFallback bool          `yaml:"last_known_fallback"`
	// NMEADevice is a serial GPS device or NMEA log file.
	NMEADevice string `yaml:"nmea_device"`
	// NMEABaud is the serial line speed; zero uses the receiver default.
	NMEABaud int `yaml:"nmea_baud"`
}

// CameraConfig describes the still-capture command. "{dest}" in Args is
// replaced by the destination path.
type CameraConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: GetDBPath()},
		Media:    MediaConfig{Dir: GetMediaDir()},
		Location: LocationConfig{Timeout: DefaultLocationTimeout},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) parseDurations() error {
	if c.Location.TimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(c.Location.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing location.timeout: %w", err)
	}
	c.Location.Timeout = d
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = GetDBPath()
	}
	if c.Media.Dir == "" {
		c.Media.Dir = GetMediaDir()
	}
	if c.Location.Timeout == 0 {
		c.Location.Timeout = DefaultLocationTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration for values the capture cycle cannot use.
func (c *Config) Validate() error {
	if c.Location.Timeout < 0 {
		return errors.New("location.timeout must not be negative")
	}
	if c.Location.NMEABaud < 0 {
		return fmt.Errorf("location.nmea_baud must not be negative: %d", c.Location.NMEABaud)
	}
	if c.Location.Timeout > 2*time.Minute {
		return fmt.Errorf("location.timeout %s is too long (max 2m)", c.Location.Timeout)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (valid values: text, json)", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	if c.Camera.Command == "" && len(c.Camera.Args) > 0 {
		return errors.New("camera.args requires camera.command")
	}
	return nil
}

// EncodeDirName sanitizes a free-form name so it can be used as a directory name.
func EncodeDirName(name string) string {
	replacer := strings.NewReplacer("/", "-", ".", "-", "_", "-", " ", "-")
	return replacer.Replace(name)
}
