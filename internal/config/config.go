package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const devConnectionString = "file:./local.db?cache=shared&mode=rwc"

type Config struct {
	DB      DBConfig      `toml:"database"`
	Timer   TimerConfig   `toml:"timer"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

type DBConfig struct {
	ConnectionString string `toml:"connection_string"` // The entire DB connection string.
}

type TimerConfig struct {
	TickIntervalMS   int  `toml:"tick_interval_ms"`
	CountdownSeconds int  `toml:"countdown_seconds"`
	Audio            bool `toml:"audio"`
}

// TickInterval is the engine tick period.
func (t TimerConfig) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalMS) * time.Millisecond
}

type LogConfig struct {
	File   string `toml:"file"`
	Level  string `toml:"level"`
	JSON   bool   `toml:"json"`
	Stdout bool   `toml:"stdout"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"` // Empty disables the /metrics endpoint.
}

// Returns the directory holding the config file, the local database and logs.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lazaro"), nil
}

// Returns the path to the config file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the configuration used for anything the file leaves out.
func Default() *Config {
	conn := "file:./lazaro.db?cache=shared&mode=rwc"
	logFile := ""
	if dir, err := GetConfigDir(); err == nil {
		conn = "file:" + filepath.Join(dir, "lazaro.db") + "?cache=shared&mode=rwc"
		logFile = filepath.Join(dir, "lazaro.log")
	}

	return &Config{
		DB: DBConfig{ConnectionString: conn},
		Timer: TimerConfig{
			TickIntervalMS:   250,
			CountdownSeconds: 5,
			Audio:            true,
		},
		Log: LogConfig{
			File:  logFile,
			Level: "info",
		},
	}
}

// Reads the configuration from the default config file.
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error. Variables from envFiles (".env" when none are given) and
// the environment override the file.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Failed to read config %s: %w", path, err)
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Failed to load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if url := os.Getenv("TURSO_DATABASE_URL"); url != "" {
		c.DB.ConnectionString = url
		if token := os.Getenv("TURSO_AUTH_TOKEN"); token != "" && !strings.Contains(url, "authToken=") {
			sep := "?"
			if strings.Contains(url, "?") {
				sep = "&"
			}
			c.DB.ConnectionString = url + sep + "authToken=" + token
		}
	}

	// Check for a DEV_MODE environment variable.
	if os.Getenv("DEV_MODE") == "true" {
		c.DB.ConnectionString = devConnectionString
	}

	if level := os.Getenv("LAZARO_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate rejects values the timer cannot run with.
func (c *Config) Validate() error {
	if c.DB.ConnectionString == "" {
		return errors.New("database connection_string is empty")
	}
	if c.Timer.TickIntervalMS <= 0 || c.Timer.TickIntervalMS > 1000 {
		return fmt.Errorf("timer tick_interval_ms must be between 1 and 1000, got %d", c.Timer.TickIntervalMS)
	}
	if c.Timer.CountdownSeconds < 1 {
		return fmt.Errorf("timer countdown_seconds must be at least 1, got %d", c.Timer.CountdownSeconds)
	}
	return nil
}

// Write saves the configuration as TOML, creating the parent directory.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("Failed to create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("Failed to write config: %w", err)
	}
	return nil
}
