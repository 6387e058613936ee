package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongodb"
)

// Environment overrides.
const (
	EnvServerPort  = "SERVER_PORT"
	EnvMongoURI    = "DB_CONN_URL"
	EnvRecordPath  = "FMCSA_RECORD_PATH"
	EnvBackend     = "FMCSA_BACKEND"
	EnvPostgresDSN = "FMCSA_POSTGRES_DSN"
)

type Config struct {
	StorageDir string        `toml:"storage_dir"`
	Server     ServerConfig  `toml:"server"`
	Storage    StorageConfig `toml:"storage"`
	Query      QueryConfig   `toml:"query"`
	Seed       SeedConfig    `toml:"seed"`
}

type ServerConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port" validate:"gte=0,lte=65535"`
	CORSOrigins       []string `toml:"cors_origins"`
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout"`
}

type StorageConfig struct {
	Backend         string   `toml:"backend" validate:"oneof=sqlite postgres mongodb"`
	SQLitePath      string   `toml:"sqlite_path"`
	PostgresDSN     string   `toml:"postgres_dsn" validate:"required_if=Backend postgres"`
	MongoURI        string   `toml:"mongo_uri" validate:"required_if=Backend mongodb"`
	MongoDatabase   string   `toml:"mongo_database" validate:"required_if=Backend mongodb"`
	MongoCollection string   `toml:"mongo_collection" validate:"required_if=Backend mongodb"`
	QueryTimeout    Duration `toml:"query_timeout"`
}

type QueryConfig struct {
	DefaultLimit int `toml:"default_limit" validate:"gte=1"`
	MaxLimit     int `toml:"max_limit" validate:"gte=0"`
}

type SeedConfig struct {
	Path  string `toml:"path"`
	Sheet string `toml:"sheet"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetDefaultConfig returns the configuration used when no file exists.
func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfig reads configPath, falling back to defaults when the file does
// not exist, then applies environment overrides and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	if cfg.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		cfg.StorageDir = storageDir
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.ReadHeaderTimeout.Duration == 0 {
		c.Server.ReadHeaderTimeout = Duration{10 * time.Second}
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout = Duration{15 * time.Second}
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSQLite
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.StorageDir, "fmcsa.db")
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "fmcsa"
	}
	if c.Storage.MongoCollection == "" {
		c.Storage.MongoCollection = "records"
	}
	if c.Storage.QueryTimeout.Duration == 0 {
		c.Storage.QueryTimeout = Duration{30 * time.Second}
	}

	if c.Query.DefaultLimit == 0 {
		c.Query.DefaultLimit = 20
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvServerPort, v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Storage.MongoURI = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(EnvRecordPath); v != "" {
		c.Seed.Path = v
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return fmt.Errorf("getting default storage directory: %w", err)
		}
	}
	template := strings.Replace(configTemplate, "/home/user/.local/share/fmcsa", storageDir, 1)
	return os.WriteFile(configPath, []byte(template), 0644)
}

// GetDefaultStorageDir returns $XDG_DATA_HOME/fmcsa, creating it if needed.
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "fmcsa")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/fmcsa, creating it if needed.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "fmcsa")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
