package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported relational storage drivers.
const (
	PostgresDriver = "postgres"
	SQLiteDriver   = "sqlite"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"DBAP_GIT_COMMIT"`
	GitTag                  string         `yaml:"git_tag" envconfig:"DBAP_GIT_TAG"`
	BuildTime               string         `yaml:"build_time" envconfig:"DBAP_BUILD_TIME"`
	IsProduction            bool           `yaml:"is_production" envconfig:"DBAP_IS_PRODUCTION"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"DBAP_LOG_LEVEL"`
	LogFolder               string         `yaml:"log_folder" envconfig:"DBAP_LOG_FOLDER"`
	LogMaxSize              int            `yaml:"log_max_size" envconfig:"DBAP_LOG_MAX_SIZE"` // in megabytes
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"DBAP_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"DBAP_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig   `yaml:"server"`
	Storage                 StorageConfig  `yaml:"storage"`
	Postgres                PostgresConfig `yaml:"postgres"`
	SQLite                  SQLiteConfig   `yaml:"sqlite"`
	Mirror                  MirrorConfig   `yaml:"mirror"`
	Redis                   RedisConfig    `yaml:"redis"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"DBAP_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"DBAP_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"DBAP_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"DBAP_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"DBAP_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"DBAP_SERVER_SHUTDOWN_TIMEOUT"`
}

type StorageConfig struct {
	Driver       string        `yaml:"driver" envconfig:"DBAP_STORAGE_DRIVER"`
	QueryTimeout time.Duration `yaml:"query_timeout" envconfig:"DBAP_STORAGE_QUERY_TIMEOUT"`
	Migrate      bool          `yaml:"migrate" envconfig:"DBAP_STORAGE_MIGRATE"`
}

type PostgresConfig struct {
	DSN         string        `yaml:"dsn" json:"-" envconfig:"DBAP_POSTGRES_DSN"`
	MaxConns    int32         `yaml:"max_conns" envconfig:"DBAP_POSTGRES_MAX_CONNS"`
	PingTimeout time.Duration `yaml:"ping_timeout" envconfig:"DBAP_POSTGRES_PING_TIMEOUT"`
}

type SQLiteConfig struct {
	FilePath string `yaml:"filepath" envconfig:"DBAP_SQLITE_FILE_PATH"`
}

type MirrorConfig struct {
	Enable bool `yaml:"enable" envconfig:"DBAP_MIRROR_ENABLE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"DBAP_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"DBAP_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"DBAP_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"DBAP_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"DBAP_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"DBAP_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"DBAP_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"DBAP_REDIS_USERNAME"`
	Password      string        `yaml:"password" json:"-" envconfig:"DBAP_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"DBAP_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"DBAP_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"DBAP_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"DBAP_BOLTDB_BUCKET_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	setDefaultDuration(&config.Server.ReadTimeout, 10*time.Second)
	setDefaultDuration(&config.Server.WriteTimeout, 15*time.Second)
	setDefaultDuration(&config.Server.RequestTimeout, 10*time.Second)
	setDefaultDuration(&config.Server.ShutdownTimeout, 30*time.Second)
	setDefaultDuration(&config.Storage.QueryTimeout, 5*time.Second)

	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}
	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if config.Storage.Driver == "" {
		config.Storage.Driver = SQLiteDriver
	}

	switch config.Storage.Driver {
	case PostgresDriver:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set a postgres dsn when using the postgres storage driver")
		}
		setDefaultDuration(&config.Postgres.PingTimeout, 2*time.Second)
	case SQLiteDriver:
		if len(config.SQLite.FilePath) == 0 {
			config.SQLite.FilePath = "./data/books.sqlite"
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.Mirror.Enable {
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port when the mirror is enabled")
		}
		if len(config.BoltDB.FilePath) == 0 {
			config.BoltDB.FilePath = "./data/books.mirror.db"
		}
		if len(config.BoltDB.BucketName) == 0 {
			config.BoltDB.BucketName = "books"
		}
		setDefaultDuration(&config.BoltDB.Timeout, 5*time.Second)
	}

	return nil
}

func setDefaultDuration(d *time.Duration, value time.Duration) {
	if *d <= 0 {
		*d = value
	}
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration. Existing variables are not overridden.
	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `DBAP`.
	err = LoadConfigEnvs("DBAP", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
