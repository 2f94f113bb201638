package cfg

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"ml-api/internal/common"
)

type Settings struct {
	Port             int
	IrisModelPath    string
	IrisEncoderPath  string
	LoanModelPath    string
	LoanEncodersPath string
	ModelsDir        string
	DataPath         string
	AuditEnabled     bool
	LogLevel         string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxBatchSize     int
}

type ConfigFile struct {
	Server struct {
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
		IdleTimeout  string `yaml:"idleTimeout"`
		MaxBatchSize int    `yaml:"maxBatchSize"`
	} `yaml:"server"`

	Models struct {
		Dir          string `yaml:"dir"`
		IrisModel    string `yaml:"irisModel"`
		IrisEncoder  string `yaml:"irisEncoder"`
		LoanModel    string `yaml:"loanModel"`
		LoanEncoders string `yaml:"loanEncoders"`
	} `yaml:"models"`

	Audit struct {
		Enabled  bool   `yaml:"enabled"`
		DataPath string `yaml:"dataPath"`
	} `yaml:"audit"`

	System struct {
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads a .env file if one is present, then builds Settings from the
// YAML file named by CONFIG_FILE or, when unset, from the environment.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		Port:             getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		IrisModelPath:    getEnvOrDefault(common.EnvIrisModelPath, orDefault(config.Models.IrisModel, common.DefaultIrisModelPath)),
		IrisEncoderPath:  getEnvOrDefault(common.EnvIrisEncoderPath, orDefault(config.Models.IrisEncoder, common.DefaultIrisEncoderPath)),
		LoanModelPath:    getEnvOrDefault(common.EnvLoanModelPath, orDefault(config.Models.LoanModel, common.DefaultLoanModelPath)),
		LoanEncodersPath: getEnvOrDefault(common.EnvLoanEncodersPath, orDefault(config.Models.LoanEncoders, common.DefaultLoanEncodersPath)),
		ModelsDir:        getEnvOrDefault(common.EnvModelsDir, orDefault(config.Models.Dir, common.DefaultModelsDir)),
		DataPath:         getEnvOrDefault(common.EnvDataPath, config.Audit.DataPath),
		AuditEnabled:     getBoolFromEnvOrConfig(common.EnvAuditEnabled, config.Audit.Enabled),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		ReadTimeout:      getDurationFromEnvOrConfig(common.EnvReadTimeout, config.Server.ReadTimeout, 10*time.Second),
		WriteTimeout:     getDurationFromEnvOrConfig(common.EnvWriteTimeout, config.Server.WriteTimeout, 10*time.Second),
		IdleTimeout:      getDurationFromEnvOrConfig(common.EnvIdleTimeout, config.Server.IdleTimeout, 120*time.Second),
		MaxBatchSize:     getIntFromEnvOrConfig(common.EnvMaxBatchSize, config.Server.MaxBatchSize, common.DefaultMaxBatchSize),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:             getIntOrDefault(common.EnvPort, common.DefaultPort),
		IrisModelPath:    getEnvOrDefault(common.EnvIrisModelPath, common.DefaultIrisModelPath),
		IrisEncoderPath:  getEnvOrDefault(common.EnvIrisEncoderPath, common.DefaultIrisEncoderPath),
		LoanModelPath:    getEnvOrDefault(common.EnvLoanModelPath, common.DefaultLoanModelPath),
		LoanEncodersPath: getEnvOrDefault(common.EnvLoanEncodersPath, common.DefaultLoanEncodersPath),
		ModelsDir:        getEnvOrDefault(common.EnvModelsDir, common.DefaultModelsDir),
		DataPath:         os.Getenv(common.EnvDataPath), // optional
		AuditEnabled:     getBoolOrDefault(common.EnvAuditEnabled, false),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		ReadTimeout:      getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:     getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
		IdleTimeout:      getDurationOrDefault(common.EnvIdleTimeout, 120*time.Second),
		MaxBatchSize:     getIntOrDefault(common.EnvMaxBatchSize, common.DefaultMaxBatchSize),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Addr returns the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Level parses LogLevel; validateSettings guarantees it parses.
func (s *Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if d, err := time.ParseDuration(configValue); err == nil {
		return d
	}
	return defaultValue
}

// validateSettings performs range validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	// Validate artifact paths
	if settings.IrisModelPath == "" || settings.IrisEncoderPath == "" {
		return fmt.Errorf("iris model and encoder paths are required")
	}
	if settings.LoanModelPath == "" || settings.LoanEncodersPath == "" {
		return fmt.Errorf("loan model and encoders paths are required")
	}
	if settings.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}
	if settings.AuditEnabled && settings.DataPath == "" {
		return fmt.Errorf("audit requires DATA_PATH to be set")
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	// Validate time durations
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}
	if settings.IdleTimeout < time.Second || settings.IdleTimeout > time.Hour {
		return fmt.Errorf("idle timeout must be between 1s and 1h, got %v", settings.IdleTimeout)
	}

	if settings.MaxBatchSize <= 0 || settings.MaxBatchSize > common.MaxBatchSizeCap {
		return fmt.Errorf("max batch size must be between 1 and %d, got %d", common.MaxBatchSizeCap, settings.MaxBatchSize)
	}

	return nil
}
