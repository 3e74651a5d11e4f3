// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"voice-assistant/internal/common/errors"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top and applies environment overrides. A missing base file is not an error.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory, or the one next to go.mod.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills unset values from the environment names the
// deployment scripts already export.
func overrideEmptyConfig(cfg *Config) {
	envOverride(&cfg.Services.NLU.BaseURL, "GATEWAY_URL")
	envOverride(&cfg.Services.Dashboard.BaseURL, "DASHBOARD_GENERATOR_URL")
	envOverride(&cfg.Camunda.BrokerAddress, "ZEEBE_ADDRESS")
	envOverride(&cfg.Database.Postgres.User, "DB_USER")
	envOverride(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	envOverride(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
}

func envOverride(field *string, name string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(name); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "voice-assistant"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.HealthPort == 0 {
		cfg.Camunda.HealthPort = 8081
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Services.NLU.Mode == "" {
		cfg.Services.NLU.Mode = ClassifierModeLocal
	}
	if cfg.Services.NLU.BaseURL == "" && cfg.Services.NLU.Mode == ClassifierModeHTTP {
		cfg.Services.NLU.BaseURL = "http://localhost:8000"
	}
	if cfg.Services.NLU.Timeout == 0 {
		cfg.Services.NLU.Timeout = 3000
	}
	if cfg.Services.Dashboard.Timeout == 0 {
		cfg.Services.Dashboard.Timeout = 2000
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 600000
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "nlu:intent:"
	}

	if cfg.Generator.Samples == 0 {
		cfg.Generator.Samples = 500
	}
	if cfg.Generator.Output == "" {
		cfg.Generator.Output = "train.jsonl"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return errors.NewConfigInvalidError(fmt.Sprintf("server.port %d out of range", cfg.Server.Port))
	}

	switch cfg.Services.NLU.Mode {
	case ClassifierModeLocal:
	case ClassifierModeHTTP:
		if cfg.Services.NLU.BaseURL == "" {
			return errors.NewConfigInvalidError("services.nlu.base_url is required in http mode")
		}
	default:
		return errors.NewConfigInvalidError(fmt.Sprintf("services.nlu.mode %q must be local or http", cfg.Services.NLU.Mode))
	}
	if cfg.Services.NLU.Timeout < 0 || cfg.Services.Dashboard.Timeout < 0 {
		return errors.NewConfigInvalidError("service timeouts must be positive")
	}

	if cfg.Cache.Enabled {
		if cfg.Database.Redis.Address == "" {
			return errors.NewConfigInvalidError("database.redis.address is required when cache is enabled")
		}
		if cfg.Cache.TTL < 0 {
			return errors.NewConfigInvalidError("cache.ttl must be positive")
		}
	}

	if cfg.Generator.Samples < 0 {
		return errors.NewConfigInvalidError("generator.samples must not be negative")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewConfigInvalidError(fmt.Sprintf("logging.level %q is not recognised", cfg.Logging.Level))
	}

	return nil
}

// ValidateForWorkers checks the settings only the worker manager needs.
func ValidateForWorkers(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return errors.NewConfigInvalidError("camunda.broker_address is required")
	}
	return nil
}

// ValidateForPostgres checks the settings needed to open the sample store.
func ValidateForPostgres(cfg *Config) error {
	p := cfg.Database.Postgres
	switch {
	case p.Host == "":
		return errors.NewConfigInvalidError("database.postgres.host is required")
	case p.Database == "":
		return errors.NewConfigInvalidError("database.postgres.database is required")
	case p.User == "":
		return errors.NewConfigInvalidError("database.postgres.user is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// GetWorkerConfigWithTimeout is GetWorkerConfig with the task's own timeout
// used when the task has no workers entry.
func GetWorkerConfigWithTimeout(cfg *Config, workerName string, taskTimeout time.Duration) WorkerConfig {
	wc := GetWorkerConfig(cfg, workerName)
	if _, exists := cfg.Workers[workerName]; !exists && taskTimeout > 0 {
		wc.Timeout = int(taskTimeout.Milliseconds())
	}
	return wc
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
