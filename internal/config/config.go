// Package config загружает настройки сервера и демо: YAML-файл, поверх него
// переменные окружения.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/UkralStul/optimistic-updates/internal/simulate"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
)

// Config - настройки приложения.
type Config struct {
	Port           string   `yaml:"port" validate:"required,numeric"`
	Storage        string   `yaml:"storage" validate:"oneof=in-memory postgres"`
	DatabaseURL    string   `yaml:"databaseUrl" validate:"required_if=Storage postgres"`
	Debug          bool     `yaml:"debug"`
	LogLevel       string   `yaml:"logLevel" validate:"oneof=debug info warn error"`
	Seed           uint64   `yaml:"seed"`
	MockItems      int      `yaml:"mockItems" validate:"gte=0"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// Policies переопределяет имитацию сети по имени операции.
	// Длительности задаются строками: "800ms", "2s".
	Policies map[string]simulate.Policy `yaml:"policies"`
}

// Default - настройки по умолчанию.
func Default() *Config {
	return &Config{
		Port:      "8080",
		Storage:   StorageInMemory,
		LogLevel:  "info",
		MockItems: 1000,
		Policies:  map[string]simulate.Policy{},
	}
}

// Load читает файл (если path не пуст), затем применяет окружение и проверяет результат.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv накладывает переменные окружения PORT, STORAGE, DATABASE_URL, LOG_LEVEL и SEED.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Port = v
	}
	if v, ok := lookup("STORAGE"); ok && v != "" {
		c.Storage = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.DatabaseURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("SEED"); ok {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = seed
		}
	}
}

var validate = validator.New()

// Validate проверяет настройки и политики операций.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.Errorf("config: %s fails %q", verrs[0].Field(), verrs[0].Tag())
		}
		return errors.Wrap(err, "config")
	}
	for name, p := range c.Policies {
		switch {
		case p.FailureRate < 0 || p.FailureRate > 1:
			return errors.Errorf("config: policy %s: failureRate must be within [0, 1]", name)
		case p.MinDelay < 0:
			return errors.Errorf("config: policy %s: minDelay must not be negative", name)
		case p.MaxDelay != 0 && p.MaxDelay < p.MinDelay:
			return errors.Errorf("config: policy %s: maxDelay is less than minDelay", name)
		}
	}
	return nil
}

// Logger собирает zap-логгер: в режиме Debug - консольный development,
// иначе JSON production. Уровень берётся из LogLevel.
func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Debug {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "config: log level")
	}
	zc.Level = level
	return zc.Build()
}
