package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "VELIGER"

	DefaultBind          = "127.0.0.1:8080"
	DefaultCacheDir      = "."
	DefaultEditDebounce  = 100 * time.Millisecond
	DefaultLogLevel      = "info"
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
	DefaultLanguage      = "pt-BR"
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
)

type CacheBackend string

const (
	CacheFile  CacheBackend = "file"
	CacheMySQL CacheBackend = "mysql"
)

type Config struct {
	Bind               string
	CacheDir           string
	CacheBackend       CacheBackend
	DBDSN              string
	AuthMode           AuthMode
	APIKeysFile        string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFile            string
	LogMaxSizeMB       int
	LogMaxBackups      int
	LogMaxAgeDays      int
	EditDebounce       time.Duration
	Charset            string
	Language           string
	SwaggerUIPath      string
	OpenAPIPath        string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on v. Keys map to
// VELIGER_* variables with dots replaced by underscores.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.bind", DefaultBind)
	v.SetDefault("cache.dir", DefaultCacheDir)
	v.SetDefault("cache.backend", string(CacheFile))
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.mode", string(AuthNone))
	v.SetDefault("auth.api_keys_file", "api-keys.yaml")
	v.SetDefault("cors.allowed_origins", "")
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAgeDays)
	v.SetDefault("edit.debounce", DefaultEditDebounce)
	v.SetDefault("metadata.charset", "auto")
	v.SetDefault("suggest.language", DefaultLanguage)
}

// ReadFile loads .env files next to path (or the working directory) and
// then the config file itself. An empty path searches the usual locations
// and tolerates a missing file.
func ReadFile(v *viper.Viper, path string) error {
	envFiles := []string{".env", ".env.local"}
	dirs := []string{"."}
	if path != "" {
		dirs = append(dirs, filepath.Dir(path))
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("veliger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/veliger")
	}
	for _, dir := range dirs {
		for _, f := range envFiles {
			_ = godotenv.Load(filepath.Join(dir, f))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load parses runtime configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Bind:               v.GetString("http.bind"),
		CacheDir:           v.GetString("cache.dir"),
		CacheBackend:       CacheBackend(strings.ToLower(v.GetString("cache.backend"))),
		DBDSN:              v.GetString("database.dsn"),
		AuthMode:           AuthMode(strings.ToLower(v.GetString("auth.mode"))),
		APIKeysFile:        v.GetString("auth.api_keys_file"),
		CORSAllowedOrigins: splitAndTrim(v.GetString("cors.allowed_origins")),
		LogLevel:           v.GetString("log.level"),
		LogFile:            v.GetString("log.file"),
		LogMaxSizeMB:       v.GetInt("log.max_size_mb"),
		LogMaxBackups:      v.GetInt("log.max_backups"),
		LogMaxAgeDays:      v.GetInt("log.max_age_days"),
		EditDebounce:       v.GetDuration("edit.debounce"),
		Charset:            v.GetString("metadata.charset"),
		Language:           v.GetString("suggest.language"),
		SwaggerUIPath:      "/swagger",
		OpenAPIPath:        "/openapi.yaml",
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case CacheFile:
		if strings.TrimSpace(c.CacheDir) == "" {
			return fmt.Errorf("cache.dir is required for the file cache backend")
		}
	case CacheMySQL:
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("database.dsn is required when cache.backend=mysql")
		}
	default:
		return fmt.Errorf("invalid cache.backend: %s", c.CacheBackend)
	}

	switch c.AuthMode {
	case AuthNone:
	case AuthAPIKey:
		if strings.TrimSpace(c.APIKeysFile) == "" {
			return fmt.Errorf("auth.api_keys_file is required when auth.mode=apikey")
		}
	default:
		return fmt.Errorf("invalid auth.mode: %s", c.AuthMode)
	}

	if c.EditDebounce < 0 {
		return fmt.Errorf("edit.debounce must not be negative")
	}
	return nil
}

func splitAndTrim(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
