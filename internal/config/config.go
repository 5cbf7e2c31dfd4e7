package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. OSRYN_SERVER_ADDR.
const EnvPrefix = "OSRYN"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr         string
		MaxBodyBytes int64
		RateLimit    struct {
			Burst     int
			PerSecond int
		}
		ShutdownTimeout time.Duration
	}
	Ledger struct {
		SeedDemo   bool
		BcryptCost int
	}
	Log struct {
		Level  string
		Format string
	}
	Events struct {
		Buffer    int
		Heartbeat time.Duration
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")
	return load(".")
}

func load(configDir string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.maxbodybytes", 1<<20)
	v.SetDefault("server.ratelimit.burst", 20)
	v.SetDefault("server.ratelimit.persecond", 10)
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("ledger.seeddemo", false)
	v.SetDefault("ledger.bcryptcost", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("events.buffer", 16)
	v.SetDefault("events.heartbeat", 15*time.Second)

	v.SetConfigName("config")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.Server.Addr) == "":
		return fmt.Errorf("server.addr is required")
	case c.Server.RateLimit.Burst <= 0 || c.Server.RateLimit.PerSecond <= 0:
		return fmt.Errorf("server.ratelimit burst and persecond must be > 0")
	case c.Server.MaxBodyBytes <= 0:
		return fmt.Errorf("server.maxbodybytes must be > 0")
	case c.Events.Buffer <= 0:
		return fmt.Errorf("events.buffer must be > 0")
	}
	return nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
