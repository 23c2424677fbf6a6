package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Game      GameConfig      `yaml:"game" toml:"game"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Cache     CacheConfig     `yaml:"cache" toml:"cache"`
	EventBus  EventBusConfig  `yaml:"eventbus" toml:"eventbus"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port" toml:"rest_port"`
	MetricsPort int `yaml:"metrics_port" toml:"metrics_port"`
}

// GameConfig задает темп симуляции.
// TickMillis - длительность одного тика планировщика, TickPeriod - период
// игрового цикла в тиках, AutosaveTicks - период автосохранения армий.
type GameConfig struct {
	TickMillis    int  `yaml:"tick_millis" toml:"tick_millis"`
	TickPeriod    int  `yaml:"tick_period" toml:"tick_period"`
	AutosaveTicks int  `yaml:"autosave_ticks" toml:"autosave_ticks"`
	EventBuffer   int  `yaml:"event_buffer" toml:"event_buffer"`
	UseGzipCompr  bool `yaml:"use_gzip_compression" toml:"use_gzip_compression"`
	EnforceBounds bool `yaml:"enforce_bounds" toml:"enforce_bounds"`
}

type StorageConfig struct {
	Backend string       `yaml:"backend" toml:"backend"` // memory | mongo | maria | badger
	Mongo   MongoConfig  `yaml:"mongo" toml:"mongo"`
	Maria   MariaConfig  `yaml:"maria" toml:"maria"`
	Badger  BadgerConfig `yaml:"badger" toml:"badger"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" toml:"uri"`
	Database string `yaml:"database" toml:"database"`
}

type MariaConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Database string `yaml:"database" toml:"database"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

type BadgerConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr"`
	Password  string `yaml:"password" toml:"password"`
	DB        int    `yaml:"db" toml:"db"`
	TTLSecs   int    `yaml:"ttl_seconds" toml:"ttl_seconds"`
}

type EventBusConfig struct {
	URL       string `yaml:"url" toml:"url"` // пусто: in-memory шина
	Stream    string `yaml:"stream" toml:"stream"`
	Retention int    `yaml:"retention_hours" toml:"retention_hours"`
	Capacity  int    `yaml:"capacity" toml:"capacity"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir" toml:"dir"`
	ConsoleLevel string `yaml:"console_level" toml:"console_level"`
	FileLevel    string `yaml:"file_level" toml:"file_level"`
	JSON         bool   `yaml:"json" toml:"json"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"` // base64, >= 32 байт
	TokenTTL  int    `yaml:"token_ttl_hours" toml:"token_ttl_hours"`
	// Администратор, создаваемый при старте, если его еще нет
	AdminEmail    string `yaml:"admin_email" toml:"admin_email"`
	AdminPassword string `yaml:"admin_password" toml:"admin_password"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию (in-memory хранилище и шина).
func Default() *Config {
	return &Config{
		Server: ServerConfig{},
		Game: GameConfig{
			TickMillis:    50,
			TickPeriod:    1,
			AutosaveTicks: 200,
			EventBuffer:   64,
		},
		Storage: StorageConfig{
			Backend: "memory",
			Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: "army_battle"},
			Maria:   MariaConfig{Host: "localhost", Port: 3306, Database: "army_battle"},
			Badger:  BadgerConfig{Path: "data"},
		},
		Cache: CacheConfig{RedisAddr: "localhost:6379", TTLSecs: 30},
		EventBus: EventBusConfig{
			Stream:    "BATTLE",
			Retention: 24,
			Capacity:  1024,
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "info",
			FileLevel:    "debug",
		},
		Auth:      AuthConfig{TokenTTL: 24},
		Telemetry: TelemetryConfig{ServiceName: "army-battle"},
	}
}

// Load читает YAML или TOML файл конфигурации (по расширению) поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV BATTLE_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("BATTLE_CONFIG")
		if path == "" {
			cfg.applyEnv()
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv переопределяет строки подключения из окружения (удобно для docker-compose).
func (c *Config) applyEnv() {
	if v := os.Getenv("BATTLE_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("BATTLE_MONGO_URI"); v != "" {
		c.Storage.Mongo.URI = v
	}
	if v := os.Getenv("BATTLE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("BATTLE_NATS_URL"); v != "" {
		c.EventBus.URL = v
	}
	if v := os.Getenv("BATTLE_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("BATTLE_ADMIN_EMAIL"); v != "" {
		c.Auth.AdminEmail = v
	}
	if v := os.Getenv("BATTLE_ADMIN_PASSWORD"); v != "" {
		c.Auth.AdminPassword = v
	}
}

// TickDuration возвращает длительность тика планировщика
func (g GameConfig) TickDuration() time.Duration {
	if g.TickMillis <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(g.TickMillis) * time.Millisecond
}

// TokenDuration возвращает время жизни JWT
func (a AuthConfig) TokenDuration() time.Duration {
	if a.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenTTL) * time.Hour
}

// CacheTTL возвращает TTL записей кеша
func (c CacheConfig) CacheTTL() time.Duration {
	if c.TTLSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TTLSecs) * time.Second
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BATTLE_REST_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus эндпоинта шины событий
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "BATTLE_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}
