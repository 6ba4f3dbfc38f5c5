// Package configs loads the Gatherly service configuration.
//
// Precedence, highest first: environment variables, the YAML file, defaults.
// Environment variables carry the GATHERLY_ prefix and split on the first
// underscore into section and field:
//
//	GATHERLY_DB_HOST       -> db.host
//	GATHERLY_KAFKA_ASYNC   -> kafka.async
//	GATHERLY_JWT_TTL       -> jwt.ttl
package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "GATHERLY_"

type Config struct {
	App       AppConfig       `koanf:"app"`
	DB        DBConfig        `koanf:"db"`
	Redis     RedisConfig     `koanf:"redis"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	S3        S3Config        `koanf:"s3"`
	JWT       JWTConfig       `koanf:"jwt"`
	Log       LogConfig       `koanf:"log"`
	OTEL      OTELConfig      `koanf:"otel"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

type AppConfig struct {
	Port        string `koanf:"port"`
	Env         string `koanf:"env"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

type DBConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
	MaxOpen  int    `koanf:"max_open"`
	MaxIdle  int    `koanf:"max_idle"`
	// Replicas is a comma separated list of read replica DSNs.
	Replicas string `koanf:"replicas"`
	Tracing  bool   `koanf:"tracing"`
}

type RedisConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
}

type KafkaConfig struct {
	Bootstrap       string `koanf:"bootstrap"`
	PostsTopic      string `koanf:"posts_topic"`
	EngagementTopic string `koanf:"engagement_topic"`
	RequiredAcks    string `koanf:"required_acks"`
	Async           bool   `koanf:"async"`
}

type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
	PublicURL string `koanf:"public_url"`
}

type JWTConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OTELConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	ServiceName  string  `koanf:"service_name"`
	SamplerRatio float64 `koanf:"sampler_ratio"`
}

type RateLimitConfig struct {
	Toggles int64         `koanf:"toggles"`
	Window  time.Duration `koanf:"window"`
}

// Load reads the YAML file at path, if any, then applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(c *Config) {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&c.App.Port, ":8080")
	def(&c.App.Env, "dev")

	def(&c.DB.Host, "localhost")
	def(&c.DB.Port, "5432")
	def(&c.DB.User, "gatherly")
	def(&c.DB.Password, "gatherly")
	def(&c.DB.Name, "gatherly")
	def(&c.DB.SSLMode, "disable")
	if c.DB.MaxOpen == 0 {
		c.DB.MaxOpen = 40
	}
	if c.DB.MaxIdle == 0 {
		c.DB.MaxIdle = 10
	}

	def(&c.Redis.Host, "localhost")
	def(&c.Redis.Port, "6379")

	def(&c.Kafka.Bootstrap, "localhost:9092")
	def(&c.Kafka.PostsTopic, "posts.lifecycle")
	def(&c.Kafka.EngagementTopic, "posts.engagement")
	def(&c.Kafka.RequiredAcks, "one")

	def(&c.S3.Endpoint, "localhost:9000")
	def(&c.S3.AccessKey, "minio")
	def(&c.S3.SecretKey, "minio123")
	def(&c.S3.Bucket, "post-images")

	// dev fallback; replace in prod
	def(&c.JWT.Secret, "replace-this-with-a-strong-secret")
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}

	def(&c.Log.Level, "info")
	def(&c.Log.Format, "json")

	def(&c.OTEL.Endpoint, "otel-collector:4318")
	def(&c.OTEL.ServiceName, "gatherly")
	if c.OTEL.SamplerRatio == 0 {
		c.OTEL.SamplerRatio = 1.0
	}

	if c.RateLimit.Toggles == 0 {
		c.RateLimit.Toggles = 30
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.OTEL.SamplerRatio < 0 || c.OTEL.SamplerRatio > 1 {
		errs = append(errs, fmt.Errorf("otel.sampler_ratio must be within [0,1], got %v", c.OTEL.SamplerRatio))
	}
	if c.RateLimit.Toggles < 0 {
		errs = append(errs, errors.New("ratelimit.toggles must not be negative"))
	}
	if c.App.Env == "production" && c.JWT.Secret == "replace-this-with-a-strong-secret" {
		errs = append(errs, errors.New("jwt.secret must be set in production"))
	}
	return errors.Join(errs...)
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

func (c *Config) ReplicaDSNs() []string {
	var out []string
	for _, s := range strings.Split(c.DB.Replicas, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) RedisAddr() string { return c.Redis.Host + ":" + c.Redis.Port }
