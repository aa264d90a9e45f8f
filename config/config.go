package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Server struct {
		Host          string        `mapstructure:"host" json:"host,omitempty"`
		Port          int64         `mapstructure:"port" json:"port,omitempty"`
		JWTSecret     string        `mapstructure:"jwt_secret" json:"jwt_secret,omitempty"`
		CookieName    string        `mapstructure:"cookie_name" json:"cookie_name,omitempty"`
		CookieDomain  string        `mapstructure:"cookie_domain" json:"cookie_domain,omitempty"`
		SessionTTL    time.Duration `mapstructure:"session_ttl" json:"session_ttl,omitempty"`
		RefreshWindow time.Duration `mapstructure:"refresh_window" json:"refresh_window,omitempty"`
		CORSOrigins   []string      `mapstructure:"cors_origins" json:"cors_origins,omitempty"`
		// BotToken authenticates the Discord bot on /external-accounts.
		BotToken string `mapstructure:"bot_token" json:"bot_token,omitempty"`
	} `mapstructure:"server" json:"server"`
	Database   DatabaseConfig  `mapstructure:"database" json:"database,omitempty"`
	Redis      RedisConfig     `mapstructure:"redis" json:"redis,omitempty"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
	Cache      CacheConfig     `mapstructure:"cache" json:"cache,omitempty"`
	Github     GithubConfig    `mapstructure:"github" json:"github,omitempty"`
	Discord    DiscordConfig   `mapstructure:"discord" json:"discord,omitempty"`
	AWS        AWSConfig       `mapstructure:"aws" json:"aws,omitempty"`
	Metrics    MetricsConfig   `mapstructure:"metrics" json:"metrics,omitempty"`
	HealthPort int             `mapstructure:"health_port" json:"health_port,omitempty"`
	LogFormat  string          `mapstructure:"log_format" json:"log_format,omitempty"`
	SeedFile   string          `mapstructure:"seed_file" json:"seed_file,omitempty"`
}

// WorkerConfig is read from the environment only (RDS_WORKER_*).
type WorkerConfig struct {
	Database    DatabaseConfig `envconfig:"DATABASE"`
	Redis       RedisConfig    `envconfig:"REDIS"`
	Discord     DiscordConfig  `envconfig:"DISCORD"`
	AWS         AWSConfig      `envconfig:"AWS"`
	Metrics     MetricsConfig  `envconfig:"METRICS"`
	Concurrency int            `envconfig:"CONCURRENCY" default:"10"`
	HealthPort  int            `envconfig:"HEALTH_PORT" default:"8082"`
	LogFormat   string         `envconfig:"LOG_FORMAT" default:"text"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" json:"dsn,omitempty" envconfig:"DSN"`
}

type RedisConfig struct {
	ConnURI  string `mapstructure:"conn_uri" json:"conn_uri,omitempty" envconfig:"CONN_URI"`
	Host     string `mapstructure:"host" json:"host,omitempty" envconfig:"HOST"`
	Port     string `mapstructure:"port" json:"port,omitempty" envconfig:"PORT"`
	User     string `mapstructure:"user" json:"user,omitempty" envconfig:"USER"`
	Password string `mapstructure:"password" json:"password,omitempty" envconfig:"PASSWORD"`
	DB       int    `mapstructure:"db" json:"db,omitempty" envconfig:"DB"`
}

type RateLimitConfig struct {
	Rate      float64       `mapstructure:"rate" json:"rate,omitempty"`
	Burst     int           `mapstructure:"burst" json:"burst,omitempty"`
	ExpiresIn time.Duration `mapstructure:"expires_in" json:"expires_in,omitempty"`
}

type CacheConfig struct {
	FlagTTL         time.Duration `mapstructure:"flag_ttl" json:"flag_ttl,omitempty"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval,omitempty"`
}

type GithubConfig struct {
	ClientID     string `mapstructure:"client_id" json:"client_id,omitempty"`
	ClientSecret string `mapstructure:"client_secret" json:"client_secret,omitempty"`
	OAuthURL     string `mapstructure:"oauth_url" json:"oauth_url,omitempty"`
	APIURL       string `mapstructure:"api_url" json:"api_url,omitempty"`
}

type DiscordConfig struct {
	BotURL          string `mapstructure:"bot_url" json:"bot_url,omitempty" envconfig:"BOT_URL"`
	BotPrivateKey   string `mapstructure:"bot_private_key" json:"bot_private_key,omitempty" envconfig:"BOT_PRIVATE_KEY"`
	InviteChannelID string `mapstructure:"invite_channel_id" json:"invite_channel_id,omitempty" envconfig:"INVITE_CHANNEL_ID"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region" json:"region,omitempty" envconfig:"REGION"`
	IdentityStoreID string `mapstructure:"identity_store_id" json:"identity_store_id,omitempty" envconfig:"IDENTITY_STORE_ID"`
	AccessKey       string `mapstructure:"access_key" json:"access_key,omitempty" envconfig:"ACCESS_KEY"`
	SecretKey       string `mapstructure:"secret_key" json:"secret_key,omitempty" envconfig:"SECRET_KEY"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled,omitempty" envconfig:"ENABLED"`
	Host    string `mapstructure:"host" json:"host,omitempty" envconfig:"HOST" default:"0.0.0.0"`
	Port    int    `mapstructure:"port" json:"port,omitempty" envconfig:"PORT" default:"9090"`
	Token   string `mapstructure:"token" json:"token,omitempty" envconfig:"TOKEN"`
}

func (r RedisConfig) GetRedisOptions() (*redis.Options, error) {
	if r.ConnURI != "" {
		opts, err := redis.ParseURL(r.ConnURI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URI: %w", err)
		}
		return opts, nil
	}

	if r.Host == "" {
		return nil, fmt.Errorf("redis host is required when conn_uri is not provided")
	}

	return &redis.Options{
		Addr:     r.Host + ":" + r.Port,
		Username: r.User,
		Password: r.Password,
		DB:       r.DB,
	}, nil
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cookie_name", "rds-session")
	v.SetDefault("server.session_ttl", 30*24*time.Hour)
	v.SetDefault("server.refresh_window", 24*time.Hour)
	v.SetDefault("rate_limit.rate", 5)
	v.SetDefault("rate_limit.burst", 30)
	v.SetDefault("rate_limit.expires_in", 5*time.Minute)
	v.SetDefault("cache.flag_ttl", time.Minute)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)
	v.SetDefault("github.oauth_url", "https://github.com/login/oauth/access_token")
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("metrics.port", 8088)
	v.SetDefault("health_port", 8081)
	v.SetDefault("log_format", "text")
}

func ReadServerConfig() (*ServerConfig, error) {
	configName := os.Getenv("RDS_SERVER_CONFIG_NAME")
	if configName == "" {
		configName = "config"
	}
	return ReadConfig(viper.New(), configName, ".")
}

// ReadConfig loads configName from path into a ServerConfig. Environment
// variables override file values (server.port -> SERVER_PORT).
func ReadConfig(v *viper.Viper, configName string, path string) (*ServerConfig, error) {
	v.SetConfigName(configName)
	v.AddConfigPath(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setServerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fail to reading config file, %w", err)
	}
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if cfg.Server.JWTSecret == "" {
		return nil, fmt.Errorf("server.jwt_secret is required")
	}
	return &cfg, nil
}

func ReadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("RDS_WORKER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process worker env config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("RDS_WORKER_DATABASE_DSN is required")
	}
	return &cfg, nil
}
