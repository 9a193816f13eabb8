package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// Exchange name for download lifecycle events
	ExchangeName = "media_events"

	// Routing Keys
	RoutingDownloadStarted  = "download.started"
	RoutingDownloadFinished = "download.finished"
	RoutingDownloadFailed   = "download.failed"

	// Queue consumed by the events command
	ActivityQueue = "media_activity"

	// Exchange Type
	ExchangeTypeTopic = "topic"
)

// Config is the struct that holds the configuration of the application
type Config struct {
	App        AppConfig        `json:"app"`
	Server     ServerConfig     `json:"server"`
	Downloader DownloaderConfig `json:"downloader"`
	RabbitMq   RabbitMQConfig   `json:"rabbitmq"`
	Redis      RedisConfig      `json:"redis"`
}

type AppConfig struct {
	Name     string `json:"name"`
	LogLevel int    `json:"logLevel"`
	Env      string `json:"env"`
}

type ServerConfig struct {
	Port      int             `json:"port"`
	StaticDir string          `json:"staticDir"`
	RateLimit RateLimitConfig `json:"rateLimit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
}

type DownloaderConfig struct {
	DownloadDir      string   `json:"downloadDir"`
	Retries          int      `json:"retries"`
	FragmentRetries  int      `json:"fragmentRetries"`
	AudioQuality     string   `json:"audioQuality"`
	EventBuffer      int      `json:"eventBuffer"`
	ProgressInterval int      `json:"progressInterval"` // milliseconds
	FallbackToBest   bool     `json:"fallbackToBest"`
	PlayerClients    []string `json:"playerClients"`
	SkipManifests    []string `json:"skipManifests"`
	CompatOptions    []string `json:"compatOptions"`
}

type RabbitMQConfig struct {
	URL              string `json:"url"`
	Exchange         string `json:"exchange"`
	Queue            string `json:"queue"`
	ReconnectRetries int    `json:"reconnectRetries"`
	ReconnectTimeout int    `json:"reconnectTimeout"` // milliseconds
}

type RedisConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLMinutes int    `json:"ttlMinutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Universal Media Downloader")
	v.SetDefault("app.logLevel", 4) // logrus.InfoLevel
	v.SetDefault("app.env", "development")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.staticDir", "static")
	v.SetDefault("server.rateLimit.requestsPerSecond", 5)
	v.SetDefault("server.rateLimit.burst", 10)

	v.SetDefault("downloader.downloadDir", "downloads")
	v.SetDefault("downloader.retries", 3)
	v.SetDefault("downloader.fragmentRetries", 3)
	v.SetDefault("downloader.audioQuality", "192")
	v.SetDefault("downloader.eventBuffer", 16)
	v.SetDefault("downloader.progressInterval", 500)
	v.SetDefault("downloader.fallbackToBest", false)
	v.SetDefault("downloader.playerClients", []string{"web", "android"})
	v.SetDefault("downloader.skipManifests", []string{"dash", "hls"})
	v.SetDefault("downloader.compatOptions", []string{"no-youtube-unavailable-videos"})

	v.SetDefault("rabbitmq.exchange", ExchangeName)
	v.SetDefault("rabbitmq.queue", ActivityQueue)
	v.SetDefault("rabbitmq.reconnectRetries", 3)
	v.SetDefault("rabbitmq.reconnectTimeout", 2000)

	v.SetDefault("redis.ttlMinutes", 30)
}

// Load config from config.json found in any of the given directories (defaults to ".")
func Load(paths ...string) (*Config, error) {
	// A missing .env is fine, we might be using environment variables directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config") // File name without extension
	v.SetConfigType("json")   // Set to JSON format
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()
	setDefaults(v)

	// Try to read configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override from environment variables if available
	if envPort := os.Getenv("PORT"); envPort != "" {
		port, err := strconv.Atoi(envPort)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", envPort, err)
		}
		config.Server.Port = port
	}
	if envURL := os.Getenv("RABBITMQ_URL"); envURL != "" {
		config.RabbitMq.URL = envURL
	}
	if envAddr := os.Getenv("REDIS_ADDR"); envAddr != "" {
		config.Redis.Addr = envAddr
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values that cannot be corrected at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Downloader.DownloadDir == "" {
		return errors.New("downloader.downloadDir is required")
	}
	if c.Downloader.Retries < 0 || c.Downloader.FragmentRetries < 0 {
		return errors.New("downloader retries must not be negative")
	}
	if c.Downloader.EventBuffer <= 0 {
		return fmt.Errorf("invalid downloader.eventBuffer: %d", c.Downloader.EventBuffer)
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 || c.Server.RateLimit.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	return nil
}

// Get config for app
func (c *Config) GetAppConfig() *AppConfig {
	return &c.App
}

// Get config for web server
func (c *Config) GetServerConfig() *ServerConfig {
	return &c.Server
}

// Get config for downloader
func (c *Config) GetDownloaderConfig() *DownloaderConfig {
	return &c.Downloader
}

// Get config for RabbitMQ
func (c *Config) GetRabbitMQConfig() *RabbitMQConfig {
	return &c.RabbitMq
}

// Get config for Redis
func (c *Config) GetRedisConfig() *RedisConfig {
	return &c.Redis
}

// ProgressEvery returns the engine progress reporting interval
func (d *DownloaderConfig) ProgressEvery() time.Duration {
	if d.ProgressInterval <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(d.ProgressInterval) * time.Millisecond
}

// CacheTTL returns how long an info response stays cached
func (r *RedisConfig) CacheTTL() time.Duration {
	return time.Duration(r.TTLMinutes) * time.Minute
}
