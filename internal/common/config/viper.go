package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// Exchange
	ExchangeName      = "vidsweep_events"
	ExchangeTypeTopic = "topic"

	// Routing Keys
	RoutingDedupDeleted    = "dedup.deleted"
	RoutingDedupComplete   = "dedup.complete"
	RoutingLogScraper      = "log.scraper"
	RoutingLogDownloader   = "log.downloader"
	RoutingDownloadSkipped = "download.skipped"

	// EnvPrefix is prepended to every environment override, e.g. VIDSWEEP_DEDUP_DIRECTORY
	EnvPrefix = "VIDSWEEP"
)

// Config is the struct that holds the configuration of the application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Scraper    ScraperConfig    `mapstructure:"scraper"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
	RabbitMq   RabbitMQConfig   `mapstructure:"rabbitmq"`
	WebPanel   WebPanelConfig   `mapstructure:"webpanel"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel int    `mapstructure:"logLevel"`
	Env      string `mapstructure:"env"`
}

type DedupConfig struct {
	Directory string `mapstructure:"directory"`
}

type ScraperConfig struct {
	Headless           bool          `mapstructure:"headless"`
	UserAgent          string        `mapstructure:"userAgent"`
	ScrollDistance     int           `mapstructure:"scrollDistance"`
	ScrollInterval     time.Duration `mapstructure:"scrollInterval"`
	VideoSelector      string        `mapstructure:"videoSelector"`
	SelectorRetries    int           `mapstructure:"selectorRetries"`
	SelectorTimeout    time.Duration `mapstructure:"selectorTimeout"`
	ElapsedLogInterval time.Duration `mapstructure:"elapsedLogInterval"`
}

type DownloaderConfig struct {
	OutputDir        string        `mapstructure:"outputDir"`
	StripPatterns    []string      `mapstructure:"stripPatterns"`
	PlaceholderNames []string      `mapstructure:"placeholderNames"`
	RandomNameLength int           `mapstructure:"randomNameLength"`
	RandomNameExt    string        `mapstructure:"randomNameExt"`
	Delay            time.Duration `mapstructure:"delay"`
	EstimateEvery    int           `mapstructure:"estimateEvery"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type RabbitMQConfig struct {
	URL              string        `mapstructure:"url"`
	Exchange         string        `mapstructure:"exchange"`
	PublishTimeout   time.Duration `mapstructure:"publishTimeout"`
	ReconnectRetries int           `mapstructure:"reconnectRetries"`
	ReconnectTimeout time.Duration `mapstructure:"reconnectTimeout"`
}

type WebPanelConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vidsweep")
	v.SetDefault("app.logLevel", 4) // logrus.InfoLevel
	v.SetDefault("app.env", "development")

	v.SetDefault("dedup.directory", "./weddingceremony")

	v.SetDefault("scraper.headless", false)
	v.SetDefault("scraper.userAgent", "")
	v.SetDefault("scraper.scrollDistance", 100)
	v.SetDefault("scraper.scrollInterval", 100*time.Millisecond)
	v.SetDefault("scraper.videoSelector", "video")
	v.SetDefault("scraper.selectorRetries", 5)
	v.SetDefault("scraper.selectorTimeout", 10*time.Second)
	v.SetDefault("scraper.elapsedLogInterval", 30*time.Second)

	v.SetDefault("downloader.outputDir", ".")
	v.SetDefault("downloader.stripPatterns", []string{
		"https://www.pexels.com/search/videos",
		"?orientation=portrait",
	})
	v.SetDefault("downloader.placeholderNames", []string{"file", "file.mp4"})
	v.SetDefault("downloader.randomNameLength", 12)
	v.SetDefault("downloader.randomNameExt", ".mp4")
	v.SetDefault("downloader.delay", 10*time.Second)
	v.SetDefault("downloader.estimateEvery", 10)
	v.SetDefault("downloader.timeout", time.Duration(0))

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", ExchangeName)
	v.SetDefault("rabbitmq.publishTimeout", 5*time.Second)
	v.SetDefault("rabbitmq.reconnectRetries", 3)
	v.SetDefault("rabbitmq.reconnectTimeout", 2*time.Second)

	v.SetDefault("webpanel.host", "127.0.0.1")
	v.SetDefault("webpanel.port", 0)
}

// Load reads .env, then config.json from the given paths (current directory
// when none are given), then VIDSWEEP_* environment overrides.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("json")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the built-in configuration, ignoring files and environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &config
}

// Validate rejects settings the tools cannot run with
func (c *Config) Validate() error {
	if c.Dedup.Directory == "" {
		return errors.New("dedup.directory is required")
	}
	if c.Scraper.ScrollDistance <= 0 {
		return fmt.Errorf("scraper.scrollDistance must be positive, got %d", c.Scraper.ScrollDistance)
	}
	if c.Scraper.ScrollInterval <= 0 {
		return fmt.Errorf("scraper.scrollInterval must be positive, got %s", c.Scraper.ScrollInterval)
	}
	if c.Scraper.SelectorTimeout <= 0 {
		return fmt.Errorf("scraper.selectorTimeout must be positive, got %s", c.Scraper.SelectorTimeout)
	}
	if c.Scraper.ElapsedLogInterval <= 0 {
		return fmt.Errorf("scraper.elapsedLogInterval must be positive, got %s", c.Scraper.ElapsedLogInterval)
	}
	if c.Scraper.SelectorRetries <= 0 {
		return fmt.Errorf("scraper.selectorRetries must be positive, got %d", c.Scraper.SelectorRetries)
	}
	if c.Scraper.VideoSelector == "" {
		return errors.New("scraper.videoSelector is required")
	}
	if c.Downloader.RandomNameLength <= 0 {
		return fmt.Errorf("downloader.randomNameLength must be positive, got %d", c.Downloader.RandomNameLength)
	}
	if len(c.Downloader.PlaceholderNames) > 0 && c.Downloader.RandomNameExt == "" {
		return errors.New("downloader.randomNameExt is required when placeholder names are configured")
	}
	if c.Downloader.EstimateEvery <= 0 {
		return fmt.Errorf("downloader.estimateEvery must be positive, got %d", c.Downloader.EstimateEvery)
	}
	if c.Downloader.Delay < 0 {
		return fmt.Errorf("downloader.delay must not be negative, got %s", c.Downloader.Delay)
	}
	if c.WebPanel.Port < 0 || c.WebPanel.Port > 65535 {
		return fmt.Errorf("webpanel.port out of range: %d", c.WebPanel.Port)
	}
	return nil
}

// Get config for app
func (c *Config) GetAppConfig() *AppConfig {
	return &c.App
}

// Get config for dedup
func (c *Config) GetDedupConfig() *DedupConfig {
	return &c.Dedup
}

// Get config for scraping
func (c *Config) GetScraperConfig() *ScraperConfig {
	return &c.Scraper
}

// Get config for downloader
func (c *Config) GetDownloaderConfig() *DownloaderConfig {
	return &c.Downloader
}

// Get config for web panel
func (c *Config) GetWebPanelConfig() *WebPanelConfig {
	return &c.WebPanel
}

// Get config for RabbitMQ
func (c *Config) GetRabbitMQConfig() *RabbitMQConfig {
	return &c.RabbitMq
}
