package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
// An explicit URL wins over the discrete postgres fields.
func (c *DatabaseConfig) DSN() string {
	if c.Driver != "postgres" {
		// Connection parameters apply to every pooled connection.
		return c.Path + "?_foreign_keys=on&_busy_timeout=5000"
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// YouTubeConfig drives the platform adapter and the query it is sent.
type YouTubeConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	RequestInterval    time.Duration `mapstructure:"request_interval"`
	Timeout            time.Duration `mapstructure:"timeout"`
	SearchMaxResults   int           `mapstructure:"search_max_results"`
	QueryTemplate      string        `mapstructure:"query_template"`
	CaptionLanguages   []string      `mapstructure:"caption_languages"`
	TranscriptLanguage string        `mapstructure:"transcript_language"`
	HL                 string        `mapstructure:"hl"`
	GL                 string        `mapstructure:"gl"`
}

// PipelineConfig holds the admissibility thresholds and catalog selection.
type PipelineConfig struct {
	MinViews          int64  `mapstructure:"min_views"`
	MinDuration       int    `mapstructure:"min_duration"`
	TitleToken        string `mapstructure:"title_token"`
	PackagingType     string `mapstructure:"packaging_type"`
	StopOnSearchError bool   `mapstructure:"stop_on_search_error"`
}

// StorageConfig configures the optional raw caption archive.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

type ClassifierConfig struct {
	Provider           string        `mapstructure:"provider"`
	BaseURL            string        `mapstructure:"base_url"`
	Model              string        `mapstructure:"model"`
	APIKey             string        `mapstructure:"api_key"`
	Timeout            time.Duration `mapstructure:"timeout"`
	BatchSize          int           `mapstructure:"batch_size"`
	MinTranscriptChars int           `mapstructure:"min_transcript_chars"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("classifier.api_key", "OPENAI_API_KEY")
	v.BindEnv("classifier.base_url", "OPENAI_BASE_URL")
	v.BindEnv("classifier.model", "CLASSIFIER_MODEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/lego_reviews.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("youtube.base_url", "https://www.youtube.com")
	v.SetDefault("youtube.request_interval", 3*time.Second)
	v.SetDefault("youtube.timeout", 30*time.Second)
	v.SetDefault("youtube.search_max_results", 50)
	v.SetDefault("youtube.query_template", "LEGO %s review")
	v.SetDefault("youtube.caption_languages", []string{"en", "de", "da", "fr", "it"})
	v.SetDefault("youtube.transcript_language", "en")
	v.SetDefault("youtube.hl", "en")
	v.SetDefault("youtube.gl", "US")

	v.SetDefault("pipeline.min_views", 500)
	v.SetDefault("pipeline.min_duration", 60)
	v.SetDefault("pipeline.title_token", "review")
	v.SetDefault("pipeline.packaging_type", "box")
	v.SetDefault("pipeline.stop_on_search_error", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "lego-reviews")
	v.SetDefault("storage.prefix", "captions")

	v.SetDefault("classifier.provider", "ollama")
	v.SetDefault("classifier.model", "llama3.2")
	v.SetDefault("classifier.timeout", 120*time.Second)
	v.SetDefault("classifier.batch_size", 50)
	v.SetDefault("classifier.min_transcript_chars", 100)
}
