package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Rank      RankConfig      `mapstructure:"rank"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Log       LogConfig       `mapstructure:"log"`
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
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
// Parameters: none.
// Returns:
//   - string: DSN for the configured driver.
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	default:
		return c.Path
	}
}

type StorageConfig struct {
	Provider string      `mapstructure:"provider"`
	Local    LocalConfig `mapstructure:"local"`
	S3       S3Config    `mapstructure:"s3"`
}

type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
	BaseURL  string `mapstructure:"base_url"`
}

type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	PublicURLBase   string `mapstructure:"public_url_base"`
}

type EmbeddingConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Dimensions  int           `mapstructure:"dimensions"`
	MaxInFlight int           `mapstructure:"max_in_flight"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type FetchConfig struct {
	Workers           int           `mapstructure:"workers"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxBytes          int64         `mapstructure:"max_bytes"`
}

type RankConfig struct {
	TopK               int           `mapstructure:"top_k"`
	DuplicateThreshold float64       `mapstructure:"duplicate_threshold"`
	HeuristicFloor     int           `mapstructure:"heuristic_floor"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
}

type SourcesConfig struct {
	Pinterest    PinterestConfig    `mapstructure:"pinterest"`
	GoogleImages GoogleImagesConfig `mapstructure:"google_images"`
	LocalDataset LocalDatasetConfig `mapstructure:"local_dataset"`
	PerSource    int                `mapstructure:"per_source_limit"`
}

type PinterestConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	AccessToken string `mapstructure:"access_token"`
	BaseURL     string `mapstructure:"base_url"`
}

type GoogleImagesConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LocalDatasetConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ManifestPath string `mapstructure:"manifest_path"`
}

type CorpusConfig struct {
	SeedDir string `mapstructure:"seed_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/decorscout.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local.base_path", "./data/exemplars")
	v.SetDefault("storage.local.base_url", "http://localhost:8080/exemplars")
	v.SetDefault("storage.s3.region", "ap-south-1")
	v.SetDefault("storage.s3.bucket", "decorscout-exemplars")
	v.SetDefault("embedding.base_url", "http://localhost:8100")
	v.SetDefault("embedding.model", "clip-vit-base-patch32")
	v.SetDefault("embedding.dimensions", 512)
	v.SetDefault("embedding.max_in_flight", 2)
	v.SetDefault("embedding.cache_ttl", 24*time.Hour)
	v.SetDefault("fetch.workers", 8)
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.request_timeout", 90*time.Second)
	v.SetDefault("fetch.requests_per_second", 4.0)
	v.SetDefault("fetch.burst", 4)
	v.SetDefault("fetch.max_bytes", 15*1024*1024)
	v.SetDefault("rank.top_k", 10)
	v.SetDefault("rank.duplicate_threshold", 0.95)
	v.SetDefault("rank.heuristic_floor", 0)
	v.SetDefault("rank.session_ttl", 30*time.Minute)
	v.SetDefault("sources.per_source_limit", 25)
	v.SetDefault("sources.pinterest.enabled", true)
	v.SetDefault("sources.pinterest.base_url", "https://api.pinterest.com/v5")
	v.SetDefault("sources.google_images.enabled", true)
	v.SetDefault("sources.local_dataset.enabled", false)
	v.SetDefault("sources.local_dataset.manifest_path", "./data/dataset/manifest.jsonl")
	v.SetDefault("corpus.seed_dir", "./data/seed")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("storage.s3.access_key_id", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("embedding.base_url", "CLIP_BASE_URL")
	v.BindEnv("embedding.api_key", "CLIP_API_KEY")
	v.BindEnv("sources.pinterest.access_token", "PINTEREST_ACCESS_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
