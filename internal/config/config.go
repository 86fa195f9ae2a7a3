package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	VectorStore   VectorStoreConfig   `mapstructure:"vector_store"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Completion    CompletionConfig    `mapstructure:"completion"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	QA            QAConfig            `mapstructure:"qa"`
	Lock          LockConfig          `mapstructure:"lock"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Log           LogConfig           `mapstructure:"log"`
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
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
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
	LogQueries      bool          `mapstructure:"log_queries"`
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type VectorStoreConfig struct {
	Provider string        `mapstructure:"provider"` // chromem, qdrant
	Timeout  time.Duration `mapstructure:"timeout"`
	Chromem  ChromemConfig `mapstructure:"chromem"`
	Qdrant   QdrantConfig  `mapstructure:"qdrant"`
}

type ChromemConfig struct {
	// Path of the persistent database directory; empty keeps collections in memory.
	Path     string `mapstructure:"path"`
	Compress bool   `mapstructure:"compress"`
}

type QdrantConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
	UseTLS bool   `mapstructure:"use_tls"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"` // openai, ollama
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Dimensions int           `mapstructure:"dimensions"`
	BatchSize  int           `mapstructure:"batch_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type CompletionConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, ollama
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TranscriptionConfig struct {
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	YtDlpPath string        `mapstructure:"ytdlp_path"`
	WorkDir   string        `mapstructure:"work_dir"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ChunkingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

type QAConfig struct {
	TopK        int               `mapstructure:"top_k"`
	Placeholder PlaceholderConfig `mapstructure:"placeholder"`
}

type PlaceholderConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Answer     string  `mapstructure:"answer"`
	Confidence float64 `mapstructure:"confidence"`
}

type LockConfig struct {
	Provider string        `mapstructure:"provider"` // memory, redis
	TTL      time.Duration `mapstructure:"ttl"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // r2, s3, s3compatible, memory; empty detects from endpoint
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Environment string `mapstructure:"environment"`
	File        string `mapstructure:"file"`
	FileOnly    bool   `mapstructure:"file_only"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/videoqa.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "videoqa")
	v.SetDefault("database.name", "videoqa")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("vector_store.provider", "chromem")
	v.SetDefault("vector_store.timeout", 30*time.Second)
	v.SetDefault("vector_store.qdrant.host", "localhost")
	v.SetDefault("vector_store.qdrant.port", 6334)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.batch_size", 100)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.model", "gpt-4o-mini")
	v.SetDefault("completion.base_url", "https://api.openai.com/v1")
	v.SetDefault("completion.temperature", 0.0)
	v.SetDefault("completion.max_tokens", 1024)
	v.SetDefault("completion.timeout", 60*time.Second)

	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("transcription.base_url", "https://api.openai.com/v1")
	v.SetDefault("transcription.ytdlp_path", "yt-dlp")
	v.SetDefault("transcription.timeout", 10*time.Minute)

	v.SetDefault("chunking.chunk_size", 1000)
	v.SetDefault("chunking.chunk_overlap", 200)

	v.SetDefault("qa.top_k", 3)
	v.SetDefault("qa.placeholder.enabled", true)
	v.SetDefault("qa.placeholder.answer", "reponse")
	v.SetDefault("qa.placeholder.confidence", 0.95)

	v.SetDefault("lock.provider", "memory")
	v.SetDefault("lock.ttl", 15*time.Minute)
	v.SetDefault("lock.redis.addr", "localhost:6379")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "videoqa")
	v.SetDefault("storage.prefix", "transcripts/")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "local")
	v.SetDefault("log.file", "/var/log/videoqa/app.log")
}

// Load reads configuration from configPath (or ./configs/config.yaml, ./config.yaml),
// a .env file, and environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
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

	// Secrets and endpoints commonly injected by the deployment
	v.BindEnv("database.password", "POSTGRES_PASSWORD")
	v.BindEnv("vector_store.qdrant.host", "QDRANT_HOST")
	v.BindEnv("vector_store.qdrant.port", "QDRANT_PORT")
	v.BindEnv("vector_store.qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("embedding.api_key", "OPENAI_API_KEY")
	v.BindEnv("completion.api_key", "OPENAI_API_KEY")
	v.BindEnv("transcription.api_key", "OPENAI_API_KEY")
	v.BindEnv("completion.model", "OPENAI_MODEL")
	v.BindEnv("embedding.model", "OPENAI_EMBEDDING_MODEL")
	v.BindEnv("lock.redis.addr", "REDIS_ADDR")
	v.BindEnv("lock.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, %d), got %d",
			c.Chunking.ChunkSize, c.Chunking.ChunkOverlap)
	}
	if c.QA.TopK <= 0 {
		return fmt.Errorf("qa.top_k must be positive, got %d", c.QA.TopK)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}

	checks := []struct {
		key   string
		value string
		known []string
	}{
		{"database.driver", c.Database.Driver, []string{"sqlite", "postgres"}},
		{"vector_store.provider", c.VectorStore.Provider, []string{"chromem", "qdrant"}},
		{"embedding.provider", c.Embedding.Provider, []string{"openai", "ollama"}},
		{"completion.provider", c.Completion.Provider, []string{"openai", "ollama"}},
		{"lock.provider", c.Lock.Provider, []string{"memory", "redis"}},
	}
	for _, chk := range checks {
		if !contains(chk.known, chk.value) {
			return fmt.Errorf("%s: unknown value %q (want one of %s)", chk.key, chk.value, strings.Join(chk.known, ", "))
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
