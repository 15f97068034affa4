package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Storage       StorageConfig       `yaml:"storage"`
	Queue         QueueConfig         `yaml:"queue"`
	Auth          AuthConfig          `yaml:"auth"`
	Captions      CaptionsConfig      `yaml:"captions"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Media         MediaConfig         `yaml:"media"`
	Summarizer    SummarizerConfig    `yaml:"summarizer"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	Mail          MailConfig          `yaml:"mail"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig holds database configuration.
// Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"dbname"`
	SSLMode    string `yaml:"sslmode"`
	MaxConns   int    `yaml:"maxConns"`
	MinConns   int    `yaml:"minConns"`
	SQLitePath string `yaml:"sqlitePath"`
	// SlowQueryThreshold is the duration above which PostgreSQL queries are logged
	SlowQueryThreshold time.Duration `yaml:"slowQueryThreshold"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"accessKeyID"`
	SecretAccessKey string        `yaml:"secretAccessKey"`
	BucketName      string        `yaml:"bucketName"`
	Region          string        `yaml:"region"`
	UseSSL          bool          `yaml:"useSSL"`
	URLExpiry       time.Duration `yaml:"urlExpiry"`
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Vhost    string `yaml:"vhost"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

// CaptionsConfig holds settings for the caption service
type CaptionsConfig struct {
	BaseURL        string        `yaml:"baseURL"`
	HTTPTimeout    time.Duration `yaml:"httpTimeout"`
	UserAgent      string        `yaml:"userAgent"`
	AcceptLanguage string        `yaml:"acceptLanguage"`
}

// TranscriptionConfig holds transcript pipeline settings
type TranscriptionConfig struct {
	DefaultLanguages   []string `yaml:"defaultLanguages"`
	MaxDurationSeconds float64  `yaml:"maxDurationSeconds"`
	TempDir            string   `yaml:"tempDir"`
	SampleRate         int      `yaml:"sampleRate"`
	EnableCoreference  bool     `yaml:"enableCoreference"`
}

// MediaConfig holds external tool paths
type MediaConfig struct {
	YtDlpPath      string `yaml:"ytDlpPath"`
	FFmpegPath     string `yaml:"ffmpegPath"`
	FFprobePath    string `yaml:"ffprobePath"`
	WhisperPath    string `yaml:"whisperPath"`
	WhisperModel   string `yaml:"whisperModel"`
	WhisperThreads int    `yaml:"whisperThreads"`
}

// SummarizerConfig holds settings for the summarization model service
type SummarizerConfig struct {
	BaseURL          string        `yaml:"baseURL"`
	Timeout          time.Duration `yaml:"timeout"`
	DefaultSentences int           `yaml:"defaultSentences"`
}

// AssistantConfig holds settings for the FAQ assistant
type AssistantConfig struct {
	APIKey           string        `yaml:"apiKey"`
	Model            string        `yaml:"model"`
	CoreferenceModel string        `yaml:"coreferenceModel"`
	CacheTTL         time.Duration `yaml:"cacheTTL"`
}

// MailConfig holds SMTP settings for feedback delivery
type MailConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	From              string `yaml:"from"`
	FeedbackRecipient string `yaml:"feedbackRecipient"`
}

// RateLimitConfig holds request throttling settings
type RateLimitConfig struct {
	RPS                     int `yaml:"rps"`
	Burst                   int `yaml:"burst"`
	AnonymousDailySummaries int `yaml:"anonymousDailySummaries"`
	LoginAttemptsPerMinute  int `yaml:"loginAttemptsPerMinute"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig holds Prometheus exporter settings
type MetricsConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	WorkerPort int  `yaml:"workerPort"`
}

// TracingConfig holds Jaeger settings
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
	Endpoint    string `yaml:"endpoint"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return unmarshal(viper.GetViper())
}

// Watch re-reads the config file whenever it changes and hands the
// new configuration to onChange. Load must be called first.
func Watch(onChange func(*Config, fsnotify.Event)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg, err := unmarshal(viper.GetViper())
		if err != nil {
			return
		}
		onChange(cfg, e)
	})
	viper.WatchConfig()
}

// Defaults returns a configuration populated only with default values
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return unmarshal(v)
}

// WriteDefault writes a YAML file containing every default value
func WriteDefault(path string) error {
	cfg, err := Defaults()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "10m")
	v.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "vidsum")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 25)
	v.SetDefault("database.minConns", 5)
	v.SetDefault("database.sqlitePath", "data.sqlite3")
	v.SetDefault("database.slowQueryThreshold", 200*time.Millisecond)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("storage.urlExpiry", "1h")

	// Queue defaults
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")

	// Auth defaults
	v.SetDefault("auth.jwtSecret", "change-me")
	v.SetDefault("auth.tokenTTL", "24h")

	// Caption service defaults
	v.SetDefault("captions.baseURL", "https://www.youtube.com")
	v.SetDefault("captions.httpTimeout", "30s")
	v.SetDefault("captions.userAgent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("captions.acceptLanguage", "en-US,en;q=0.9")

	// Transcription defaults
	v.SetDefault("transcription.defaultLanguages", []string{"en", "hi", "mr"})
	v.SetDefault("transcription.maxDurationSeconds", 7200)
	v.SetDefault("transcription.tempDir", "/tmp/vidsum")
	v.SetDefault("transcription.sampleRate", 16000)
	v.SetDefault("transcription.enableCoreference", false)

	// Media tool defaults
	v.SetDefault("media.ytDlpPath", "yt-dlp")
	v.SetDefault("media.ffmpegPath", "ffmpeg")
	v.SetDefault("media.ffprobePath", "ffprobe")
	v.SetDefault("media.whisperPath", "whisper-cli")
	v.SetDefault("media.whisperModel", "models/ggml-medium.bin")
	v.SetDefault("media.whisperThreads", 4)

	// Summarizer defaults
	v.SetDefault("summarizer.baseURL", "http://localhost:8000")
	v.SetDefault("summarizer.timeout", "5m")
	v.SetDefault("summarizer.defaultSentences", 5)

	// Assistant defaults
	v.SetDefault("assistant.apiKey", "")
	v.SetDefault("assistant.model", "tunedModels/yttranscriptionassistant-wdh9ly1qx7f9")
	v.SetDefault("assistant.coreferenceModel", "gemini-2.0-flash")
	v.SetDefault("assistant.cacheTTL", "1h")

	// Mail defaults
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.feedbackRecipient", "")

	// Rate limit defaults
	v.SetDefault("ratelimit.rps", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.anonymousDailySummaries", 3)
	v.SetDefault("ratelimit.loginAttemptsPerMinute", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.workerPort", 9091)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "vidsum")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
}
