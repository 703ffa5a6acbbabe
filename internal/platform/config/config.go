package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "dossier/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogFormat       string
	LogLevel        string
	ShutdownTimeout time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Blob     BlobConfig
	Auth     AuthConfig
	Notify   NotifyConfig
	Limits   RateLimitConfig
}

// DatabaseConfig is empty when the service runs on in-memory stores.
type DatabaseConfig struct {
	URL            string
	MaxConns       int32
	MigrateOnStart bool
}

// RedisConfig configures the download URL cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures notification and audit streaming. No brokers means
// notifications are only logged and the outbox relay does not run.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	NotifyTopic       string
	AuditTopicPrefix  string
	EnsureTopics      bool
	Partitions        int32
	ReplicationFactor int16
	RelayInterval     time.Duration
}

type BlobConfig struct {
	DataDir     string
	BaseURL     string
	DownloadTTL time.Duration
}

type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
}

type NotifyConfig struct {
	SendTimeout      time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// RateLimitConfig caps uploads and download link issuance per user. A zero
// request count disables the corresponding limit.
type RateLimitConfig struct {
	UploadRequests   int
	UploadWindow     time.Duration
	DownloadRequests int
	DownloadWindow   time.Duration
}

// Enabled reports whether Postgres persistence is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// Enabled reports whether Kafka is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first; variables already set
// in the environment take precedence over it.
func FromEnv() (Server, error) {
	_ = godotenv.Load()
	return load()
}

func load() (Server, error) {
	var (
		cfg Server
		err error
	)
	cfg.Addr = getEnv("DOSSIER_ADDR", ":8080")
	cfg.Environment = getEnv("ENVIRONMENT", "development")
	cfg.LogFormat = getEnv("LOG_FORMAT", defaultLogFormat(cfg.Environment))
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return Server{}, err
	}

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	maxConns, err := getInt("DATABASE_MAX_CONNS", 10)
	if err != nil {
		return Server{}, err
	}
	cfg.Database.MaxConns = int32(maxConns)
	cfg.Database.MigrateOnStart = getBool("DATABASE_MIGRATE", true)

	cfg.Redis.URL = os.Getenv("REDIS_URL")
	if cfg.Redis.PoolSize, err = getInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = getDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}

	cfg.Kafka.Brokers = platformstrings.SplitUnique(os.Getenv("KAFKA_BROKERS"), ",")
	cfg.Kafka.ClientID = getEnv("KAFKA_CLIENT_ID", "dossier")
	cfg.Kafka.NotifyTopic = getEnv("KAFKA_NOTIFY_TOPIC", "dossier.notifications")
	cfg.Kafka.AuditTopicPrefix = getEnv("KAFKA_AUDIT_TOPIC_PREFIX", "dossier.audit")
	cfg.Kafka.EnsureTopics = getBool("KAFKA_ENSURE_TOPICS", false)
	partitions, err := getInt("KAFKA_TOPIC_PARTITIONS", 3)
	if err != nil {
		return Server{}, err
	}
	cfg.Kafka.Partitions = int32(partitions)
	replication, err := getInt("KAFKA_TOPIC_REPLICATION", 1)
	if err != nil {
		return Server{}, err
	}
	cfg.Kafka.ReplicationFactor = int16(replication)
	if cfg.Kafka.RelayInterval, err = getDuration("AUDIT_RELAY_INTERVAL", 2*time.Second); err != nil {
		return Server{}, err
	}

	cfg.Blob.DataDir = getEnv("BLOB_DATA_DIR", "./data/blobs")
	cfg.Blob.BaseURL = strings.TrimRight(getEnv("BLOB_BASE_URL", "http://localhost:8080"), "/")
	if cfg.Blob.DownloadTTL, err = getDuration("BLOB_DOWNLOAD_TTL", 15*time.Minute); err != nil {
		return Server{}, err
	}

	cfg.Auth.JWTSigningKey = os.Getenv("JWT_SIGNING_KEY")
	cfg.Auth.JWTIssuer = getEnv("JWT_ISSUER", "dossier")
	cfg.Auth.JWTAudience = getEnv("JWT_AUDIENCE", "dossier-api")
	cfg.Auth.AdminToken = os.Getenv("ADMIN_API_TOKEN")
	if cfg.Auth.JWTSigningKey == "" {
		if cfg.Environment == "production" {
			return Server{}, fmt.Errorf("JWT_SIGNING_KEY is required in production")
		}
		cfg.Auth.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	if cfg.Notify.SendTimeout, err = getDuration("NOTIFY_SEND_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Notify.FailureThreshold, err = getInt("NOTIFY_FAILURE_THRESHOLD", 5); err != nil {
		return Server{}, err
	}
	if cfg.Notify.Cooldown, err = getDuration("NOTIFY_COOLDOWN", 30*time.Second); err != nil {
		return Server{}, err
	}

	if cfg.Limits.UploadRequests, err = getInt("RATE_LIMIT_UPLOADS", 60); err != nil {
		return Server{}, err
	}
	if cfg.Limits.UploadWindow, err = getDuration("RATE_LIMIT_UPLOAD_WINDOW", time.Hour); err != nil {
		return Server{}, err
	}
	if cfg.Limits.DownloadRequests, err = getInt("RATE_LIMIT_DOWNLOADS", 120); err != nil {
		return Server{}, err
	}
	if cfg.Limits.DownloadWindow, err = getDuration("RATE_LIMIT_DOWNLOAD_WINDOW", time.Minute); err != nil {
		return Server{}, err
	}

	return cfg, nil
}

func defaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "text"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func getBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}
