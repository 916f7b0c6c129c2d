package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Sync     SyncConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// SyncConfig governs the LMS synchronization subsystem: batch bounds, run
// cadences, queue routing, and vendor-specific knobs.
type SyncConfig struct {
	// BatchLimit bounds how many pending records one run may fetch.
	BatchLimit int
	// DefaultSchoolID is the school a run targets when the dispatch message
	// carries none.
	DefaultSchoolID string
	// ConflictGrace is subtracted from a class's local updated_at before it
	// is compared with the upstream pulled_at, tolerating clock skew between
	// the mirroring process and the canonical store.
	ConflictGrace time.Duration

	// Per-job scheduler cadences.
	ZoneInterval       time.Duration
	CourseInterval     time.Duration
	ClassInterval      time.Duration
	AssignmentInterval time.Duration
	ScoreInterval      time.Duration
	ActivityInterval   time.Duration

	// QueueName is the redis list the dispatch router consumes.
	QueueName string
	// DLQSuffix is appended to QueueName for undeliverable messages.
	DLQSuffix string
	// Workers sizes the in-process run executor pool.
	Workers int

	// EdmentumReservedProgramID is the vendor program excluded from zone
	// sync.
	EdmentumReservedProgramID string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Sync = SyncConfig{
		BatchLimit:                v.GetInt("SYNC_BATCH_LIMIT"),
		DefaultSchoolID:           v.GetString("SYNC_DEFAULT_SCHOOL_ID"),
		ConflictGrace:             parseDuration(v.GetString("SYNC_CONFLICT_GRACE"), 0),
		ZoneInterval:              parseDuration(v.GetString("SYNC_ZONE_INTERVAL"), 2*time.Minute),
		CourseInterval:            parseDuration(v.GetString("SYNC_COURSE_INTERVAL"), 2*time.Minute),
		ClassInterval:             parseDuration(v.GetString("SYNC_CLASS_INTERVAL"), 2*time.Minute),
		AssignmentInterval:        parseDuration(v.GetString("SYNC_ASSIGNMENT_INTERVAL"), 5*time.Minute),
		ScoreInterval:             parseDuration(v.GetString("SYNC_SCORE_INTERVAL"), 5*time.Minute),
		ActivityInterval:          parseDuration(v.GetString("SYNC_ACTIVITY_INTERVAL"), 5*time.Minute),
		QueueName:                 v.GetString("SYNC_QUEUE_NAME"),
		DLQSuffix:                 v.GetString("SYNC_QUEUE_DLQ_SUFFIX"),
		Workers:                   v.GetInt("SYNC_WORKERS"),
		EdmentumReservedProgramID: v.GetString("EDMENTUM_RESERVED_PROGRAM_ID"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8081)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sis_sync")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SYNC_BATCH_LIMIT", 200)
	v.SetDefault("SYNC_DEFAULT_SCHOOL_ID", "")
	v.SetDefault("SYNC_CONFLICT_GRACE", "0s")
	v.SetDefault("SYNC_ZONE_INTERVAL", "2m")
	v.SetDefault("SYNC_COURSE_INTERVAL", "2m")
	v.SetDefault("SYNC_CLASS_INTERVAL", "2m")
	v.SetDefault("SYNC_ASSIGNMENT_INTERVAL", "5m")
	v.SetDefault("SYNC_SCORE_INTERVAL", "5m")
	v.SetDefault("SYNC_ACTIVITY_INTERVAL", "5m")
	v.SetDefault("SYNC_QUEUE_NAME", "sis:sync:dispatch")
	v.SetDefault("SYNC_QUEUE_DLQ_SUFFIX", ":dlq")
	v.SetDefault("SYNC_WORKERS", 2)
	v.SetDefault("EDMENTUM_RESERVED_PROGRAM_ID", "0")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
