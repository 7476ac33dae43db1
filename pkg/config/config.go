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
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Scraper  ScraperConfig
	Ratings  RatingsConfig
	CacheTTL CacheTTLConfig
	Warmup   WarmupConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScraperConfig tunes the upstream schedule (Banner/PAWS) client.
type ScraperConfig struct {
	BaseURL            string
	TermSelectPath     string
	SearchPath         string
	UserAgent          string
	Timeout            time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
	MaxRetryDelay      time.Duration
	SubjectPause       time.Duration
	ConcurrentRequests int
	RequestsPerSecond  float64
}

// RatingsConfig tunes the instructor ratings client.
type RatingsConfig struct {
	BaseURL       string
	GraphQLPath   string
	SchoolID      string
	SchoolName    string
	Authorization string
	Timeout       time.Duration
	MaxRetries    int
}

// CacheTTLConfig holds per-category cache lifetimes. Ratings change slowly
// and get a longer TTL than course seat counts.
type CacheTTLConfig struct {
	Courses time.Duration
	Ratings time.Duration
}

// WarmupConfig controls the background cache warm-up queue.
type WarmupConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
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
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scraper = ScraperConfig{
		BaseURL:            v.GetString("SCHEDULE_BASE_URL"),
		TermSelectPath:     v.GetString("SCHEDULE_TERM_PATH"),
		SearchPath:         v.GetString("SCHEDULE_SEARCH_PATH"),
		UserAgent:          v.GetString("SCRAPER_USER_AGENT"),
		Timeout:            parseDuration(v.GetString("SCRAPER_TIMEOUT"), 30*time.Second),
		MaxRetries:         v.GetInt("SCRAPER_MAX_RETRIES"),
		RetryDelay:         parseDuration(v.GetString("SCRAPER_RETRY_DELAY"), 2*time.Second),
		MaxRetryDelay:      parseDuration(v.GetString("SCRAPER_MAX_RETRY_DELAY"), 10*time.Second),
		SubjectPause:       parseDuration(v.GetString("SCRAPER_SUBJECT_PAUSE"), 2*time.Second),
		ConcurrentRequests: v.GetInt("SCRAPER_CONCURRENT_REQUESTS"),
		RequestsPerSecond:  v.GetFloat64("SCRAPER_REQUESTS_PER_SECOND"),
	}

	cfg.Ratings = RatingsConfig{
		BaseURL:       v.GetString("RATINGS_BASE_URL"),
		GraphQLPath:   v.GetString("RATINGS_GRAPHQL_PATH"),
		SchoolID:      v.GetString("RATINGS_SCHOOL_ID"),
		SchoolName:    v.GetString("RATINGS_SCHOOL_NAME"),
		Authorization: v.GetString("RATINGS_AUTHORIZATION"),
		Timeout:       parseDuration(v.GetString("RATINGS_TIMEOUT"), 30*time.Second),
		MaxRetries:    v.GetInt("RATINGS_MAX_RETRIES"),
	}

	cfg.CacheTTL = CacheTTLConfig{
		Courses: parseDuration(v.GetString("CACHE_TTL_COURSES"), time.Hour),
		Ratings: parseDuration(v.GetString("CACHE_TTL_RATINGS"), 24*time.Hour),
	}

	cfg.Warmup = WarmupConfig{
		Enabled:    v.GetBool("ENABLE_CACHE_WARMUP"),
		Workers:    v.GetInt("CACHE_WARMUP_WORKERS"),
		BufferSize: v.GetInt("CACHE_WARMUP_BUFFER"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coursescout")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULE_BASE_URL", "https://www.gosolar.gsu.edu")
	v.SetDefault("SCHEDULE_TERM_PATH", "/bprod/bwckgens.p_proc_term_date")
	v.SetDefault("SCHEDULE_SEARCH_PATH", "/bprod/bwckschd.p_get_crse_unsec")
	v.SetDefault("SCRAPER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("SCRAPER_TIMEOUT", "30s")
	v.SetDefault("SCRAPER_MAX_RETRIES", 3)
	v.SetDefault("SCRAPER_RETRY_DELAY", "2s")
	v.SetDefault("SCRAPER_MAX_RETRY_DELAY", "10s")
	v.SetDefault("SCRAPER_SUBJECT_PAUSE", "2s")
	v.SetDefault("SCRAPER_CONCURRENT_REQUESTS", 5)
	v.SetDefault("SCRAPER_REQUESTS_PER_SECOND", 2.0)

	v.SetDefault("RATINGS_BASE_URL", "https://www.ratemyprofessors.com")
	v.SetDefault("RATINGS_GRAPHQL_PATH", "/graphql")
	v.SetDefault("RATINGS_SCHOOL_ID", "U2Nob29sLTM1MQ==")
	v.SetDefault("RATINGS_SCHOOL_NAME", "Georgia State University")
	v.SetDefault("RATINGS_AUTHORIZATION", "Basic dGVzdDp0ZXN0")
	v.SetDefault("RATINGS_TIMEOUT", "30s")
	v.SetDefault("RATINGS_MAX_RETRIES", 3)

	v.SetDefault("CACHE_TTL_COURSES", "1h")
	v.SetDefault("CACHE_TTL_RATINGS", "24h")

	v.SetDefault("ENABLE_CACHE_WARMUP", false)
	v.SetDefault("CACHE_WARMUP_WORKERS", 2)
	v.SetDefault("CACHE_WARMUP_BUFFER", 16)
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
