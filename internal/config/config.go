package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/terrain-microservice/internal/terrain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Worker   WorkerConfig
	Mapbox   MapboxConfig
	Analysis terrain.Config
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	BodyLimit   int
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	StreamMaxLen int64
}

type CacheConfig struct {
	ResultTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	BatchSize         int64
	Concurrency       int
	StaleJobTimeout   time.Duration
	SweepInterval     time.Duration
}

type MapboxConfig struct {
	BaseURL     string
	Token       string
	Tileset     string
	Timeout     time.Duration
	MaxTiles    int
	Concurrency int
	MaxRetries  uint64
	// параметры circuit breaker
	BreakerTimeout     time.Duration
	BreakerMaxRequests uint32
	BreakerFailures    uint32
}

func setDefaults(v *viper.Viper) {
	a := terrain.DefaultConfig()

	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "development")
	v.SetDefault("API_BODY_LIMIT", 64*1024*1024)

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_POOL_SIZE", 20)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	v.SetDefault("REDIS_STREAM_MAXLEN", 100000)

	v.SetDefault("RESULT_CACHE_TTL", 3600)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("WORKER_ENABLED", true)
	v.SetDefault("WORKER_CONSUMER_GROUP", "terrain-analysis-workers")
	v.SetDefault("WORKER_STREAM_READ_TIMEOUT", 5000)
	v.SetDefault("WORKER_BATCH_SIZE", 4)
	v.SetDefault("WORKER_CONCURRENCY", 2)
	v.SetDefault("WORKER_STALE_JOB_TIMEOUT", 1800)
	v.SetDefault("WORKER_SWEEP_INTERVAL", 5)

	v.SetDefault("MAPBOX_BASE_URL", "https://api.mapbox.com")
	v.SetDefault("MAPBOX_TILESET", "mapbox.terrain-rgb")
	v.SetDefault("MAPBOX_TIMEOUT", 10)
	v.SetDefault("MAPBOX_BREAKER_TIMEOUT", 30)
	v.SetDefault("MAPBOX_BREAKER_MAX_REQUESTS", 1)
	v.SetDefault("MAPBOX_BREAKER_FAILURES", 5)
	v.SetDefault("MAPBOX_MAX_TILES", 64)
	v.SetDefault("MAPBOX_CONCURRENCY", 4)
	v.SetDefault("MAPBOX_MAX_RETRIES", 2)

	v.SetDefault("ANALYSIS_FLAT_SLOPE_THRESHOLD", a.FlatSlopeThreshold)
	v.SetDefault("ANALYSIS_STEEPNESS_FLAT", a.Steepness.Flat)
	v.SetDefault("ANALYSIS_STEEPNESS_MODERATE", a.Steepness.Moderate)
	v.SetDefault("ANALYSIS_STEEPNESS_STEEP", a.Steepness.Steep)
	v.SetDefault("ANALYSIS_MAX_BUILDABLE_SLOPE", a.MaxBuildableSlope)
	v.SetDefault("ANALYSIS_SMOOTHING_ENABLED", a.SmoothingEnabled)
	v.SetDefault("ANALYSIS_SMOOTHING_KERNEL_SIZE", a.SmoothingKernelSize)
	v.SetDefault("ANALYSIS_SAMPLE_INTERVAL", a.SampleInterval)
	v.SetDefault("ANALYSIS_MAX_GRADE_THRESHOLD", a.MaxGradeThreshold)
	v.SetDefault("ANALYSIS_INTERPOLATION_METHOD", string(a.Interpolation))
	v.SetDefault("ANALYSIS_VALIDATION_TOLERANCE", a.ValidationTolerance)
	v.SetDefault("ANALYSIS_RMSE_THRESHOLD", a.RMSEThreshold)
	v.SetDefault("ANALYSIS_MAX_GRID_CELLS", a.MaxGridCells)
	v.SetDefault("ANALYSIS_MAX_PROFILE_SAMPLES", a.MaxProfileSamples)
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile читает конфигурацию из указанного env-файла; отсутствие файла не ошибка
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	method, err := terrain.ParseInterpolationMethod(v.GetString("ANALYSIS_INTERPOLATION_METHOD"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_INTERPOLATION_METHOD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("API_HOST"),
			Port:        v.GetInt("API_PORT"),
			Env:         v.GetString("API_ENV"),
			BodyLimit:   v.GetInt("API_BODY_LIMIT"),
			CORSOrigins: v.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:         v.GetString("REDIS_HOST"),
			Port:         v.GetInt("REDIS_PORT"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			DialTimeout:  time.Duration(v.GetInt("REDIS_DIAL_TIMEOUT")) * time.Second,
			StreamMaxLen: v.GetInt64("REDIS_STREAM_MAXLEN"),
		},
		Cache: CacheConfig{
			ResultTTL: time.Duration(v.GetInt("RESULT_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			BatchSize:         v.GetInt64("WORKER_BATCH_SIZE"),
			Concurrency:       v.GetInt("WORKER_CONCURRENCY"),
			StaleJobTimeout:   time.Duration(v.GetInt("WORKER_STALE_JOB_TIMEOUT")) * time.Second,
			SweepInterval:     time.Duration(v.GetInt("WORKER_SWEEP_INTERVAL")) * time.Minute,
		},
		Mapbox: MapboxConfig{
			BaseURL:            v.GetString("MAPBOX_BASE_URL"),
			Token:              v.GetString("MAPBOX_TOKEN"),
			Tileset:            v.GetString("MAPBOX_TILESET"),
			Timeout:            time.Duration(v.GetInt("MAPBOX_TIMEOUT")) * time.Second,
			MaxTiles:           v.GetInt("MAPBOX_MAX_TILES"),
			Concurrency:        v.GetInt("MAPBOX_CONCURRENCY"),
			MaxRetries:         v.GetUint64("MAPBOX_MAX_RETRIES"),
			BreakerTimeout:     time.Duration(v.GetInt("MAPBOX_BREAKER_TIMEOUT")) * time.Second,
			BreakerMaxRequests: v.GetUint32("MAPBOX_BREAKER_MAX_REQUESTS"),
			BreakerFailures:    v.GetUint32("MAPBOX_BREAKER_FAILURES"),
		},
		Analysis: terrain.Config{
			FlatSlopeThreshold: v.GetFloat64("ANALYSIS_FLAT_SLOPE_THRESHOLD"),
			Steepness: terrain.SteepnessThresholds{
				Flat:     v.GetFloat64("ANALYSIS_STEEPNESS_FLAT"),
				Moderate: v.GetFloat64("ANALYSIS_STEEPNESS_MODERATE"),
				Steep:    v.GetFloat64("ANALYSIS_STEEPNESS_STEEP"),
			},
			MaxBuildableSlope:   v.GetFloat64("ANALYSIS_MAX_BUILDABLE_SLOPE"),
			SmoothingEnabled:    v.GetBool("ANALYSIS_SMOOTHING_ENABLED"),
			SmoothingKernelSize: v.GetInt("ANALYSIS_SMOOTHING_KERNEL_SIZE"),
			SampleInterval:      v.GetFloat64("ANALYSIS_SAMPLE_INTERVAL"),
			MaxGradeThreshold:   v.GetFloat64("ANALYSIS_MAX_GRADE_THRESHOLD"),
			Interpolation:       method,
			ValidationTolerance: v.GetFloat64("ANALYSIS_VALIDATION_TOLERANCE"),
			RMSEThreshold:       v.GetFloat64("ANALYSIS_RMSE_THRESHOLD"),
			MaxGridCells:        v.GetInt("ANALYSIS_MAX_GRID_CELLS"),
			MaxProfileSamples:   v.GetInt("ANALYSIS_MAX_PROFILE_SAMPLES"),
		},
	}

	if err := cfg.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	if cfg.Worker.BatchSize <= 0 {
		cfg.Worker.BatchSize = 1
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 1
	}

	return cfg, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// DSN строка подключения в формате key=value для драйвера pgx
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
