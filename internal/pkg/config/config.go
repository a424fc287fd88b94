package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, thresholds), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Log        LogConfig
	Fraud      FraudConfig
	Redemption RedemptionConfig
	Reconcile  ReconcileConfig
	Directory  DirectoryConfig
	Lock       LockConfig
	Tracing    TracingConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

// FraudConfig holds the detector tunables. None of these are business constants;
// operators are expected to tune them per deployment.
type FraudConfig struct {
	VelocityWindow        time.Duration `envconfig:"FRAUD_VELOCITY_WINDOW" default:"1h"`
	VelocityLimit         int           `envconfig:"FRAUD_VELOCITY_LIMIT" default:"5"`
	RapidInterval         time.Duration `envconfig:"FRAUD_RAPID_INTERVAL" default:"30s"`
	MaxSpeedKmh           float64       `envconfig:"FRAUD_MAX_SPEED_KMH" default:"1000"`
	MaxProviderDistanceKm float64       `envconfig:"FRAUD_MAX_PROVIDER_DISTANCE_KM" default:"50"`
	LocationJitterKm      float64       `envconfig:"FRAUD_LOCATION_JITTER_KM" default:"1"`
	HistoryLookback       time.Duration `envconfig:"FRAUD_HISTORY_LOOKBACK" default:"24h"`
	AttachMaxRetries      int           `envconfig:"FRAUD_ATTACH_MAX_RETRIES" default:"3"`
}

type RedemptionConfig struct {
	LookupTimeout    time.Duration `envconfig:"REDEMPTION_LOOKUP_TIMEOUT" default:"2s"`
	DetectionTimeout time.Duration `envconfig:"REDEMPTION_DETECTION_TIMEOUT" default:"5s"`
	MaxClockSkew     time.Duration `envconfig:"REDEMPTION_MAX_CLOCK_SKEW" default:"5m"`
}

type ReconcileConfig struct {
	Workers int `envconfig:"RECONCILE_WORKERS" default:"4"`
}

type DirectoryConfig struct {
	CacheSize int           `envconfig:"DIRECTORY_CACHE_SIZE" default:"1024"`
	CacheTTL  time.Duration `envconfig:"DIRECTORY_CACHE_TTL" default:"10m"`
}

type LockConfig struct {
	// memory: in-process keyed mutex (single instance)
	// postgres: session advisory locks (multiple instances)
	Backend string `envconfig:"LOCK_BACKEND" default:"postgres"`
}

type TracingConfig struct {
	Enabled      bool    `envconfig:"TRACING_ENABLED" default:"false"`
	OTLPEndpoint string  `envconfig:"TRACING_OTLP_ENDPOINT" default:"localhost:4318"`
	SampleRate   float64 `envconfig:"TRACING_SAMPLE_RATE" default:"1"`
}

const (
	LockBackendMemory   = "memory"
	LockBackendPostgres = "postgres"
)

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 10,
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "UTC",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 0,
		},
		Fraud: FraudConfig{
			VelocityWindow:        time.Hour,
			VelocityLimit:         5,
			RapidInterval:         30 * time.Second,
			MaxSpeedKmh:           1000,
			MaxProviderDistanceKm: 50,
			LocationJitterKm:      1,
			HistoryLookback:       24 * time.Hour,
			AttachMaxRetries:      3,
		},
		Redemption: RedemptionConfig{
			LookupTimeout:    time.Second,
			DetectionTimeout: 2 * time.Second,
			MaxClockSkew:     5 * time.Minute,
		},
		Reconcile: ReconcileConfig{
			Workers: 4,
		},
		Directory: DirectoryConfig{
			CacheSize: 128,
			CacheTTL:  time.Minute,
		},
		Lock: LockConfig{
			Backend: LockBackendMemory,
		},
	}
}
