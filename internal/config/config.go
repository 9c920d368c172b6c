package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	DB     *DBConfig
	App    *AppConfig
	Redis  *RedisConfig
	Worker *WorkerConfig
	Reward *RewardConfig
	Ledger *LedgerConfig
	Ingest *IngestConfig
	Grant  *GrantConfig
}

type AppConfig struct {
	Name        string
	Env         string
	Port        string
	LogLevel    string
	LogFilePath string
	LogFile     logger.FileOptions
	BinFilePath string
}

type DBConfig struct {
	DBWrite     *DBConnConfig
	DBRead      *DBConnConfig
	DBPool      *DBPooling
	AutoMigrate bool
}

type DBConnConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type DBPooling struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       string
}

// WorkerConfig drives the ledger event stream consumers.
type WorkerConfig struct {
	WorkerCount int
	Instance    string
	Stream      string
	Group       string
	CacheTTL    time.Duration
}

// RewardConfig identifies the wallet the damage rewards land in and
// where the tier/drop catalog lives.
type RewardConfig struct {
	GameID            int64
	CurrencyID        int64
	CurrencyDecimals  int32
	CatalogFile       string
	Seed              uint64
	DropChanceEnabled bool
}

type LedgerConfig struct {
	MaxAttempts  int
	StreamKey    string
	StreamMaxLen int64
}

type IngestConfig struct {
	Concurrency  int
	MaxBatchSize int
	BatchTimeout time.Duration
	Password     string
}

type GrantConfig struct {
	MaxAttempts   int
	ReadyKey      string
	DeadLetterKey string
	DedupTTL      time.Duration
	BRPopBlock    time.Duration
	DBExecTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using process environment")
	}

	return &Config{
		DB:     LoadDBConfig(),
		App:    LoadAppConfig(),
		Redis:  LoadRedisConfig(),
		Worker: LoadWorkerConfig(),
		Reward: LoadRewardConfig(),
		Ledger: LoadLedgerConfig(),
		Ingest: LoadIngestConfig(),
		Grant:  LoadGrantConfig(),
	}
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "game-hub"),
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("APP_PORT", "3000"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		LogFilePath: getEnv("APP_LOG_FILE", "logs/app.log"),
		LogFile: logger.FileOptions{
			MaxSizeMB:  getEnvAsInt("APP_LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("APP_LOG_MAX_BACKUPS", 7),
			MaxAgeDays: getEnvAsInt("APP_LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvAsBool("APP_LOG_COMPRESS", true),
		},
		BinFilePath: getEnv("APP_BIN_FILE", "./bin/game-hub"),
	}
}

func LoadDBConfig() *DBConfig {
	return &DBConfig{
		DBWrite:     loadDBConn("DB_WRITE"),
		DBRead:      loadDBConn("DB_READ"),
		AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		DBPool: &DBPooling{
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME", 60),
			ConnMaxIdleTime: getEnvAsInt("DB_CONN_MAX_IDLE_TIME", 5),
		},
	}
}

func loadDBConn(prefix string) *DBConnConfig {
	return &DBConnConfig{
		Host:     getEnv(prefix+"_HOST", "localhost"),
		Port:     getEnv(prefix+"_PORT", "5432"),
		User:     getEnv(prefix+"_USER", "postgres"),
		Password: getEnv(prefix+"_PASSWORD", "password"),
		Name:     getEnv(prefix+"_NAME", "game_hub"),
		SSLMode:  getEnv(prefix+"_SSL_MODE", "disable"),
	}
}

func LoadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnv("REDIS_DB", "0"),
	}
}

func LoadWorkerConfig() *WorkerConfig {
	host, _ := os.Hostname()
	return &WorkerConfig{
		WorkerCount: getEnvAsInt("WORKER_COUNT", 2),
		Instance:    getEnv("WORKER_INSTANCE", host),
		Stream:      getEnv("LEDGER_STREAM", "stream:ledger"),
		Group:       getEnv("LEDGER_STREAM_GROUP", "balance_cache_cg"),
		CacheTTL:    getEnvAsDuration("BALANCE_CACHE_TTL", 24*time.Hour),
	}
}

func LoadRewardConfig() *RewardConfig {
	return &RewardConfig{
		GameID:            getEnvAsInt64("REWARD_GAME_ID", 1),
		CurrencyID:        getEnvAsInt64("REWARD_CURRENCY_ID", 1),
		CurrencyDecimals:  int32(getEnvAsInt("CURRENCY_DECIMALS", 2)),
		CatalogFile:       getEnv("REWARD_CATALOG_FILE", "config/reward_catalog.yaml"),
		Seed:              uint64(getEnvAsInt64("REWARD_RANDOM_SEED", 0)),
		DropChanceEnabled: getEnvAsBool("REWARD_DROP_CHANCE_ENABLED", false),
	}
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		MaxAttempts:  getEnvAsInt("LEDGER_MAX_ATTEMPTS", 5),
		StreamKey:    getEnv("LEDGER_STREAM", "stream:ledger"),
		StreamMaxLen: getEnvAsInt64("LEDGER_STREAM_MAXLEN", 100000),
	}
}

func LoadIngestConfig() *IngestConfig {
	return &IngestConfig{
		Concurrency:  getEnvAsInt("INGEST_CONCURRENCY", 8),
		MaxBatchSize: getEnvAsInt("INGEST_MAX_BATCH_SIZE", 1000),
		BatchTimeout: getEnvAsDuration("INGEST_BATCH_TIMEOUT", 10*time.Second),
		Password:     getEnv("INGEST_PASSWORD", ""),
	}
}

func LoadGrantConfig() *GrantConfig {
	return &GrantConfig{
		MaxAttempts:   getEnvAsInt("GRANT_MAX_ATTEMPTS", 5),
		ReadyKey:      getEnv("GRANT_READY_KEY", "ready:grant"),
		DeadLetterKey: getEnv("GRANT_DEAD_LETTER_KEY", "dlq:grant"),
		DedupTTL:      getEnvAsDuration("GRANT_DEDUP_TTL", 72*time.Hour),
		BRPopBlock:    getEnvAsDuration("GRANT_BRPOP_BLOCK", 5*time.Second),
		DBExecTimeout: getEnvAsDuration("GRANT_DB_TIMEOUT", 2*time.Second),
	}
}

// =========================================================

func GetAppPort() string {
	return getEnv("APP_PORT", "3000")
}

func GetAppEnv() string {
	return getEnv("APP_ENV", "development")
}

func GetAppBinFile() string {
	return getEnv("APP_BIN_FILE", "./bin/game-hub")
}

//============================================================

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("750ms") or bare seconds ("5").
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
