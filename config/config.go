package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config 从环境变量读取
type Config struct {
	Env      string
	HTTPAddr string

	StoreDriver string
	DatabaseURL string

	RedisAddr string
	RedisPwd  string

	WebOrigins []string
	JWTSecret  string
	JWTIssuer  string
	// DeviceKey guards the hardware endpoints. Empty leaves them open.
	DeviceKey string

	LockerCount       int
	TapDebounce       time.Duration
	LockTimeout       time.Duration
	SweepInterval     time.Duration
	SweepBatch        int
	PickupWindow      time.Duration
	DefaultLoanPeriod time.Duration
}

// LoadEnv reads .env into the process environment. A missing file is fine.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
}

func Load() Config {
	addr := getenv("HTTP_ADDR", "")
	if addr == "" {
		addr = ":" + getenv("PORT", "3001")
	}

	return Config{
		Env:               getenv("APP_ENV", "local"),
		HTTPAddr:          addr,
		StoreDriver:       strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:       databaseURL(),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPwd:          os.Getenv("REDIS_PASSWORD"),
		WebOrigins:        splitList(getenv("WEB_ORIGIN", "http://localhost:3000")),
		JWTSecret:         getenv("JWT_SECRET", "dev-secret"),
		JWTIssuer:         os.Getenv("JWT_ISSUER"),
		DeviceKey:         os.Getenv("DEVICE_KEY"),
		LockerCount:       getenvInt("LOCKER_COUNT", 0),
		TapDebounce:       getenvDuration("TAP_DEBOUNCE", 2*time.Second),
		LockTimeout:       getenvDuration("LOCK_TIMEOUT", 5*time.Second),
		SweepInterval:     getenvDuration("SWEEP_INTERVAL", time.Minute),
		SweepBatch:        getenvInt("SWEEP_BATCH", 100),
		PickupWindow:      getenvDuration("PICKUP_WINDOW", 24*time.Hour),
		DefaultLoanPeriod: getenvDuration("DEFAULT_LOAN_PERIOD", 7*24*time.Hour),
	}
}

func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getenv("DB_HOST", "127.0.0.1"),
		getenv("DB_USER", "postgres"),
		getenv("DB_PASSWORD", "postgres"),
		getenv("DB_NAME", "lending"),
		getenv("DB_PORT", "5432"),
	)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func splitList(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
