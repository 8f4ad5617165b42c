package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"rfid_locker_lending/config"
	"rfid_locker_lending/db"
	"rfid_locker_lending/lending"
	"rfid_locker_lending/logger"
	"rfid_locker_lending/memstore"
	"rfid_locker_lending/metrics"
	"rfid_locker_lending/models"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// Directory covers the catalog and user reads and writes that sit outside the
// lending state machine.
type Directory interface {
	Ping(ctx context.Context) error

	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserBySitID(ctx context.Context, sitID string) (*models.User, error)
	ListUsers(ctx context.Context, q string, page, size int) (models.UserPage, error)
	CreateUser(ctx context.Context, u *models.User) error
	SetUserCard(ctx context.Context, userID string, card *string) error

	ListEquipment(ctx context.Context) ([]models.Equipment, error)
	FindEquipment(ctx context.Context, id string) (*models.Equipment, error)
	CreateEquipment(ctx context.Context, eq *models.Equipment) error

	ListLockers(ctx context.Context, onlyAvailable bool) ([]models.LockerView, error)
	FindLockerByCompartment(ctx context.Context, compartment int) (*models.LockerView, error)
	CountLockers(ctx context.Context) (int64, error)
	CreateLockers(ctx context.Context, lockers []models.Locker) error

	ListAccessLogs(ctx context.Context, lockerID string, limit int) ([]models.AccessLog, error)
}

// Backend is one storage implementation serving both the engine and the directory.
type Backend interface {
	lending.Store
	Directory
}

// App 聚合各依赖
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	RDB      *redis.Client
	Config   config.Config
	Log      *slog.Logger
	Store    Backend
	Lending  *lending.Service
	Sweeper  *lending.Sweeper
	Taps     *TapDebouncer
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

func MustNew(cfg config.Config, log *slog.Logger) *App {
	a, err := New(cfg, log)
	if err != nil {
		log.Error("failed to build app", logger.Err(err))
		os.Exit(1)
	}
	return a
}

func New(cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	// --- Store ---
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on exit")
		a.Store = memstore.New()
	case config.DriverPostgres, "":
		conn, err := db.ConnectDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.DB = conn
		a.Store = db.NewRepo(conn, cfg.LockTimeout)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	// --- Redis (optional) ---
	if cfg.RedisAddr != "" {
		a.RDB = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.RDB.Ping(ctx).Err(); err != nil {
			log.Error("redis unreachable, taps are not debounced until it recovers", logger.Err(err))
		}
	}
	a.Taps = NewTapDebouncer(a.RDB, cfg.TapDebounce)

	// --- Metrics ---
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	// --- Engine ---
	a.Lending = lending.New(log, a.Store, a.Metrics, lending.Options{
		DefaultLoanPeriod: cfg.DefaultLoanPeriod,
	})
	a.Sweeper = lending.NewSweeper(a.Lending, lending.SweepOptions{
		Interval:     cfg.SweepInterval,
		PickupWindow: cfg.PickupWindow,
		Batch:        cfg.SweepBatch,
	})

	// --- Gin ---
	if cfg.Env == logger.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	useCORS(r, cfg.WebOrigins)
	a.Router = r

	return a, nil
}

func (a *App) Close() {
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
