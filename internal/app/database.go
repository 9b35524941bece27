package app

import (
	"fmt"
	"log"
	"os"
	"path"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jewelcraft/storefront/config"
)

func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	switch cfg.Type {
	case "sqlite":
		return getSQLiteDatabase(cfg, workdir)
	default:
		return getPgDatabase(cfg)
	}
}

func gormConfig(cfg config.DBConfig) *gorm.Config {
	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

func getPgDatabase(cfg config.DBConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), gormConfig(cfg))
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db
}

// getSQLiteDatabase opens <workdir>/data/<name>.db. Writes are serialized on
// one connection.
func getSQLiteDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	dir := path.Join(workdir, "data")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		panic(err)
	}
	file := path.Join(dir, cfg.Name+".db")
	db, err := gorm.Open(sqlite.Open(file+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), gormConfig(cfg))
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}
