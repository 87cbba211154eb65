package config

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tokenvesting/internal/store"
)

var DB *gorm.DB

// InitDB initializes the database connection
func InitDB(cfg AppConfig) *gorm.DB {
	db, err := OpenDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	DB = db
	return db
}

// OpenDB connects to postgres, tunes the pool and optionally auto-migrates the vesting tables.
func OpenDB(cfg AppConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(50)           // 设置空闲连接池中的最大连接数
	sqlDB.SetMaxOpenConns(200)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置连接可复用的最大时间

	if cfg.DBAutoMigrate {
		if err := db.AutoMigrate(store.Models...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return db, nil
}
