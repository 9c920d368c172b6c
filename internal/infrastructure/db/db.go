package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var sqlDBWrite, sqlDBRead *sql.DB

func ConnectDBWrite(dbConfig *config.DBConfig) (*gorm.DB, error) {
	db, sqlDB, err := connect(BuildDSN(dbConfig.DBWrite), dbConfig.DBPool)
	if err != nil {
		return nil, err
	}

	sqlDBWrite = sqlDB
	return db, nil
}

func ConnectDBRead(dbConfig *config.DBConfig) (*gorm.DB, error) {
	db, sqlDB, err := connect(BuildDSN(dbConfig.DBRead), dbConfig.DBPool)
	if err != nil {
		return nil, err
	}
	sqlDBRead = sqlDB
	return db, nil
}

// Migrate brings the schema up to date on the write connection.
func Migrate(db *gorm.DB) error {
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("✅ Database schema migrated")
	return nil
}

func CloseDBWrite() {
	if sqlDBWrite != nil {
		if err := sqlDBWrite.Close(); err != nil {
			logger.Warn(fmt.Sprintf("⚠️ Error closing WRITE DB: %v", err))
		} else {
			logger.Info("🔌 WRITE DB connection closed.")
		}
	}
}

func CloseDBRead() {
	if sqlDBRead != nil {
		if err := sqlDBRead.Close(); err != nil {
			logger.Warn(fmt.Sprintf("⚠️ Error closing READ DB: %v", err))
		} else {
			logger.Info("🔌 READ DB connection closed.")
		}
	}
}

func BuildDSN(c *config.DBConnConfig) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host,
		c.User,
		c.Password,
		c.Name,
		c.Port,
		c.SSLMode,
	)
}

func connect(dsn string, dbPoolingConfig *config.DBPooling) (*gorm.DB, *sql.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: true,
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}

	// Connection pool config
	sqlDB.SetMaxOpenConns(dbPoolingConfig.MaxOpenConns)
	sqlDB.SetMaxIdleConns(dbPoolingConfig.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(dbPoolingConfig.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(dbPoolingConfig.ConnMaxIdleTime) * time.Minute)

	return db, sqlDB, nil
}
