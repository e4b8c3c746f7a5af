package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"stopped-vehicle-detector-go/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database подключение к PostgreSQL
type Database struct {
	DB     *gorm.DB
	logger *logrus.Logger
}

// PoolConfig настройки пула соединений
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig настройки пула по умолчанию
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
	}
}

// Connect подключается к базе данных PostgreSQL
func Connect(dsn string, pool PoolConfig, appLogger *logrus.Logger) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настройка пула соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	appLogger.Info("Подключение к PostgreSQL установлено")
	return &Database{DB: db, logger: appLogger}, nil
}

// Migrate выполняет автомиграции
func (d *Database) Migrate() error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	d.logger.Info("Выполнение миграций базы данных...")

	err := d.DB.AutoMigrate(
		&model.DetectionRecord{},
		&model.StoppedVehicleRecord{},
		&model.AnalysisRunRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Миграции базы данных выполнены")
	return nil
}

// Close закрывает соединение с базой данных
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}

	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// HealthCheck проверяет состояние подключения к базе данных
func (d *Database) HealthCheck() error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// newGormLogger логгер GORM: только медленные запросы и ошибки
func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
