package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/Lernhub/app/models"
	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Config holds the MySQL connection settings.
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// ConfigFromEnv reads DB_USER, DB_PASSWORD, DB_HOST, DB_PORT and DB_NAME.
func ConfigFromEnv() Config {
	return Config{
		User:     env.GetEnv("DB_USER", ""),
		Password: env.GetEnv("DB_PASSWORD", ""),
		Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
		Port:     env.GetEnv("DB_PORT", "3306"),
		Name:     env.GetEnv("DB_NAME", ""),
	}
}

// DSN formats the go-sql-driver/mysql data source name.
func (c Config) DSN() string {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=UTC"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Purchase{},
		&models.BillingSubscription{},
		&models.BillingWebhookEvent{},
	}
}

// Open connects to MySQL, retrying while the server comes up, and migrates the schema.
func Open(cfg Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if !env.IsDev() {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), gormCfg)
		if err == nil {
			if err = Migrate(db); err != nil {
				return nil, err
			}
			return db, nil
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("connect to database after %d tries: %w", maxRetries, err)
}

// Migrate brings the schema of all owned tables up to date.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
