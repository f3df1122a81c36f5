package repository

import (
	"fmt"

	"github.com/FranMor97/Book-Server/internal/config"
	"github.com/FranMor97/Book-Server/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)

	logLevel := gormlogger.Warn
	if !cfg.IsProduction() {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(logLevel))
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(migratedModels()...); err != nil {
		return nil, err
	}

	return db, nil
}

// gormConfig keeps AutoMigrate from following relations into tables owned by
// other services, such as users behind GroupMessage.User.
func gormConfig(logLevel gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:                           gormlogger.Default.LogMode(logLevel),
		IgnoreRelationshipsWhenMigrating: true,
	}
}

// migratedModels lists the tables this service owns.
func migratedModels() []interface{} {
	return []interface{}{
		&models.ReadingGroup{},
		&models.GroupMember{},
		&models.GroupMessage{},
	}
}
