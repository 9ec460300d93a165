package dbutils

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jiaming2012/ward-market/src/logger"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

var migrations = []interface{}{
	&models.WorldClock{},
	&models.Fund{},
	&models.Subject{},
	&models.Patient{},
	&models.Position{},
	&models.Trade{},
	&models.PricePoint{},
	&models.AgentMemory{},
}

func InitPostgresWithUrl(url string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.NewLogrusLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, m := range migrations {
		if err := db.AutoMigrate(m); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return db, nil
}

func PostgresUrl(host, port, user, password, dbName, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC", host, user, password, dbName, port, sslMode)
}

func InitPostgres(host, port, user, password, dbName, sslMode string) (*gorm.DB, error) {
	return InitPostgresWithUrl(PostgresUrl(host, port, user, password, dbName, sslMode))
}
