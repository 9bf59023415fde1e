package database

import (
	"os"
	"time"

	"graminstore-backend/internal/logger"
	"graminstore-backend/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the MySQL connection and syncs the relational schema.
// Per-merchant ledger tables are not managed here; the ledger registry
// owns their lifecycle.
func Connect() {
	log := logger.Get()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set; configure the database connection in .env")
	}

	var err error

	// Wait for the DB to be ready
	for i := 0; i < 5; i++ {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			break
		}
		log.WithError(err).Warnf("failed to connect to database, retrying in 2 seconds (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.WithError(err).Fatal("failed to connect to database after 5 attempts")
	}

	log.Info("connected to MySQL")

	if err := Migrate(DB); err != nil {
		log.WithError(err).Fatal("failed to migrate database schema")
	}

	log.Info("database schema synced")
}

// Migrate creates/updates the relational tables. Split out from Connect
// so tests can run it against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Merchant{},
		&models.User{},
		&models.GuestUser{},
		&models.InventoryItem{},
		&models.InventoryTransaction{},
		&models.PurchaseListItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}
