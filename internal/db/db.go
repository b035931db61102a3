package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"space-booking-backend/config"
	"space-booking-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Space{},
		&model.Reservation{},
		&model.Payment{},
		&model.Refund{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableExclusionBackstop {
		log.Println("Applying Postgres exclusion-constraint backstop DDL...")
		if err := applyExclusionBackstop(db); err != nil {
			log.Printf("Warning: failed to apply exclusion backstop DDL: %v. Continuing without it.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// applyExclusionBackstop installs a storage-level guard against overlapping
// active reservations. The application serializes check-then-insert itself;
// this constraint catches anything that slips past it (multiple app instances
// sharing one database).
func applyExclusionBackstop(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_minute_range_valid CHECK (start_minute < end_minute);",

		// Inclusive date range, half-open minute range, active statuses only.
		"ALTER TABLE reservations ADD CONSTRAINT reservations_no_active_overlap " +
			"EXCLUDE USING GIST (" +
			"space_id WITH =, " +
			"daterange(start_date::date, end_date::date, '[]') WITH &&, " +
			"int4range(start_minute, end_minute) WITH &&" +
			") WHERE (status IN ('SUBMITTED', 'PROCESSING', 'APPROVED'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
