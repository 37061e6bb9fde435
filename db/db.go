package db

import (
	"context"
	"fmt"
	"log/slog"

	"Gin_postgres_redis_library/config"
	"Gin_postgres_redis_library/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the shared pool. Callers own the returned handle and close it
// through Close on shutdown.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		// loans reference members and books without owning them
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMinIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DBConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("Database connected", "dsn", cfg.RedactedDSN(), "max_open", cfg.DBMaxOpenConns)
	return gdb, nil
}

func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.Member{}, &models.Book{}, &models.Loan{}); err != nil {
		return err
	}

	// at most one open loan per book
	if err := gdb.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_libro
	  ON %s (libro_id)
	  WHERE estado <> '%s';
	`, models.LoanTable, models.LoanTable, models.LoanReturned)).Error; err != nil {
		return err
	}

	// overdue sweep scans active loans by due date
	if err := gdb.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_active_due
	  ON %s (fecha_devolucion_esperada)
	  WHERE estado = '%s';
	`, models.LoanTable, models.LoanTable, models.LoanActive)).Error; err != nil {
		return err
	}

	if err := gdb.Exec(fmt.Sprintf(`
	  DO $$ BEGIN
	    ALTER TABLE %s ADD CONSTRAINT %s_estado_check
	      CHECK (estado IN ('%s', '%s', '%s'));
	  EXCEPTION WHEN duplicate_object THEN NULL;
	  END $$;
	`, models.LoanTable, models.LoanTable, models.LoanActive, models.LoanReturned, models.LoanOverdue)).Error; err != nil {
		return err
	}

	return nil
}
