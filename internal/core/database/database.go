// Package database opens the postgres pool shared by sqlx (health checks,
// migrations) and gorm (repositories), and maps driver failures onto
// application errors.
package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const driverName = "pgx"

// postgres SQLSTATE codes that mean "run the transaction again"
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

func Connect(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driverName, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// OpenGorm wraps an existing pool so gorm and sqlx share connections.
func OpenGorm(sqlDB *sql.DB, level logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
}

// GormConfig is the configuration repositories expect, shared with the
// sqlite databases used in tests.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// IsRetryable reports whether err is a serialization failure, a deadlock or
// a unique key race, all of which a client may retry.
func IsRetryable(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return true
		}
	}
	return false
}

// TranslateError converts a repository error into an AppError. notFound is
// returned for gorm.ErrRecordNotFound; AppErrors pass through unchanged.
func TranslateError(err error, notFound *internal.AppError, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if IsRetryable(err) {
		return internal.NewRetryableConflictError("concurrent update detected, retry the request", err)
	}
	return internal.NewInternalError(message, err)
}
