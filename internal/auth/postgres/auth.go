package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/auth"
	"gorm.io/gorm"
)

var errUnknownEmail = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var creds auth.Credentials
	query := `SELECT id, email, role, password_hash, is_active FROM users WHERE email = ?`

	row := r.db.WithContext(ctx).Raw(query, email).Row()
	if err := row.Scan(&creds.UserID, &creds.Email, &creds.Role, &creds.PasswordHash, &creds.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errUnknownEmail
		}
		return nil, internal.NewInternalError("failed to load credentials", err)
	}
	return &creds, nil
}
