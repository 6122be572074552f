package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	userDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/user"
	"github.com/frahmantamala/reimbursement-management/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, password_hash, role, is_active,
	bank_code, branch_code, account_type, account_number, account_holder_kana,
	created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	query := `INSERT INTO users (` + userColumns + `) VALUES (
		:id, :email, :name, :password_hash, :role, :is_active,
		:bank_code, :branch_code, :account_type, :account_number, :account_holder_kana,
		:created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return internal.NewInternalError("failed to create user", err)
	}
	return nil
}

func (r *UserRepository) UpdateBankAccount(ctx context.Context, id string, account user.BankAccount) error {
	query := r.db.Rebind(`UPDATE users SET bank_code = ?, branch_code = ?, account_type = ?,
		account_number = ?, account_holder_kana = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query,
		account.BankCode, account.BranchCode, account.AccountType,
		account.AccountNumber, account.AccountHolderKana, time.Now().UTC(), id)
	if err != nil {
		return internal.NewInternalError("failed to update bank account", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListEmailsByRole(ctx context.Context, role string) ([]string, error) {
	var emails []string
	query := r.db.Rebind("SELECT email FROM users WHERE role = ? AND is_active = ? ORDER BY email")
	if err := r.db.SelectContext(ctx, &emails, query, role, true); err != nil {
		return nil, internal.NewInternalError("failed to list user emails", err)
	}
	return emails, nil
}
