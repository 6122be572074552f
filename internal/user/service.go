package user

import (
	"context"
	"log/slog"
	"strings"

	"github.com/frahmantamala/reimbursement-management/internal"
	userDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	UpdateBankAccount(ctx context.Context, id string, account BankAccount) error
	ListEmailsByRole(ctx context.Context, role string) ([]string, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetProfile(ctx context.Context, id string) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) UpdateBankAccount(ctx context.Context, id string, dto UpdateBankAccountDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("bank account validation failed", "error", err, "user_id", id)
		return nil, err
	}

	if err := s.repo.UpdateBankAccount(ctx, id, dto.BankAccount()); err != nil {
		s.logger.Error("failed to update bank account", "error", err, "user_id", id)
		return nil, err
	}

	s.logger.Info("bank account updated", "user_id", id, "bank_code", dto.BankCode)
	return s.GetProfile(ctx, id)
}

// ListAdminEmails returns the addresses submission notices go to.
func (s *Service) ListAdminEmails(ctx context.Context) ([]string, error) {
	return s.repo.ListEmailsByRole(ctx, internal.RoleAdmin)
}

// EnsureUser creates u unless a user with the same email exists. It reports
// whether a row was inserted.
func (s *Service) EnsureUser(ctx context.Context, u *User, passwordHash string) (*User, bool, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	existing, err := s.repo.GetByEmail(ctx, u.Email)
	if err == nil {
		return FromDataModel(existing), false, nil
	}
	if !internal.HasType(err, internal.ErrorTypeNotFound) {
		return nil, false, err
	}

	row := ToDataModel(u, passwordHash)
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, false, err
	}
	s.logger.Info("user created", "user_id", row.ID, "email", row.Email, "role", row.Role)
	return FromDataModel(row), true, nil
}
