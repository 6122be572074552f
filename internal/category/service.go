package category

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/reimbursement-management/internal"
	categoryDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*categoryDatamodel.Category, error)
	GetByID(ctx context.Context, id string) (*categoryDatamodel.Category, error)
	GetByName(ctx context.Context, name string) (*categoryDatamodel.Category, error)
	Create(ctx context.Context, category *categoryDatamodel.Category) error
	Update(ctx context.Context, category *categoryDatamodel.Category) error
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

// GetActiveCategories lists the categories an approver may assign.
func (s *Service) GetActiveCategories(ctx context.Context) ([]CategoryResponse, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get categories from repository", "error", err)
		return nil, internal.NewInternalError("failed to get categories", err)
	}

	responses := make([]CategoryResponse, 0, len(rows))
	for _, row := range rows {
		if row.IsActive {
			responses = append(responses, FromDataModel(row).ToResponse())
		}
	}

	s.logger.Debug("retrieved categories", "count", len(responses))
	return responses, nil
}

// GetCategoryByID returns the category whether or not it is active; callers
// decide what an inactive category means for them.
func (s *Service) GetCategoryByID(ctx context.Context, id string) (*Category, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get category", "error", err, "category_id", id)
		return nil, internal.NewInternalError("failed to get category", err)
	}
	if row == nil {
		return nil, ErrCategoryNotFound
	}
	return FromDataModel(row), nil
}

// EnsureCategory creates the named category when it is missing. Used by the
// seeder.
func (s *Service) EnsureCategory(ctx context.Context, name, description string) (*Category, error) {
	row, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return FromDataModel(row), nil
	}

	row = &categoryDatamodel.Category{Name: name, Description: description, IsActive: true}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	s.logger.Info("category created", "category_id", row.ID, "name", name)
	return FromDataModel(row), nil
}
