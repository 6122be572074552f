package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/reimbursement-management/internal/category"
	categoryDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/category"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]*categoryDatamodel.Category, error) {
	var categories []*categoryDatamodel.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*categoryDatamodel.Category, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*categoryDatamodel.Category, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *CategoryRepository) first(ctx context.Context, query string, arg interface{}) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where(query, arg).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.Category) error {
	return r.db.WithContext(ctx).Create(cat).Error
}

// Update writes every column, including a false is_active.
func (r *CategoryRepository) Update(ctx context.Context, cat *categoryDatamodel.Category) error {
	return r.db.WithContext(ctx).Save(cat).Error
}
