package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal/application"
	"github.com/frahmantamala/reimbursement-management/internal/core/database"
	appDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/application"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) application.RepositoryAPI {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Transaction(ctx context.Context, fn func(tx application.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ApplicationRepository{db: tx})
	})
}

// NextSequenceNo reads the next application sequence. Two transactions may
// read the same value; the unique index on sequence_no rejects the loser.
func (r *ApplicationRepository) NextSequenceNo(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(sequence_no), 0) + 1 FROM expense_applications").
		Scan(&next).Error
	if err != nil {
		return 0, database.TranslateError(err, nil, "failed to allocate application number")
	}
	return next, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app *appDatamodel.ExpenseApplication) error {
	err := r.db.WithContext(ctx).Create(app).Error
	return database.TranslateError(err, nil, "failed to create application")
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*appDatamodel.ExpenseApplication, error) {
	var app appDatamodel.ExpenseApplication
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, database.TranslateError(err, application.ErrApplicationNotFound, "failed to get application")
	}
	return &app, nil
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *ApplicationRepository) GetByIDForUpdate(ctx context.Context, id string) (*appDatamodel.ExpenseApplication, error) {
	var app appDatamodel.ExpenseApplication
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&app).Error
	if err != nil {
		return nil, database.TranslateError(err, application.ErrApplicationNotFound, "failed to lock application")
	}
	return &app, nil
}

func (r *ApplicationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*appDatamodel.ExpenseApplication, error) {
	var apps []*appDatamodel.ExpenseApplication
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepository) List(ctx context.Context, filter application.ListFilter) ([]*appDatamodel.ExpenseApplication, error) {
	query := r.db.WithContext(ctx).Model(&appDatamodel.ExpenseApplication{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var apps []*appDatamodel.ExpenseApplication
	err := query.Order("created_at DESC").Offset(filter.Offset).Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepository) UpdateContent(ctx context.Context, app *appDatamodel.ExpenseApplication, expected application.Status) error {
	result := r.db.WithContext(ctx).
		Model(&appDatamodel.ExpenseApplication{}).
		Where("id = ? AND status = ?", app.ID, string(expected)).
		Updates(map[string]interface{}{
			"expense_date":    app.ExpenseDate,
			"amount":          app.Amount,
			"proposed_amount": app.ProposedAmount,
			"description":     app.Description,
			"is_cash_payment": app.IsCashPayment,
			"updated_at":      time.Now(),
		})
	return conditional(result, "failed to update application")
}

// UpdateStatus applies change only while the row still has change.From, and
// stamps the columns that belong to the target status.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, change application.StatusChange) error {
	values := map[string]interface{}{
		"status":     string(change.To),
		"updated_at": change.At,
	}
	switch change.To {
	case application.StatusSubmitted:
		values["submitted_at"] = change.At
	case application.StatusApproved:
		values["approved_at"] = change.At
		values["approved_by"] = change.ActorID
		values["category_id"] = change.CategoryID
		values["final_amount"] = change.FinalAmount
	case application.StatusRejected:
		values["rejected_at"] = change.At
	}

	result := r.db.WithContext(ctx).
		Model(&appDatamodel.ExpenseApplication{}).
		Where("id = ? AND status = ?", change.ApplicationID, string(change.From)).
		Updates(values)
	return conditional(result, "failed to update application status")
}

func conditional(result *gorm.DB, message string) error {
	if result.Error != nil {
		return database.TranslateError(result.Error, nil, message)
	}
	if result.RowsAffected == 0 {
		return application.ErrConcurrentUpdate
	}
	return nil
}

func (r *ApplicationRepository) CreateComment(ctx context.Context, comment *appDatamodel.ApplicationComment) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
	return database.TranslateError(err, nil, "failed to create comment")
}

func (r *ApplicationRepository) ListComments(ctx context.Context, applicationID string) ([]*appDatamodel.ApplicationComment, error) {
	var comments []*appDatamodel.ApplicationComment
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// Delete executes plan in order. It is meant to run inside Transaction.
func (r *ApplicationRepository) Delete(ctx context.Context, id string, plan []application.DeletionStep) error {
	for _, step := range plan {
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s", step.Table, step.Where)
		if err := r.db.WithContext(ctx).Exec(sql, id).Error; err != nil {
			return database.TranslateError(err, nil, "failed to delete from "+step.Table)
		}
	}
	return nil
}
