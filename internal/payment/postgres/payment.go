package postgres

import (
	"context"

	"github.com/frahmantamala/reimbursement-management/internal/core/database"
	appDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/application"
	paymentDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/payment"
	"github.com/frahmantamala/reimbursement-management/internal/payment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) payment.RepositoryAPI {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Transaction(ctx context.Context, fn func(tx payment.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PaymentRepository{db: tx})
	})
}

func (r *PaymentRepository) ListReady(ctx context.Context) ([]*appDatamodel.ExpenseApplication, error) {
	var apps []*appDatamodel.ExpenseApplication
	err := r.db.WithContext(ctx).
		Table("expense_applications AS a").
		Select("a.*").
		Joins("LEFT JOIN payments p ON p.application_id = a.id").
		Where("a.status = ? AND p.id IS NULL", "APPROVED").
		Order("a.approved_at ASC").
		Find(&apps).Error
	if err != nil {
		return nil, database.TranslateError(err, nil, "failed to list payable applications")
	}
	return apps, nil
}

// LockApplications locks in id order so concurrent batches over overlapping
// sets cannot deadlock each other.
func (r *PaymentRepository) LockApplications(ctx context.Context, ids []string) ([]*appDatamodel.ExpenseApplication, error) {
	var apps []*appDatamodel.ExpenseApplication
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&apps).Error
	if err != nil {
		return nil, database.TranslateError(err, nil, "failed to lock applications")
	}
	return apps, nil
}

func (r *PaymentRepository) CountByApplicationIDs(ctx context.Context, ids []string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("application_id IN ?", ids).
		Count(&count).Error
	if err != nil {
		return 0, database.TranslateError(err, nil, "failed to check existing payments")
	}
	return count, nil
}

// CreateBatch inserts every payment in one statement.
func (r *PaymentRepository) CreateBatch(ctx context.Context, payments []*paymentDatamodel.Payment) error {
	err := r.db.WithContext(ctx).Create(&payments).Error
	if err != nil && database.IsRetryable(err) {
		return payment.ErrDuplicatePayment
	}
	return database.TranslateError(err, nil, "failed to create payments")
}

func (r *PaymentRepository) FindByBatchID(ctx context.Context, batchID string) ([]*paymentDatamodel.Payment, error) {
	var payments []*paymentDatamodel.Payment
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, database.TranslateError(err, nil, "failed to find batch")
	}
	return payments, nil
}

func (r *PaymentRepository) ListTransfers(ctx context.Context, batchID string) ([]*paymentDatamodel.TransferRow, error) {
	var rows []*paymentDatamodel.TransferRow
	err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select(`p.id AS payment_id, p.application_id, a.application_number, a.sequence_no,
			p.amount, u.id AS user_id, u.name AS user_name, u.bank_code, u.branch_code,
			u.account_type, u.account_number, u.account_holder_kana, p.created_at`).
		Joins("JOIN expense_applications a ON a.id = p.application_id").
		Joins("JOIN users u ON u.id = a.user_id").
		Where("p.batch_id = ?", batchID).
		Order("p.created_at ASC").
		Order("a.sequence_no ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, database.TranslateError(err, nil, "failed to load batch transfers")
	}
	return rows, nil
}
