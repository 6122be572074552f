package payment

import (
	"net/http"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	paymentDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/payment"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

type Payment struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	BatchID       string    `json:"batch_id"`
	Amount        int64     `json:"amount"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// BatchResult summarises a freshly generated batch.
type BatchResult struct {
	BatchID      string `json:"batchId"`
	PaymentCount int    `json:"paymentCount"`
	TotalAmount  int64  `json:"totalAmount"`
}

// Export is a rendered batch file ready to be served as an attachment.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

var (
	ErrBatchNotFound    = internal.NewNotFoundError("payment batch not found", internal.ErrCodeBatchNotFound)
	ErrNotAllApproved   = internal.NewConflictError("one or more applications not found or not in APPROVED status", internal.ErrCodeNotAllApproved)
	ErrAlreadyPaid      = internal.NewConflictError("one or more applications already have payment records", internal.ErrCodeAlreadyPaid)
	ErrDuplicatePayment = internal.NewRetryableConflictError("a concurrent batch already claimed one of the applications, retry", nil)
	ErrExportBusy       = &internal.AppError{
		Type:       internal.ErrorTypeConflict,
		Code:       internal.ErrCodeExportBusy,
		Message:    "too many exports in progress, retry shortly",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
)

func FromDataModel(p *paymentDatamodel.Payment) *Payment {
	return &Payment{
		ID:            p.ID,
		ApplicationID: p.ApplicationID,
		BatchID:       p.BatchID,
		Amount:        p.Amount,
		Status:        Status(p.Status),
		CreatedAt:     p.CreatedAt,
	}
}

func FromDataModelSlice(rows []*paymentDatamodel.Payment) []*Payment {
	payments := make([]*Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, FromDataModel(row))
	}
	return payments
}
