package application

import (
	"fmt"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	appDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/application"
)

type Application struct {
	ID                string     `json:"id"`
	ApplicationNumber string     `json:"application_number"`
	UserID            string     `json:"user_id"`
	ExpenseDate       time.Time  `json:"expense_date"`
	Amount            int64      `json:"amount"`
	ProposedAmount    *int64     `json:"proposed_amount,omitempty"`
	FinalAmount       *int64     `json:"final_amount,omitempty"`
	Status            Status     `json:"status"`
	Description       string     `json:"description"`
	IsCashPayment     bool       `json:"is_cash_payment"`
	CategoryID        *string    `json:"category_id,omitempty"`
	ApprovedBy        *string    `json:"approved_by,omitempty"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	RejectedAt        *time.Time `json:"rejected_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Comments          []*Comment `json:"comments,omitempty"`
}

type Comment struct {
	ID            string      `json:"id"`
	ApplicationID string      `json:"application_id"`
	UserID        string      `json:"user_id"`
	Comment       string      `json:"comment"`
	CommentType   CommentType `json:"comment_type"`
	CreatedAt     time.Time   `json:"created_at"`
}

var (
	ErrApplicationNotFound = internal.NewNotFoundError("application not found", internal.ErrCodeApplicationNotFound)
	ErrNotOwner            = internal.NewForbiddenError("only the owner of the application can do this", internal.ErrCodeNotOwner)
	ErrCommentRequired     = internal.NewValidationFieldError("comment", "comment is required", internal.ErrCodeCommentRequired)
	ErrInvalidCategory     = internal.NewValidationFieldError("internal_category_id", "category does not exist or is inactive", internal.ErrCodeInvalidCategory)
	ErrNotEditable         = internal.NewConflictError("application can only be changed while DRAFT or RETURNED", internal.ErrCodeCannotModify)
	ErrNotDeletable        = internal.NewConflictError("only DRAFT applications can be deleted", internal.ErrCodeCannotModify)
	ErrConcurrentUpdate    = internal.NewRetryableConflictError("application was changed by another request, retry", nil)
)

// PayableAmount is the amount transferred to the member: the admin's final
// amount, or the requested amount when none was recorded.
func (a *Application) PayableAmount() int64 {
	if a.FinalAmount != nil {
		return *a.FinalAmount
	}
	return a.Amount
}

func (a *Application) IsOwnedBy(userID string) bool {
	return a.UserID == userID
}

// CanBeViewedBy allows the owner and administrators.
func (a *Application) CanBeViewedBy(actor internal.Identity) bool {
	return actor.IsAdmin() || a.IsOwnedBy(actor.ID)
}

func FormatApplicationNumber(prefix string, sequence int64) string {
	if prefix == "" {
		prefix = "EXP"
	}
	return fmt.Sprintf("%s-%06d", prefix, sequence)
}

func ToDataModel(a *Application) *appDatamodel.ExpenseApplication {
	return &appDatamodel.ExpenseApplication{
		ID:                a.ID,
		ApplicationNumber: a.ApplicationNumber,
		UserID:            a.UserID,
		ExpenseDate:       a.ExpenseDate,
		Amount:            a.Amount,
		ProposedAmount:    a.ProposedAmount,
		FinalAmount:       a.FinalAmount,
		Status:            string(a.Status),
		Description:       a.Description,
		IsCashPayment:     a.IsCashPayment,
		CategoryID:        a.CategoryID,
		ApprovedBy:        a.ApprovedBy,
		SubmittedAt:       a.SubmittedAt,
		ApprovedAt:        a.ApprovedAt,
		RejectedAt:        a.RejectedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func FromDataModel(a *appDatamodel.ExpenseApplication) *Application {
	return &Application{
		ID:                a.ID,
		ApplicationNumber: a.ApplicationNumber,
		UserID:            a.UserID,
		ExpenseDate:       a.ExpenseDate,
		Amount:            a.Amount,
		ProposedAmount:    a.ProposedAmount,
		FinalAmount:       a.FinalAmount,
		Status:            Status(a.Status),
		Description:       a.Description,
		IsCashPayment:     a.IsCashPayment,
		CategoryID:        a.CategoryID,
		ApprovedBy:        a.ApprovedBy,
		SubmittedAt:       a.SubmittedAt,
		ApprovedAt:        a.ApprovedAt,
		RejectedAt:        a.RejectedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*appDatamodel.ExpenseApplication) []*Application {
	result := make([]*Application, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}

func CommentFromDataModel(c *appDatamodel.ApplicationComment) *Comment {
	return &Comment{
		ID:            c.ID,
		ApplicationID: c.ApplicationID,
		UserID:        c.UserID,
		Comment:       c.Comment,
		CommentType:   CommentType(c.CommentType),
		CreatedAt:     c.CreatedAt,
	}
}

func newComment(applicationID, authorID string, commentType CommentType, text string) *appDatamodel.ApplicationComment {
	return &appDatamodel.ApplicationComment{
		ApplicationID: applicationID,
		UserID:        authorID,
		Comment:       text,
		CommentType:   string(commentType),
	}
}
