package application

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/core/common/validation"
)

const DateLayout = "2006-01-02"

type CreateApplicationDTO struct {
	ExpenseDate   string `json:"expense_date"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	IsCashPayment bool   `json:"is_cash_payment"`
}

// UpdateApplicationDTO changes only the fields that are present.
type UpdateApplicationDTO struct {
	ExpenseDate   *string `json:"expense_date,omitempty"`
	Amount        *int64  `json:"amount,omitempty"`
	Description   *string `json:"description,omitempty"`
	IsCashPayment *bool   `json:"is_cash_payment,omitempty"`
}

type ApproveApplicationDTO struct {
	CategoryID  string `json:"internal_category_id"`
	FinalAmount int64  `json:"final_amount"`
	Comment     string `json:"comment,omitempty"`
}

// CommentDTO carries the mandatory comment of return and reject, and the
// body of a general comment.
type CommentDTO struct {
	Comment string `json:"comment"`
}

type SubmitApplicationDTO struct {
	Comment string `json:"comment,omitempty"`
}

type ListApplicationsResponse struct {
	Applications []*Application `json:"applications"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
}

func expenseDateRule(now time.Time, maxAgeDays int) func(interface{}) *errors.AppError {
	return func(value interface{}) *errors.AppError {
		raw, _ := value.(string)
		if raw == "" {
			return nil
		}
		date, err := time.Parse(DateLayout, raw)
		if err != nil {
			return errors.NewValidationFieldError("expense_date", "expense_date must be formatted as YYYY-MM-DD", errors.ErrCodeInvalidDate)
		}
		today := truncateToDay(now)
		if date.After(today) {
			return errors.NewValidationFieldError("expense_date", "expense_date cannot be in the future", errors.ErrCodeInvalidDate)
		}
		if maxAgeDays > 0 && date.Before(today.AddDate(0, 0, -maxAgeDays)) {
			return errors.NewValidationFieldError("expense_date", "expense_date is too old to be reimbursed", errors.ErrCodeInvalidDate)
		}
		return nil
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (d CreateApplicationDTO) Validate(now time.Time, maxAgeDays int) error {
	v := validation.NewValidator()
	v.Field("expense_date", d.ExpenseDate).Required().Custom(expenseDateRule(now, maxAgeDays))
	v.Field("amount", d.Amount).MinInt(1, errors.ErrCodeInvalidAmount)
	v.Field("description", d.Description).Required().MaxLength(500)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d UpdateApplicationDTO) Validate(now time.Time, maxAgeDays int) error {
	v := validation.NewValidator()
	if d.ExpenseDate != nil {
		v.Field("expense_date", *d.ExpenseDate).Required().Custom(expenseDateRule(now, maxAgeDays))
	}
	if d.Amount != nil {
		v.Field("amount", *d.Amount).MinInt(1, errors.ErrCodeInvalidAmount)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).Required().MaxLength(500)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d ApproveApplicationDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("internal_category_id", d.CategoryID).Required()
	v.Field("final_amount", d.FinalAmount).MinInt(1, errors.ErrCodeInvalidAmount)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d CommentDTO) Validate() error {
	if strings.TrimSpace(d.Comment) == "" {
		return ErrCommentRequired
	}
	v := validation.NewValidator()
	v.Field("comment", d.Comment).MaxLength(2000)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func parseDate(raw string) time.Time {
	date, _ := time.Parse(DateLayout, raw)
	return date
}
