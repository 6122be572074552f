package payment

import (
	errors "github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/core/common/validation"
)

type GenerateBatchDTO struct {
	ApplicationIDs []string `json:"application_ids"`
}

func (d *GenerateBatchDTO) Validate() error {
	if len(d.ApplicationIDs) == 0 {
		return errors.NewValidationFieldError("application_ids", "application_ids must not be empty", errors.ErrCodeEmptyApplicationIDs)
	}

	v := validation.NewValidator()
	v.Field("application_ids", d.ApplicationIDs).Custom(func(value interface{}) *errors.AppError {
		seen := make(map[string]struct{}, len(d.ApplicationIDs))
		for _, id := range d.ApplicationIDs {
			if id == "" {
				return errors.NewValidationFieldError("application_ids", "application_ids must not contain empty ids", errors.ErrCodeValidationFailed)
			}
			if _, dup := seen[id]; dup {
				return errors.NewValidationFieldError("application_ids", "application_ids must not contain duplicates", errors.ErrCodeValidationFailed)
			}
			seen[id] = struct{}{}
		}
		return nil
	})
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type BatchResponse struct {
	BatchID     string     `json:"batch_id"`
	Payments    []*Payment `json:"payments"`
	TotalAmount int64      `json:"total_amount"`
}

type ReadyResponse struct {
	Applications []*ReadyApplication `json:"applications"`
}

// ReadyApplication is an approved application waiting for a batch.
type ReadyApplication struct {
	ID                string `json:"id"`
	ApplicationNumber string `json:"application_number"`
	UserID            string `json:"user_id"`
	PayableAmount     int64  `json:"payable_amount"`
	ApprovedAt        string `json:"approved_at,omitempty"`
}
