package user

import (
	"strings"
	"unicode/utf8"

	errors "github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/core/common/validation"
	"github.com/frahmantamala/reimbursement-management/internal/zengin"
)

// account holder field width of a transfer data record
const maxHolderLength = 30

var accountTypes = []string{"1", "2", "4"}

type UpdateBankAccountDTO struct {
	BankCode          string `json:"bank_code"`
	BranchCode        string `json:"branch_code"`
	AccountType       string `json:"account_type"`
	AccountNumber     string `json:"account_number"`
	AccountHolderKana string `json:"account_holder_kana"`
}

func (d *UpdateBankAccountDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("bank_code", d.BankCode).Required().Digits(4, 4, errors.ErrCodeInvalidBankAccount)
	v.Field("branch_code", d.BranchCode).Required().Digits(3, 3, errors.ErrCodeInvalidBankAccount)
	v.Field("account_type", d.AccountType).Required().OneOf(accountTypes, errors.ErrCodeInvalidBankAccount)
	v.Field("account_number", d.AccountNumber).Required().Digits(1, 7, errors.ErrCodeInvalidBankAccount)
	v.Field("account_holder_kana", d.AccountHolderKana).Required().Custom(holderRule)

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func holderRule(value interface{}) *errors.AppError {
	raw, _ := value.(string)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	normalized, ok := zengin.Validate(raw)
	if !ok {
		return errors.NewValidationFieldError("account_holder_kana", "account_holder_kana must be katakana, digits, A-Z or ().-/", errors.ErrCodeInvalidCharacter)
	}
	if utf8.RuneCountInString(normalized) > maxHolderLength {
		return errors.NewValidationFieldError("account_holder_kana", "account_holder_kana is longer than 30 characters", errors.ErrCodeFieldOverflow)
	}
	return nil
}

// BankAccount returns the account with the holder name normalised for
// transfer files.
func (d *UpdateBankAccountDTO) BankAccount() BankAccount {
	return BankAccount{
		BankCode:          d.BankCode,
		BranchCode:        d.BranchCode,
		AccountType:       d.AccountType,
		AccountNumber:     d.AccountNumber,
		AccountHolderKana: zengin.Normalize(strings.TrimSpace(d.AccountHolderKana)),
	}
}
