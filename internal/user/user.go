package user

import (
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	userDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/user"
)

type User struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Role        string       `json:"role"`
	IsActive    bool         `json:"is_active"`
	BankAccount *BankAccount `json:"bank_account,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BankAccount is where reimbursements for the member are transferred.
// AccountHolderKana is stored already normalised to half-width katakana.
type BankAccount struct {
	BankCode          string `json:"bank_code"`
	BranchCode        string `json:"branch_code"`
	AccountType       string `json:"account_type"`
	AccountNumber     string `json:"account_number"`
	AccountHolderKana string `json:"account_holder_kana"`
}

var ErrUserNotFound = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)

func (u *User) IsAdmin() bool {
	return u.Role == internal.RoleAdmin
}

func FromDataModel(u *userDatamodel.User) *User {
	out := &User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.BankCode != "" {
		out.BankAccount = &BankAccount{
			BankCode:          u.BankCode,
			BranchCode:        u.BranchCode,
			AccountType:       u.AccountType,
			AccountNumber:     u.AccountNumber,
			AccountHolderKana: u.AccountHolderKana,
		}
	}
	return out
}

func ToDataModel(u *User, passwordHash string) *userDatamodel.User {
	row := &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: passwordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.BankAccount != nil {
		row.BankCode = u.BankAccount.BankCode
		row.BranchCode = u.BankAccount.BranchCode
		row.AccountType = u.BankAccount.AccountType
		row.AccountNumber = u.BankAccount.AccountNumber
		row.AccountHolderKana = u.BankAccount.AccountHolderKana
	}
	return row
}
