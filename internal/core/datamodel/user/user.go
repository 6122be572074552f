package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                string    `gorm:"primaryKey;size:36" db:"id"`
	Email             string    `gorm:"column:email;uniqueIndex;not null" db:"email"`
	Name              string    `gorm:"column:name;not null" db:"name"`
	PasswordHash      string    `gorm:"column:password_hash;not null" db:"password_hash"`
	Role              string    `gorm:"column:role;size:16;not null;default:member" db:"role"`
	IsActive          bool      `gorm:"column:is_active;default:true" db:"is_active"`
	BankCode          string    `gorm:"column:bank_code;size:4" db:"bank_code"`
	BranchCode        string    `gorm:"column:branch_code;size:3" db:"branch_code"`
	AccountType       string    `gorm:"column:account_type;size:1" db:"account_type"`
	AccountNumber     string    `gorm:"column:account_number;size:7" db:"account_number"`
	AccountHolderKana string    `gorm:"column:account_holder_kana;size:60" db:"account_holder_kana"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
