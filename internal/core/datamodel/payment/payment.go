package payment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payment struct {
	ID            string    `gorm:"primaryKey;size:36"`
	ApplicationID string    `gorm:"column:application_id;size:36;uniqueIndex;not null"`
	BatchID       string    `gorm:"column:batch_id;size:40;index;not null"`
	Amount        int64     `gorm:"column:amount;not null"`
	Status        string    `gorm:"column:status;size:16;not null;default:PENDING"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TransferRow is a payment joined with the payee's bank account.
type TransferRow struct {
	PaymentID         string    `gorm:"column:payment_id"`
	ApplicationID     string    `gorm:"column:application_id"`
	ApplicationNumber string    `gorm:"column:application_number"`
	SequenceNo        int64     `gorm:"column:sequence_no"`
	Amount            int64     `gorm:"column:amount"`
	UserID            string    `gorm:"column:user_id"`
	UserName          string    `gorm:"column:user_name"`
	BankCode          string    `gorm:"column:bank_code"`
	BranchCode        string    `gorm:"column:branch_code"`
	AccountType       string    `gorm:"column:account_type"`
	AccountNumber     string    `gorm:"column:account_number"`
	AccountHolderKana string    `gorm:"column:account_holder_kana"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}
