package application

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExpenseApplication struct {
	ID                string     `gorm:"primaryKey;size:36"`
	ApplicationNumber string     `gorm:"column:application_number;size:32;uniqueIndex;not null"`
	SequenceNo        int64      `gorm:"column:sequence_no;uniqueIndex;not null"`
	UserID            string     `gorm:"column:user_id;size:36;index;not null"`
	ExpenseDate       time.Time  `gorm:"column:expense_date;type:date;not null"`
	Amount            int64      `gorm:"column:amount;not null"`
	ProposedAmount    *int64     `gorm:"column:proposed_amount"`
	FinalAmount       *int64     `gorm:"column:final_amount"`
	Status            string     `gorm:"column:status;size:16;index;not null;default:DRAFT"`
	Description       string     `gorm:"column:description;size:500;not null"`
	IsCashPayment     bool       `gorm:"column:is_cash_payment;not null;default:false"`
	CategoryID        *string    `gorm:"column:category_id;size:36"`
	ApprovedBy        *string    `gorm:"column:approved_by;size:36"`
	SubmittedAt       *time.Time `gorm:"column:submitted_at"`
	ApprovedAt        *time.Time `gorm:"column:approved_at"`
	RejectedAt        *time.Time `gorm:"column:rejected_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ExpenseApplication) TableName() string { return "expense_applications" }

func (a *ExpenseApplication) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type ApplicationComment struct {
	ID            string    `gorm:"primaryKey;size:36"`
	ApplicationID string    `gorm:"column:application_id;size:36;index;not null"`
	UserID        string    `gorm:"column:user_id;size:36;not null"`
	Comment       string    `gorm:"column:comment;not null"`
	CommentType   string    `gorm:"column:comment_type;size:16;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`

	Application *ExpenseApplication `gorm:"foreignKey:ApplicationID;constraint:OnDelete:RESTRICT"`
}

func (ApplicationComment) TableName() string { return "application_comments" }

func (c *ApplicationComment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Receipt struct {
	ID            string    `gorm:"primaryKey;size:36"`
	ApplicationID string    `gorm:"column:application_id;size:36;index;not null"`
	FileName      string    `gorm:"column:file_name;not null"`
	FilePath      string    `gorm:"column:file_path;not null"`
	ContentType   string    `gorm:"column:content_type"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`

	Application *ExpenseApplication `gorm:"foreignKey:ApplicationID;constraint:OnDelete:RESTRICT"`
}

func (Receipt) TableName() string { return "receipts" }

func (r *Receipt) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type OcrExtraction struct {
	ID              string     `gorm:"primaryKey;size:36"`
	ReceiptID       string     `gorm:"column:receipt_id;size:36;index;not null"`
	RawText         string     `gorm:"column:raw_text"`
	ExtractedAmount *int64     `gorm:"column:extracted_amount"`
	ExtractedDate   *time.Time `gorm:"column:extracted_date;type:date"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`

	Receipt *Receipt `gorm:"foreignKey:ReceiptID;constraint:OnDelete:RESTRICT"`
}

func (OcrExtraction) TableName() string { return "ocr_extractions" }

func (o *OcrExtraction) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
