package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/application"
	appDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/application"
	paymentDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/payment"
	"github.com/frahmantamala/reimbursement-management/internal/metrics"
	"github.com/frahmantamala/reimbursement-management/internal/workerpool"
	"github.com/frahmantamala/reimbursement-management/internal/zengin"
)

type RepositoryAPI interface {
	Transaction(ctx context.Context, fn func(tx RepositoryAPI) error) error

	ListReady(ctx context.Context) ([]*appDatamodel.ExpenseApplication, error)
	// LockApplications returns the rows that exist among ids, locked for update.
	LockApplications(ctx context.Context, ids []string) ([]*appDatamodel.ExpenseApplication, error)
	CountByApplicationIDs(ctx context.Context, ids []string) (int64, error)
	CreateBatch(ctx context.Context, payments []*paymentDatamodel.Payment) error
	FindByBatchID(ctx context.Context, batchID string) ([]*paymentDatamodel.Payment, error)
	ListTransfers(ctx context.Context, batchID string) ([]*paymentDatamodel.TransferRow, error)
}

// Runner executes export jobs on a bounded pool.
type Runner interface {
	Submit(ctx context.Context, name string, job workerpool.Job) ([]byte, error)
}

// SenderProfile is the company side of every transfer file. The transfer date
// is derived per export from LeadDays.
type SenderProfile struct {
	SenderCode    string
	SenderName    string
	BankCode      string
	BankName      string
	BranchCode    string
	BranchName    string
	AccountType   string
	AccountNumber string
	LeadDays      int
}

func ProfileFromConfig(cfg internal.ZenginConfig) SenderProfile {
	return SenderProfile{
		SenderCode:    cfg.SenderCode,
		SenderName:    cfg.SenderName,
		BankCode:      cfg.BankCode,
		BankName:      cfg.BankName,
		BranchCode:    cfg.BranchCode,
		BranchName:    cfg.BranchName,
		AccountType:   cfg.AccountType,
		AccountNumber: cfg.AccountNumber,
		LeadDays:      cfg.TransferLeadDays,
	}
}

type Service struct {
	repo    RepositoryAPI
	ids     BatchIDGenerator
	runner  Runner
	profile SenderProfile
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo RepositoryAPI, ids BatchIDGenerator, runner Runner, profile SenderProfile, logger *slog.Logger) *Service {
	if ids == nil {
		ids = RandomBatchIDGenerator{}
	}
	return &Service{
		repo:    repo,
		ids:     ids,
		runner:  runner,
		profile: profile,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) ListReady(ctx context.Context) ([]*ReadyApplication, error) {
	rows, err := s.repo.ListReady(ctx)
	if err != nil {
		return nil, s.fail("list_ready", err)
	}

	ready := make([]*ReadyApplication, 0, len(rows))
	for _, app := range application.FromDataModelSlice(rows) {
		item := &ReadyApplication{
			ID:                app.ID,
			ApplicationNumber: app.ApplicationNumber,
			UserID:            app.UserID,
			PayableAmount:     app.PayableAmount(),
		}
		if app.ApprovedAt != nil {
			item.ApprovedAt = app.ApprovedAt.Format(time.RFC3339)
		}
		ready = append(ready, item)
	}
	return ready, nil
}

// GenerateBatch creates one PENDING payment per application. Either every
// application is paid in the new batch or nothing is written.
func (s *Service) GenerateBatch(ctx context.Context, adminID string, dto GenerateBatchDTO) (*BatchResult, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("batch validation failed", "error", err, "admin_id", adminID)
		return nil, err
	}

	batchID, err := s.ids.Next(ctx, s.now())
	if err != nil {
		return nil, s.fail("generate", err, "admin_id", adminID)
	}

	result := &BatchResult{BatchID: batchID}
	err = s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		rows, err := tx.LockApplications(ctx, dto.ApplicationIDs)
		if err != nil {
			return err
		}
		if len(rows) != len(dto.ApplicationIDs) {
			return ErrNotAllApproved
		}
		for _, row := range rows {
			if application.Status(row.Status) != application.StatusApproved {
				return ErrNotAllApproved
			}
		}

		paid, err := tx.CountByApplicationIDs(ctx, dto.ApplicationIDs)
		if err != nil {
			return err
		}
		if paid > 0 {
			return ErrAlreadyPaid
		}

		payments := make([]*paymentDatamodel.Payment, 0, len(rows))
		var total int64
		for _, app := range application.FromDataModelSlice(rows) {
			amount := app.PayableAmount()
			payments = append(payments, &paymentDatamodel.Payment{
				ApplicationID: app.ID,
				BatchID:       batchID,
				Amount:        amount,
				Status:        string(StatusPending),
			})
			total += amount
		}
		if err := tx.CreateBatch(ctx, payments); err != nil {
			return err
		}

		result.PaymentCount = len(payments)
		result.TotalAmount = total
		return nil
	})
	if err != nil {
		return nil, s.fail("generate", err, "admin_id", adminID, "batch_id", batchID)
	}

	metrics.BatchesGenerated.Inc()
	metrics.PaymentsCreated.Add(float64(result.PaymentCount))
	s.logger.Info("payment batch generated",
		"batch_id", batchID,
		"admin_id", adminID,
		"payment_count", result.PaymentCount,
		"total_amount", result.TotalAmount,
	)
	return result, nil
}

func (s *Service) FindByBatchID(ctx context.Context, batchID string) (*BatchResponse, error) {
	rows, err := s.repo.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, s.fail("find_batch", err, "batch_id", batchID)
	}

	resp := &BatchResponse{BatchID: batchID, Payments: FromDataModelSlice(rows)}
	for _, p := range resp.Payments {
		resp.TotalAmount += p.Amount
	}
	return resp, nil
}

// Download renders the batch as a Zengin transfer file.
func (s *Service) Download(ctx context.Context, batchID string) (*Export, error) {
	rows, err := s.transfers(ctx, batchID)
	if err != nil {
		return nil, s.fail("download", err, "batch_id", batchID)
	}

	profile := s.zenginProfile()
	records := make([]zengin.Transfer, 0, len(rows))
	for _, row := range rows {
		records = append(records, zengin.Transfer{
			BankCode:      row.BankCode,
			BranchCode:    row.BranchCode,
			AccountType:   row.AccountType,
			AccountNumber: row.AccountNumber,
			RecipientName: row.AccountHolderKana,
			Amount:        row.Amount,
			CustomerCode:  fmt.Sprintf("%010d", row.SequenceNo),
		})
	}

	data, err := s.run(ctx, "transfer", batchID, func(context.Context) ([]byte, error) {
		return zengin.Encode(profile, records)
	})
	if err != nil {
		return nil, s.fail("download", err, "batch_id", batchID)
	}

	s.logger.Info("transfer file exported", "batch_id", batchID, "records", len(records), "bytes", len(data))
	return &Export{
		Filename:    batchID + ".dat",
		ContentType: "application/octet-stream",
		Data:        data,
	}, nil
}

// Summary renders the batch as a spreadsheet for accounting review.
func (s *Service) Summary(ctx context.Context, batchID string) (*Export, error) {
	rows, err := s.transfers(ctx, batchID)
	if err != nil {
		return nil, s.fail("summary", err, "batch_id", batchID)
	}

	data, err := s.run(ctx, "summary", batchID, func(context.Context) ([]byte, error) {
		return renderSummary(batchID, rows)
	})
	if err != nil {
		return nil, s.fail("summary", err, "batch_id", batchID)
	}

	return &Export{
		Filename:    batchID + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

func (s *Service) transfers(ctx context.Context, batchID string) ([]*paymentDatamodel.TransferRow, error) {
	rows, err := s.repo.ListTransfers(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrBatchNotFound
	}
	for _, row := range rows {
		if row.BankCode == "" || row.BranchCode == "" || row.AccountNumber == "" || row.AccountHolderKana == "" {
			appErr := internal.NewEncodingError("bank_account", "payee has no registered bank account", internal.ErrCodeMissingBankAccount)
			appErr.Details = map[string]string{
				"field":              "bank_account",
				"user_id":            row.UserID,
				"application_number": row.ApplicationNumber,
			}
			return nil, appErr
		}
	}
	return rows, nil
}

func (s *Service) run(ctx context.Context, format, batchID string, job workerpool.Job) ([]byte, error) {
	start := time.Now()
	data, err := s.runner.Submit(ctx, format+":"+batchID, job)
	if errors.Is(err, workerpool.ErrQueueFull) {
		metrics.ExportQueueRejected.Inc()
		return nil, ErrExportBusy
	}
	if err != nil {
		return nil, err
	}
	metrics.ExportDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	return data, nil
}

func (s *Service) zenginProfile() zengin.Profile {
	return zengin.Profile{
		SenderCode:    s.profile.SenderCode,
		SenderName:    s.profile.SenderName,
		TransferDate:  s.now().AddDate(0, 0, s.profile.LeadDays),
		BankCode:      s.profile.BankCode,
		BankName:      s.profile.BankName,
		BranchCode:    s.profile.BranchCode,
		BranchName:    s.profile.BranchName,
		AccountType:   s.profile.AccountType,
		AccountNumber: s.profile.AccountNumber,
	}
}

func (s *Service) fail(op string, err error, attrs ...any) error {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("payment "+op+" failed", err)
	}

	args := append([]any{"operation", op, "error", err}, attrs...)
	if appErr.Type == internal.ErrorTypeInternal {
		s.logger.Error("payment operation failed", args...)
	} else {
		s.logger.Warn("payment operation rejected", args...)
	}
	metrics.WorkflowErrors.WithLabelValues("payment_"+op, string(appErr.Type)).Inc()
	return appErr
}
