package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/category"
	appDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/application"
	"github.com/frahmantamala/reimbursement-management/internal/core/events"
	"github.com/frahmantamala/reimbursement-management/internal/metrics"
)

// StatusChange is a conditional status update: it applies only while the row
// still has status From.
type StatusChange struct {
	ApplicationID string
	From          Status
	To            Status
	At            time.Time
	ActorID       string
	CategoryID    *string
	FinalAmount   *int64
}

// applyTo mirrors the columns UpdateStatus writes onto row.
func (c StatusChange) applyTo(row *appDatamodel.ExpenseApplication) {
	row.Status = string(c.To)
	row.UpdatedAt = c.At
	at := c.At
	switch c.To {
	case StatusSubmitted:
		row.SubmittedAt = &at
	case StatusApproved:
		approver := c.ActorID
		row.ApprovedAt = &at
		row.ApprovedBy = &approver
		row.CategoryID = c.CategoryID
		row.FinalAmount = c.FinalAmount
	case StatusRejected:
		row.RejectedAt = &at
	}
}

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

type RepositoryAPI interface {
	// Transaction runs fn against a repository bound to one database
	// transaction. fn returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx RepositoryAPI) error) error

	NextSequenceNo(ctx context.Context) (int64, error)
	Create(ctx context.Context, app *appDatamodel.ExpenseApplication) error
	GetByID(ctx context.Context, id string) (*appDatamodel.ExpenseApplication, error)
	GetByIDForUpdate(ctx context.Context, id string) (*appDatamodel.ExpenseApplication, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*appDatamodel.ExpenseApplication, error)
	List(ctx context.Context, filter ListFilter) ([]*appDatamodel.ExpenseApplication, error)
	UpdateContent(ctx context.Context, app *appDatamodel.ExpenseApplication, expected Status) error
	UpdateStatus(ctx context.Context, change StatusChange) error
	CreateComment(ctx context.Context, comment *appDatamodel.ApplicationComment) error
	ListComments(ctx context.Context, applicationID string) ([]*appDatamodel.ApplicationComment, error)
	Delete(ctx context.Context, id string, plan []DeletionStep) error
}

type CategoryLookup interface {
	GetCategoryByID(ctx context.Context, id string) (*category.Category, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Options struct {
	NumberPrefix string
	MaxAgeDays   int
}

type Service struct {
	repo       RepositoryAPI
	categories CategoryLookup
	publisher  EventPublisher
	policy     *SubsidyPolicy
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo RepositoryAPI, categories CategoryLookup, publisher EventPublisher, policy *SubsidyPolicy, opts Options, logger *slog.Logger) *Service {
	if policy == nil {
		policy = FullSubsidy()
	}
	return &Service{
		repo:       repo,
		categories: categories,
		publisher:  publisher,
		policy:     policy,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) CreateApplication(ctx context.Context, userID string, dto CreateApplicationDTO) (*Application, error) {
	now := s.now()
	if err := dto.Validate(now, s.opts.MaxAgeDays); err != nil {
		s.logger.Warn("application validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	proposed := s.policy.Propose(dto.Amount)
	row := &appDatamodel.ExpenseApplication{
		UserID:         userID,
		ExpenseDate:    parseDate(dto.ExpenseDate),
		Amount:         dto.Amount,
		ProposedAmount: &proposed,
		Status:         string(StatusDraft),
		Description:    strings.TrimSpace(dto.Description),
		IsCashPayment:  dto.IsCashPayment,
	}

	err := s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		seq, err := tx.NextSequenceNo(ctx)
		if err != nil {
			return err
		}
		row.SequenceNo = seq
		row.ApplicationNumber = FormatApplicationNumber(s.opts.NumberPrefix, seq)
		return tx.Create(ctx, row)
	})
	if err != nil {
		return nil, s.fail("create", err, "user_id", userID)
	}

	s.logger.Info("application created",
		"application_id", row.ID,
		"application_number", row.ApplicationNumber,
		"user_id", userID,
		"amount", row.Amount)

	return FromDataModel(row), nil
}

func (s *Service) UpdateApplication(ctx context.Context, appID, userID string, dto UpdateApplicationDTO) (*Application, error) {
	if err := dto.Validate(s.now(), s.opts.MaxAgeDays); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		row, err := tx.GetByIDForUpdate(ctx, appID)
		if err != nil {
			return err
		}
		if row.UserID != userID {
			return ErrNotOwner
		}
		current := Status(row.Status)
		if !current.IsEditable() {
			return ErrNotEditable
		}

		if dto.ExpenseDate != nil {
			row.ExpenseDate = parseDate(*dto.ExpenseDate)
		}
		if dto.Amount != nil {
			row.Amount = *dto.Amount
		}
		if dto.Description != nil {
			row.Description = strings.TrimSpace(*dto.Description)
		}
		if dto.IsCashPayment != nil {
			row.IsCashPayment = *dto.IsCashPayment
		}
		proposed := s.policy.Propose(row.Amount)
		row.ProposedAmount = &proposed

		return tx.UpdateContent(ctx, row, current)
	})
	if err != nil {
		return nil, s.fail("update", err, "application_id", appID, "user_id", userID)
	}

	s.logger.Info("application updated", "application_id", appID, "user_id", userID)
	return s.load(ctx, appID)
}

func (s *Service) GetApplication(ctx context.Context, appID string, actor internal.Identity) (*Application, error) {
	app, err := s.load(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.CanBeViewedBy(actor) {
		s.logger.Warn("application access denied", "application_id", appID, "user_id", actor.ID)
		return nil, ErrNotOwner
	}
	return app, nil
}

func (s *Service) ListMyApplications(ctx context.Context, userID string, limit, offset int) ([]*Application, error) {
	rows, err := s.repo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list applications", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to list applications", err)
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) ListApplications(ctx context.Context, status string, limit, offset int) ([]*Application, error) {
	filter := ListFilter{Status: Status(strings.ToUpper(status)), Limit: limit, Offset: offset}
	if status != "" && !filter.Status.IsValid() {
		return nil, internal.NewValidationFieldError("status", "unknown status "+status, internal.ErrCodeValidationFailed)
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list applications", "error", err, "status", status)
		return nil, internal.NewInternalError("failed to list applications", err)
	}
	return FromDataModelSlice(rows), nil
}

// SubmitApplication moves a draft or returned application to SUBMITTED and
// notifies administrators once the change is committed.
func (s *Service) SubmitApplication(ctx context.Context, appID, userID string, dto SubmitApplicationDTO) (*Application, error) {
	text := strings.TrimSpace(dto.Comment)
	if text == "" {
		text = "Application submitted"
	}

	app, err := s.transition(ctx, appID, StatusSubmitted,
		func(row *appDatamodel.ExpenseApplication) error {
			if row.UserID != userID {
				return ErrNotOwner
			}
			return nil
		},
		func(tx RepositoryAPI, row *appDatamodel.ExpenseApplication, now time.Time) error {
			if err := tx.UpdateStatus(ctx, StatusChange{
				ApplicationID: appID,
				From:          Status(row.Status),
				To:            StatusSubmitted,
				At:            now,
				ActorID:       userID,
			}); err != nil {
				return err
			}
			return tx.CreateComment(ctx, newComment(appID, userID, CommentSubmission, text))
		})
	if err != nil {
		return nil, s.fail("submit", err, "application_id", appID, "user_id", userID)
	}

	s.logger.Info("application submitted", "application_id", appID, "user_id", userID)
	s.notifySubmitted(ctx, app)
	return app, nil
}

func (s *Service) notifySubmitted(ctx context.Context, app *Application) {
	if s.publisher == nil {
		return
	}
	submittedAt := app.UpdatedAt
	if app.SubmittedAt != nil {
		submittedAt = *app.SubmittedAt
	}
	event := events.NewApplicationSubmittedEvent(app.ID, app.ApplicationNumber, app.UserID, app.Amount, submittedAt)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish submission event", "error", err, "application_id", app.ID)
	}
}

// ApproveApplication records the final amount and category. The comment is
// optional; an APPROVAL comment is written only when one is given.
func (s *Service) ApproveApplication(ctx context.Context, appID, adminID string, dto ApproveApplicationDTO) (*Application, error) {
	if err := dto.Validate(); err != nil {
		return nil, s.fail("approve", err, "application_id", appID, "admin_id", adminID)
	}

	app, err := s.transition(ctx, appID, StatusApproved, nil,
		func(tx RepositoryAPI, row *appDatamodel.ExpenseApplication, now time.Time) error {
			if err := s.ensureActiveCategory(ctx, dto.CategoryID); err != nil {
				return err
			}
			categoryID := dto.CategoryID
			finalAmount := dto.FinalAmount
			if err := tx.UpdateStatus(ctx, StatusChange{
				ApplicationID: appID,
				From:          Status(row.Status),
				To:            StatusApproved,
				At:            now,
				ActorID:       adminID,
				CategoryID:    &categoryID,
				FinalAmount:   &finalAmount,
			}); err != nil {
				return err
			}
			if comment := strings.TrimSpace(dto.Comment); comment != "" {
				return tx.CreateComment(ctx, newComment(appID, adminID, CommentApproval, comment))
			}
			return nil
		})
	if err != nil {
		return nil, s.fail("approve", err, "application_id", appID, "admin_id", adminID)
	}

	s.logger.Info("application approved",
		"application_id", appID,
		"admin_id", adminID,
		"final_amount", dto.FinalAmount,
		"category_id", dto.CategoryID)
	return app, nil
}

func (s *Service) ReturnApplication(ctx context.Context, appID, adminID string, dto CommentDTO) (*Application, error) {
	return s.decide(ctx, "return", appID, adminID, StatusReturned, CommentReturn, dto)
}

func (s *Service) RejectApplication(ctx context.Context, appID, adminID string, dto CommentDTO) (*Application, error) {
	return s.decide(ctx, "reject", appID, adminID, StatusRejected, CommentRejection, dto)
}

// decide applies an administrator decision that requires a comment.
func (s *Service) decide(ctx context.Context, op, appID, adminID string, to Status, commentType CommentType, dto CommentDTO) (*Application, error) {
	if err := dto.Validate(); err != nil {
		return nil, s.fail(op, err, "application_id", appID, "admin_id", adminID)
	}
	text := strings.TrimSpace(dto.Comment)

	app, err := s.transition(ctx, appID, to, nil,
		func(tx RepositoryAPI, row *appDatamodel.ExpenseApplication, now time.Time) error {
			if err := tx.UpdateStatus(ctx, StatusChange{
				ApplicationID: appID,
				From:          Status(row.Status),
				To:            to,
				At:            now,
				ActorID:       adminID,
			}); err != nil {
				return err
			}
			return tx.CreateComment(ctx, newComment(appID, adminID, commentType, text))
		})
	if err != nil {
		return nil, s.fail(op, err, "application_id", appID, "admin_id", adminID)
	}

	s.logger.Info("application decided", "application_id", appID, "admin_id", adminID, "status", to)
	return app, nil
}

// DeleteApplication removes a draft and everything that hangs off it.
func (s *Service) DeleteApplication(ctx context.Context, appID, userID string) error {
	err := s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		row, err := tx.GetByIDForUpdate(ctx, appID)
		if err != nil {
			return err
		}
		if row.UserID != userID {
			return ErrNotOwner
		}
		if Status(row.Status) != StatusDraft {
			return ErrNotDeletable
		}
		return tx.Delete(ctx, appID, DeletionPlan)
	})
	if err != nil {
		return s.fail("delete", err, "application_id", appID, "user_id", userID)
	}

	s.logger.Info("application deleted", "application_id", appID, "user_id", userID)
	return nil
}

// AddComment appends a GENERAL comment by the owner or an administrator.
func (s *Service) AddComment(ctx context.Context, appID string, actor internal.Identity, dto CommentDTO) (*Comment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		return nil, s.fail("comment", err, "application_id", appID)
	}
	if !FromDataModel(row).CanBeViewedBy(actor) {
		return nil, ErrNotOwner
	}

	comment := newComment(appID, actor.ID, CommentGeneral, strings.TrimSpace(dto.Comment))
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, s.fail("comment", err, "application_id", appID)
	}
	return CommentFromDataModel(comment), nil
}

// transition runs one status change in a transaction: it locks the row,
// checks authorization and the transition table against the locked status,
// then lets apply write the change and its comments.
func (s *Service) transition(
	ctx context.Context,
	appID string,
	to Status,
	authorize func(row *appDatamodel.ExpenseApplication) error,
	apply func(tx RepositoryAPI, row *appDatamodel.ExpenseApplication, now time.Time) error,
) (*Application, error) {
	var committed *Application
	err := s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		row, err := tx.GetByIDForUpdate(ctx, appID)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(row); err != nil {
				return err
			}
		}
		from := Status(row.Status)
		if !IsValidTransition(from, to) {
			return internal.NewInvalidTransitionError(string(from), string(to))
		}

		rec := &recordingTx{RepositoryAPI: tx}
		snapshot := *row
		if err := apply(rec, row, s.now()); err != nil {
			return err
		}
		if rec.change != nil {
			rec.change.applyTo(&snapshot)
		}
		committed = FromDataModel(&snapshot)
		for _, c := range rec.comments {
			committed.Comments = append(committed.Comments, CommentFromDataModel(c))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ApplicationTransitions.WithLabelValues(string(to)).Inc()

	// the change is committed; a failed reload must not report it as failed
	app, err := s.load(ctx, appID)
	if err != nil {
		s.logger.Warn("failed to reload application after status change",
			"error", err, "application_id", appID, "status", to)
		return committed, nil
	}
	return app, nil
}

// recordingTx remembers the writes apply made so the committed state can be
// rebuilt without reading the row back.
type recordingTx struct {
	RepositoryAPI
	change   *StatusChange
	comments []*appDatamodel.ApplicationComment
}

func (r *recordingTx) UpdateStatus(ctx context.Context, change StatusChange) error {
	if err := r.RepositoryAPI.UpdateStatus(ctx, change); err != nil {
		return err
	}
	r.change = &change
	return nil
}

func (r *recordingTx) CreateComment(ctx context.Context, comment *appDatamodel.ApplicationComment) error {
	if err := r.RepositoryAPI.CreateComment(ctx, comment); err != nil {
		return err
	}
	r.comments = append(r.comments, comment)
	return nil
}

func (s *Service) ensureActiveCategory(ctx context.Context, categoryID string) error {
	if s.categories == nil {
		return nil
	}
	cat, err := s.categories.GetCategoryByID(ctx, categoryID)
	if err != nil {
		if internal.HasType(err, internal.ErrorTypeNotFound) {
			return ErrInvalidCategory
		}
		return err
	}
	if cat == nil || !cat.IsActive {
		return ErrInvalidCategory
	}
	return nil
}

func (s *Service) load(ctx context.Context, appID string) (*Application, error) {
	row, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, internal.NewInternalError("failed to load application", err)
	}
	comments, err := s.repo.ListComments(ctx, appID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load comments", err)
	}

	app := FromDataModel(row)
	for _, c := range comments {
		app.Comments = append(app.Comments, CommentFromDataModel(c))
	}
	return app, nil
}

// fail logs err and makes sure the caller always receives an AppError.
func (s *Service) fail(op string, err error, attrs ...any) error {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("application "+op+" failed", err)
	}

	args := append([]any{"operation", op, "error", err}, attrs...)
	if appErr.Type == internal.ErrorTypeInternal {
		s.logger.Error("application workflow failed", args...)
	} else {
		s.logger.Warn("application workflow rejected", args...)
	}
	metrics.WorkflowErrors.WithLabelValues(op, string(appErr.Type)).Inc()
	return appErr
}
