package application_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/application"
	"github.com/frahmantamala/reimbursement-management/internal/category"
	appDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/application"
	"github.com/frahmantamala/reimbursement-management/internal/core/events"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockRepository keeps rows in maps. Transaction snapshots the maps and
// restores them when fn fails, which is enough to observe rollbacks.
type MockRepository struct {
	apps      map[string]*appDatamodel.ExpenseApplication
	comments  []*appDatamodel.ApplicationComment
	deleted   []string
	seq       int64
	failWith  error
	readErr   error
	beforeSet func(change application.StatusChange)
}

func NewMockRepository() *MockRepository {
	return &MockRepository{apps: make(map[string]*appDatamodel.ExpenseApplication)}
}

func cloneApp(a *appDatamodel.ExpenseApplication) *appDatamodel.ExpenseApplication {
	cp := *a
	return &cp
}

func (m *MockRepository) Transaction(_ context.Context, fn func(tx application.RepositoryAPI) error) error {
	apps := make(map[string]*appDatamodel.ExpenseApplication, len(m.apps))
	for id, a := range m.apps {
		apps[id] = cloneApp(a)
	}
	comments := append([]*appDatamodel.ApplicationComment(nil), m.comments...)
	seq := m.seq

	if err := fn(m); err != nil {
		m.apps, m.comments, m.seq = apps, comments, seq
		return err
	}
	return nil
}

func (m *MockRepository) NextSequenceNo(_ context.Context) (int64, error) {
	return m.seq + 1, nil
}

func (m *MockRepository) Create(_ context.Context, app *appDatamodel.ExpenseApplication) error {
	if m.failWith != nil {
		return m.failWith
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	m.seq = app.SequenceNo
	m.apps[app.ID] = cloneApp(app)
	return nil
}

func (m *MockRepository) lookup(id string) (*appDatamodel.ExpenseApplication, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, application.ErrApplicationNotFound
	}
	return cloneApp(a), nil
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*appDatamodel.ExpenseApplication, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.lookup(id)
}

func (m *MockRepository) GetByIDForUpdate(_ context.Context, id string) (*appDatamodel.ExpenseApplication, error) {
	return m.lookup(id)
}

func (m *MockRepository) ListByUserID(_ context.Context, userID string, _, _ int) ([]*appDatamodel.ExpenseApplication, error) {
	var result []*appDatamodel.ExpenseApplication
	for _, a := range m.apps {
		if a.UserID == userID {
			result = append(result, cloneApp(a))
		}
	}
	return result, nil
}

func (m *MockRepository) List(_ context.Context, filter application.ListFilter) ([]*appDatamodel.ExpenseApplication, error) {
	var result []*appDatamodel.ExpenseApplication
	for _, a := range m.apps {
		if filter.Status == "" || a.Status == string(filter.Status) {
			result = append(result, cloneApp(a))
		}
	}
	return result, nil
}

func (m *MockRepository) UpdateContent(_ context.Context, app *appDatamodel.ExpenseApplication, expected application.Status) error {
	current, ok := m.apps[app.ID]
	if !ok || current.Status != string(expected) {
		return application.ErrConcurrentUpdate
	}
	m.apps[app.ID] = cloneApp(app)
	return nil
}

func (m *MockRepository) UpdateStatus(_ context.Context, change application.StatusChange) error {
	if m.beforeSet != nil {
		m.beforeSet(change)
	}
	a, ok := m.apps[change.ApplicationID]
	if !ok || a.Status != string(change.From) {
		return application.ErrConcurrentUpdate
	}
	a.Status = string(change.To)
	a.UpdatedAt = change.At
	at := change.At
	switch change.To {
	case application.StatusSubmitted:
		a.SubmittedAt = &at
	case application.StatusApproved:
		a.ApprovedAt = &at
		approver := change.ActorID
		a.ApprovedBy = &approver
		a.CategoryID = change.CategoryID
		a.FinalAmount = change.FinalAmount
	case application.StatusRejected:
		a.RejectedAt = &at
	}
	return nil
}

func (m *MockRepository) CreateComment(_ context.Context, comment *appDatamodel.ApplicationComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now()
	m.comments = append(m.comments, comment)
	return nil
}

func (m *MockRepository) ListComments(_ context.Context, applicationID string) ([]*appDatamodel.ApplicationComment, error) {
	var result []*appDatamodel.ApplicationComment
	for _, c := range m.comments {
		if c.ApplicationID == applicationID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockRepository) Delete(_ context.Context, id string, plan []application.DeletionStep) error {
	for _, step := range plan {
		m.deleted = append(m.deleted, step.Table)
	}
	delete(m.apps, id)
	return nil
}

func (m *MockRepository) commentsOf(appID string) []*appDatamodel.ApplicationComment {
	comments, _ := m.ListComments(context.Background(), appID)
	return comments
}

type MockCategories map[string]*category.Category

func (m MockCategories) GetCategoryByID(_ context.Context, id string) (*category.Category, error) {
	cat, ok := m[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	return cat, nil
}

type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *MockPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

const (
	memberID      = "member-1"
	otherMemberID = "member-2"
	adminID       = "admin-1"
)

func today() string {
	return time.Now().Format(application.DateLayout)
}

var _ = Describe("Application Service", func() {
	var (
		repo       *MockRepository
		publisher  *MockPublisher
		categories MockCategories
		service    *application.Service
		ctx        context.Context
		member     internal.Identity
		admin      internal.Identity
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		publisher = &MockPublisher{}
		categories = MockCategories{
			"travel":  {ID: "travel", Name: "travel", IsActive: true},
			"retired": {ID: "retired", Name: "retired", IsActive: false},
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = application.NewService(repo, categories, publisher, nil, application.Options{NumberPrefix: "EXP", MaxAgeDays: 365}, logger)
		member = internal.Identity{ID: memberID, Role: internal.RoleMember}
		admin = internal.Identity{ID: adminID, Role: internal.RoleAdmin}
	})

	create := func(amount int64) *application.Application {
		app, err := service.CreateApplication(ctx, memberID, application.CreateApplicationDTO{
			ExpenseDate: today(),
			Amount:      amount,
			Description: "Taxi to client office",
		})
		Expect(err).NotTo(HaveOccurred())
		return app
	}

	submitted := func(amount int64) *application.Application {
		app := create(amount)
		_, err := service.SubmitApplication(ctx, app.ID, memberID, application.SubmitApplicationDTO{})
		Expect(err).NotTo(HaveOccurred())
		return app
	}

	Describe("CreateApplication", func() {
		It("creates a numbered draft", func() {
			first := create(10000)
			second := create(2000)

			Expect(first.Status).To(Equal(application.StatusDraft))
			Expect(first.ApplicationNumber).To(Equal("EXP-000001"))
			Expect(second.ApplicationNumber).To(Equal("EXP-000002"))
			Expect(*first.ProposedAmount).To(Equal(int64(10000)))
		})

		It("applies the subsidy policy to the proposal", func() {
			policy, err := application.NewSubsidyPolicy("0.5", 3000)
			Expect(err).NotTo(HaveOccurred())
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
			service = application.NewService(repo, categories, publisher, policy, application.Options{}, logger)

			app := create(10000)
			Expect(*app.ProposedAmount).To(Equal(int64(3000)))
		})

		DescribeTable("rejects invalid input",
			func(dto application.CreateApplicationDTO) {
				_, err := service.CreateApplication(ctx, memberID, dto)
				Expect(internal.HasType(err, internal.ErrorTypeValidation)).To(BeTrue())
				Expect(repo.apps).To(BeEmpty())
			},
			Entry("zero amount", application.CreateApplicationDTO{ExpenseDate: today(), Amount: 0, Description: "x"}),
			Entry("missing description", application.CreateApplicationDTO{ExpenseDate: today(), Amount: 100}),
			Entry("future date", application.CreateApplicationDTO{ExpenseDate: time.Now().AddDate(0, 0, 2).Format(application.DateLayout), Amount: 100, Description: "x"}),
			Entry("date too old", application.CreateApplicationDTO{ExpenseDate: time.Now().AddDate(-2, 0, 0).Format(application.DateLayout), Amount: 100, Description: "x"}),
			Entry("malformed date", application.CreateApplicationDTO{ExpenseDate: "01/02/2025", Amount: 100, Description: "x"}),
		)

		It("wraps repository failures as internal errors", func() {
			repo.failWith = errors.New("disk full")
			_, err := service.CreateApplication(ctx, memberID, application.CreateApplicationDTO{ExpenseDate: today(), Amount: 100, Description: "x"})
			Expect(internal.HasType(err, internal.ErrorTypeInternal)).To(BeTrue())
		})
	})

	Describe("SubmitApplication", func() {
		It("submits a draft, records the comment and notifies", func() {
			app := create(10000)

			result, err := service.SubmitApplication(ctx, app.ID, memberID, application.SubmitApplicationDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(application.StatusSubmitted))
			Expect(result.SubmittedAt).NotTo(BeNil())
			Expect(result.Comments).To(HaveLen(1))
			Expect(result.Comments[0].CommentType).To(Equal(application.CommentSubmission))
			Expect(result.Comments[0].UserID).To(Equal(memberID))

			Expect(publisher.events).To(HaveLen(1))
			event, ok := publisher.events[0].(*events.ApplicationSubmittedEvent)
			Expect(ok).To(BeTrue())
			Expect(event.ApplicationID).To(Equal(app.ID))
			Expect(event.ApplicationNumber).To(Equal(app.ApplicationNumber))
		})

		It("reports the committed submission and notifies when the reload fails", func() {
			app := create(10000)
			repo.readErr = errors.New("replica unavailable")

			result, err := service.SubmitApplication(ctx, app.ID, memberID, application.SubmitApplicationDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(application.StatusSubmitted))
			Expect(result.ApplicationNumber).To(Equal(app.ApplicationNumber))
			Expect(result.SubmittedAt).NotTo(BeNil())
			Expect(result.Comments).To(HaveLen(1))
			Expect(result.Comments[0].CommentType).To(Equal(application.CommentSubmission))
			Expect(repo.apps[app.ID].Status).To(Equal(string(application.StatusSubmitted)))

			Expect(publisher.events).To(HaveLen(1))
			event, ok := publisher.events[0].(*events.ApplicationSubmittedEvent)
			Expect(ok).To(BeTrue())
			Expect(event.ApplicationID).To(Equal(app.ID))
			Expect(event.SubmittedAt).To(Equal(*result.SubmittedAt))
		})

		It("keeps the member's comment text", func() {
			app := create(500)
			result, err := service.SubmitApplication(ctx, app.ID, memberID, application.SubmitApplicationDTO{Comment: "receipt attached"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Comments[0].Comment).To(Equal("receipt attached"))
		})

		It("refuses someone else's application", func() {
			app := create(500)
			_, err := service.SubmitApplication(ctx, app.ID, otherMemberID, application.SubmitApplicationDTO{})
			Expect(err).To(MatchError(application.ErrNotOwner))
			Expect(publisher.events).To(BeEmpty())
		})

		It("returns NOT_FOUND for unknown applications", func() {
			_, err := service.SubmitApplication(ctx, "missing", memberID, application.SubmitApplicationDTO{})
			Expect(internal.HasType(err, internal.ErrorTypeNotFound)).To(BeTrue())
		})

		It("cannot submit twice", func() {
			app := submitted(500)
			_, err := service.SubmitApplication(ctx, app.ID, memberID, application.SubmitApplicationDTO{})
			Expect(internal.HasType(err, internal.ErrorTypeInvalidTransition)).To(BeTrue())
			Expect(repo.commentsOf(app.ID)).To(HaveLen(1))
		})
	})

	Describe("ApproveApplication", func() {
		It("records the final amount, category and approver", func() {
			app := submitted(10000)

			result, err := service.ApproveApplication(ctx, app.ID, adminID, application.ApproveApplicationDTO{CategoryID: "travel", FinalAmount: 8000})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(application.StatusApproved))
			Expect(*result.FinalAmount).To(Equal(int64(8000)))
			Expect(*result.CategoryID).To(Equal("travel"))
			Expect(*result.ApprovedBy).To(Equal(adminID))
			Expect(result.ApprovedAt).NotTo(BeNil())
			Expect(result.PayableAmount()).To(Equal(int64(8000)))
		})

		It("adds an APPROVAL comment only when one is given", func() {
			quiet := submitted(100)
			_, err := service.ApproveApplication(ctx, quiet.ID, adminID, application.ApproveApplicationDTO{CategoryID: "travel", FinalAmount: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.commentsOf(quiet.ID)).To(HaveLen(1))

			noted := submitted(100)
			result, err := service.ApproveApplication(ctx, noted.ID, adminID, application.ApproveApplicationDTO{CategoryID: "travel", FinalAmount: 100, Comment: "ok"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Comments).To(HaveLen(2))
			Expect(result.Comments[1].CommentType).To(Equal(application.CommentApproval))
			Expect(result.Comments[1].UserID).To(Equal(adminID))
		})

		It("fails the second time", func() {
			app := submitted(100)
			dto := application.ApproveApplicationDTO{CategoryID: "travel", FinalAmount: 100}
			_, err := service.ApproveApplication(ctx, app.ID, adminID, dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveApplication(ctx, app.ID, adminID, dto)
			Expect(internal.HasType(err, internal.ErrorTypeInvalidTransition)).To(BeTrue())
		})

		It("cannot approve a draft", func() {
			app := create(100)
			_, err := service.ApproveApplication(ctx, app.ID, adminID, application.ApproveApplicationDTO{CategoryID: "travel", FinalAmount: 100})
			Expect(internal.HasType(err, internal.ErrorTypeInvalidTransition)).To(BeTrue())
		})

		DescribeTable("rejects bad categories without changing the application",
			func(categoryID string) {
				app := submitted(100)
				_, err := service.ApproveApplication(ctx, app.ID, adminID, application.ApproveApplicationDTO{CategoryID: categoryID, FinalAmount: 100})
				Expect(err).To(MatchError(application.ErrInvalidCategory))
				Expect(repo.apps[app.ID].Status).To(Equal(string(application.StatusSubmitted)))
			},
			Entry("inactive", "retired"),
			Entry("unknown", "nope"),
		)

		It("rejects a non-positive final amount", func() {
			app := submitted(100)
			_, err := service.ApproveApplication(ctx, app.ID, adminID, application.ApproveApplicationDTO{CategoryID: "travel", FinalAmount: 0})
			Expect(internal.HasType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("returns a retryable conflict when the row changed underneath", func() {
			app := submitted(100)
			repo.beforeSet = func(change application.StatusChange) {
				repo.apps[change.ApplicationID].Status = string(application.StatusRejected)
			}

			_, err := service.ApproveApplication(ctx, app.ID, adminID, application.ApproveApplicationDTO{CategoryID: "travel", FinalAmount: 100, Comment: "ok"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Retryable).To(BeTrue())
			Expect(repo.commentsOf(app.ID)).To(HaveLen(1))
		})
	})

	Describe("ReturnApplication and RejectApplication", func() {
		It("requires a comment", func() {
			app := submitted(100)
			_, err := service.ReturnApplication(ctx, app.ID, adminID, application.CommentDTO{Comment: "   "})
			Expect(err).To(MatchError(application.ErrCommentRequired))

			_, err = service.RejectApplication(ctx, app.ID, adminID, application.CommentDTO{})
			Expect(err).To(MatchError(application.ErrCommentRequired))
			Expect(repo.apps[app.ID].Status).To(Equal(string(application.StatusSubmitted)))
		})

		It("returns with a comment attributed to the admin and allows resubmission", func() {
			app := submitted(100)
			result, err := service.ReturnApplication(ctx, app.ID, adminID, application.CommentDTO{Comment: "missing receipt"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(application.StatusReturned))

			last := result.Comments[len(result.Comments)-1]
			Expect(last.CommentType).To(Equal(application.CommentReturn))
			Expect(last.UserID).To(Equal(adminID))
			Expect(last.Comment).To(Equal("missing receipt"))

			amount := int64(90)
			_, err = service.UpdateApplication(ctx, app.ID, memberID, application.UpdateApplicationDTO{Amount: &amount})
			Expect(err).NotTo(HaveOccurred())

			result, err = service.SubmitApplication(ctx, app.ID, memberID, application.SubmitApplicationDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(application.StatusSubmitted))
			Expect(result.Amount).To(Equal(int64(90)))
		})

		It("rejects with a timestamp and a REJECTION comment", func() {
			app := submitted(100)
			result, err := service.RejectApplication(ctx, app.ID, adminID, application.CommentDTO{Comment: "personal expense"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(application.StatusRejected))
			Expect(result.RejectedAt).NotTo(BeNil())
			Expect(result.Comments[len(result.Comments)-1].CommentType).To(Equal(application.CommentRejection))

			_, err = service.ReturnApplication(ctx, app.ID, adminID, application.CommentDTO{Comment: "again"})
			Expect(internal.HasType(err, internal.ErrorTypeInvalidTransition)).To(BeTrue())
		})
	})

	Describe("UpdateApplication", func() {
		It("recomputes the proposal while editable", func() {
			app := create(100)
			amount := int64(250)
			result, err := service.UpdateApplication(ctx, app.ID, memberID, application.UpdateApplicationDTO{Amount: &amount})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Amount).To(Equal(int64(250)))
			Expect(*result.ProposedAmount).To(Equal(int64(250)))
		})

		It("refuses submitted applications", func() {
			app := submitted(100)
			description := "changed"
			_, err := service.UpdateApplication(ctx, app.ID, memberID, application.UpdateApplicationDTO{Description: &description})
			Expect(err).To(MatchError(application.ErrNotEditable))
		})

		It("refuses other members", func() {
			app := create(100)
			description := "changed"
			_, err := service.UpdateApplication(ctx, app.ID, otherMemberID, application.UpdateApplicationDTO{Description: &description})
			Expect(err).To(MatchError(application.ErrNotOwner))
		})
	})

	Describe("DeleteApplication", func() {
		It("runs the deletion plan for drafts", func() {
			app := create(100)
			Expect(service.DeleteApplication(ctx, app.ID, memberID)).To(Succeed())
			Expect(repo.deleted).To(Equal([]string{"ocr_extractions", "receipts", "application_comments", "expense_applications"}))
			Expect(repo.apps).NotTo(HaveKey(app.ID))
		})

		It("refuses anything but drafts", func() {
			app := submitted(100)
			Expect(service.DeleteApplication(ctx, app.ID, memberID)).To(MatchError(application.ErrNotDeletable))
			Expect(repo.deleted).To(BeEmpty())
		})

		It("refuses other members", func() {
			app := create(100)
			Expect(service.DeleteApplication(ctx, app.ID, otherMemberID)).To(MatchError(application.ErrNotOwner))
		})
	})

	Describe("GetApplication and AddComment", func() {
		It("allows the owner and administrators", func() {
			app := create(100)

			_, err := service.GetApplication(ctx, app.ID, member)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.GetApplication(ctx, app.ID, admin)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GetApplication(ctx, app.ID, internal.Identity{ID: otherMemberID, Role: internal.RoleMember})
			Expect(err).To(MatchError(application.ErrNotOwner))
		})

		It("appends GENERAL comments", func() {
			app := create(100)
			comment, err := service.AddComment(ctx, app.ID, admin, application.CommentDTO{Comment: "please attach the receipt"})
			Expect(err).NotTo(HaveOccurred())
			Expect(comment.CommentType).To(Equal(application.CommentGeneral))
			Expect(comment.UserID).To(Equal(adminID))

			_, err = service.AddComment(ctx, app.ID, internal.Identity{ID: otherMemberID}, application.CommentDTO{Comment: "hi"})
			Expect(err).To(MatchError(application.ErrNotOwner))
		})
	})

	Describe("ListApplications", func() {
		It("filters by status", func() {
			create(100)
			submitted(200)

			apps, err := service.ListApplications(ctx, "submitted", 20, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(HaveLen(1))
			Expect(apps[0].Amount).To(Equal(int64(200)))
		})

		It("rejects unknown statuses", func() {
			_, err := service.ListApplications(ctx, "paid", 20, 0)
			Expect(internal.HasType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("lists only the caller's applications", func() {
			create(100)
			apps, err := service.ListMyApplications(ctx, otherMemberID, 20, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(BeEmpty())
		})
	})
})
