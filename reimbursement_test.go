package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/application"
	appPostgres "github.com/frahmantamala/reimbursement-management/internal/application/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/auth"
	authPostgres "github.com/frahmantamala/reimbursement-management/internal/auth/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/category"
	categoryPostgres "github.com/frahmantamala/reimbursement-management/internal/category/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/core/database"
	appDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/application"
	categoryDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/category"
	paymentDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/payment"
	userDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/user"
	"github.com/frahmantamala/reimbursement-management/internal/core/events"
	"github.com/frahmantamala/reimbursement-management/internal/notification"
	"github.com/frahmantamala/reimbursement-management/internal/payment"
	paymentPostgres "github.com/frahmantamala/reimbursement-management/internal/payment/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/transport"
	"github.com/frahmantamala/reimbursement-management/internal/transport/rest"
	"github.com/frahmantamala/reimbursement-management/internal/user"
	userPostgres "github.com/frahmantamala/reimbursement-management/internal/user/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/workerpool"
	"github.com/frahmantamala/reimbursement-management/internal/zengin"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminEmail  = "admin@example.com"
	memberEmail = "member@example.com"
	password    = "correct horse"
)

var testZengin = internal.ZenginConfig{
	SenderCode:       "0000012345",
	SenderName:       "ｻﾝﾌﾟﾙ ｶｲｼﾔ",
	BankCode:         "0001",
	BankName:         "ﾐｽﾞﾎ",
	BranchCode:       "001",
	BranchName:       "ﾎﾝﾃﾝ",
	AccountType:      "1",
	AccountNumber:    "7654321",
	TransferLeadDays: 1,
}

type recordingSender struct {
	mu      sync.Mutex
	notices []notification.Notice
}

func (s *recordingSender) Notify(_ context.Context, notice notification.Notice) notification.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice)
	return notification.Succeeded()
}

func (s *recordingSender) sent() []notification.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Notice(nil), s.notices...)
}

type server struct {
	router *chi.Mux
	bus    *events.EventBus
	pool   *workerpool.Pool
	sender *recordingSender
}

func newServer() *server {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	// approval reads categories on a second connection while the row is locked
	dsn := filepath.Join(GinkgoT().TempDir(), "reimbursement.db") + "?_busy_timeout=5000"
	gormDB, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := gormDB.DB()
	Expect(err).NotTo(HaveOccurred())

	Expect(gormDB.AutoMigrate(
		&userDatamodel.User{},
		&categoryDatamodel.Category{},
		&appDatamodel.ExpenseApplication{},
		&appDatamodel.ApplicationComment{},
		&appDatamodel.Receipt{},
		&appDatamodel.OcrExtraction{},
		&paymentDatamodel.Payment{},
	)).To(Succeed())

	s := &server{
		bus:    events.NewEventBus(logger),
		sender: &recordingSender{},
		pool:   workerpool.New(workerpool.Config{MaxWorkers: 2, JobQueueSize: 4}, logger),
	}

	users := user.NewService(userPostgres.NewUserRepository(sqlx.NewDb(sqlDB, "sqlite3")), logger)
	categories := category.NewService(categoryPostgres.NewCategoryRepository(gormDB), logger)
	authService := auth.NewService(
		authPostgres.NewRepository(gormDB),
		auth.NewJWTTokenGenerator("an-end-to-end-secret-of-32-chars!", 15*time.Minute),
		bcrypt.MinCost,
		logger,
	)
	applications := application.NewService(
		appPostgres.NewApplicationRepository(gormDB),
		categories,
		s.bus,
		nil,
		application.Options{NumberPrefix: "EXP", MaxAgeDays: 365},
		logger,
	)
	payments := payment.NewService(
		paymentPostgres.NewPaymentRepository(gormDB),
		nil,
		s.pool,
		payment.ProfileFromConfig(testZengin),
		logger,
	)
	notification.NewDispatcher(s.sender, users, logger).Register(s.bus)

	hash, err := authService.HashPassword(password)
	Expect(err).NotTo(HaveOccurred())
	_, _, err = users.EnsureUser(ctx, &user.User{Email: adminEmail, Name: "Admin", Role: internal.RoleAdmin, IsActive: true}, hash)
	Expect(err).NotTo(HaveOccurred())
	_, _, err = users.EnsureUser(ctx, &user.User{
		Email:    memberEmail,
		Name:     "Yamada Taro",
		Role:     internal.RoleMember,
		IsActive: true,
		BankAccount: &user.BankAccount{
			BankCode:          "0005",
			BranchCode:        "123",
			AccountType:       "1",
			AccountNumber:     "1234567",
			AccountHolderKana: "ﾔﾏﾀﾞ ﾀﾛｳ",
		},
	}, hash)
	Expect(err).NotTo(HaveOccurred())
	_, err = categories.EnsureCategory(ctx, "travel", "business travel")
	Expect(err).NotTo(HaveOccurred())

	base := transport.NewBaseHandler(logger)
	s.router = chi.NewRouter()
	rest.RegisterAllRoutes(s.router, rest.Handlers{
		Health:      rest.NewHealthHandler(sqlDB, nil),
		Auth:        auth.NewHandler(base, authService),
		User:        user.NewHandler(base, users),
		Category:    category.NewHandler(base, categories),
		Application: application.NewHandler(base, applications),
		Payment:     payment.NewHandler(base, payments),
	}, logger)

	DeferCleanup(func() {
		s.bus.Wait()
		s.pool.Shutdown()
		_ = sqlDB.Close()
	})
	return s
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) login(email string) string {
	w := s.do(http.MethodPost, "/auth/login", "", auth.LoginDTO{Email: email, Password: password})
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
	var tokens auth.AuthTokens
	Expect(json.NewDecoder(w.Body).Decode(&tokens)).To(Succeed())
	return tokens.AccessToken
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var out T
	Expect(json.NewDecoder(w.Body).Decode(&out)).To(Succeed())
	return out
}

var _ = Describe("Reimbursement flow", func() {
	var (
		s           *server
		memberToken string
		adminToken  string
	)

	BeforeEach(func() {
		s = newServer()
		memberToken = s.login(memberEmail)
		adminToken = s.login(adminEmail)
	})

	approvedApplication := func(amount, final int64) *application.Application {
		w := s.do(http.MethodPost, "/applications", memberToken, application.CreateApplicationDTO{
			ExpenseDate: time.Now().Format("2006-01-02"),
			Amount:      amount,
			Description: "Shinkansen to Osaka",
		})
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
		app := decode[application.Application](w)

		w = s.do(http.MethodPost, "/applications/"+app.ID+"/submit", memberToken, nil)
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

		w = s.do(http.MethodPost, "/admin/applications/"+app.ID+"/approve", adminToken, application.ApproveApplicationDTO{
			CategoryID:  categoryID(s, adminToken),
			FinalAmount: final,
		})
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
		approved := decode[application.Application](w)
		return &approved
	}

	It("pays an approved application through a zengin batch", func() {
		// Given an application of 10000 approved at 8000
		app := approvedApplication(10000, 8000)
		Expect(app.Status).To(Equal(application.StatusApproved))

		// When the administrator generates a batch for it
		w := s.do(http.MethodPost, "/admin/payments/generate", adminToken, payment.GenerateBatchDTO{ApplicationIDs: []string{app.ID}})
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
		batch := decode[payment.BatchResult](w)
		Expect(batch.PaymentCount).To(Equal(1))
		Expect(batch.TotalAmount).To(Equal(int64(8000)))

		// Then the transfer file pays the final amount to the member's account
		w = s.do(http.MethodGet, "/admin/payments/"+batch.BatchID+"/download", adminToken, nil)
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
		raw, err := io.ReadAll(w.Body)
		Expect(err).NotTo(HaveOccurred())

		file, err := zengin.Parse(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(file.Header.SenderCode).To(Equal(testZengin.SenderCode))
		Expect(file.Header.SenderName).To(Equal(testZengin.SenderName))
		Expect(file.Header.BankCode).To(Equal(testZengin.BankCode))
		Expect(file.Data).To(HaveLen(1))
		Expect(file.Data[0].Amount).To(Equal(int64(8000)))
		Expect(file.Data[0].BankCode).To(Equal("0005"))
		Expect(file.Data[0].AccountNumber).To(Equal("1234567"))
		Expect(file.Trailer.Total).To(Equal(int64(8000)))

		// And the application can not be paid twice
		w = s.do(http.MethodPost, "/admin/payments/generate", adminToken, payment.GenerateBatchDTO{ApplicationIDs: []string{app.ID}})
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = s.do(http.MethodGet, "/admin/payments/ready", adminToken, nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode[payment.ReadyResponse](w).Applications).To(BeEmpty())
	})

	It("notifies administrators once per submission", func() {
		approvedApplication(5000, 5000)
		s.bus.Wait()

		sent := s.sender.sent()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Amount).To(Equal(int64(5000)))
		Expect(sent[0].Recipients).To(ConsistOf(adminEmail))
	})

	It("keeps payment endpoints away from members", func() {
		w := s.do(http.MethodGet, "/admin/payments/ready", memberToken, nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = s.do(http.MethodGet, "/admin/payments/ready", "", nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("reports the database in the health check", func() {
		w := s.do(http.MethodGet, "/health", "", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
	})
})

func categoryID(s *server, token string) string {
	w := s.do(http.MethodGet, "/categories", token, nil)
	Expect(w.Code).To(Equal(http.StatusOK))
	list := decode[category.CategoriesResponse](w)
	Expect(list.Categories).NotTo(BeEmpty())
	return list.Categories[0].ID
}
