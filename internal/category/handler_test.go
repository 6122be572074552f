package category_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/reimbursement-management/internal/category"
	categoryPostgres "github.com/frahmantamala/reimbursement-management/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/category"
	"github.com/frahmantamala/reimbursement-management/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		db      *gorm.DB
		repo    category.RepositoryAPI
		handler *category.Handler
		slogger *slog.Logger
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&categoryDatamodel.Category{})).To(Succeed())

		repo = categoryPostgres.NewCategoryRepository(db)
		service := category.NewService(repo, slogger)
		handler = category.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		for _, name := range []string{"travel", "meals"} {
			Expect(repo.Create(ctx, &categoryDatamodel.Category{Name: name, Description: name + " expenses", IsActive: true})).To(Succeed())
		}

		retired := &categoryDatamodel.Category{Name: "retired", Description: "No longer used", IsActive: true}
		Expect(repo.Create(ctx, retired)).To(Succeed())
		retired.IsActive = false
		Expect(repo.Update(ctx, retired)).To(Succeed())
	})

	It("should handle GET /categories request successfully", func() {
		req := httptest.NewRequest(http.MethodGet, "/categories", nil)
		w := httptest.NewRecorder()

		handler.GetCategories(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())

		names := make([]string, len(response.Categories))
		for i, cat := range response.Categories {
			Expect(cat.ID).NotTo(BeEmpty())
			names[i] = cat.Name
		}
		Expect(names).To(ConsistOf("travel", "meals"))
	})

	It("should map repository failures to 500", func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodGet, "/categories", nil)
		w := httptest.NewRecorder()

		handler.GetCategories(w, req)
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
