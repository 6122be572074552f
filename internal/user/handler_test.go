package user_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/reimbursement-management/internal"
	userDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/user"
	"github.com/frahmantamala/reimbursement-management/internal/transport"
	"github.com/frahmantamala/reimbursement-management/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("User Handler", func() {
	var handler *user.Handler

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo := NewMockRepository()
		repo.users["m1"] = &userDatamodel.User{ID: "m1", Email: "member@example.com", Role: internal.RoleMember, IsActive: true}
		handler = user.NewHandler(transport.NewBaseHandler(logger), user.NewService(repo, logger))
	})

	withIdentity := func(req *http.Request, id string) *http.Request {
		return req.WithContext(internal.ContextWithIdentity(req.Context(), internal.Identity{ID: id, Role: internal.RoleMember}))
	}

	It("returns 401 without an identity", func() {
		w := httptest.NewRecorder()
		handler.GetCurrentUser(w, httptest.NewRequest(http.MethodGet, "/members/me", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("returns the caller's profile", func() {
		w := httptest.NewRecorder()
		handler.GetCurrentUser(w, withIdentity(httptest.NewRequest(http.MethodGet, "/members/me", nil), "m1"))
		Expect(w.Code).To(Equal(http.StatusOK))

		var u user.User
		Expect(json.NewDecoder(w.Body).Decode(&u)).To(Succeed())
		Expect(u.Email).To(Equal("member@example.com"))
	})

	It("updates the bank account", func() {
		body, err := json.Marshal(validAccount())
		Expect(err).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		req := withIdentity(httptest.NewRequest(http.MethodPut, "/members/me/bank-account", bytes.NewReader(body)), "m1")
		handler.UpdateBankAccount(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))

		var u user.User
		Expect(json.NewDecoder(w.Body).Decode(&u)).To(Succeed())
		Expect(u.BankAccount.BankCode).To(Equal("0005"))
	})

	It("answers 400 for an invalid account", func() {
		dto := validAccount()
		dto.BankCode = "x"
		body, err := json.Marshal(dto)
		Expect(err).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		req := withIdentity(httptest.NewRequest(http.MethodPut, "/members/me/bank-account", bytes.NewReader(body)), "m1")
		handler.UpdateBankAccount(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
