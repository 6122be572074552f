package application_test

import (
	"github.com/frahmantamala/reimbursement-management/internal/application"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IsValidTransition", func() {
	allowed := map[[2]application.Status]bool{
		{application.StatusDraft, application.StatusSubmitted}:    true,
		{application.StatusSubmitted, application.StatusApproved}: true,
		{application.StatusSubmitted, application.StatusReturned}: true,
		{application.StatusSubmitted, application.StatusRejected}: true,
		{application.StatusReturned, application.StatusSubmitted}: true,
	}

	It("agrees with the transition table for all 25 pairs", func() {
		checked := 0
		for _, from := range application.AllStatuses {
			for _, to := range application.AllStatuses {
				expected := allowed[[2]application.Status{from, to}]
				Expect(application.IsValidTransition(from, to)).To(Equal(expected), "%s -> %s", from, to)
				checked++
			}
		}
		Expect(checked).To(Equal(25))
	})

	DescribeTable("rejects",
		func(from, to application.Status) {
			Expect(application.IsValidTransition(from, to)).To(BeFalse())
		},
		Entry("leaving APPROVED", application.StatusApproved, application.StatusSubmitted),
		Entry("leaving REJECTED", application.StatusRejected, application.StatusDraft),
		Entry("skipping review", application.StatusDraft, application.StatusApproved),
		Entry("self transition", application.StatusSubmitted, application.StatusSubmitted),
		Entry("unknown source", application.Status("PAID"), application.StatusSubmitted),
		Entry("unknown target", application.StatusDraft, application.Status("")),
	)

	It("classifies statuses", func() {
		Expect(application.StatusApproved.IsTerminal()).To(BeTrue())
		Expect(application.StatusRejected.IsTerminal()).To(BeTrue())
		Expect(application.StatusReturned.IsTerminal()).To(BeFalse())
		Expect(application.StatusReturned.IsEditable()).To(BeTrue())
		Expect(application.StatusSubmitted.IsEditable()).To(BeFalse())
		Expect(application.Status("PAID").IsValid()).To(BeFalse())
	})
})

var _ = Describe("DeletionPlan", func() {
	It("clears dependents before the application", func() {
		tables := make([]string, len(application.DeletionPlan))
		for i, step := range application.DeletionPlan {
			tables[i] = step.Table
		}
		Expect(tables).To(Equal([]string{"ocr_extractions", "receipts", "application_comments", "expense_applications"}))
	})
})

var _ = Describe("SubsidyPolicy", func() {
	It("proposes the full amount by default", func() {
		Expect(application.FullSubsidy().Propose(12345)).To(Equal(int64(12345)))
	})

	It("floors the rate and applies the cap", func() {
		policy, err := application.NewSubsidyPolicy("0.8", 5000)
		Expect(err).NotTo(HaveOccurred())
		Expect(policy.Propose(1001)).To(Equal(int64(800)))
		Expect(policy.Propose(10000)).To(Equal(int64(5000)))
	})

	It("rejects malformed rates", func() {
		_, err := application.NewSubsidyPolicy("eighty", 0)
		Expect(err).To(HaveOccurred())
		_, err = application.NewSubsidyPolicy("-0.1", 0)
		Expect(err).To(HaveOccurred())
	})

	It("formats application numbers", func() {
		Expect(application.FormatApplicationNumber("EXP", 42)).To(Equal("EXP-000042"))
		Expect(application.FormatApplicationNumber("", 1)).To(Equal("EXP-000001"))
	})
})
