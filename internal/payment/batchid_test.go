package payment_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/reimbursement-management/internal/payment"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("Batch IDs", func() {
	at := time.Date(2026, 4, 1, 9, 30, 15, 0, time.UTC)

	Describe("RandomBatchIDGenerator", func() {
		It("stamps the instant and adds a random suffix", func() {
			id, err := payment.RandomBatchIDGenerator{}.Next(context.Background(), at)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(MatchRegexp(`^BATCH-20260401-093015-[0-9A-F]{4}$`))
		})
	})

	Describe("RedisBatchIDGenerator", func() {
		var (
			mr        *miniredis.Miniredis
			generator *payment.RedisBatchIDGenerator
		)

		BeforeEach(func() {
			var err error
			mr, err = miniredis.Run()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(mr.Close)

			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			DeferCleanup(client.Close)
			generator = payment.NewRedisBatchIDGenerator(client)
		})

		It("numbers batches within the same second", func() {
			first, err := generator.Next(context.Background(), at)
			Expect(err).NotTo(HaveOccurred())
			second, err := generator.Next(context.Background(), at)
			Expect(err).NotTo(HaveOccurred())

			Expect(first).To(Equal("BATCH-20260401-093015-0001"))
			Expect(second).To(Equal("BATCH-20260401-093015-0002"))
		})

		It("starts over in the next second and expires old counters", func() {
			_, err := generator.Next(context.Background(), at)
			Expect(err).NotTo(HaveOccurred())
			Expect(mr.TTL("reimbursement:batch-seq:20260401-093015")).To(Equal(time.Minute))

			next, err := generator.Next(context.Background(), at.Add(time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal("BATCH-20260401-093016-0001"))

			mr.FastForward(2 * time.Minute)
			Expect(mr.Exists("reimbursement:batch-seq:20260401-093015")).To(BeFalse())
		})

		It("fails when redis is unreachable", func() {
			client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
			DeferCleanup(client.Close)

			_, err := payment.NewRedisBatchIDGenerator(client).Next(context.Background(), at)
			Expect(err).To(HaveOccurred())
		})
	})
})
