package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/frahmantamala/reimbursement-management/internal/core/events"
	"github.com/frahmantamala/reimbursement-management/internal/notification"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingSender struct {
	mu      sync.Mutex
	notices []notification.Notice
	result  notification.Result
}

func (s *recordingSender) Notify(_ context.Context, notice notification.Notice) notification.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice)
	return s.result
}

func (s *recordingSender) sent() []notification.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Notice(nil), s.notices...)
}

type staticRecipients struct {
	emails []string
	err    error
}

func (r staticRecipients) ListAdminEmails(context.Context) ([]string, error) {
	return r.emails, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = Describe("KafkaSender", func() {
	notice := notification.Notice{
		ApplicationID:     "app-1",
		ApplicationNumber: "EXP-000001",
		MemberID:          "m1",
		Amount:            10000,
		Recipients:        []string{"admin@example.com"},
	}

	It("publishes the notice as JSON", func() {
		producer := mocks.NewSyncProducer(GinkgoT(), notification.NewProducerConfig())
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var msg struct {
				EventType string              `json:"event_type"`
				Data      notification.Notice `json:"data"`
			}
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}
			if msg.EventType != "application.submitted" || msg.Data.ApplicationNumber != "EXP-000001" {
				return errors.New("unexpected message body")
			}
			return nil
		})

		sender := notification.NewKafkaSenderWithProducer(producer, "reimbursement.application.submitted", testLogger())
		result := sender.Notify(context.Background(), notice)
		Expect(result.Success).To(BeTrue())
		Expect(sender.Close()).To(Succeed())
	})

	It("reports broker failures in the result", func() {
		producer := mocks.NewSyncProducer(GinkgoT(), notification.NewProducerConfig())
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		sender := notification.NewKafkaSenderWithProducer(producer, "topic", testLogger())
		result := sender.Notify(context.Background(), notice)
		Expect(result.Success).To(BeFalse())
		Expect(result.Err).To(MatchError(ContainSubstring("failed to send kafka message")))
		Expect(sender.Close()).To(Succeed())
	})
})

var _ = Describe("LogSender", func() {
	It("always succeeds", func() {
		result := notification.NewLogSender(testLogger()).Notify(context.Background(), notification.Notice{ApplicationID: "a"})
		Expect(result).To(Equal(notification.Succeeded()))
	})
})

var _ = Describe("Dispatcher", func() {
	var (
		sender *recordingSender
		bus    *events.EventBus
	)

	BeforeEach(func() {
		sender = &recordingSender{result: notification.Succeeded()}
		bus = events.NewEventBus(testLogger())
	})

	publish := func() {
		event := events.NewApplicationSubmittedEvent("app-1", "EXP-000001", "m1", 10000, time.Now())
		Expect(bus.Publish(context.Background(), event)).To(Succeed())
		bus.Wait()
	}

	It("sends a notice to every administrator when an application is submitted", func() {
		notification.NewDispatcher(sender, staticRecipients{emails: []string{"a@example.com", "b@example.com"}}, testLogger()).Register(bus)
		publish()

		sent := sender.sent()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].ApplicationID).To(Equal("app-1"))
		Expect(sent[0].MemberID).To(Equal("m1"))
		Expect(sent[0].Recipients).To(ConsistOf("a@example.com", "b@example.com"))
	})

	It("swallows sender failures", func() {
		sender.result = notification.Failed(errors.New("smtp down"))
		dispatcher := notification.NewDispatcher(sender, staticRecipients{}, testLogger())

		event := events.NewApplicationSubmittedEvent("app-1", "EXP-000001", "m1", 10000, time.Now())
		Expect(dispatcher.HandleApplicationSubmitted(context.Background(), event)).To(Succeed())
		Expect(sender.sent()).To(HaveLen(1))
	})

	It("does not send when recipients cannot be resolved", func() {
		dispatcher := notification.NewDispatcher(sender, staticRecipients{err: errors.New("db down")}, testLogger())
		result := dispatcher.Dispatch(context.Background(), notification.Notice{ApplicationID: "app-1"})
		Expect(result.Success).To(BeFalse())
		Expect(sender.sent()).To(BeEmpty())
	})

	It("rejects foreign payloads", func() {
		dispatcher := notification.NewDispatcher(sender, staticRecipients{}, testLogger())
		err := dispatcher.HandleApplicationSubmitted(context.Background(), events.BaseEvent{Type: events.EventTypeApplicationSubmitted})
		Expect(err).To(HaveOccurred())
	})
})
