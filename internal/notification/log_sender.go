package notification

import (
	"context"
	"log/slog"
)

// LogSender writes notices to the log. It is the sender used when no broker
// is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Notify(ctx context.Context, notice Notice) Result {
	s.logger.InfoContext(ctx, "application submitted for review",
		"application_id", notice.ApplicationID,
		"application_number", notice.ApplicationNumber,
		"member_id", notice.MemberID,
		"amount", notice.Amount,
		"recipients", notice.Recipients,
	)
	return Succeeded()
}
