// Package notification tells administrators that an application is waiting
// for review. Delivery is best effort: a failed notice is logged and counted
// and never reaches the member who submitted.
package notification

import (
	"context"
	"time"
)

// Notice is the payload sent for one submitted application.
type Notice struct {
	ApplicationID     string    `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	MemberID          string    `json:"member_id"`
	Amount            int64     `json:"amount"`
	SubmittedAt       time.Time `json:"submitted_at"`
	Recipients        []string  `json:"recipients"`
}

type Result struct {
	Success bool
	Err     error
}

func Succeeded() Result { return Result{Success: true} }

func Failed(err error) Result { return Result{Err: err} }

type Sender interface {
	Notify(ctx context.Context, notice Notice) Result
}
