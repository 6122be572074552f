package application

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusReturned  Status = "RETURNED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

var AllStatuses = []Status{StatusDraft, StatusSubmitted, StatusReturned, StatusApproved, StatusRejected}

var transitions = map[Status]map[Status]bool{
	StatusDraft:     {StatusSubmitted: true},
	StatusSubmitted: {StatusApproved: true, StatusReturned: true, StatusRejected: true},
	StatusReturned:  {StatusSubmitted: true},
}

// IsValidTransition reports whether an application may move from one status
// to another. It is total: unknown statuses and self transitions are false.
func IsValidTransition(from, to Status) bool {
	return transitions[from][to]
}

func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsEditable reports whether the owner may still change the application.
func (s Status) IsEditable() bool {
	return s == StatusDraft || s == StatusReturned
}

type CommentType string

const (
	CommentSubmission CommentType = "SUBMISSION"
	CommentApproval   CommentType = "APPROVAL"
	CommentReturn     CommentType = "RETURN"
	CommentRejection  CommentType = "REJECTION"
	CommentGeneral    CommentType = "GENERAL"
)
