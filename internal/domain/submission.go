package domain

// Submission is the transport-neutral shape of one inbound direct message.
type Submission struct {
	UserID    int64
	Username  string
	IsBot     bool
	IsCommand bool
	Text      string
	PhotoRef  string
	Caption   string
}

func (s Submission) HasPhoto() bool {
	return s.PhotoRef != ""
}

// Payload returns the content part of the submission that the validator sees.
func (s Submission) Payload() Payload {
	if s.HasPhoto() {
		return Payload{Kind: KindPhoto, Body: s.Caption}
	}
	return Payload{Kind: KindText, Body: s.Text}
}

type Payload struct {
	Kind Kind
	Body string
}

type RejectReason string

const (
	ReasonNone           RejectReason = ""
	ReasonTooShort       RejectReason = "too_short"
	ReasonTooLong        RejectReason = "too_long"
	ReasonMissingCaption RejectReason = "missing_caption"
)

type ValidationResult struct {
	OK        bool
	Reason    RejectReason
	WordCount int
}

type OutcomeStatus string

const (
	OutcomeIgnored         OutcomeStatus = "ignored"
	OutcomeRejectedQuota   OutcomeStatus = "rejected_quota"
	OutcomeRejectedContent OutcomeStatus = "rejected_content"
	OutcomeAccepted        OutcomeStatus = "accepted"
	OutcomeFailed          OutcomeStatus = "failed"
)

// Outcome is the terminal state of one pass through the submission pipeline.
type Outcome struct {
	Status       OutcomeStatus
	Kind         Kind
	Reason       RejectReason
	WordCount    int
	Count        int
	Max          int
	ConfessionID int64
	Published    bool
	Err          error
}
