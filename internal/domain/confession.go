package domain

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Kind is the stored confession type. Values match the persisted column.
type Kind string

const (
	KindText  Kind = "texto"
	KindPhoto Kind = "foto"
)

func (k Kind) Valid() bool {
	return k == KindText || k == KindPhoto
}

type Confession struct {
	ID       int64  `json:"id" db:"id"`
	UserID   int64  `json:"-" db:"user_id"`
	Content  string `json:"content" db:"confession_text"`
	Kind     Kind   `json:"kind" db:"confession_type"`
	DateSent string `json:"date_sent" db:"date_sent"`
	TimeSent string `json:"time_sent" db:"time_sent"`
}

// NewConfession is an accepted submission about to be recorded.
type NewConfession struct {
	UserID     int64
	Content    string
	Kind       Kind
	PhotoRef   string
	DailyCount int
	DailyMax   int
}

// Stats are the aggregate counters exposed to the admin and the status page.
type Stats struct {
	Total               int       `json:"total_confessions"`
	Today               int       `json:"today_confessions"`
	Users               int       `json:"users"`
	PendingPublications int       `json:"pending_publications"`
	FailedPublications  int       `json:"failed_publications"`
	GeneratedAt         time.Time `json:"generated_at"`
}
