package domain

import "time"

type PublicationStatus string

const (
	PublicationPending   PublicationStatus = "pending"
	PublicationPublished PublicationStatus = "published"
	PublicationFailed    PublicationStatus = "failed"
)

// Publication is the outbox entry for one confession. It carries only the
// anonymized payload handed to the channel, never the author.
type Publication struct {
	ID           string            `json:"id" db:"id"`
	ConfessionID int64             `json:"confession_id" db:"confession_id"`
	Kind         Kind              `json:"kind" db:"kind"`
	Content      string            `json:"content" db:"content"`
	PhotoRef     string            `json:"photo_ref,omitempty" db:"photo_ref"`
	DailyCount   int               `json:"daily_count" db:"daily_count"`
	DailyMax     int               `json:"daily_max" db:"daily_max"`
	Status       PublicationStatus `json:"status" db:"status"`
	Attempts     int               `json:"attempts" db:"attempts"`
	LastError    string            `json:"last_error,omitempty" db:"last_error"`
	ArchiveKey   string            `json:"archive_key,omitempty" db:"archive_key"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}
