package domain

// UserStats is the per-author quota state. It is the only row that links a
// Telegram account to its submission counters.
type UserStats struct {
	UserID           int64  `json:"user_id" db:"user_id"`
	Username         string `json:"username" db:"username"`
	CountToday       int    `json:"count_today" db:"count_today"`
	TotalConfessions int    `json:"total_confessions" db:"total_confessions"`
	LastReset        string `json:"last_reset" db:"last_reset"`
}

// QuotaDecision is what the quota gate answers for one submission attempt.
type QuotaDecision struct {
	Allowed bool `json:"allowed"`
	Count   int  `json:"count"`
	Max     int  `json:"max"`
}

// Remaining returns how many submissions are still available today.
func (d QuotaDecision) Remaining() int {
	if d.Count >= d.Max {
		return 0
	}
	return d.Max - d.Count
}

// UnknownUsername is stored when the author has no public username.
const UnknownUsername = "Sin_username"
