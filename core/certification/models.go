package certification

import "time"

// Certification rewards a user for validating every lesson under a theme.
// At most one exists per (user, theme), and it is never retracted.
type Certification struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	ThemeID  string    `json:"theme_id"`
	IssuedAt time.Time `json:"issued_at"` // UTC
}
