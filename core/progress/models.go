package progress

import "time"

// Progress tracks a user's advancement through one lesson. Completed means
// the user finished the material; Validated means they confirmed it and the
// lesson counts towards certification. Neither flag ever goes back to false.
type Progress struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	LessonID    string     `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	Validated   bool       `json:"validated"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // UTC
	ValidatedAt *time.Time `json:"validated_at,omitempty"` // UTC
	CreatedAt   time.Time  `json:"created_at"`             // UTC
	UpdatedAt   time.Time  `json:"updated_at"`             // UTC
}
