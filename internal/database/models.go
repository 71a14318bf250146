package database

import (
	"time"
)

// CheckRun records the outcome of one executed diagnostic check. History rows
// are audit data only; no diagnostic ever reads them back as an answer.
type CheckRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"index" json:"run_id"`
	Instance   string    `gorm:"index" json:"instance"`
	CheckName  string    `gorm:"index" json:"check_name"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms"`
	Detail     string    `gorm:"type:text" json:"detail,omitempty"`
	Source     string    `gorm:"index" json:"source"` // rest / mcp
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
