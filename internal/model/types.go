// Package model defines shared data structures and wire types.
package model

import "time"

// Task statuses as reported by the server.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// User is a coaching account as the API reports it.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Task is a daily exercise assignment. Status is server-authoritative;
// the client never flips it locally.
type Task struct {
	ID     int64     `json:"id"`
	Text   string    `json:"text"`
	Status string    `json:"status"`
	SentAt time.Time `json:"sent_at"`
}

// Completed reports whether the task is already done.
func (t Task) Completed() bool {
	return t.Status == TaskStatusCompleted
}

// Progress is the aggregate completion snapshot, fully recomputed
// server-side on each fetch.
type Progress struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	TodayCompleted int `json:"today_completed"`
	WeekCompleted  int `json:"week_completed"`
	MonthCompleted int `json:"month_completed"`
}

// TokenResponse is the login response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CompleteResponse is the task completion response body.
type CompleteResponse struct {
	Success bool `json:"success"`
	Task    Task `json:"task"`
}

// GenerateResponse is the response of on-demand task generation.
type GenerateResponse struct {
	TaskID int64 `json:"task_id"`
}
