package models

import "time"

// NoticePriority orders notices on the board.
type NoticePriority string

const (
	NoticePriorityNormal NoticePriority = "NORMAL"
	NoticePriorityHigh   NoticePriority = "HIGH"
)

// Notice is a class-wide announcement.
type Notice struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Content   string         `db:"content" json:"content"`
	Priority  NoticePriority `db:"priority" json:"priority"`
	CreatedBy string         `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// CreateNoticeRequest is the admin payload for posting a notice.
type CreateNoticeRequest struct {
	Title    string         `json:"title" validate:"required,max=200"`
	Content  string         `json:"content" validate:"required"`
	Priority NoticePriority `json:"priority" validate:"omitempty,oneof=NORMAL HIGH"`
}
