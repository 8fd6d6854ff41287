package models

import "time"

// Poll is a multiple-choice question open to students.
type Poll struct {
	ID        string       `db:"id" json:"id"`
	Question  string       `db:"question" json:"question"`
	Options   []PollOption `db:"-" json:"options"`
	Closed    bool         `db:"closed" json:"closed"`
	CreatedBy string       `db:"created_by" json:"created_by"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	MyVote    *int         `db:"-" json:"my_vote,omitempty"`
}

// PollOption is one answer with its running vote count.
type PollOption struct {
	PollID   string `db:"poll_id" json:"-"`
	Position int    `db:"position" json:"position"`
	Label    string `db:"label" json:"label"`
	Votes    int    `db:"votes" json:"votes"`
}

// CreatePollRequest is the admin payload for opening a poll.
type CreatePollRequest struct {
	Question string   `json:"question" validate:"required,max=300"`
	Options  []string `json:"options" validate:"required,min=2,max=10,dive,required,max=120"`
}

// VotePollRequest casts a vote for the option at Position.
type VotePollRequest struct {
	Position *int `json:"position" validate:"required,gte=0"`
}
