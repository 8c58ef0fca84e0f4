package models

import "time"

// Option is a poll answer. Votes and Percentage are computed by the server.
type Option struct {
	ID         int64   `json:"id" yaml:"id"`
	Text       string  `json:"text" yaml:"text"`
	Votes      int64   `json:"votes" yaml:"votes"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// Poll as returned by the polls endpoints.
type Poll struct {
	ID         int64      `json:"id" yaml:"id"`
	Question   string     `json:"question" yaml:"question"`
	Creator    string     `json:"creator" yaml:"creator"`
	Category   string     `json:"category" yaml:"category"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	ExpiryDate *time.Time `json:"expiry_date" yaml:"expiry_date,omitempty"`
	Options    []Option   `json:"options" yaml:"options"`
	UserVote   *Option    `json:"user_vote,omitempty" yaml:"user_vote,omitempty"`
}

// Expired reports whether the poll has an expiry date at or before now.
func (p *Poll) Expired(now time.Time) bool {
	return p.ExpiryDate != nil && !p.ExpiryDate.After(now)
}

// PollCreate is the body used to create or update a poll.
type PollCreate struct {
	Question   string     `json:"question"`
	Category   string     `json:"category"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Options    []string   `json:"options"`
}

// PollResult is the server computed tally of a poll.
type PollResult struct {
	ID       int64    `json:"id" yaml:"id"`
	Question string   `json:"question" yaml:"question"`
	Options  []Option `json:"options" yaml:"options"`
}

// Category is a backend category choice.
type Category struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// VoteRequest is the body of POST api/polls/{id}/vote/.
type VoteRequest struct {
	Option int64 `json:"option"`
}

// Detail is the generic {"detail": "..."} message body.
type Detail struct {
	Detail string `json:"detail"`
}

// AdminPoll is a poll as managed from the admin screens.
type AdminPoll struct {
	ID         int64        `json:"id,omitempty" yaml:"id"`
	Question   string       `json:"question" yaml:"question"`
	Creator    int64        `json:"creator" yaml:"creator"`
	Category   string       `json:"category" yaml:"category"`
	CreatedAt  *time.Time   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ExpiryDate *time.Time   `json:"expiry_date,omitempty" yaml:"expiry_date,omitempty"`
	Options    []OptionText `json:"options" yaml:"options"`
}

// OptionText is an admin poll option.
type OptionText struct {
	ID   int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Text string `json:"text" yaml:"text"`
}

// Vote is a single vote record.
type Vote struct {
	ID        int64     `json:"id" yaml:"id"`
	User      string    `json:"user" yaml:"user"`
	Poll      string    `json:"poll" yaml:"poll"`
	Option    string    `json:"option" yaml:"option"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
