package poll

import (
	"fmt"
	"time"
)

/** --------------------ENTITIES-------------------- */
// Poll is a question with a finite set of options. TotalVoteCount is a
// denormalized counter kept in lockstep with the Vote rows by the vote
// transaction; Active is flipped by the expiration job.
type Poll struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"not null;index" json:"userId"`
	Question       string       `gorm:"not null" json:"question"`
	TotalVoteCount uint         `gorm:"not null;default:0" json:"totalVoteCount"`
	Active         bool         `gorm:"not null;default:true" json:"active"`
	ExpiresAt      time.Time    `gorm:"not null" json:"expiresAt"`
	CreatedAt      time.Time    `json:"createdAt"`
	Options        []PollOption `gorm:"constraint:OnDelete:CASCADE" json:"options"`
}

// PollOption is created atomically with its parent poll, never deleted on
// its own.
type PollOption struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	PollID    uint   `gorm:"not null;index" json:"pollId"`
	Text      string `gorm:"not null" json:"text"`
	VoteCount uint   `gorm:"not null;default:0" json:"voteCount"`
}

// Vote is immutable once created. The composite unique index on
// (poll_id, user_id) is the single dedup mechanism of the whole pipeline.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PollID    uint      `gorm:"not null;uniqueIndex:idx_votes_poll_user" json:"pollId"`
	OptionID  uint      `gorm:"not null;index" json:"optionId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_poll_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

/** -------------------- DTOs -------------------- */
// VoteEvent is the broker wire payload, keyed by PollID so all votes for one
// poll land on the same partition. Timestamp is RFC3339, stamped at send time.
type VoteEvent struct {
	PollID    uint   `json:"pollId"`
	OptionID  uint   `json:"optionId"`
	UserID    uint   `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// Request
type CreatePollRequest struct {
	UserID    uint      `json:"userId" binding:"required"`
	Question  string    `json:"question" binding:"required"`
	Options   []string  `json:"options" binding:"required,min=2"`
	ExpiresAt time.Time `json:"expiresAt" binding:"required"`
}

type VoteRequest struct {
	UserID   uint `json:"userId" binding:"required"`
	OptionID uint `json:"optionId" binding:"required"`
}

// Response
type OptionResult struct {
	ID         uint   `json:"id"`
	Text       string `json:"text"`
	VoteCount  uint   `json:"voteCount"`
	Percentage string `json:"percentage"`
}

type PollResult struct {
	ID             uint           `json:"id"`
	UserID         uint           `json:"userId"`
	Question       string         `json:"question"`
	TotalVoteCount uint           `json:"totalVoteCount"`
	Active         bool           `json:"active"`
	ExpiresAt      time.Time      `json:"expiresAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	Options        []OptionResult `json:"options"`
}

// Result derives the tally snapshot with per-option percentages, "0.00" for
// every option while the poll has no votes.
func (p *Poll) Result() *PollResult {
	result := &PollResult{
		ID:             p.ID,
		UserID:         p.UserID,
		Question:       p.Question,
		TotalVoteCount: p.TotalVoteCount,
		Active:         p.Active,
		ExpiresAt:      p.ExpiresAt,
		CreatedAt:      p.CreatedAt,
		Options:        make([]OptionResult, 0, len(p.Options)),
	}
	for _, option := range p.Options {
		percentage := "0.00"
		if p.TotalVoteCount > 0 {
			percentage = fmt.Sprintf("%.2f", float64(option.VoteCount)/float64(p.TotalVoteCount)*100)
		}
		result.Options = append(result.Options, OptionResult{
			ID:         option.ID,
			Text:       option.Text,
			VoteCount:  option.VoteCount,
			Percentage: percentage,
		})
	}
	return result
}
