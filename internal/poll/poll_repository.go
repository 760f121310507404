package poll

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("poll option not found")
	ErrAlreadyVoted   = errors.New("user has already voted on this poll")
)

type PollRepository interface {
	Create(ctx context.Context, poll *Poll) error
	FindByID(ctx context.Context, id uint) (*Poll, error)
	FindByIDAndUserID(ctx context.Context, id, userID uint) (*Poll, error)
	CreateVote(ctx context.Context, pollID, optionID, userID uint) error
	FindTopPolls(ctx context.Context, limit int) ([]*Poll, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type pollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) Create(ctx context.Context, poll *Poll) error {
	// Poll and options go in together; gorm saves the association in the
	// same transaction as the parent row.
	return r.db.WithContext(ctx).Create(poll).Error
}

func (r *pollRepository) FindByID(ctx context.Context, id uint) (*Poll, error) {
	var poll Poll
	err := r.db.WithContext(ctx).Preload("Options").First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) FindByIDAndUserID(ctx context.Context, id, userID uint) (*Poll, error) {
	var poll Poll
	err := r.db.WithContext(ctx).Preload("Options").
		Where("id = ? AND user_id = ?", id, userID).
		First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// CreateVote applies one vote as a single atomic unit: the Vote row plus both
// denormalized counters. Any failure rolls the whole thing back, so a counter
// can never move without its Vote row. A duplicate (pollID, userID) pair
// surfaces as ErrAlreadyVoted with no counter change.
func (r *pollRepository) CreateVote(ctx context.Context, pollID, optionID, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := &Vote{PollID: pollID, OptionID: optionID, UserID: userID}
		if err := tx.Create(vote).Error; err != nil {
			return err
		}

		res := tx.Model(&PollOption{}).
			Where("id = ? AND poll_id = ?", optionID, pollID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOptionNotFound
		}

		res = tx.Model(&Poll{}).
			Where("id = ?", pollID).
			UpdateColumn("total_vote_count", gorm.Expr("total_vote_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPollNotFound
		}

		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyVoted
	}
	return err
}

func (r *pollRepository) FindTopPolls(ctx context.Context, limit int) ([]*Poll, error) {
	var polls []*Poll
	err := r.db.WithContext(ctx).Preload("Options").
		Where("active = ? AND expires_at > ?", true, time.Now()).
		Order("total_vote_count DESC").
		Limit(limit).
		Find(&polls).Error
	return polls, err
}

func (r *pollRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Poll{}).
		Where("active = ? AND expires_at < ?", true, now).
		UpdateColumn("active", false)
	return res.RowsAffected, res.Error
}
