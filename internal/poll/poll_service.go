package poll

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPollInactive = errors.New("poll is not active")
	ErrPollExpired  = errors.New("poll has expired")
	ErrOwnPoll      = errors.New("cannot vote on your own poll")
	ErrInvalidPoll  = errors.New("poll must have a question and at least 2 options")

	// ErrBrokerUnavailable is the retryable transport failure a VoteProducer
	// surfaces when the broker cannot take the message; mapped to 503.
	ErrBrokerUnavailable = errors.New("message broker unavailable")
)

// VoteProducer publishes a vote intent to the broker. The concrete
// implementation lives in internal/broker.
type VoteProducer interface {
	SendVote(ctx context.Context, event *VoteEvent) error
}

type PollService interface {
	CreatePoll(ctx context.Context, req *CreatePollRequest) (*Poll, error)
	Vote(ctx context.Context, pollID uint, req *VoteRequest) error
	GetPollResults(ctx context.Context, pollID, userID uint) (*PollResult, error)
	GetTopPolls(ctx context.Context) ([]*PollResult, error)
}

type pollService struct {
	repo     PollRepository
	producer VoteProducer
	cache    LeaderboardCache
}

const topPollsLimit = 10

// NewPollService wires the service; cache may be nil, in which case the
// leaderboard always hits the database.
func NewPollService(repo PollRepository, producer VoteProducer, cache LeaderboardCache) PollService {
	return &pollService{repo: repo, producer: producer, cache: cache}
}

func (s *pollService) CreatePoll(ctx context.Context, req *CreatePollRequest) (*Poll, error) {
	if req.Question == "" || len(req.Options) < 2 {
		return nil, ErrInvalidPoll
	}

	poll := &Poll{
		UserID:    req.UserID,
		Question:  req.Question,
		Active:    true,
		ExpiresAt: req.ExpiresAt,
	}
	for _, text := range req.Options {
		poll.Options = append(poll.Options, PollOption{Text: text})
	}

	if err := s.repo.Create(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// Vote validates the intent against the current poll state and hands it to
// the producer. The actual tally mutation happens asynchronously in the
// consumer; a nil return only means the vote was durably accepted.
func (s *pollService) Vote(ctx context.Context, pollID uint, req *VoteRequest) error {
	poll, err := s.repo.FindByID(ctx, pollID)
	if err != nil {
		return err
	}

	if !poll.Active {
		return ErrPollInactive
	}
	if poll.UserID == req.UserID {
		return ErrOwnPoll
	}
	if time.Now().After(poll.ExpiresAt) {
		return ErrPollExpired
	}

	return s.producer.SendVote(ctx, &VoteEvent{
		PollID:   pollID,
		OptionID: req.OptionID,
		UserID:   req.UserID,
	})
}

func (s *pollService) GetPollResults(ctx context.Context, pollID, userID uint) (*PollResult, error) {
	poll, err := s.repo.FindByIDAndUserID(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	return poll.Result(), nil
}

func (s *pollService) GetTopPolls(ctx context.Context) ([]*PollResult, error) {
	if s.cache != nil {
		if results, ok := s.cache.GetTopPolls(ctx); ok {
			return results, nil
		}
	}

	polls, err := s.repo.FindTopPolls(ctx, topPollsLimit)
	if err != nil {
		return nil, err
	}

	results := make([]*PollResult, 0, len(polls))
	for _, poll := range polls {
		results = append(results, poll.Result())
	}

	if s.cache != nil {
		s.cache.SetTopPolls(ctx, results)
	}
	return results, nil
}
