package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"poll-service/internal/poll"

	"github.com/IBM/sarama"
)

// ConsumerState tracks the consumer lifecycle:
// Stopped -> Subscribing -> Running -> Stopping -> Stopped.
type ConsumerState int32

const (
	StateStopped ConsumerState = iota
	StateSubscribing
	StateRunning
	StateStopping
)

func (s ConsumerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateSubscribing:
		return "subscribing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// TallyStore is the transactional record store the consumer applies votes
// against. CreateVote must be atomic across the vote insert and both counter
// increments, and must return poll.ErrAlreadyVoted on a duplicate
// (pollID, userID) pair with no counter change.
type TallyStore interface {
	CreateVote(ctx context.Context, pollID, optionID, userID uint) error
	FindByID(ctx context.Context, pollID uint) (*poll.Poll, error)
}

// TallyBroadcaster pushes a recomputed tally to every client watching the
// poll. Implementations must never fail the caller.
type TallyBroadcaster interface {
	BroadcastTally(pollID uint, result *poll.PollResult)
}

// VoteConsumer subscribes to the vote topic and applies each event
// exactly-once-in-effect against the tally store.
type VoteConsumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler *voteHandler
	state   atomic.Int32
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewVoteConsumer(brokers []string, topic, groupID string, concurrency int, store TallyStore, broadcaster TallyBroadcaster, deadLetter DeadLetter, cache poll.LeaderboardCache) (*VoteConsumer, error) {
	config := sarama.NewConfig()
	// Replay from the earliest retained offset on first join; the uniqueness
	// constraint absorbs anything already applied.
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_1_0_0
	config.ClientID = "poll-service"

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", poll.ErrBrokerUnavailable, err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	return &VoteConsumer{
		group: group,
		topic: topic,
		handler: &voteHandler{
			store:       store,
			broadcaster: broadcaster,
			deadLetter:  deadLetter,
			cache:       cache,
			sem:         make(chan struct{}, concurrency),
			ready:       make(chan struct{}),
		},
	}, nil
}

func (c *VoteConsumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

// Start transitions Stopped -> Subscribing -> Running. It blocks until the
// first subscription succeeds or ctx expires; a subscribe failure at startup
// is fatal and propagated, later session errors are retried internally.
func (c *VoteConsumer) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateStopped), int32(StateSubscribing)) {
		return fmt.Errorf("consumer is %s, expected stopped", c.State())
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		for {
			// Consume blocks for the whole session and returns on rebalance;
			// loop to rejoin until the run context is canceled.
			if err := c.group.Consume(runCtx, []string{c.topic}, c.handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				slog.Error("Consumer session ended with error", "topic", c.topic, "error", err)
			}
			if runCtx.Err() != nil {
				return
			}
		}
	}()

	select {
	case <-c.handler.ready:
		c.state.Store(int32(StateRunning))
		slog.Info("Vote consumer running", "topic", c.topic)
		return nil
	case <-ctx.Done():
		cancel()
		<-c.done
		c.state.Store(int32(StateStopped))
		return fmt.Errorf("%w: %v", poll.ErrBrokerUnavailable, ctx.Err())
	}
}

// Stop transitions Running -> Stopping -> Stopped. In-flight messages finish
// their commit, duplicate-no-op or dead-letter route before the consumer
// halts; stopping an already stopped consumer is a no-op.
func (c *VoteConsumer) Stop() error {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) &&
		!c.state.CompareAndSwap(int32(StateSubscribing), int32(StateStopping)) {
		return nil
	}

	c.cancel()
	<-c.done
	err := c.group.Close()
	c.state.Store(int32(StateStopped))
	slog.Info("Vote consumer stopped", "topic", c.topic)
	return err
}

type voteHandler struct {
	store       TallyStore
	broadcaster TallyBroadcaster
	deadLetter  DeadLetter
	cache       poll.LeaderboardCache
	sem         chan struct{}
	ready       chan struct{}
	readyOnce   sync.Once
}

// Setup fires once for the first session; rebalance rejoins reuse the same
// signal so Start's wait never races a channel swap.
func (h *voteHandler) Setup(sarama.ConsumerGroupSession) error {
	h.readyOnce.Do(func() { close(h.ready) })
	return nil
}

func (h *voteHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim is one worker per assigned partition, capped by the semaphore.
// Messages within a claim run strictly in arrival order and each runs to
// completion before the next is taken, so per-poll ordering holds as long as
// the producer keys by poll id.
func (h *voteHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	for message := range claim.Messages() {
		if !h.processVote(session.Context(), message) {
			// Session cancelled mid-flight; the offset stays unmarked so the
			// next session redelivers the message.
			continue
		}
		// Success, duplicate-no-op and dead-letter all count as handled;
		// transport retries are reserved for connectivity failures.
		session.MarkMessage(message, "")
	}
	return nil
}

// processVote reports whether the message reached a terminal outcome. A false
// return means the session context was cancelled before the vote provably
// applied; such messages are neither dead-lettered nor marked.
func (h *voteHandler) processVote(ctx context.Context, message *sarama.ConsumerMessage) bool {
	var event poll.VoteEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		h.toDeadLetter(ctx, message, fmt.Errorf("malformed vote payload: %w", err))
		return true
	}

	err := h.store.CreateVote(ctx, event.PollID, event.OptionID, event.UserID)
	switch {
	case errors.Is(err, poll.ErrAlreadyVoted):
		// At-least-once redelivery lands here; the rolled-back transaction
		// left every counter untouched.
		slog.Warn("Duplicate vote suppressed", "pollId", event.PollID, "userId", event.UserID)
		return true
	case err != nil && ctx.Err() != nil:
		// Shutdown or rebalance interrupted the transaction. The failure is
		// not the message's fault, so it must not reach the dead-letter
		// topic; redelivery will settle it against the unique index.
		slog.Warn("Vote processing interrupted, leaving message for redelivery",
			"pollId", event.PollID, "offset", message.Offset)
		return false
	case err != nil:
		h.toDeadLetter(ctx, message, err)
		return true
	}

	if h.cache != nil {
		h.cache.Invalidate(ctx)
	}

	updated, err := h.store.FindByID(ctx, event.PollID)
	if err != nil {
		// The vote is committed; losing one push is acceptable, the next
		// broadcast carries the cumulative state anyway.
		slog.Error("Failed to fetch tally after vote", "pollId", event.PollID, "error", err)
		return true
	}
	h.broadcaster.BroadcastTally(updated.ID, updated.Result())
	return true
}

func (h *voteHandler) toDeadLetter(ctx context.Context, message *sarama.ConsumerMessage, cause error) {
	slog.Error("Unprocessable vote message",
		"partition", message.Partition,
		"offset", message.Offset,
		"payload", string(message.Value),
		"error", cause)
	if h.deadLetter == nil {
		return
	}
	if err := h.deadLetter.Publish(ctx, message.Value, cause); err != nil {
		slog.Error("Failed to publish to dead-letter topic", "error", err)
	}
}
