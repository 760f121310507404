package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"poll-service/internal/poll"

	"github.com/IBM/sarama"
)

// VoteProducer publishes vote events keyed by poll id. The hash partitioner
// plus that key is what guarantees per-poll ordering downstream; nothing else
// in the pipeline re-sequences messages.
type VoteProducer struct {
	producer sarama.SyncProducer
	topic    string
	timeout  time.Duration
}

func NewVoteProducer(brokers []string, topic string, timeout time.Duration) (*VoteProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Retry.BackoffFunc = func(retries, maxRetries int) time.Duration {
		return time.Duration(100*(1<<retries)) * time.Millisecond
	}
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_1_0_0
	config.ClientID = "poll-service"

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", poll.ErrBrokerUnavailable, err)
	}

	return &VoteProducer{producer: producer, topic: topic, timeout: timeout}, nil
}

// SendVote stamps the send-time timestamp, serializes the event and publishes
// it with the poll id as partition key. Blocks until the broker acks or the
// context expires.
func (p *VoteProducer) SendVote(ctx context.Context, event *poll.VoteEvent) error {
	msg, err := p.buildMessage(event)
	if err != nil {
		return err
	}
	return p.send(ctx, func() error {
		_, _, err := p.producer.SendMessage(msg)
		return err
	})
}

// SendVoteBatch publishes several intents in one call, partitioned the same
// way as single sends.
func (p *VoteProducer) SendVoteBatch(ctx context.Context, events []*poll.VoteEvent) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, event := range events {
		msg, err := p.buildMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.send(ctx, func() error {
		return p.producer.SendMessages(msgs)
	})
}

// Close is safe to call during shutdown even if the producer never connected.
func (p *VoteProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

func (p *VoteProducer) buildMessage(event *poll.VoteEvent) (*sarama.ProducerMessage, error) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize vote event: %w", err)
	}

	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.PollID), 10)),
		Value: sarama.ByteEncoder(value),
	}, nil
}

// send runs the blocking publish while honoring the caller's deadline and the
// configured publish timeout. A publish that outlives the context is reported
// as broker-unavailable; sarama finishes or abandons it internally.
func (p *VoteProducer) send(ctx context.Context, publish func() error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- publish()
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Failed to publish vote event", "topic", p.topic, "error", err)
			return fmt.Errorf("%w: %v", poll.ErrBrokerUnavailable, err)
		}
		return nil
	case <-ctx.Done():
		slog.Error("Vote publish timed out", "topic", p.topic, "error", ctx.Err())
		return fmt.Errorf("%w: %v", poll.ErrBrokerUnavailable, ctx.Err())
	}
}
