package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// DeadLetter is the sink for messages the consumer could not apply.
type DeadLetter interface {
	Publish(ctx context.Context, payload []byte, cause error) error
	Close() error
}

type deadLetterMessage struct {
	Payload  string    `json:"payload"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

// KafkaDeadLetter writes failed messages to a dedicated topic so bad input is
// isolated from healthy processing without being lost.
type KafkaDeadLetter struct {
	writer *kafka.Writer
}

func NewKafkaDeadLetter(brokers []string, topic string) *KafkaDeadLetter {
	return &KafkaDeadLetter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (d *KafkaDeadLetter) Publish(ctx context.Context, payload []byte, cause error) error {
	value, err := json.Marshal(deadLetterMessage{
		Payload:  string(payload),
		Error:    cause.Error(),
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return d.writer.WriteMessages(ctx, kafka.Message{Value: value})
}

func (d *KafkaDeadLetter) Close() error {
	return d.writer.Close()
}
