package queue

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageReader is the slice of kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads processing tasks and hands them to a Processor.
type Consumer struct {
	reader    messageReader
	processor Processor
	log       *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, processor Processor, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, processor: processor, log: log}
}

// Run consumes tasks until the context is cancelled. The offset is
// committed only after the task has been handled, so a crash mid-task
// redelivers the message instead of dropping it. The orchestrator is
// idempotent against that redelivery.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.log.Error("Failed to read task message", zap.Error(err))
			time.Sleep(1 * time.Second)
			continue
		}
		c.handleMessage(ctx, m.Value)
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Error("Failed to commit task offset", zap.Error(err))
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, value []byte) {
	task, err := decodeTask(value)
	if err != nil {
		c.log.Error("Dropping malformed task message", zap.Error(err), zap.ByteString("value", value))
		return
	}
	switch task.Task {
	case TaskProcessVideo:
		c.log.Info("Processing video task", zap.Int64("video_id", task.VideoID))
		if err := c.processor.Process(ctx, task.VideoID); err != nil {
			c.log.Error("Video processing failed", zap.Int64("video_id", task.VideoID), zap.Error(err))
		}
	default:
		c.log.Warn("Ignoring unknown task", zap.String("task", task.Task))
	}
}
