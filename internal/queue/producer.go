package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes processing tasks to the task topic.
type Producer struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, log: log}
}

func (p *Producer) EnqueueProcessVideo(ctx context.Context, videoID int64) error {
	data, err := encodeTask(Task{Task: TaskProcessVideo, VideoID: videoID})
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(videoID, 10)),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue video %d: %w", videoID, err)
	}
	p.log.Info("Enqueued processing task", zap.Int64("video_id", videoID))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
