// Package queue carries video processing tasks over Kafka. The server
// publishes a task when a new video arrives and the worker consumes it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

const TaskProcessVideo = "process_video"

// Task is the message envelope exchanged between server and worker.
type Task struct {
	Task    string `json:"task"`
	VideoID int64  `json:"video_id"`
}

func encodeTask(t Task) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}
	return data, nil
}

func decodeTask(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	if t.Task == "" {
		return Task{}, fmt.Errorf("task message missing task field")
	}
	return t, nil
}

// Processor handles a single video task. Errors are logged and the
// message is not retried; the video record keeps its error status.
type Processor interface {
	Process(ctx context.Context, videoID int64) error
}
