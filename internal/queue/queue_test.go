package queue

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type recordingProcessor struct {
	ids []int64
	err error
}

func (p *recordingProcessor) Process(_ context.Context, videoID int64) error {
	p.ids = append(p.ids, videoID)
	return p.err
}

func TestTaskRoundTrip(t *testing.T) {
	data, err := encodeTask(Task{Task: TaskProcessVideo, VideoID: 42})
	if err != nil {
		t.Fatalf("encodeTask failed: %v", err)
	}
	task, err := decodeTask(data)
	if err != nil {
		t.Fatalf("decodeTask failed: %v", err)
	}
	if task.Task != TaskProcessVideo || task.VideoID != 42 {
		t.Errorf("Unexpected task %+v", task)
	}
}

func TestDecodeTaskInvalid(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"not json", "PiracyFound:1:url:0.9"},
		{"missing task field", `{"video_id":5}`},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeTask([]byte(tc.value)); err == nil {
				t.Errorf("decodeTask(%q) succeeded, expected error", tc.value)
			}
		})
	}
}

func TestConsumerHandleMessage(t *testing.T) {
	proc := &recordingProcessor{}
	c := &Consumer{processor: proc, log: zap.NewNop()}

	c.handleMessage(context.Background(), []byte(`{"task":"process_video","video_id":7}`))
	c.handleMessage(context.Background(), []byte(`{"task":"process_video","video_id":8}`))

	if len(proc.ids) != 2 || proc.ids[0] != 7 || proc.ids[1] != 8 {
		t.Errorf("Expected videos [7 8] processed, got %v", proc.ids)
	}
}

func TestConsumerHandleMessage_Malformed(t *testing.T) {
	proc := &recordingProcessor{}
	c := &Consumer{processor: proc, log: zap.NewNop()}

	c.handleMessage(context.Background(), []byte("garbage"))
	c.handleMessage(context.Background(), []byte(`{"task":"unknown","video_id":1}`))

	if len(proc.ids) != 0 {
		t.Errorf("Malformed or unknown tasks must not reach the processor, got %v", proc.ids)
	}
}

// scriptedReader serves a fixed message sequence and records the order of
// commits relative to processing.
type scriptedReader struct {
	messages []kafka.Message
	next     int
	events   *[]string
	closed   bool
}

func (r *scriptedReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if r.next >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	m := r.messages[r.next]
	r.next++
	return m, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for range msgs {
		*r.events = append(*r.events, "commit")
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

type sequencedProcessor struct {
	events *[]string
}

func (p *sequencedProcessor) Process(_ context.Context, videoID int64) error {
	*p.events = append(*p.events, fmt.Sprintf("process %d", videoID))
	return nil
}

func TestConsumerRun_CommitsAfterProcessing(t *testing.T) {
	var events []string
	reader := &scriptedReader{
		messages: []kafka.Message{
			{Value: []byte(`{"task":"process_video","video_id":7}`)},
			{Value: []byte(`{"task":"process_video","video_id":8}`)},
		},
		events: &events,
	}
	c := &Consumer{
		reader:    reader,
		processor: &sequencedProcessor{events: &events},
		log:       zap.NewNop(),
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// A worker crash between process and commit redelivers; a commit must
	// therefore never precede its message's processing.
	want := []string{"process 7", "commit", "process 8", "commit"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("Unexpected event order:\ngot  %v\nwant %v", events, want)
	}
	if !reader.closed {
		t.Error("Run must close the reader on exit")
	}
}

func TestConsumerHandleMessage_ProcessorError(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("boom")}
	c := &Consumer{processor: proc, log: zap.NewNop()}

	// A failing processor must not panic the consumer loop.
	c.handleMessage(context.Background(), []byte(`{"task":"process_video","video_id":3}`))

	if len(proc.ids) != 1 {
		t.Errorf("Expected processor invoked once, got %v", proc.ids)
	}
}
