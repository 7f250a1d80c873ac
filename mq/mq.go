package mq

import (
	"context"
	"encoding/json"
	"fmt"
)

type MessageQueue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, visibilityTimeout int32) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}

type Message struct {
	Id   string
	Body string
}

type JobKind string

const (
	JobDeleteBoard JobKind = "delete_board"
)

// Job is the body of every queued message.
type Job struct {
	Kind        JobKind `json:"kind"`
	BoardId     string  `json:"boardId"`
	RequestedBy string  `json:"requestedBy,omitempty"`
	RequestedAt int64   `json:"requestedAt"`
}

func SendJob(ctx context.Context, queue MessageQueue, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return queue.Send(ctx, string(body))
}

func DecodeJob(msg *Message) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		return Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	if job.Kind == "" || job.BoardId == "" {
		return Job{}, fmt.Errorf("incomplete job: %q", msg.Body)
	}
	return job, nil
}
