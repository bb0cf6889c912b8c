package model

import "time"

// TaskKind identifies the unit of work a queue task carries.
type TaskKind string

const (
	TaskExtract      TaskKind = "extract"
	TaskDiff         TaskKind = "diff"
	TaskCrossCheck   TaskKind = "cross_check"
	TaskShadowReview TaskKind = "shadow_review"
)

// TaskStatus is the queue lifecycle state of a task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskClaimed TaskStatus = "claimed"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task priorities. Lower numbers claim first.
const (
	PriorityHigh   = 0
	PriorityNormal = 10
	PriorityLow    = 20
)

// QueueTask is a durable unit of dispatchable work. Claimed with a lease so
// a crashed worker's tasks are eventually re-queued by the reaper; after
// MaxAttempts failures the task is terminal and surfaced, never retried
// silently forever.
type QueueTask struct {
	ID          string       `json:"id"`
	Kind        TaskKind     `json:"kind"`
	DocumentID  string       `json:"document_id"`
	Payload     AttributeMap `json:"payload,omitempty"`
	Priority    int          `json:"priority"`
	Status      TaskStatus   `json:"status"`
	ClaimedBy   string       `json:"claimed_by,omitempty"`
	LeaseExpiry *time.Time   `json:"lease_expiry,omitempty"`
	Attempts    int          `json:"attempts"`
	LastError   string       `json:"last_error,omitempty"`
	EnqueuedAt  time.Time    `json:"enqueued_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
