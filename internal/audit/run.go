package audit

import "time"

// Status is the final state of a run.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusAborted     Status = "aborted" // failsafe tripped
	StatusNotAcquired Status = "not_acquired"
)

// Source names where a run's payload came from.
type Source string

const (
	SourceCamera Source = "camera"
	SourceImage  Source = "image"
	SourceText   Source = "text"
	SourceSerial Source = "serial"
	SourceMQTT   Source = "mqtt"
)

// Run is the audit record of one automation attempt.
type Run struct {
	ID             string        `json:"id"`
	Source         Source        `json:"source"`
	Status         Status        `json:"status"`
	FailureStage   string        `json:"failure_stage,omitempty"`
	FailureKind    string        `json:"failure_kind,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	StepsTotal     int           `json:"steps_total"`
	StepsCompleted int           `json:"steps_completed"`
	Description    string        `json:"description,omitempty"`
	BeforeSnapshot string        `json:"before_snapshot,omitempty"`
	AfterSnapshot  string        `json:"after_snapshot,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
	Duration       time.Duration `json:"duration"`
}

// Filter narrows List results.
type Filter struct {
	Source Source // optional
	Status Status // optional
	Limit  int    // default 20, max 200
}
