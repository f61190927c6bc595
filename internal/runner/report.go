package runner

import (
	"time"

	"github.com/nerrad567/qrauto/internal/audit"
	"github.com/nerrad567/qrauto/internal/automation"
)

// Stage names the pipeline stage a run stopped in.
type Stage string

const (
	StageNone     Stage = ""
	StageAcquire  Stage = "acquire"
	StageClassify Stage = "classify"
	StageDecode   Stage = "decode"
	StageValidate Stage = "validate"
	StageExecute  Stage = "execute"
)

// Report is the result of one run.
type Report struct {
	RunID   string       `json:"run_id"`
	Source  audit.Source `json:"source"`
	Success bool         `json:"success"`

	// Stage and Kind are empty on success.
	Stage  Stage                  `json:"stage,omitempty"`
	Kind   automation.FailureKind `json:"kind,omitempty"`
	Reason string                 `json:"reason"`

	StepsTotal     int    `json:"steps_total"`
	StepsCompleted int    `json:"steps_completed"`
	Description    string `json:"description,omitempty"`

	BeforeSnapshot string `json:"before_snapshot,omitempty"`
	AfterSnapshot  string `json:"after_snapshot,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Status maps the report onto the audit status set.
func (r Report) Status() audit.Status {
	switch {
	case r.Success:
		return audit.StatusCompleted
	case r.Kind == automation.FailureNotAcquired:
		return audit.StatusNotAcquired
	case r.Kind == automation.FailureSafetyAbort:
		return audit.StatusAborted
	default:
		return audit.StatusFailed
	}
}

// fail marks the report failed. Callers return immediately after.
func (r *Report) fail(stage Stage, kind automation.FailureKind, err error) {
	r.Success = false
	r.Stage = stage
	r.Kind = kind
	r.Reason = err.Error()
}

// auditRun converts the report into its audit record.
func (r Report) auditRun() *audit.Run {
	return &audit.Run{
		ID:             r.RunID,
		Source:         r.Source,
		Status:         r.Status(),
		FailureStage:   string(r.Stage),
		FailureKind:    string(r.Kind),
		Reason:         r.Reason,
		StepsTotal:     r.StepsTotal,
		StepsCompleted: r.StepsCompleted,
		Description:    r.Description,
		BeforeSnapshot: r.BeforeSnapshot,
		AfterSnapshot:  r.AfterSnapshot,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		Duration:       r.Duration(),
	}
}
