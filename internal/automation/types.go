package automation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the pointer action performed at a step's target point.
type Kind string

const (
	KindClick       Kind = "click"
	KindDoubleClick Kind = "double_click"
	KindRightClick  Kind = "right_click"
)

// DefaultSettleDelay is applied when a payload entry omits "delay".
const DefaultSettleDelay = time.Second

// AllKinds returns every supported action kind.
func AllKinds() []Kind {
	return []Kind{KindClick, KindDoubleClick, KindRightClick}
}

// ParseKind resolves a payload action name. The boolean reports whether the
// name was recognised; unrecognised names resolve to KindClick.
func ParseKind(name string) (Kind, bool) {
	if _, ok := validKinds[Kind(name)]; ok {
		return Kind(name), true
	}
	return KindClick, false
}

// Step is one point-plus-action instruction.
//
// Steps are built by the decoder and never modified afterwards. The zero
// Delay means "no settle time", not "use the default"; defaults are applied
// at decode time.
type Step struct {
	X     int
	Y     int
	Kind  Kind
	Delay time.Duration
}

// String renders the step for log lines.
func (s Step) String() string {
	return fmt.Sprintf("%s at (%d, %d)", s.Kind, s.X, s.Y)
}

// stepJSON is the payload wire form of a Step.
type stepJSON struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Action Kind    `json:"action"`
	Delay  float64 `json:"delay"`
}

// MarshalJSON encodes the step in payload form with the delay in seconds.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(stepJSON{
		X:      s.X,
		Y:      s.Y,
		Action: s.Kind,
		Delay:  s.Delay.Seconds(),
	})
}

// Sequence is an ordered list of steps. Index order is execution order.
type Sequence []Step

// Plan is a decoded payload: the step sequence plus optional metadata
// carried alongside it.
type Plan struct {
	Steps       Sequence
	Description string
	Timestamp   int64
}

// StepResult records one executed step.
type StepResult struct {
	Index   int // zero-based
	Step    Step
	Elapsed time.Duration
}

// Outcome summarises one engine run.
//
// Completed counts steps whose action was injected, including the settle
// delay. A step that failed part-way (pointer moved, click not delivered)
// is not counted.
type Outcome struct {
	Total     int
	Completed int
	Steps     []StepResult
	Duration  time.Duration
}

// Pre-computed validation set for O(1) kind lookups.
var validKinds map[Kind]struct{}

func init() {
	validKinds = make(map[Kind]struct{}, len(AllKinds()))
	for _, k := range AllKinds() {
		validKinds[k] = struct{}{}
	}
}
