package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockInjector records every primitive and tracks the pointer.
type mockInjector struct {
	mu    sync.Mutex
	calls []string
	x, y  int
	moves int

	// yankAfterMove parks the pointer at (0,0) once this many moves
	// have happened, as an operator grabbing the mouse would.
	yankAfterMove int
	// failClick makes the n-th click-type primitive (1-based) return this error.
	failClickN   int
	failClickErr error
	// panicOnMove panics on the n-th move (1-based).
	panicOnMove int
}

func (m *mockInjector) MoveTo(x, y int, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves++
	if m.panicOnMove > 0 && m.moves == m.panicOnMove {
		panic("driver crashed")
	}
	m.calls = append(m.calls, fmt.Sprintf("move(%d,%d)", x, y))
	m.x, m.y = x, y
	if m.yankAfterMove > 0 && m.moves >= m.yankAfterMove {
		m.x, m.y = 0, 0
	}
	return nil
}

func (m *mockInjector) press(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == "click" || c == "double_click" || c == "right_click" {
			n++
		}
	}
	if m.failClickN > 0 && n+1 == m.failClickN {
		return m.failClickErr
	}
	m.calls = append(m.calls, name)
	return nil
}

func (m *mockInjector) Click() error       { return m.press("click") }
func (m *mockInjector) DoubleClick() error { return m.press("double_click") }
func (m *mockInjector) RightClick() error  { return m.press("right_click") }

func (m *mockInjector) Position() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

func (m *mockInjector) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// ─── Helper ─────────────────────────────────────────────────────────────────

func newTestEngine(inj *mockInjector, failSafe bool) *Engine {
	inj.x, inj.y = 960, 540
	return NewEngine(inj, &mockScreen{width: 1920, height: 1080}, EngineConfig{
		FailSafe:       failSafe,
		FailSafeMargin: 2,
	}, nil)
}

func threeSteps() Sequence {
	return Sequence{
		{X: 100, Y: 100, Kind: KindClick},
		{X: 200, Y: 150, Kind: KindDoubleClick},
		{X: 300, Y: 200, Kind: KindRightClick},
	}
}

func assertCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestExecute_InOrder(t *testing.T) {
	inj := &mockInjector{}
	e := newTestEngine(inj, true)

	outcome, err := e.Execute(context.Background(), threeSteps())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	assertCalls(t, inj.Calls(), []string{
		"move(100,100)", "click",
		"move(200,150)", "double_click",
		"move(300,200)", "right_click",
	})
	if outcome.Total != 3 || outcome.Completed != 3 {
		t.Errorf("outcome = %d/%d, want 3/3", outcome.Completed, outcome.Total)
	}
	for i, r := range outcome.Steps {
		if r.Index != i {
			t.Errorf("Steps[%d].Index = %d", i, r.Index)
		}
	}
}

func TestExecute_SafetyAbortFromCorner(t *testing.T) {
	inj := &mockInjector{yankAfterMove: 2}
	e := newTestEngine(inj, true)

	outcome, err := e.Execute(context.Background(), threeSteps())
	if !errors.Is(err, ErrSafetyAbort) {
		t.Fatalf("Execute() error = %v, want ErrSafetyAbort", err)
	}
	if errors.Is(err, ErrExecution) {
		t.Error("safety abort must be distinguishable from ExecutionError")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Index != 1 {
		t.Errorf("abort reported at %+v, want step index 1", stepErr)
	}

	// Step 1 ran in full and stays done; step 3 never started.
	assertCalls(t, inj.Calls(), []string{"move(100,100)", "click", "move(200,150)"})
	if outcome.Completed != 1 {
		t.Errorf("Completed = %d, want 1", outcome.Completed)
	}
}

func TestExecute_SafetyAbortFromInjector(t *testing.T) {
	inj := &mockInjector{
		failClickN:   2,
		failClickErr: fmt.Errorf("platform: %w", ErrSafetyAbort),
	}
	e := newTestEngine(inj, false)

	_, err := e.Execute(context.Background(), threeSteps())
	if KindOf(err) != FailureSafetyAbort {
		t.Fatalf("KindOf(%v) = %q, want safety_abort", err, KindOf(err))
	}

	for _, c := range inj.Calls() {
		if c == "move(300,200)" || c == "right_click" {
			t.Errorf("step 3 executed after abort: %v", inj.Calls())
		}
	}
}

func TestExecute_FailSafeDisabledIgnoresCorner(t *testing.T) {
	inj := &mockInjector{yankAfterMove: 1}
	e := newTestEngine(inj, false)

	outcome, err := e.Execute(context.Background(), threeSteps())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.Completed != 3 {
		t.Errorf("Completed = %d, want 3", outcome.Completed)
	}
}

func TestExecute_ExecutionError(t *testing.T) {
	cause := errors.New("xtest: connection lost")
	inj := &mockInjector{failClickN: 1, failClickErr: cause}
	e := newTestEngine(inj, true)

	outcome, err := e.Execute(context.Background(), threeSteps())
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("Execute() error = %v, want ErrExecution", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v does not wrap the underlying cause", err)
	}
	if outcome.Completed != 0 {
		t.Errorf("Completed = %d, want 0", outcome.Completed)
	}
	assertCalls(t, inj.Calls(), []string{"move(100,100)"})
}

func TestExecute_PanicRecovered(t *testing.T) {
	inj := &mockInjector{panicOnMove: 2}
	e := newTestEngine(inj, true)

	outcome, err := e.Execute(context.Background(), threeSteps())
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("Execute() error = %v, want ErrExecution", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Index != 1 {
		t.Errorf("panic reported at %+v, want step index 1", stepErr)
	}
	if outcome.Completed != 1 {
		t.Errorf("Completed = %d, want 1", outcome.Completed)
	}
}

func TestExecute_EmptySequence(t *testing.T) {
	e := newTestEngine(&mockInjector{}, true)
	if _, err := e.Execute(context.Background(), nil); !errors.Is(err, ErrInvalidPayloadShape) {
		t.Errorf("Execute(nil) error = %v, want ErrInvalidPayloadShape", err)
	}
}

func TestExecute_ScreenUnavailable(t *testing.T) {
	inj := &mockInjector{}
	e := NewEngine(inj, &mockScreen{err: errors.New("no display")}, EngineConfig{FailSafe: true}, nil)

	_, err := e.Execute(context.Background(), threeSteps())
	if !errors.Is(err, ErrScreenUnavailable) || !errors.Is(err, ErrExecution) {
		t.Errorf("Execute() error = %v, want ErrExecution wrapping ErrScreenUnavailable", err)
	}
	if len(inj.Calls()) != 0 {
		t.Errorf("primitives injected without a screen: %v", inj.Calls())
	}
}

func TestExecute_PauseAndSettleDelay(t *testing.T) {
	inj := &mockInjector{}
	e := newTestEngine(inj, true)
	e.cfg.Pause = 5 * time.Millisecond

	var (
		mu     sync.Mutex
		sleeps []time.Duration
	)
	e.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		sleeps = append(sleeps, d)
		return nil
	}

	seq := Sequence{
		{X: 10, Y: 10, Kind: KindClick, Delay: 100 * time.Millisecond},
		{X: 20, Y: 20, Kind: KindClick, Delay: 2 * time.Second},
	}
	if _, err := e.Execute(context.Background(), seq); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []time.Duration{
		5 * time.Millisecond, 5 * time.Millisecond, 100 * time.Millisecond,
		5 * time.Millisecond, 5 * time.Millisecond, 2 * time.Second,
	}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("sleeps[%d] = %v, want %v", i, sleeps[i], want[i])
		}
	}
}

func TestExecute_CancelledDuringSettle(t *testing.T) {
	inj := &mockInjector{}
	e := newTestEngine(inj, true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	seq := Sequence{
		{X: 10, Y: 10, Kind: KindClick, Delay: time.Minute},
		{X: 20, Y: 20, Kind: KindClick},
	}

	start := time.Now()
	_, err := e.Execute(ctx, seq)
	if !errors.Is(err, ErrExecution) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() error = %v, want ErrExecution wrapping deadline", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Execute() took %v after cancellation", elapsed)
	}
	assertCalls(t, inj.Calls(), []string{"move(10,10)", "click"})
}

func TestExecute_DryRunOnlyMoves(t *testing.T) {
	inj := &mockInjector{}
	e := newTestEngine(inj, true)
	e.cfg.DryRun = true

	var (
		mu     sync.Mutex
		sleeps []time.Duration
	)
	e.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		sleeps = append(sleeps, d)
		return nil
	}

	seq := threeSteps()
	seq[2].Delay = 3 * time.Second

	outcome, err := e.Execute(context.Background(), seq)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	assertCalls(t, inj.Calls(), []string{"move(100,100)", "move(200,150)", "move(300,200)"})
	if outcome.Completed != 3 {
		t.Errorf("Completed = %d, want 3", outcome.Completed)
	}

	// One pause after the move, then the settle delay, per step.
	if len(sleeps) != 6 || sleeps[5] != 3*time.Second {
		t.Errorf("sleeps = %v, want pause and settle per step ending in 3s", sleeps)
	}
}

func TestExecute_DryRunFailSafeStillTrips(t *testing.T) {
	inj := &mockInjector{yankAfterMove: 1}
	e := newTestEngine(inj, true)
	e.cfg.DryRun = true

	outcome, err := e.Execute(context.Background(), threeSteps())
	if !errors.Is(err, ErrSafetyAbort) {
		t.Fatalf("Execute() error = %v, want ErrSafetyAbort", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Index != 1 {
		t.Errorf("abort reported at %+v, want step index 1", stepErr)
	}
	assertCalls(t, inj.Calls(), []string{"move(100,100)"})
	if outcome.Completed != 1 {
		t.Errorf("Completed = %d, want 1", outcome.Completed)
	}
}

func TestInCorner(t *testing.T) {
	tests := []struct {
		x, y   int
		margin int
		want   bool
	}{
		{0, 0, 0, true},
		{1919, 0, 0, true},
		{0, 1079, 0, true},
		{1919, 1079, 0, true},
		{1, 0, 0, false},
		{2, 2, 2, true},
		{3, 2, 2, false},
		{1917, 1077, 2, true},
		{0, 540, 2, false},
		{960, 540, 2, false},
	}

	for _, tt := range tests {
		if got := inCorner(tt.x, tt.y, 1920, 1080, tt.margin); got != tt.want {
			t.Errorf("inCorner(%d, %d, margin %d) = %v, want %v", tt.x, tt.y, tt.margin, got, tt.want)
		}
	}
}
