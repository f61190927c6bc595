package influxdb

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type mockSink struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (s *mockSink) WritePoint(p *write.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, p)
}

func (s *mockSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

func TestRunPoint_LineProtocol(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	line := write.PointToLineProtocol(runPoint(RunMetric{
		RunID:     "r1",
		Source:    "camera",
		Status:    "aborted",
		Steps:     4,
		Completed: 1,
		Duration:  2500 * time.Millisecond,
		At:        at,
	}), time.Nanosecond)

	for _, want := range []string{
		"automation_run,source=camera,status=aborted ",
		"completed=1i",
		"duration_ms=2500i",
		`run_id="r1"`,
		"steps=4i",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(line), "1792152000000000000") {
		t.Errorf("line %q does not carry the run timestamp", line)
	}
}

func TestStepPoint_LineProtocol(t *testing.T) {
	line := write.PointToLineProtocol(stepPoint(StepMetric{
		RunID:   "r1",
		Kind:    "double_click",
		Index:   2,
		Elapsed: 1200 * time.Millisecond,
		At:      time.Unix(1, 0),
	}), time.Second)

	for _, want := range []string{
		"automation_step,kind=double_click ",
		"elapsed_ms=1200i",
		"index=2i",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestWrite_DroppedWhenClosed(t *testing.T) {
	sink := &mockSink{}
	c := &Client{sink: sink, connected: true}

	c.WriteRunMetric(RunMetric{Source: "text", Status: "completed"})
	c.WriteStepMetric(StepMetric{Kind: "click"})
	if len(sink.points) != 2 {
		t.Fatalf("points = %d, want 2", len(sink.points))
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sink.flushes != 1 {
		t.Errorf("flushes = %d, want 1 on close", sink.flushes)
	}

	c.WriteRunMetric(RunMetric{Source: "text", Status: "completed"})
	c.Flush()
	if len(sink.points) != 2 || sink.flushes != 1 {
		t.Errorf("writes after close reached the sink: points=%d flushes=%d", len(sink.points), sink.flushes)
	}
}

func TestTimestampOrNow(t *testing.T) {
	before := time.Now()
	if got := timestampOrNow(time.Time{}); got.Before(before) {
		t.Errorf("timestampOrNow(zero) = %v, want now", got)
	}
	fixed := time.Unix(42, 0)
	if got := timestampOrNow(fixed); !got.Equal(fixed) {
		t.Errorf("timestampOrNow(fixed) = %v", got)
	}
}
