package progress

import (
	"testing"

	"go.uber.org/zap"
)

func TestJobCounters(t *testing.T) {
	job := NewJob("u1", map[string]any{"kind": "test"})
	if job.ID == "" {
		t.Fatal("expected a job id")
	}
	if job.UserID != "u1" {
		t.Fatalf("expected user u1, got %s", job.UserID)
	}

	job.SetTotal(5)
	job.OnSuccess()
	job.OnSuccess()
	job.OnFailure()
	job.OnSkip()

	if got := job.Processed(); got != 4 {
		t.Fatalf("expected 4 processed, got %d", got)
	}

	s := job.Snapshot()
	if s.Total != 5 || s.Success != 2 || s.Failure != 1 || s.Skip != 1 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

func TestSetTotalOverwrites(t *testing.T) {
	job := NewJob("", nil)
	job.SetTotal(1)
	job.SetTotal(42)
	if got := job.Snapshot().Total; got != 42 {
		t.Fatalf("expected total 42, got %d", got)
	}
}

func TestLogReporterDelegates(t *testing.T) {
	job := NewJob("u1", nil)
	reporter := &LogReporter{Inner: job, Logger: zap.NewNop()}

	reporter.SetTotal(3)
	reporter.OnSuccess()
	reporter.OnFailure()
	reporter.OnSkip()

	s := job.Snapshot()
	if s.Total != 3 || s.Success != 1 || s.Failure != 1 || s.Skip != 1 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}
