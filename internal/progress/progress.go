// Package progress tracks the monotonic counters of long-running
// pipelines: one total set up front, then one success/failure/skip call
// per unit of work.
package progress

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reporter receives progress of a long-running pipeline. Counters are
// monotonic; each unit of work reports exactly once.
type Reporter interface {
	SetTotal(n int)
	OnSuccess()
	OnFailure()
	OnSkip()
}

// Summary is a point-in-time snapshot of the counters.
type Summary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failure int `json:"failure"`
	Skip    int `json:"skip"`
}

// Job is a Reporter backed by a run record: who started it, with which
// parameters, and how far it got. Counters are only ever incremented and
// never reset mid-run.
type Job struct {
	ID     string
	UserID string
	Params map[string]any

	total   atomic.Int64
	success atomic.Int64
	failure atomic.Int64
	skip    atomic.Int64
}

// NewJob creates a job record for a pipeline run.
func NewJob(userID string, params map[string]any) *Job {
	return &Job{
		ID:     uuid.New().String(),
		UserID: userID,
		Params: params,
	}
}

func (j *Job) SetTotal(n int) { j.total.Store(int64(n)) }
func (j *Job) OnSuccess()     { j.success.Add(1) }
func (j *Job) OnFailure()     { j.failure.Add(1) }
func (j *Job) OnSkip()        { j.skip.Add(1) }

// Processed returns how many units have reported so far.
func (j *Job) Processed() int {
	return int(j.success.Load() + j.failure.Load() + j.skip.Load())
}

// Snapshot returns the current counter values.
func (j *Job) Snapshot() Summary {
	return Summary{
		Total:   int(j.total.Load()),
		Success: int(j.success.Load()),
		Failure: int(j.failure.Load()),
		Skip:    int(j.skip.Load()),
	}
}

// LogReporter decorates a Reporter with debug logging of every report.
type LogReporter struct {
	Inner  Reporter
	Logger *zap.Logger
}

func (r *LogReporter) SetTotal(n int) {
	r.Inner.SetTotal(n)
	r.Logger.Info("progress total", zap.Int("total", n))
}

func (r *LogReporter) OnSuccess() {
	r.Inner.OnSuccess()
	r.Logger.Debug("progress success")
}

func (r *LogReporter) OnFailure() {
	r.Inner.OnFailure()
	r.Logger.Debug("progress failure")
}

func (r *LogReporter) OnSkip() {
	r.Inner.OnSkip()
	r.Logger.Debug("progress skip")
}
