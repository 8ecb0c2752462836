package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: the only job contract
type Job interface {
	Name() string

	// Schedule returns a six-field cron expression (seconds first),
	// e.g. "0 */5 * * * *", or a descriptor such as "@hourly"
	Schedule() string

	Run(ctx context.Context) error
}

// JobResult is one execution, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Attempts  int           `json:"attempts"`
	Error     string        `json:"error,omitempty"`
}

const maxHistory = 50

// JobHistory keeps the newest maxHistory results (oldest first) plus
// lifetime counters that survive trimming
type JobHistory struct {
	Results   []JobResult `json:"results"`
	Runs      int         `json:"runs"`
	Failures  int         `json:"failures"`
	LastError string      `json:"last_error,omitempty"`
}

// Record appends a result
func (h *JobHistory) Record(r JobResult) {
	h.Runs++
	if !r.Success {
		h.Failures++
		h.LastError = r.Error
	}

	h.Results = append(h.Results, r)
	if over := len(h.Results) - maxHistory; over > 0 {
		h.Results = append(h.Results[:0:0], h.Results[over:]...)
	}
}

// Latest returns up to n of the newest results, newest last
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	return h.Results[len(h.Results)-n:]
}

// Last returns the newest result
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// SuccessRate is the lifetime share of successful runs (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if h.Runs == 0 {
		return 0
	}
	return float64(h.Runs-h.Failures) / float64(h.Runs)
}

// clone copies h so callers can read it without the scheduler lock
func (h *JobHistory) clone() JobHistory {
	c := *h
	c.Results = append([]JobResult(nil), h.Results...)
	return c
}
