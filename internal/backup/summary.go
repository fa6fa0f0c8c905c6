package backup

import (
	"time"

	"github.com/google/uuid"
)

// Summary aggregates the results of one orchestration run. Results preserve
// configuration order, and SuccessCount+FailureCount always equals
// len(Results).
type Summary struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	Results       []Result      `json:"results"`
	TotalDuration time.Duration `json:"total_duration"`
	SuccessCount  int           `json:"success_count"`
	FailureCount  int           `json:"failure_count"`
	FilesRemoved  int           `json:"files_removed,omitempty"`
}

// NewSummary folds per-target results into a Summary. The run ID is a fresh
// UUID so log lines and reports from overlapping runs stay distinguishable.
func NewSummary(startedAt time.Time, results []Result, totalDuration time.Duration) *Summary {
	summary := &Summary{
		RunID:         uuid.NewString(),
		StartedAt:     startedAt,
		Results:       results,
		TotalDuration: totalDuration,
	}

	for _, result := range results {
		if result.Success {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
	}

	return summary
}

// TotalBytes sums the artifact sizes of successful targets.
func (s *Summary) TotalBytes() int64 {
	var total int64
	for _, result := range s.Results {
		if result.Success {
			total += result.SizeBytes
		}
	}
	return total
}

// ByKind partitions results by target kind, preserving order within each
// partition.
func (s *Summary) ByKind() map[TargetKind][]Result {
	partitions := make(map[TargetKind][]Result)
	for _, result := range s.Results {
		partitions[result.Kind] = append(partitions[result.Kind], result)
	}
	return partitions
}

// Failed returns the failed results in configuration order.
func (s *Summary) Failed() []Result {
	var failed []Result
	for _, result := range s.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// AllSucceeded reports whether every target produced its artifact.
func (s *Summary) AllSucceeded() bool {
	return s.FailureCount == 0
}
