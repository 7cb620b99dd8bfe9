package trend

import (
	"fmt"
	"time"
)

// Period is the trending aggregation window.
type Period string

// Trending window constants.
const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown trending period %q", s)
}

// Cutoff returns the inclusive lower bound of the window ending at now.
// The zero time means unbounded.
func (p Period) Cutoff(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return now.Add(-24 * time.Hour)
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// LogEntry is one logged search. The embedding is present only when the
// query could be encoded at log time; entries without it still count toward
// plain frequency tallies but cannot participate in clustering.
type LogEntry struct {
	Query       string    `json:"query"`
	Timestamp   int64     `json:"timestamp"`
	User        string    `json:"user,omitempty"`
	ResultCount int       `json:"count"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Cluster groups distinct query texts judged semantically equivalent.
// SimilarQueries is empty for singleton clusters.
type Cluster struct {
	Query          string
	Count          int
	SimilarQueries []string
}
