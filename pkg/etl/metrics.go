package etl

import (
	"time"

	"go.uber.org/zap"
)

// SnapshotStamp pins every row of a run to one instant. Timestamp is the
// run's start in UTC; Date is its calendar day and partition key.
type SnapshotStamp struct {
	Timestamp time.Time
	Date      string
}

// NewSnapshotStamp stamps a run at the given instant.
func NewSnapshotStamp(at time.Time) SnapshotStamp {
	utc := at.UTC()
	return SnapshotStamp{
		Timestamp: utc,
		Date:      utc.Format("2006-01-02"),
	}
}

// RunStats accumulates counters across one pipeline run.
type RunStats struct {
	DealsExtracted    int
	DealsLoaded       int64
	MeetingsExtracted int
	MeetingsLoaded    int64
	DealsWithContacts int
	ContactsFetched   int
	PipelinesFetched  int
	OwnersFetched     int
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	RunID    string
	Status   string
	Message  string
	Pipeline string

	Stats RunStats

	// Portfolio summary over the loaded deal rows.
	OpenDeals        int
	TotalPipeline    float64
	WeightedPipeline float64

	Snapshot      SnapshotStamp
	ExecutionTime time.Duration
}

// Run result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log writes the run summary through the supplied logger.
func (r *RunResult) Log(logger *zap.Logger) {
	if r.Status != StatusSuccess {
		logger.Error("pipeline run failed",
			zap.String("run_id", r.RunID),
			zap.String("message", r.Message),
			zap.Time("snapshot_timestamp", r.Snapshot.Timestamp),
			zap.Duration("execution_time", r.ExecutionTime))
		return
	}

	logger.Info("pipeline run completed",
		zap.String("run_id", r.RunID),
		zap.String("pipeline", r.Pipeline),
		zap.Int("deals_extracted", r.Stats.DealsExtracted),
		zap.Int64("deals_loaded", r.Stats.DealsLoaded),
		zap.Int("meetings_extracted", r.Stats.MeetingsExtracted),
		zap.Int64("meetings_loaded", r.Stats.MeetingsLoaded),
		zap.Int("open_deals", r.OpenDeals),
		zap.Float64("total_pipeline_value", r.TotalPipeline),
		zap.Float64("weighted_pipeline_value", r.WeightedPipeline),
		zap.Int("pipelines_fetched", r.Stats.PipelinesFetched),
		zap.Int("owners_fetched", r.Stats.OwnersFetched),
		zap.Time("snapshot_timestamp", r.Snapshot.Timestamp),
		zap.Duration("execution_time", r.ExecutionTime))
}

// daysBetween returns whole days from one instant to a later one, flooring
// toward negative infinity so a partial day before `from` counts as day -1.
func daysBetween(from, to time.Time) int64 {
	secs := int64(to.Sub(from) / time.Second)
	days := secs / 86400
	if secs%86400 != 0 && secs < 0 {
		days--
	}
	return days
}
