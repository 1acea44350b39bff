package metrics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Congestion is flagged once the baseline has this many samples and the
// waiting count is more than CongestionZScore deviations above the mean.
const (
	MinBaselineSamples = 10
	CongestionZScore   = 2.0
)

const (
	StatusHealthy   = "healthy"
	StatusCongested = "congested"
	StatusLearning  = "learning"
)

// Sample is one telemetry reading of a session.
type Sample struct {
	SessionID   string
	TakenAt     time.Time
	Tick        uint64
	Stations    int
	Waiting     int
	Onboard     int
	Delivered   int
	ActiveLines int
	Trains      []TrainSample
}

// TrainSample is the position of one train at sampling time.
type TrainSample struct {
	TrainKey    string
	Line        int
	LastStation int
	NextStation int
	X           float64
	Y           float64
	Status      string
	Passengers  int
}

// Baseline is the learned distribution of waiting passengers of a session.
type Baseline struct {
	SessionID     string
	WaitingMean   float64
	WaitingStdDev float64
	SampleCount   int
}

// HealthStatus is a recorded congestion assessment.
type HealthStatus struct {
	SessionID  string    `json:"sessionId"`
	Status     string    `json:"status"`
	Waiting    int       `json:"waiting"`
	ZScore     float64   `json:"zScore"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Store persists telemetry. Implemented by the SQLite and Postgres stores.
type Store interface {
	CreateSnapshot(ctx context.Context, sessionID string, takenAt time.Time) (string, error)
	InsertTickStats(ctx context.Context, snapshotID string, sample Sample) error
	UpsertTrainPositions(ctx context.Context, snapshotID string, sample Sample) error
	GetBaseline(ctx context.Context, sessionID string) (*Baseline, error)
	SaveBaseline(ctx context.Context, baseline Baseline) error
	RecordHealthStatus(ctx context.Context, status HealthStatus) error
	LatestHealthStatus(ctx context.Context, sessionID string) (*HealthStatus, error)
	Cleanup(ctx context.Context, retention time.Duration) error
}

// Recorder writes samples to a Store and keeps the congestion baseline.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record stores a sample, assesses congestion against the baseline learned
// so far and then folds the sample into the baseline.
func (r *Recorder) Record(ctx context.Context, sample Sample) (HealthStatus, error) {
	snapshotID, err := r.store.CreateSnapshot(ctx, sample.SessionID, sample.TakenAt)
	if err != nil {
		return HealthStatus{}, err
	}
	if err := r.store.InsertTickStats(ctx, snapshotID, sample); err != nil {
		return HealthStatus{}, fmt.Errorf("tick stats: %w", err)
	}
	if err := r.store.UpsertTrainPositions(ctx, snapshotID, sample); err != nil {
		return HealthStatus{}, fmt.Errorf("train positions: %w", err)
	}

	existing, err := r.store.GetBaseline(ctx, sample.SessionID)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("get baseline: %w", err)
	}
	welford := &WelfordState{}
	if existing != nil {
		welford = NewWelfordState(existing.WaitingMean, existing.WaitingStdDev, existing.SampleCount)
	}

	status := Assess(welford, sample.Waiting)
	status.SessionID = sample.SessionID
	status.RecordedAt = sample.TakenAt
	if err := r.store.RecordHealthStatus(ctx, status); err != nil {
		zap.S().Warnf("Health status: failed to record for %s: %v", sample.SessionID, err)
	}
	if status.Status == StatusCongested {
		zap.S().Warnf("Health status: session %s congested, %d waiting (z=%.2f)", sample.SessionID, sample.Waiting, status.ZScore)
	}

	welford.Update(float64(sample.Waiting))
	err = r.store.SaveBaseline(ctx, Baseline{
		SessionID:     sample.SessionID,
		WaitingMean:   welford.Mean,
		WaitingStdDev: welford.StdDev(),
		SampleCount:   welford.Count,
	})
	if err != nil {
		return status, fmt.Errorf("save baseline: %w", err)
	}
	return status, nil
}

// Assess compares a waiting count with the baseline learned so far.
func Assess(baseline *WelfordState, waiting int) HealthStatus {
	if baseline.Count < MinBaselineSamples {
		return HealthStatus{Status: StatusLearning, Waiting: waiting}
	}
	z := baseline.ZScore(float64(waiting))
	status := StatusHealthy
	if z > CongestionZScore {
		status = StatusCongested
	}
	return HealthStatus{Status: status, Waiting: waiting, ZScore: z}
}
