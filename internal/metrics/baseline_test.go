package metrics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	snapshots []string
	stats     []Sample
	positions map[string]TrainSample
	baselines map[string]Baseline
	statuses  []HealthStatus
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		positions: map[string]TrainSample{},
		baselines: map[string]Baseline{},
	}
}

func (m *memoryStore) CreateSnapshot(_ context.Context, sessionID string, _ time.Time) (string, error) {
	id := sessionID + "-" + string(rune('a'+len(m.snapshots)))
	m.snapshots = append(m.snapshots, id)
	return id, nil
}

func (m *memoryStore) InsertTickStats(_ context.Context, _ string, sample Sample) error {
	m.stats = append(m.stats, sample)
	return nil
}

func (m *memoryStore) UpsertTrainPositions(_ context.Context, _ string, sample Sample) error {
	for _, t := range sample.Trains {
		m.positions[t.TrainKey] = t
	}
	return nil
}

func (m *memoryStore) GetBaseline(_ context.Context, sessionID string) (*Baseline, error) {
	b, ok := m.baselines[sessionID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *memoryStore) SaveBaseline(_ context.Context, b Baseline) error {
	m.baselines[b.SessionID] = b
	return nil
}

func (m *memoryStore) RecordHealthStatus(_ context.Context, s HealthStatus) error {
	m.statuses = append(m.statuses, s)
	return nil
}

func (m *memoryStore) LatestHealthStatus(_ context.Context, _ string) (*HealthStatus, error) {
	if len(m.statuses) == 0 {
		return nil, nil
	}
	s := m.statuses[len(m.statuses)-1]
	return &s, nil
}

func (m *memoryStore) Cleanup(context.Context, time.Duration) error {
	return nil
}

func TestWelfordMatchesBatchStatistics(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	w := &WelfordState{}
	for _, v := range values {
		w.Update(v)
	}

	assert.Equal(t, 8, w.Count)
	assert.InDelta(t, 5.0, w.Mean, 1e-9)
	assert.InDelta(t, 2.0, w.StdDev(), 1e-9)
	assert.InDelta(t, 2.0, w.ZScore(9), 1e-9)

	resumed := NewWelfordState(w.Mean, w.StdDev(), w.Count)
	resumed.Update(5)
	w.Update(5)
	assert.InDelta(t, w.Mean, resumed.Mean, 1e-9)
	assert.InDelta(t, w.StdDev(), resumed.StdDev(), 1e-9)
}

func TestWelfordEmpty(t *testing.T) {
	w := NewWelfordState(3, 1, 0)
	assert.Equal(t, 0, w.Count)
	assert.Equal(t, 0.0, w.StdDev())
	assert.Equal(t, 0.0, w.ZScore(100))
}

func TestAssess(t *testing.T) {
	learning := NewWelfordState(10, 2, MinBaselineSamples-1)
	assert.Equal(t, StatusLearning, Assess(learning, 100).Status)

	learned := NewWelfordState(10, 2, 50)
	tests := []struct {
		waiting int
		want    string
	}{
		{waiting: 10, want: StatusHealthy},
		{waiting: 14, want: StatusHealthy},
		{waiting: 15, want: StatusCongested},
	}
	for _, tt := range tests {
		got := Assess(learned, tt.waiting)
		assert.Equal(t, tt.want, got.Status, "waiting=%d", tt.waiting)
	}
}

func TestRecorderLearnsAndFlagsCongestion(t *testing.T) {
	store := newMemoryStore()
	rec := NewRecorder(store)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		waiting := 10 + i%3
		status, err := rec.Record(ctx, Sample{
			SessionID: "s1",
			TakenAt:   start.Add(time.Duration(i) * 10 * time.Second),
			Waiting:   waiting,
			Trains:    []TrainSample{{TrainKey: "s1:0", Line: 0, X: float64(i)}},
		})
		require.NoError(t, err)
		if i < MinBaselineSamples {
			assert.Equal(t, StatusLearning, status.Status)
		} else {
			assert.Equal(t, StatusHealthy, status.Status)
		}
	}

	status, err := rec.Record(ctx, Sample{SessionID: "s1", TakenAt: start.Add(time.Hour), Waiting: 40})
	require.NoError(t, err)
	assert.Equal(t, StatusCongested, status.Status)
	assert.Greater(t, status.ZScore, CongestionZScore)

	b := store.baselines["s1"]
	assert.Equal(t, 21, b.SampleCount)
	assert.False(t, math.IsNaN(b.WaitingStdDev))
	assert.Len(t, store.snapshots, 21)
	assert.Len(t, store.statuses, 21)
	assert.Equal(t, 19.0, store.positions["s1:0"].X)
}
