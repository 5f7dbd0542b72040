package simulator

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/gosched/internal/scheduler"
	"github.com/me/gosched/internal/workload"
	"github.com/me/gosched/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// textbook returns four jobs arriving one tick apart.
func textbook() *workload.Workload {
	return &workload.Workload{Name: "textbook", Jobs: []workload.JobSpec{
		{ID: 0, Arrival: 0, Run: 8, Priority: 3},
		{ID: 1, Arrival: 1, Run: 4, Priority: 1},
		{ID: 2, Arrival: 2, Run: 9, Priority: 4},
		{ID: 3, Arrival: 3, Run: 5, Priority: 2},
	}}
}

// randomWorkload builds a reproducible workload of n jobs.
func randomWorkload(seed uint64, n int) *workload.Workload {
	rng := rand.New(rand.NewPCG(seed, seed))
	wl := &workload.Workload{Name: "random"}
	arrival := 0
	for i := 0; i < n; i++ {
		arrival += rng.IntN(4)
		wl.Jobs = append(wl.Jobs, workload.JobSpec{
			ID:       i,
			Arrival:  arrival,
			Run:      1 + rng.IntN(12),
			Priority: rng.IntN(6),
		})
	}
	return wl
}

func simulate(t *testing.T, cfg Config, wl *workload.Workload, opts ...Option) *Result {
	t.Helper()
	sim, err := New(cfg, testLogger(), opts...)
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), wl)
	require.NoError(t, err)
	return res
}

func waits(res *Result) map[int]int {
	out := make(map[int]int, len(res.Jobs))
	for _, r := range res.Jobs {
		out[r.ID] = r.Waiting
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Cores: 0, Discipline: model.DisciplineFCFS}, nil)
	require.Error(t, err)

	_, err = New(Config{Cores: 1, Discipline: model.DisciplineRR}, nil)
	require.Error(t, err)

	sim, err := New(Config{Cores: 1, Discipline: model.DisciplineFCFS, Quantum: 5}, nil)
	require.NoError(t, err)
	assert.Zero(t, sim.config.Quantum, "quantum is only kept for RR")
}

func TestRun_Textbook(t *testing.T) {
	tests := []struct {
		discipline     model.Discipline
		quantum        int
		wantWaits      map[int]int
		wantWaiting    float64
		wantTurnaround float64
	}{
		{model.DisciplineFCFS, 0, map[int]int{0: 0, 1: 7, 2: 10, 3: 18}, 8.75, 15.25},
		{model.DisciplineSJF, 0, map[int]int{0: 0, 1: 7, 2: 15, 3: 9}, 7.75, 14.25},
		{model.DisciplinePSJF, 0, map[int]int{0: 9, 1: 0, 2: 15, 3: 2}, 6.5, 13},
		{model.DisciplinePRI, 0, map[int]int{0: 0, 1: 7, 2: 15, 3: 9}, 7.75, 14.25},
		{model.DisciplinePPRI, 0, map[int]int{0: 9, 1: 0, 2: 15, 3: 2}, 6.5, 13},
		{model.DisciplineRR, 4, map[int]int{0: 12, 1: 3, 2: 15, 3: 17}, 11.75, 18.25},
	}
	for _, tt := range tests {
		t.Run(tt.discipline.String(), func(t *testing.T) {
			res := simulate(t, Config{Cores: 1, Discipline: tt.discipline, Quantum: tt.quantum}, textbook())

			assert.Equal(t, tt.wantWaits, waits(res))
			assert.InDelta(t, tt.wantWaiting, res.AverageWaiting, 1e-9)
			assert.InDelta(t, tt.wantTurnaround, res.AverageTurnaround, 1e-9)
			assert.Equal(t, 26, res.Makespan)
			assert.Equal(t, "textbook", res.Workload)
			assert.True(t, strings.HasPrefix(res.RunID, "run_"), "run id %q", res.RunID)
		})
	}
}

func TestRun_PSJFSegments(t *testing.T) {
	res := simulate(t, Config{Cores: 1, Discipline: model.DisciplinePSJF}, textbook())
	want := []Segment{
		{Core: 0, JobID: 0, Start: 0, End: 1},
		{Core: 0, JobID: 1, Start: 1, End: 5},
		{Core: 0, JobID: 3, Start: 5, End: 10},
		{Core: 0, JobID: 0, Start: 10, End: 17},
		{Core: 0, JobID: 2, Start: 17, End: 26},
	}
	assert.Equal(t, want, res.Segments)
	assert.InDelta(t, 4.25, res.AverageResponse, 1e-9)
}

func TestRun_RRLoneJobSegmentsMerge(t *testing.T) {
	wl := &workload.Workload{Jobs: []workload.JobSpec{{ID: 5, Arrival: 2, Run: 7}}}
	res := simulate(t, Config{Cores: 1, Discipline: model.DisciplineRR, Quantum: 2}, wl)
	assert.Equal(t, []Segment{{Core: 0, JobID: 5, Start: 2, End: 9}}, res.Segments)
	assert.Equal(t, 9, res.Makespan)
	// one arrival, three quantum expiries, one completion
	assert.Equal(t, 5, res.Events)
}

func TestRun_MultiCoreFCFS(t *testing.T) {
	res := simulate(t, Config{Cores: 2, Discipline: model.DisciplineFCFS}, textbook())
	assert.Equal(t, map[int]int{0: 0, 1: 0, 2: 3, 3: 5}, waits(res))
	assert.InDelta(t, 2.0, res.AverageWaiting, 1e-9)
	assert.Equal(t, 14, res.Makespan)
}

func TestRun_IdleGap(t *testing.T) {
	wl := &workload.Workload{Jobs: []workload.JobSpec{
		{ID: 0, Arrival: 0, Run: 2},
		{ID: 1, Arrival: 10, Run: 3},
	}}
	res := simulate(t, Config{Cores: 1, Discipline: model.DisciplineFCFS}, wl)
	assert.Equal(t, 13, res.Makespan)
	assert.Zero(t, res.AverageWaiting)
	assert.Len(t, res.Segments, 2)
}

func TestRun_EmptyWorkload(t *testing.T) {
	res := simulate(t, Config{Cores: 3, Discipline: model.DisciplinePPRI}, &workload.Workload{})
	assert.Empty(t, res.Jobs)
	assert.Zero(t, res.Makespan)
	assert.Zero(t, res.AverageTurnaround)
}

func TestRun_InvalidWorkload(t *testing.T) {
	sim, err := New(Config{Cores: 1, Discipline: model.DisciplineFCFS}, nil)
	require.NoError(t, err)
	_, err = sim.Run(context.Background(), &workload.Workload{Jobs: []workload.JobSpec{{ID: 0, Run: 0}}})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRun_NegativeJobID(t *testing.T) {
	sim, err := New(Config{Cores: 1, Discipline: model.DisciplineFCFS}, nil)
	require.NoError(t, err)
	_, err = sim.Run(context.Background(), &workload.Workload{Jobs: []workload.JobSpec{
		{ID: 1, Arrival: 0, Run: 2},
		{ID: scheduler.Idle, Arrival: 1, Run: 2},
	}})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Details, 1)
	assert.Equal(t, "id", ve.Details[0].Field)
}

func TestRun_ContextCancelled(t *testing.T) {
	sim, err := New(Config{Cores: 1, Discipline: model.DisciplineFCFS}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Run(ctx, textbook())
	require.ErrorIs(t, err, context.Canceled)
}

// Properties that hold for every discipline on arbitrary workloads.
func TestRun_Properties(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		wl := randomWorkload(seed, 40)
		runs := map[int]int{}
		for _, j := range wl.Jobs {
			runs[j.ID] = j.Run
		}
		for _, cores := range []int{1, 3} {
			for _, d := range model.Disciplines() {
				cfg := Config{Cores: cores, Discipline: d, Quantum: 3}
				res := simulate(t, cfg, wl, WithObserver(func(now int, s *scheduler.Scheduler) {
					running := 0
					for c := 0; c < s.Cores(); c++ {
						if _, ok := s.CoreJob(c); ok {
							running++
						}
					}
					if running < s.Cores() {
						require.Equal(t, running, s.QueueSize(), "idle core with waiting jobs at t=%d", now)
					}
				}))
				require.Len(t, res.Jobs, len(wl.Jobs), "%s/%d", d, cores)

				executed := map[int]int{}
				segsPerJob := map[int]int{}
				for _, seg := range res.Segments {
					require.Less(t, seg.Start, seg.End)
					executed[seg.JobID] += seg.End - seg.Start
					segsPerJob[seg.JobID]++
				}
				for _, r := range res.Jobs {
					assert.Equal(t, runs[r.ID], executed[r.ID], "%s/%d job %d executed time", d, cores, r.ID)
					assert.Equal(t, r.Turnaround-r.RunTime, r.Waiting, "%s/%d job %d waiting", d, cores, r.ID)
					assert.GreaterOrEqual(t, r.Response, 0)
					assert.LessOrEqual(t, r.Response, r.Waiting)
					if !d.IsPreemptive() && d != model.DisciplineRR {
						assert.Equal(t, 1, segsPerJob[r.ID], "%s/%d job %d must run uninterrupted", d, cores, r.ID)
					}
				}

				// segments on one core never overlap
				lastEnd := make([]int, cores)
				for _, seg := range res.Segments {
					require.GreaterOrEqual(t, seg.Start, lastEnd[seg.Core], "%s/%d overlap on core %d", d, cores, seg.Core)
					lastEnd[seg.Core] = seg.End
				}
			}
		}
	}
}

func TestRunAll(t *testing.T) {
	results, err := RunAll(context.Background(), textbook(), 1, 4, testLogger())
	require.NoError(t, err)
	require.Len(t, results, len(model.Disciplines()))
	for i, d := range model.Disciplines() {
		assert.Equal(t, d, results[i].Discipline)
	}
	assert.Equal(t, 4, results[len(results)-1].Quantum)
	assert.Zero(t, results[0].Quantum)
}
