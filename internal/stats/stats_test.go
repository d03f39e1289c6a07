package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
	"github.com/michaelfortunato/pueue-webui/internal/stats"
)

func doneTask(group, result, start, end string) map[string]any {
	detail := map[string]any{"result": result}
	if start != "" {
		detail["start"] = start
	}
	if end != "" {
		detail["end"] = end
	}
	return map[string]any{
		"command": "echo done",
		"group":   group,
		"status":  map[string]any{"Done": detail},
	}
}

func TestCompute_EmptySnapshot(t *testing.T) {
	derived, digest := stats.Compute(domain.Snapshot{})

	assert.Equal(t, "5381:0", digest)
	assert.Empty(t, derived.Groups)
}

func TestCompute_EmptyTasksWithGroups(t *testing.T) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{},
		"groups": map[string]any{
			"default": map[string]any{"parallel_tasks": float64(2), "status": "Running"},
		},
	}

	derived, digest := stats.Compute(snapshot)

	require.Contains(t, derived.Groups, "default")
	entry := derived.Groups["default"]
	assert.Equal(t, uint64(0), entry.Total)
	require.NotNil(t, entry.Parallel)
	assert.Equal(t, 2, *entry.Parallel)
	// Group-level fields are hashed even with zero tasks.
	assert.NotEqual(t, "5381:0", digest)
}

func TestCompute_Deterministic(t *testing.T) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{
			"0": map[string]any{"command": "sleep 10", "group": "default", "status": map[string]any{"Queued": map[string]any{}}},
			"1": map[string]any{"command": "make", "group": "build", "status": map[string]any{"Running": map[string]any{}}},
		},
	}

	_, first := stats.Compute(snapshot)
	_, second := stats.Compute(snapshot)

	assert.Equal(t, first, second)
}

func TestCompute_LabelChangesDigest(t *testing.T) {
	base := func(label string) domain.Snapshot {
		return domain.Snapshot{
			"tasks": map[string]any{
				"0": map[string]any{"command": "sleep 10", "label": label},
			},
		}
	}

	_, first := stats.Compute(base("nightly"))
	_, second := stats.Compute(base("weekly"))

	assert.NotEqual(t, first, second)
}

func TestCompute_ArrayCommandSeparatorMatters(t *testing.T) {
	withCommand := func(command any) domain.Snapshot {
		return domain.Snapshot{
			"tasks": map[string]any{"0": map[string]any{"command": command}},
		}
	}

	_, joined := stats.Compute(withCommand([]any{"ab", "c"}))
	_, split := stats.Compute(withCommand([]any{"a", "bc"}))

	assert.NotEqual(t, joined, split)
}

func TestCompute_Counters(t *testing.T) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{
			"0": map[string]any{"command": "a", "status": map[string]any{"Queued": map[string]any{}}},
			"1": map[string]any{"command": "b", "status": map[string]any{"Running": map[string]any{}}},
			"2": map[string]any{"command": "c", "status": map[string]any{"Paused": map[string]any{}}},
			"3": doneTask("default", "Success", "", ""),
			"4": doneTask("default", "Failed", "", ""),
			"5": doneTask("default", "Killed", "", ""),
		},
	}

	derived, digest := stats.Compute(snapshot)

	require.Contains(t, derived.Groups, "default")
	entry := derived.Groups["default"]
	assert.Equal(t, uint64(6), entry.Total)
	assert.Equal(t, uint64(1), entry.Queued)
	assert.Equal(t, uint64(1), entry.Running)
	assert.Equal(t, uint64(1), entry.Paused)
	assert.Equal(t, uint64(3), entry.Done)
	assert.Equal(t, uint64(1), entry.Success)
	assert.Equal(t, uint64(2), entry.Failed)
	assert.Equal(t, []string{"4", "5"}, entry.FailedIDs)
	assert.Contains(t, digest, ":6")
}

func TestCompute_MissingGroupDefaults(t *testing.T) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{
			"0": map[string]any{"command": "echo hi"},
		},
	}

	derived, _ := stats.Compute(snapshot)

	require.Contains(t, derived.Groups, "default")
	assert.Equal(t, uint64(1), derived.Groups["default"].Total)
}

func TestCompute_DurationStatistics(t *testing.T) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{
			"0": doneTask("default", "Success", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00.1Z"),
			"1": doneTask("default", "Success", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00.2Z"),
			"2": doneTask("default", "Success", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00.3Z"),
		},
	}

	derived, _ := stats.Compute(snapshot)

	entry := derived.Groups["default"]
	require.NotNil(t, entry.AvgMs)
	require.NotNil(t, entry.StddevMs)
	assert.InDelta(t, 200, *entry.AvgMs, 0.001)
	assert.InDelta(t, 100, *entry.StddevMs, 0.001)
}

func TestCompute_SingleDurationSample(t *testing.T) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{
			"0": doneTask("default", "Success", "2024-01-01T00:00:00Z", "2024-01-01T00:00:01Z"),
		},
	}

	derived, _ := stats.Compute(snapshot)

	entry := derived.Groups["default"]
	require.NotNil(t, entry.AvgMs)
	assert.InDelta(t, 1000, *entry.AvgMs, 0.001)
	assert.Nil(t, entry.StddevMs)
}

func TestCompute_NoDurationSamples(t *testing.T) {
	snapshot := domain.Snapshot{
		"tasks": map[string]any{
			"0": doneTask("default", "Success", "", ""),
		},
	}

	derived, _ := stats.Compute(snapshot)

	entry := derived.Groups["default"]
	assert.Nil(t, entry.AvgMs)
	assert.Nil(t, entry.StddevMs)
}

func TestCompute_GroupOnlyChangeMovesDigest(t *testing.T) {
	withParallel := func(parallel float64) domain.Snapshot {
		return domain.Snapshot{
			"tasks": map[string]any{
				"0": map[string]any{"command": "echo hi", "group": "default"},
			},
			"groups": map[string]any{
				"default": map[string]any{"parallel_tasks": parallel, "status": "Running"},
			},
		}
	}

	_, first := stats.Compute(withParallel(1))
	_, second := stats.Compute(withParallel(4))

	assert.NotEqual(t, first, second)
}

func TestCompute_TaskIDOrderIsStringSorted(t *testing.T) {
	// "10" sorts before "2" as a string; both orders of map insertion must
	// produce the digest of the sorted walk.
	snapshot := domain.Snapshot{
		"tasks": map[string]any{
			"10": map[string]any{"command": "b"},
			"2":  map[string]any{"command": "a"},
		},
	}

	_, first := stats.Compute(snapshot)
	_, second := stats.Compute(snapshot)

	assert.Equal(t, first, second)
	assert.Contains(t, first, ":2")
}
