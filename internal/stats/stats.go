// Package stats derives per-group aggregate statistics and a change
// detection digest from a daemon status snapshot.
package stats

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
)

// GroupStats is the derived entry for one group.
type GroupStats struct {
	Total     uint64   `json:"total"`
	Running   uint64   `json:"running"`
	Queued    uint64   `json:"queued"`
	Paused    uint64   `json:"paused"`
	Done      uint64   `json:"done"`
	Success   uint64   `json:"success"`
	Failed    uint64   `json:"failed"`
	FailedIDs []string `json:"failed_ids"`
	AvgMs     *float64 `json:"avg_ms"`
	StddevMs  *float64 `json:"stddev_ms"`
	Parallel  *int     `json:"parallel"`

	durations []float64
}

// Stats is the full derived document, shaped for the /status response.
type Stats struct {
	Groups map[string]*GroupStats `json:"groups"`
}

// Compute walks a snapshot and produces the group stats plus the digest.
//
// Tasks are visited in ascending string order of their ids so the digest is
// deterministic. Per task the id, command, label, path, priority and group
// are hashed in that fixed order; array-valued commands hash each element
// followed by a "|" separator. Group names, parallel limits and group
// status are hashed after the task loop so group-only changes still move
// the digest.
func Compute(snapshot domain.Snapshot) (Stats, string) {
	hash := newHasher()
	groups := map[string]*GroupStats{}

	groupRecords, _ := snapshot["groups"].(map[string]any)
	for name := range groupRecords {
		groups[name] = newGroupStats()
	}

	tasks, _ := snapshot["tasks"].(map[string]any)
	taskIDs := make([]string, 0, len(tasks))
	for id := range tasks {
		taskIDs = append(taskIDs, id)
	}
	sort.Strings(taskIDs)

	for _, id := range taskIDs {
		task, _ := tasks[id].(map[string]any)
		if task == nil {
			continue
		}
		hash.CountTask()
		hash.WriteString(id)

		groupName := domain.DefaultGroup
		if name, ok := task["group"].(string); ok {
			groupName = name
		}
		entry := groups[groupName]
		if entry == nil {
			entry = newGroupStats()
			groups[groupName] = entry
		}
		entry.Total++

		hashCommand(hash, task["command"])
		if label, ok := task["label"].(string); ok {
			hash.WriteString(label)
		}
		if path, ok := task["path"].(string); ok {
			hash.WriteString(path)
		}
		if priority, ok := task["priority"]; ok && priority != nil {
			hash.WriteString(formatJSONValue(priority))
		}
		if name, ok := task["group"].(string); ok {
			hash.WriteString(name)
		}

		tag, detail := statusTag(task["status"])
		if tag == "" {
			continue
		}
		hash.WriteString(tag)
		for _, field := range []string{"start", "end", "enqueued_at", "result"} {
			if text, ok := detail[field].(string); ok {
				hash.WriteString(text)
			}
		}

		switch tag {
		case "Running":
			entry.Running++
		case "Queued":
			entry.Queued++
		case "Paused":
			entry.Paused++
		case "Done":
			entry.Done++
			result := "Unknown"
			if text, ok := detail["result"].(string); ok {
				result = text
			}
			if result == "Success" {
				entry.Success++
			} else {
				entry.Failed++
				entry.FailedIDs = append(entry.FailedIDs, id)
			}
			if sample, ok := durationMs(detail); ok {
				entry.durations = append(entry.durations, sample)
			}
		}
	}

	for _, entry := range groups {
		entry.finalize()
	}

	groupNames := make([]string, 0, len(groupRecords))
	for name := range groupRecords {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		record, _ := groupRecords[name].(map[string]any)
		if record == nil {
			continue
		}
		hash.WriteString(name)
		if parallel, ok := record["parallel_tasks"]; ok && parallel != nil {
			hash.WriteString(formatJSONValue(parallel))
			if entry := groups[name]; entry != nil {
				if value, ok := asInt(parallel); ok {
					entry.Parallel = &value
				}
			}
		}
		if state, ok := record["status"].(string); ok {
			hash.WriteString(state)
		}
	}

	return Stats{Groups: groups}, hash.Digest()
}

func newGroupStats() *GroupStats {
	return &GroupStats{FailedIDs: []string{}}
}

// finalize computes avg_ms and the Bessel-corrected sample stddev from the
// collected duration samples.
func (g *GroupStats) finalize() {
	n := len(g.durations)
	if n == 0 {
		return
	}
	var sum float64
	for _, sample := range g.durations {
		sum += sample
	}
	avg := sum / float64(n)
	g.AvgMs = &avg

	if n > 1 {
		var variance float64
		for _, sample := range g.durations {
			variance += (sample - avg) * (sample - avg)
		}
		variance /= float64(n - 1)
		stddev := math.Sqrt(variance)
		g.StddevMs = &stddev
	}
}

// hashCommand feeds a string or array-of-strings command into the hasher.
// Array elements are each terminated with "|" so ["a","bc"] and ["ab","c"]
// digest differently.
func hashCommand(hash *hasher, command any) {
	switch value := command.(type) {
	case string:
		hash.WriteString(value)
	case []any:
		for _, item := range value {
			if text, ok := item.(string); ok {
				hash.WriteString(text)
				hash.WriteString("|")
			}
		}
	}
}

// statusTag extracts the variant name and detail object from a task status.
// The daemon encodes statuses as a single-key object ({"Done": {...}});
// bare string tags from older daemons are accepted too.
func statusTag(status any) (string, map[string]any) {
	switch value := status.(type) {
	case string:
		return value, nil
	case map[string]any:
		for tag, detail := range value {
			inner, _ := detail.(map[string]any)
			return tag, inner
		}
	}
	return "", nil
}

// durationMs computes end-start in milliseconds when both timestamps are
// present and parse as RFC 3339.
func durationMs(detail map[string]any) (float64, bool) {
	startText, ok := detail["start"].(string)
	if !ok {
		return 0, false
	}
	endText, ok := detail["end"].(string)
	if !ok {
		return 0, false
	}
	start, err := time.Parse(time.RFC3339, startText)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse(time.RFC3339, endText)
	if err != nil {
		return 0, false
	}
	return float64(end.Sub(start).Milliseconds()), true
}

// formatJSONValue renders a decoded JSON scalar the way it looked on the
// wire, so hashing is stable across decode round-trips.
func formatJSONValue(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func asInt(value any) (int, bool) {
	number, ok := value.(float64)
	if !ok {
		return 0, false
	}
	return int(number), true
}
