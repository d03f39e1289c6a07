package domain

// Snapshot is the daemon's full state document as returned by its status
// query: a "tasks" map keyed by string-encoded task id and a "groups" map
// keyed by group name. It is kept untyped because the daemon's schema is
// version-dependent; consumers traverse it tolerantly.
type Snapshot = map[string]any

// AddTaskRequest is the JSON body for POST /tasks.
type AddTaskRequest struct {
	Command          string  `json:"command"`
	Group            *string `json:"group,omitempty"`
	StartImmediately *bool   `json:"start_immediately,omitempty"`
	Stashed          *bool   `json:"stashed,omitempty"`
	Priority         *int    `json:"priority,omitempty"`
	Label            *string `json:"label,omitempty"`
	Path             *string `json:"path,omitempty"`
}

// GroupActionRequest is the JSON body for POST /groups.
type GroupActionRequest struct {
	Action        string `json:"action"`
	Name          string `json:"name"`
	ParallelTasks *int   `json:"parallel_tasks,omitempty"`
}

// LogView is the normalized log payload for one task.
type LogView struct {
	Task           any     `json:"task"`
	Output         *string `json:"output"`
	OutputComplete bool    `json:"output_complete"`
}

// Ack wraps a daemon text response.
type Ack struct {
	Message string `json:"message"`
}

// DefaultGroup is the daemon's built-in group; it always exists and can
// never be removed.
const DefaultGroup = "default"

// TaskActions are the REST-level lifecycle action names the bridge accepts.
var TaskActions = []string{"start", "resume", "pause", "kill", "remove", "restart"}
