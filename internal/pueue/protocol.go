package pueue

import "encoding/json"

// Request is a message sent to the daemon. The wire form is externally
// tagged: unit requests serialize as a bare string ("Status"), requests
// with a body as a single-key object ({"Start": {...}}).
type Request struct {
	Name    string
	Payload any
}

func (r Request) MarshalJSON() ([]byte, error) {
	if r.Payload == nil {
		return json.Marshal(r.Name)
	}
	return json.Marshal(map[string]any{r.Name: r.Payload})
}

// TaskSelection addresses tasks by id. The daemon also supports group and
// "all" selections; the bridge only ever targets explicit ids.
type TaskSelection struct {
	TaskIDs []int `json:"TaskIds"`
}

// SelectTask builds a single-id selection.
func SelectTask(taskID int) TaskSelection {
	return TaskSelection{TaskIDs: []int{taskID}}
}

type StartPayload struct {
	Tasks TaskSelection `json:"tasks"`
}

type PausePayload struct {
	Tasks TaskSelection `json:"tasks"`
	Wait  bool          `json:"wait"`
}

type KillPayload struct {
	Tasks  TaskSelection `json:"tasks"`
	Signal *string       `json:"signal"`
}

type LogPayload struct {
	Tasks    TaskSelection `json:"tasks"`
	SendLogs bool          `json:"send_logs"`
	Lines    *int          `json:"lines"`
}

// TaskToRestart carries the fields the daemon needs to re-enqueue a task.
type TaskToRestart struct {
	TaskID          int     `json:"task_id"`
	OriginalCommand string  `json:"original_command"`
	Path            string  `json:"path"`
	Label           *string `json:"label"`
	Priority        *int    `json:"priority"`
}

type RestartPayload struct {
	Tasks            []TaskToRestart `json:"tasks"`
	StartImmediately bool            `json:"start_immediately"`
	Stashed          bool            `json:"stashed"`
}

type AddPayload struct {
	Command          string            `json:"command"`
	Path             string            `json:"path"`
	Envs             map[string]string `json:"envs"`
	StartImmediately bool              `json:"start_immediately"`
	Stashed          bool              `json:"stashed"`
	Group            string            `json:"group"`
	EnqueueAt        *string           `json:"enqueue_at"`
	Dependencies     []int             `json:"dependencies"`
	Priority         *int              `json:"priority"`
	Label            *string           `json:"label"`
}

type GroupAddPayload struct {
	Name          string `json:"name"`
	ParallelTasks *int   `json:"parallel_tasks"`
}

// Request constructors, one per daemon operation the bridge uses.

func StatusRequest() Request { return Request{Name: "Status"} }

func StartRequest(taskID int) Request {
	return Request{Name: "Start", Payload: StartPayload{Tasks: SelectTask(taskID)}}
}

func PauseRequest(taskID int) Request {
	return Request{Name: "Pause", Payload: PausePayload{Tasks: SelectTask(taskID), Wait: false}}
}

func KillRequest(taskID int) Request {
	return Request{Name: "Kill", Payload: KillPayload{Tasks: SelectTask(taskID)}}
}

func RemoveRequest(taskID int) Request {
	return Request{Name: "Remove", Payload: []int{taskID}}
}

func RestartRequest(task TaskToRestart) Request {
	return Request{Name: "Restart", Payload: RestartPayload{
		Tasks:            []TaskToRestart{task},
		StartImmediately: true,
		Stashed:          false,
	}}
}

func LogRequest(taskID int, lines *int) Request {
	return Request{Name: "Log", Payload: LogPayload{
		Tasks:    SelectTask(taskID),
		SendLogs: true,
		Lines:    lines,
	}}
}

func AddRequest(payload AddPayload) Request {
	return Request{Name: "Add", Payload: payload}
}

func GroupAddRequest(name string, parallelTasks *int) Request {
	return Request{Name: "Group", Payload: map[string]any{
		"Add": GroupAddPayload{Name: name, ParallelTasks: parallelTasks},
	}}
}

func GroupRemoveRequest(name string) Request {
	return Request{Name: "Group", Payload: map[string]any{"Remove": name}}
}

func GroupListRequest() Request {
	return Request{Name: "Group", Payload: "List"}
}

// Response is a daemon reply, externally tagged like requests: "Success",
// "Failure" and "Status" and so on, either a bare string or a single-key
// object.
type Response struct {
	Name    string
	Payload json.RawMessage
}

func (r *Response) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		r.Name = name
		r.Payload = nil
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return err
	}
	for name, payload := range tagged {
		r.Name = name
		r.Payload = payload
		break
	}
	return nil
}

// Text decodes the payload as a plain string, for Success/Failure replies.
func (r Response) Text() string {
	var text string
	if err := json.Unmarshal(r.Payload, &text); err != nil {
		return string(r.Payload)
	}
	return text
}

// TaskLogEntry is one task's slice of a Log response. Output carries the
// daemon's compressed log bytes, base64-encoded on the wire.
type TaskLogEntry struct {
	Task           any     `json:"task"`
	Output         *string `json:"output"`
	OutputComplete bool    `json:"output_complete"`
}
