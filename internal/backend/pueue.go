package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
	"github.com/michaelfortunato/pueue-webui/internal/pueue"
	"github.com/michaelfortunato/pueue-webui/pkg/telemetry"
)

// wire is one dialed daemon connection, good for a single exchange.
type wire interface {
	Send(pueue.Request) error
	Receive() (pueue.Response, error)
	Close() error
}

type dialFunc func(ctx context.Context) (wire, error)

// PueueBackend talks to the daemon over its wire protocol and falls back to
// the local pueue CLI when the network path fails.
type PueueBackend struct {
	settings pueue.Settings
	dial     dialFunc
	cli      cliRunner
	gate     *fallbackGate
	logger   *slog.Logger
}

var _ Backend = (*PueueBackend)(nil)

// NewPueueBackend resolves the daemon settings (config file plus
// environment overrides) and builds the backend. Unless
// PUEUE_REQUIRE_CONFIG=0, a missing config file is fatal here: without one
// there is no daemon to talk to.
func NewPueueBackend(logger *slog.Logger) (*PueueBackend, error) {
	settings, found, err := pueue.ReadSettings(pueue.ConfigPathOverride())
	if err != nil {
		return nil, err
	}
	if requireConfig() && !found {
		return nil, &domain.ConfigError{
			Reason: "couldn't find a configuration file, did you start the daemon yet?",
		}
	}
	pueue.ApplyEnvOverrides(&settings)

	b := &PueueBackend{
		settings: settings,
		cli:      newPueueCLI(),
		gate:     newFallbackGate(logger),
		logger:   logger,
	}
	b.dial = func(ctx context.Context) (wire, error) {
		return pueue.Dial(ctx, b.settings.Shared)
	}
	return b, nil
}

func requireConfig() bool {
	value, ok := os.LookupEnv("PUEUE_REQUIRE_CONFIG")
	return !ok || value != "0"
}

// roundTrip opens a connection, performs one request/response exchange and
// closes it. No pooling: connection setup is paid per call, a deliberate
// simplicity-over-throughput tradeoff for UI-driven request volume.
func (b *PueueBackend) roundTrip(ctx context.Context, request pueue.Request) (pueue.Response, error) {
	start := time.Now()
	client, err := b.dial(ctx)
	if err != nil {
		return pueue.Response{}, err
	}
	defer func() { _ = client.Close() }()

	if err := client.Send(request); err != nil {
		return pueue.Response{}, err
	}
	response, err := client.Receive()
	if err != nil {
		return pueue.Response{}, err
	}
	telemetry.DaemonRoundTripSeconds.WithLabelValues(request.Name).Observe(time.Since(start).Seconds())
	return response, nil
}

// expectSuccess performs a round trip and unwraps a Success reply. Failure
// replies and unexpected shapes both surface as errors so the fallback gate
// can decide what to do with them.
func (b *PueueBackend) expectSuccess(ctx context.Context, request pueue.Request) (string, error) {
	response, err := b.roundTrip(ctx, request)
	if err != nil {
		return "", err
	}
	switch response.Name {
	case "Success":
		return response.Text(), nil
	case "Failure":
		return "", &domain.ProtocolError{Detail: response.Text()}
	default:
		return "", &domain.ProtocolError{Detail: fmt.Sprintf("got %s reply to %s", response.Name, request.Name)}
	}
}

// fetchStatus is the raw network status query, shared by Status and the
// restart read-before-write.
func (b *PueueBackend) fetchStatus(ctx context.Context) (domain.Snapshot, error) {
	response, err := b.roundTrip(ctx, pueue.StatusRequest())
	if err != nil {
		return nil, err
	}
	switch response.Name {
	case "Status":
		var snapshot domain.Snapshot
		if err := json.Unmarshal(response.Payload, &snapshot); err != nil {
			return nil, &domain.ProtocolError{Detail: fmt.Sprintf("decode status: %v", err)}
		}
		return snapshot, nil
	case "Failure":
		return nil, &domain.ProtocolError{Detail: response.Text()}
	default:
		return nil, &domain.ProtocolError{Detail: fmt.Sprintf("got %s reply to Status", response.Name)}
	}
}

func (b *PueueBackend) Status(ctx context.Context) (domain.Snapshot, error) {
	snapshot, err := b.fetchStatus(ctx)
	if err == nil {
		return snapshot, nil
	}
	if !b.gate.allows(err) {
		return nil, err
	}
	b.gate.activate("status", err)
	return b.cli.Status(ctx)
}

func (b *PueueBackend) Logs(ctx context.Context, taskID int, lines *int) (any, error) {
	view, err := b.fetchLogs(ctx, taskID, lines)
	if err == nil {
		return view, nil
	}
	if !b.gate.allows(err) {
		return nil, err
	}
	b.gate.activate("logs", err)
	return b.cli.Logs(ctx, taskID, lines)
}

func (b *PueueBackend) fetchLogs(ctx context.Context, taskID int, lines *int) (any, error) {
	response, err := b.roundTrip(ctx, pueue.LogRequest(taskID, lines))
	if err != nil {
		return nil, err
	}
	switch response.Name {
	case "Log":
		var entries map[string]pueue.TaskLogEntry
		if err := json.Unmarshal(response.Payload, &entries); err != nil {
			return nil, &domain.ProtocolError{Detail: fmt.Sprintf("decode logs: %v", err)}
		}
		entry, ok := entries[strconv.Itoa(taskID)]
		if !ok {
			return map[string]any{}, nil
		}
		view := domain.LogView{Task: entry.Task, OutputComplete: entry.OutputComplete}
		if entry.Output != nil {
			output := decodeLogOutput(*entry.Output)
			view.Output = &output
		}
		return view, nil
	case "Failure":
		return nil, &domain.ProtocolError{Detail: response.Text()}
	default:
		return nil, &domain.ProtocolError{Detail: fmt.Sprintf("got %s reply to Log", response.Name)}
	}
}

func (b *PueueBackend) Action(ctx context.Context, taskID int, action string) (any, error) {
	// Restart is the one read-before-write action: the daemon needs the
	// task's original command back. A failed state fetch aborts here, before
	// any restart is attempted.
	var snapshot domain.Snapshot
	if action == "restart" {
		var err error
		snapshot, err = b.fetchStatus(ctx)
		if err != nil {
			return nil, err
		}
	}

	request, err := mapActionRequest(action, taskID, snapshot)
	if err != nil {
		return nil, err
	}

	message, err := b.expectSuccess(ctx, request)
	if err == nil {
		return domain.Ack{Message: message}, nil
	}
	if !b.gate.allows(err) {
		return nil, err
	}
	b.gate.activate("action", err)
	return b.cli.Action(ctx, taskID, action)
}

// mapActionRequest translates a REST action name into a protocol request.
func mapActionRequest(action string, taskID int, snapshot domain.Snapshot) (pueue.Request, error) {
	switch action {
	case "start", "resume":
		return pueue.StartRequest(taskID), nil
	case "pause":
		return pueue.PauseRequest(taskID), nil
	case "kill":
		return pueue.KillRequest(taskID), nil
	case "remove":
		return pueue.RemoveRequest(taskID), nil
	case "restart":
		task, err := taskToRestart(taskID, snapshot)
		if err != nil {
			return pueue.Request{}, err
		}
		return pueue.RestartRequest(task), nil
	default:
		return pueue.Request{}, &domain.UnsupportedActionError{Action: action}
	}
}

// taskToRestart recovers the original command, path, label and priority of
// a task from a status snapshot.
func taskToRestart(taskID int, snapshot domain.Snapshot) (pueue.TaskToRestart, error) {
	tasks, _ := snapshot["tasks"].(map[string]any)
	record, _ := tasks[strconv.Itoa(taskID)].(map[string]any)
	if record == nil {
		return pueue.TaskToRestart{}, &domain.ProtocolError{Detail: fmt.Sprintf("task %d not found", taskID)}
	}

	task := pueue.TaskToRestart{TaskID: taskID}
	if command, ok := record["original_command"].(string); ok {
		task.OriginalCommand = command
	} else if command, ok := record["command"].(string); ok {
		task.OriginalCommand = command
	}
	if path, ok := record["path"].(string); ok {
		task.Path = path
	}
	if label, ok := record["label"].(string); ok {
		task.Label = &label
	}
	if priority, ok := record["priority"].(float64); ok {
		value := int(priority)
		task.Priority = &value
	}
	return task, nil
}

func (b *PueueBackend) AddTask(ctx context.Context, request domain.AddTaskRequest) (any, error) {
	if strings.TrimSpace(request.Command) == "" {
		return nil, &domain.ValidationError{Reason: "command is required"}
	}

	result, err := b.sendAddTask(ctx, request)
	if err == nil {
		return result, nil
	}
	if !b.gate.allows(err) {
		return nil, err
	}
	b.gate.activate("add", err)
	return b.cli.AddTask(ctx, request)
}

func (b *PueueBackend) sendAddTask(ctx context.Context, request domain.AddTaskRequest) (any, error) {
	group := domain.DefaultGroup
	if request.Group != nil {
		group = *request.Group
	}
	stashed := request.Stashed != nil && *request.Stashed
	startImmediately := !stashed
	if request.StartImmediately != nil {
		startImmediately = *request.StartImmediately
	}

	payload := pueue.AddPayload{
		Command:          request.Command,
		Path:             resolveTaskPath(request.Path),
		Envs:             map[string]string{},
		StartImmediately: startImmediately,
		Stashed:          stashed,
		Group:            group,
		Dependencies:     []int{},
		Priority:         request.Priority,
		Label:            request.Label,
	}

	response, err := b.roundTrip(ctx, pueue.AddRequest(payload))
	if err != nil {
		return nil, err
	}
	switch response.Name {
	case "AddedTask":
		var descriptor any
		if err := json.Unmarshal(response.Payload, &descriptor); err != nil {
			return nil, &domain.ProtocolError{Detail: fmt.Sprintf("decode added task: %v", err)}
		}
		return descriptor, nil
	case "Success":
		return domain.Ack{Message: response.Text()}, nil
	case "Failure":
		return nil, &domain.ProtocolError{Detail: response.Text()}
	default:
		return nil, &domain.ProtocolError{Detail: fmt.Sprintf("got %s reply to Add", response.Name)}
	}
}

// resolveTaskPath picks the task's working directory: request-supplied path,
// then PUEUE_DEFAULT_TASK_PATH, then the bridge's own working directory.
func resolveTaskPath(requested *string) string {
	if requested != nil && *requested != "" {
		return *requested
	}
	if path := os.Getenv("PUEUE_DEFAULT_TASK_PATH"); path != "" {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func (b *PueueBackend) GroupAction(ctx context.Context, request domain.GroupActionRequest) (any, error) {
	request.Name = strings.TrimSpace(request.Name)
	if request.Name == "" {
		return nil, &domain.ValidationError{Reason: "group name is required"}
	}
	if request.Name == domain.DefaultGroup && request.Action == "remove" {
		return nil, &domain.ValidationError{Reason: "default group cannot be removed"}
	}

	var protocolRequest pueue.Request
	switch request.Action {
	case "add":
		protocolRequest = pueue.GroupAddRequest(request.Name, request.ParallelTasks)
	case "remove":
		protocolRequest = pueue.GroupRemoveRequest(request.Name)
	case "list":
		protocolRequest = pueue.GroupListRequest()
	default:
		return nil, &domain.UnsupportedActionError{Action: request.Action}
	}

	message, err := b.expectSuccess(ctx, protocolRequest)
	if err == nil {
		return domain.Ack{Message: message}, nil
	}
	if !b.gate.allows(err) {
		return nil, err
	}
	b.gate.activate("group", err)
	return b.cli.GroupAction(ctx, request)
}

// decodeLogOutput decompresses a snappy-framed, base64-encoded log payload.
// Decode failures degrade to the raw text instead of failing the request:
// lossy-but-available output beats an error.
func decodeLogOutput(encoded string) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}
	decoded, err := io.ReadAll(snappy.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
