package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
)

// cliRunner shells out to the pueue command-line client and normalizes its
// output into the same JSON shapes the network path produces.
type cliRunner interface {
	Status(ctx context.Context) (domain.Snapshot, error)
	Logs(ctx context.Context, taskID int, lines *int) (any, error)
	Action(ctx context.Context, taskID int, action string) (any, error)
	AddTask(ctx context.Context, request domain.AddTaskRequest) (any, error)
	GroupAction(ctx context.Context, request domain.GroupActionRequest) (any, error)
}

type pueueCLI struct {
	bin string
}

// newPueueCLI resolves the executable name from PUEUE_BIN, defaulting to
// "pueue".
func newPueueCLI() *pueueCLI {
	bin := os.Getenv("PUEUE_BIN")
	if bin == "" {
		bin = "pueue"
	}
	return &pueueCLI{bin: bin}
}

// run executes the binary and returns trimmed stdout. A non-zero exit
// becomes a FallbackError carrying trimmed stderr.
func (c *pueueCLI) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		return "", &domain.FallbackError{Stderr: message}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (c *pueueCLI) runJSON(ctx context.Context, args ...string) (any, error) {
	stdout, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal([]byte(stdout), &value); err != nil {
		return nil, &domain.FallbackError{Stderr: fmt.Sprintf("unparseable %s output: %v", c.bin, err)}
	}
	return value, nil
}

func (c *pueueCLI) Status(ctx context.Context) (domain.Snapshot, error) {
	value, err := c.runJSON(ctx, "status", "--json")
	if err != nil {
		return nil, err
	}
	snapshot, ok := value.(map[string]any)
	if !ok {
		return nil, &domain.FallbackError{Stderr: "status output is not a JSON object"}
	}
	return snapshot, nil
}

func (c *pueueCLI) Logs(ctx context.Context, taskID int, lines *int) (any, error) {
	args := []string{"log", "--json"}
	if lines != nil {
		args = append(args, "--lines", strconv.Itoa(*lines))
	}
	args = append(args, strconv.Itoa(taskID))
	return c.runJSON(ctx, args...)
}

func (c *pueueCLI) Action(ctx context.Context, taskID int, action string) (any, error) {
	// The CLI has no "resume"; starting a paused task resumes it.
	command := action
	if command == "resume" {
		command = "start"
	}
	stdout, err := c.run(ctx, command, strconv.Itoa(taskID))
	if err != nil {
		return nil, err
	}
	return domain.Ack{Message: stdout}, nil
}

func (c *pueueCLI) AddTask(ctx context.Context, request domain.AddTaskRequest) (any, error) {
	args := []string{"add", request.Command}
	if request.Group != nil {
		args = append(args, "--group", *request.Group)
	}
	if request.Label != nil {
		args = append(args, "--label", *request.Label)
	}
	if request.Priority != nil {
		args = append(args, "--priority", strconv.Itoa(*request.Priority))
	}
	if request.Path != nil {
		args = append(args, "--working-directory", *request.Path)
	}
	if request.Stashed != nil && *request.Stashed {
		args = append(args, "--stashed")
	}
	if request.StartImmediately != nil && !*request.StartImmediately {
		args = append(args, "--start-immediately", "false")
	}
	stdout, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return domain.Ack{Message: stdout}, nil
}

func (c *pueueCLI) GroupAction(ctx context.Context, request domain.GroupActionRequest) (any, error) {
	args := []string{"group"}
	switch request.Action {
	case "add":
		args = append(args, "add", request.Name)
		if request.ParallelTasks != nil {
			args = append(args, "--parallel", strconv.Itoa(*request.ParallelTasks))
		}
	case "remove":
		args = append(args, "remove", request.Name)
	case "list":
		args = append(args, "list")
	default:
		return nil, &domain.UnsupportedActionError{Action: request.Action}
	}
	stdout, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return domain.Ack{Message: stdout}, nil
}
