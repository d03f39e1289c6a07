package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
)

// The argv-construction tests run "echo" as the pueue binary so the Ack
// message is exactly the argument vector the runner built.

func echoCLI(t *testing.T) *pueueCLI {
	t.Helper()
	t.Setenv("PUEUE_BIN", "echo")
	return newPueueCLI()
}

func TestPueueCLI_ActionMapsResumeToStart(t *testing.T) {
	cli := echoCLI(t)

	result, err := cli.Action(context.Background(), 3, "resume")
	require.NoError(t, err)
	assert.Equal(t, domain.Ack{Message: "start 3"}, result)
}

func TestPueueCLI_ActionPassesThrough(t *testing.T) {
	cli := echoCLI(t)

	result, err := cli.Action(context.Background(), 9, "kill")
	require.NoError(t, err)
	assert.Equal(t, domain.Ack{Message: "kill 9"}, result)
}

func TestPueueCLI_AddTaskArgs(t *testing.T) {
	cli := echoCLI(t)
	group := "build"
	label := "nightly"
	priority := 5
	path := "/srv/work"
	stashed := true
	start := false

	result, err := cli.AddTask(context.Background(), domain.AddTaskRequest{
		Command:          "make all",
		Group:            &group,
		Label:            &label,
		Priority:         &priority,
		Path:             &path,
		Stashed:          &stashed,
		StartImmediately: &start,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Ack{
		Message: "add make all --group build --label nightly --priority 5 --working-directory /srv/work --stashed --start-immediately false",
	}, result)
}

func TestPueueCLI_GroupArgs(t *testing.T) {
	cli := echoCLI(t)
	parallel := 4

	result, err := cli.GroupAction(context.Background(), domain.GroupActionRequest{
		Action:        "add",
		Name:          "build",
		ParallelTasks: &parallel,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Ack{Message: "group add build --parallel 4"}, result)

	result, err = cli.GroupAction(context.Background(), domain.GroupActionRequest{Action: "remove", Name: "build"})
	require.NoError(t, err)
	assert.Equal(t, domain.Ack{Message: "group remove build"}, result)

	result, err = cli.GroupAction(context.Background(), domain.GroupActionRequest{Action: "list"})
	require.NoError(t, err)
	assert.Equal(t, domain.Ack{Message: "group list"}, result)
}

func TestPueueCLI_GroupUnknownAction(t *testing.T) {
	cli := echoCLI(t)

	_, err := cli.GroupAction(context.Background(), domain.GroupActionRequest{Action: "rename", Name: "build"})
	var unsupported *domain.UnsupportedActionError
	require.ErrorAs(t, err, &unsupported)
}

func TestPueueCLI_NonZeroExit(t *testing.T) {
	t.Setenv("PUEUE_BIN", "false")
	cli := newPueueCLI()

	_, err := cli.Action(context.Background(), 1, "start")
	var fallback *domain.FallbackError
	require.ErrorAs(t, err, &fallback)
}

func TestPueueCLI_StatusRejectsNonJSON(t *testing.T) {
	cli := echoCLI(t)

	_, err := cli.Status(context.Background())
	var fallback *domain.FallbackError
	require.ErrorAs(t, err, &fallback)
}

func TestPueueCLI_DefaultBinary(t *testing.T) {
	t.Setenv("PUEUE_BIN", "")
	cli := newPueueCLI()
	assert.Equal(t, "pueue", cli.bin)
}

func TestCLIFallbackEnabled(t *testing.T) {
	t.Setenv("PUEUE_CLI_FALLBACK", "0")
	assert.False(t, cliFallbackEnabled())

	t.Setenv("PUEUE_CLI_FALLBACK", "1")
	assert.True(t, cliFallbackEnabled())
}
