package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/isetdb/internal/command"
	"github.com/Sumatoshi-tech/isetdb/pkg/store"
)

// runScript feeds a script through the REPL loop and returns its output.
func runScript(t *testing.T, script string) string {
	t.Helper()

	dispatcher := command.NewDispatcher(store.New())

	var out bytes.Buffer

	err := runRepl(context.Background(), dispatcher, strings.NewReader(script), &out)
	require.NoError(t, err)

	return out.String()
}

// TestRunRepl_AddAndQuery executes a session adding and querying intervals.
func TestRunRepl_AddAndQuery(t *testing.T) {
	t.Parallel()

	output := runScript(t, strings.Join([]string{
		"IADD sessions 1 5 x 3 8 y 7 10 z",
		"ICARD sessions",
		"IOVERLAP sessions 4 9",
		"quit",
	}, "\n"))

	assert.Contains(t, output, "3\n")
	assert.Contains(t, output, "MEMBER")
	assert.Contains(t, output, "3 matched")
}

// TestRunRepl_ErrorsKeepSessionAlive reports errors without terminating.
func TestRunRepl_ErrorsKeepSessionAlive(t *testing.T) {
	t.Parallel()

	output := runScript(t, strings.Join([]string{
		"BOGUS",
		"IADD k 1 nope m",
		"KEYS",
		"exit",
	}, "\n"))

	assert.Contains(t, output, "(error)")
	assert.Contains(t, output, "(empty)")
}

// TestRunRepl_BlankLinesIgnored skips empty input lines.
func TestRunRepl_BlankLinesIgnored(t *testing.T) {
	t.Parallel()

	output := runScript(t, "\n\nKEYS\n")

	assert.Contains(t, output, "(empty)")
}

// TestRunRepl_EOFExits terminates cleanly when input ends without a quit word.
func TestRunRepl_EOFExits(t *testing.T) {
	t.Parallel()

	dispatcher := command.NewDispatcher(store.New())

	var out bytes.Buffer

	err := runRepl(context.Background(), dispatcher, strings.NewReader(""), &out)
	require.NoError(t, err)
}

// TestRunRepl_ContextCancel stops the loop once the context is canceled.
func TestRunRepl_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatcher := command.NewDispatcher(store.New())

	var out bytes.Buffer

	err := runRepl(ctx, dispatcher, strings.NewReader("KEYS\n"), &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

// TestRenderReply_Table renders row replies as a bordered table.
func TestRenderReply_Table(t *testing.T) {
	t.Parallel()

	rows := command.RowsReply{
		{Low: 1, High: 5, Member: "x"},
		{Low: 3, High: 8, Member: "y"},
	}

	rendered := renderReply(rows)

	assert.Contains(t, rendered, "LOW")
	assert.Contains(t, rendered, "x")
	assert.Contains(t, rendered, "2 matched")
}

// TestRenderReply_Scalar falls back to the reply's own representation.
func TestRenderReply_Scalar(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7", renderReply(command.IntReply(7)))
	assert.Equal(t, "(empty)", renderReply(command.RowsReply{}))
}
