package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Small deterministic workload for the bench command test.
const (
	benchTestMembers = 500
	benchTestQueries = 50
)

// TestBenchCommand_ReportsPhases runs a small workload end to end.
func TestBenchCommand_ReportsPhases(t *testing.T) {
	t.Parallel()

	cmd := NewBenchCommand()

	var out bytes.Buffer

	cmd.SetOut(&out)

	err := runBench(cmd, benchTestMembers, benchTestQueries, benchSeed)
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "insert")
	assert.Contains(t, output, "overlap")
	assert.Contains(t, output, "hibernate")
	assert.Contains(t, output, "compressed to")
}

// TestBenchCommand_DeterministicMatches yields identical match counts for the
// same seed.
func TestBenchCommand_DeterministicMatches(t *testing.T) {
	t.Parallel()

	run := func() string {
		cmd := NewBenchCommand()

		var out bytes.Buffer

		cmd.SetOut(&out)
		require.NoError(t, runBench(cmd, benchTestMembers, benchTestQueries, benchSeed))

		return out.String()
	}

	first := run()
	second := run()

	assert.Contains(t, second, matchedLine(first))
}

// matchedLine extracts the "matched ..." line from bench output.
func matchedLine(output string) string {
	for _, line := range bytes.Split([]byte(output), []byte("\n")) {
		if bytes.HasPrefix(line, []byte("matched ")) {
			return string(line)
		}
	}

	return ""
}
