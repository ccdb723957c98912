package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/isetdb/internal/mcp"
)

// sessionTimeout bounds each in-memory MCP exchange.
const sessionTimeout = 10 * time.Second

// startSession connects an in-memory client to a fresh server and returns the
// session. Both ends are stopped via t.Cleanup.
func startSession(t *testing.T) *mcpsdk.ClientSession {
	t.Helper()

	srv := mcp.NewServer(mcp.ServerDeps{})

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

// callTool invokes one tool and requires transport-level success.
func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	return result
}

// resultText extracts the first text content block of a tool result.
func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestMCPServer_ToolsList(t *testing.T) {
	t.Parallel()

	session := startSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, toolsResult)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
	}

	assert.Contains(t, toolNames, "iset_add")
	assert.Contains(t, toolNames, "iset_query")
	assert.Contains(t, toolNames, "iset_remove")
	assert.Contains(t, toolNames, "iset_card")
	assert.Len(t, toolNames, 4)

	for _, tool := range toolsResult.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
}

func TestMCPServer_AddThenQuery(t *testing.T) {
	t.Parallel()

	session := startSession(t)

	addResult := callTool(t, session, "iset_add", map[string]any{
		"key": "sessions",
		"intervals": []map[string]any{
			{"low": 1, "high": 5, "member": "x"},
			{"low": 3, "high": 8, "member": "y"},
			{"low": 7, "high": 10, "member": "z"},
		},
	})
	assert.False(t, addResult.IsError)

	var addPayload struct {
		Added int `json:"added"`
	}

	require.NoError(t, json.Unmarshal([]byte(resultText(t, addResult)), &addPayload))
	assert.Equal(t, 3, addPayload.Added)

	queryResult := callTool(t, session, "iset_query", map[string]any{
		"key": "sessions",
		"low": 4, "high": 9,
	})
	assert.False(t, queryResult.IsError)

	var queryPayload struct {
		Matches []struct {
			Low    float64 `json:"low"`
			High   float64 `json:"high"`
			Member string  `json:"member"`
		} `json:"matches"`
	}

	require.NoError(t, json.Unmarshal([]byte(resultText(t, queryResult)), &queryPayload))
	require.Len(t, queryPayload.Matches, 3)
	assert.Equal(t, "x", queryPayload.Matches[0].Member)
	assert.Equal(t, "y", queryPayload.Matches[1].Member)
	assert.Equal(t, "z", queryPayload.Matches[2].Member)
}

func TestMCPServer_RemoveAndCard(t *testing.T) {
	t.Parallel()

	session := startSession(t)

	addResult := callTool(t, session, "iset_add", map[string]any{
		"key": "jobs",
		"intervals": []map[string]any{
			{"low": 0, "high": 1, "member": "a"},
			{"low": 2, "high": 3, "member": "b"},
		},
	})
	assert.False(t, addResult.IsError)

	removeResult := callTool(t, session, "iset_remove", map[string]any{
		"key":     "jobs",
		"members": []string{"a", "missing"},
	})
	assert.False(t, removeResult.IsError)

	var removePayload struct {
		Removed int `json:"removed"`
	}

	require.NoError(t, json.Unmarshal([]byte(resultText(t, removeResult)), &removePayload))
	assert.Equal(t, 1, removePayload.Removed)

	cardResult := callTool(t, session, "iset_card", map[string]any{"key": "jobs"})
	assert.False(t, cardResult.IsError)

	var cardPayload struct {
		Cardinality int `json:"cardinality"`
	}

	require.NoError(t, json.Unmarshal([]byte(resultText(t, cardResult)), &cardPayload))
	assert.Equal(t, 1, cardPayload.Cardinality)
}

func TestMCPServer_ValidationErrors(t *testing.T) {
	t.Parallel()

	session := startSession(t)

	emptyKey := callTool(t, session, "iset_card", map[string]any{"key": ""})
	assert.True(t, emptyKey.IsError)

	noIntervals := callTool(t, session, "iset_add", map[string]any{
		"key":       "k",
		"intervals": []map[string]any{},
	})
	assert.True(t, noIntervals.IsError)

	noMembers := callTool(t, session, "iset_remove", map[string]any{
		"key":     "k",
		"members": []string{},
	})
	assert.True(t, noMembers.IsError)
}

func TestMCPServer_ListToolNames(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	assert.Equal(t, []string{"iset_add", "iset_card", "iset_query", "iset_remove"}, srv.ListToolNames())
}
