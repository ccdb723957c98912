package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/isetdb/internal/command"
)

// Tool name constants.
const (
	ToolNameAdd    = "iset_add"
	ToolNameQuery  = "iset_query"
	ToolNameRemove = "iset_remove"
	ToolNameCard   = "iset_card"
)

// Tool descriptions.
const (
	addToolDescription    = "Add intervals with member values to an interval set key. Existing members are left untouched unless upsert is set."
	queryToolDescription  = "Find all intervals in a key that overlap the query range, in ascending interval order."
	removeToolDescription = "Remove members from an interval set key. The key is destroyed when its last member is removed."
	cardToolDescription   = "Return the number of members stored under an interval set key."
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyKey indicates the key parameter is empty.
	ErrEmptyKey = errors.New("key parameter is required and must not be empty")
	// ErrNoIntervals indicates the intervals list is empty.
	ErrNoIntervals = errors.New("intervals parameter must contain at least one entry")
	// ErrNoMembers indicates the members list is empty.
	ErrNoMembers = errors.New("members parameter must contain at least one entry")
)

// Input types (auto-generate JSON schemas via struct tags).

// IntervalInput is one interval triple inside an iset_add call.
type IntervalInput struct {
	Low    float64 `json:"low"    jsonschema:"inclusive lower bound of the interval"`
	High   float64 `json:"high"   jsonschema:"inclusive upper bound of the interval"`
	Member string  `json:"member" jsonschema:"member value stored with the interval"`
}

// AddInput is the input schema for the iset_add tool.
type AddInput struct {
	Key       string          `json:"key"              jsonschema:"interval set key to add into"`
	Intervals []IntervalInput `json:"intervals"        jsonschema:"intervals to add"`
	Upsert    bool            `json:"upsert,omitempty" jsonschema:"replace intervals of members that already exist"`
}

// QueryInput is the input schema for the iset_query tool.
type QueryInput struct {
	Key  string  `json:"key"  jsonschema:"interval set key to query"`
	Low  float64 `json:"low"  jsonschema:"inclusive lower bound of the query range"`
	High float64 `json:"high" jsonschema:"inclusive upper bound of the query range"`
}

// RemoveInput is the input schema for the iset_remove tool.
type RemoveInput struct {
	Key     string   `json:"key"     jsonschema:"interval set key to remove from"`
	Members []string `json:"members" jsonschema:"member values to remove"`
}

// CardInput is the input schema for the iset_card tool.
type CardInput struct {
	Key string `json:"key" jsonschema:"interval set key to count"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// formatScore renders a score the same way the textual protocol does.
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'g', -1, 64)
}

// handleAdd implements the iset_add tool via the IADD/IUPSERT commands.
func (s *Server) handleAdd(ctx context.Context, _ *mcpsdk.CallToolRequest, input AddInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Key == "" {
		return errorResult(ErrEmptyKey)
	}

	if len(input.Intervals) == 0 {
		return errorResult(ErrNoIntervals)
	}

	name := command.CmdIAdd
	if input.Upsert {
		name = command.CmdIUpsert
	}

	argv := make([]string, 0, 2+3*len(input.Intervals))
	argv = append(argv, name, input.Key)

	for _, interval := range input.Intervals {
		argv = append(argv, formatScore(interval.Low), formatScore(interval.High), interval.Member)
	}

	reply, err := s.dispatcher.Execute(ctx, argv)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string]any{
		"added": replyInt(reply),
	})
}

// queryRow is one overlap match in an iset_query result.
type queryRow struct {
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Member string  `json:"member"`
}

// handleQuery implements the iset_query tool via the IOVERLAP command.
func (s *Server) handleQuery(ctx context.Context, _ *mcpsdk.CallToolRequest, input QueryInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Key == "" {
		return errorResult(ErrEmptyKey)
	}

	reply, err := s.dispatcher.Execute(ctx, []string{
		command.CmdIOverlap, input.Key, formatScore(input.Low), formatScore(input.High),
	})
	if err != nil {
		return errorResult(err)
	}

	rows, ok := reply.(command.RowsReply)
	if !ok {
		return errorResult(fmt.Errorf("unexpected reply type %T", reply))
	}

	matches := make([]queryRow, 0, len(rows))
	for _, entry := range rows {
		matches = append(matches, queryRow{Low: entry.Low, High: entry.High, Member: entry.Member})
	}

	return jsonResult(map[string]any{
		"matches": matches,
	})
}

// handleRemove implements the iset_remove tool via the IREM command.
func (s *Server) handleRemove(ctx context.Context, _ *mcpsdk.CallToolRequest, input RemoveInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Key == "" {
		return errorResult(ErrEmptyKey)
	}

	if len(input.Members) == 0 {
		return errorResult(ErrNoMembers)
	}

	removed := 0

	for _, member := range input.Members {
		reply, err := s.dispatcher.Execute(ctx, []string{command.CmdIRem, input.Key, member})
		if err != nil {
			return errorResult(err)
		}

		if ok, isBool := reply.(command.BoolReply); isBool && bool(ok) {
			removed++
		}
	}

	return jsonResult(map[string]any{
		"removed": removed,
	})
}

// handleCard implements the iset_card tool via the ICARD command.
func (s *Server) handleCard(ctx context.Context, _ *mcpsdk.CallToolRequest, input CardInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Key == "" {
		return errorResult(ErrEmptyKey)
	}

	reply, err := s.dispatcher.Execute(ctx, []string{command.CmdICard, input.Key})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string]any{
		"cardinality": replyInt(reply),
	})
}

// replyInt extracts the integer from an IntReply, defaulting to zero.
func replyInt(reply command.Reply) int {
	if n, ok := reply.(command.IntReply); ok {
		return int(n)
	}

	return 0
}
