package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/model"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// toolInput copies the named arguments of a tool call into an operation
// input. Absent arguments stay absent so the validator applies its
// defaults.
func toolInput(request mcp.CallToolRequest, keys ...string) carrier.Input {
	args := request.GetArguments()
	in := carrier.Input{}
	for _, k := range keys {
		if v, ok := args[k]; ok {
			in[k] = v
		}
	}
	return in
}

// changeInput is toolInput for mutating tools, which always carry a source
// and may name the external actor.
func changeInput(request mcp.CallToolRequest, keys ...string) carrier.Input {
	in := toolInput(request, append(keys, "source", "discord_id")...)
	if _, ok := in["source"]; !ok {
		in["source"] = model.SourceOther
	}
	return in
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// operationError renders a failed carrier operation as a tool error with
// the same message and code an HTTP client would see.
func (s *MCPServer) operationError(err error) (*mcp.CallToolResult, error) {
	e, ok := apierr.As(err)
	if !ok {
		s.logger.Error("mcp tool failed", "error", err)
		e = apierr.Wrap(apierr.Internal, err)
	}
	return toolError("%s (error %d/%d, see %s)",
		s.catalog.Message(e.Code), e.Code.Kind.Status(), e.Code.Number, s.catalog.Reference(e.Code))
}

// clamp constrains val to [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
