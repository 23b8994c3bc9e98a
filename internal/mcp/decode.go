package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/mnemo/internal/errors"
)

// decode unmarshals MCP request arguments into a typed struct.
// Malformed arguments are reported as INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("marshal args: %v", err))
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("invalid arguments: %v", err))
	}
	return result, nil
}

// requireIndex dereferences a slot index argument.
func requireIndex(index *int) (int, error) {
	if index == nil {
		return 0, errors.NewInvalidRequest("index is required")
	}
	return *index, nil
}
