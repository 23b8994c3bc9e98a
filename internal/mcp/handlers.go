package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app *ops.App
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(app *ops.App) *Handlers {
	return &Handlers{app: app}
}

// Request types for each tool

// ConvertRequest represents the arguments for convert.
type ConvertRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"session_id,omitempty"`
}

// SessionRequest represents the arguments for regenerate and session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action,omitempty"`
}

// LockRequest represents the arguments for lock.
type LockRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

// SelectRequest represents the arguments for select.
type SelectRequest struct {
	SessionID string `json:"session_id"`
	Index     *int   `json:"index"`
	Candidate *int   `json:"candidate"`
}

// OverrideRequest represents the arguments for override.
type OverrideRequest struct {
	SessionID string `json:"session_id"`
	Index     *int   `json:"index"`
	Word      string `json:"word"`
}

// LookupRequest represents the arguments for lookup.
type LookupRequest struct {
	Input string `json:"input"`
}

// PinRequest represents the arguments for pin.
type PinRequest struct {
	Words     []string `json:"words,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Length    int      `json:"length,omitempty"`
	Theme     string   `json:"theme,omitempty"`
}

// DigitsRequest represents the arguments for digits.
type DigitsRequest struct {
	Words   []string `json:"words"`
	Explain bool     `json:"explain,omitempty"`
}

// WordRequest represents the arguments for teach and forget.
type WordRequest struct {
	Code string `json:"code"`
	Word string `json:"word"`
}

// ThemeRequest represents the arguments for themes and theme_add.
type ThemeRequest struct {
	Theme string   `json:"theme,omitempty"`
	Words []string `json:"words,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path          string `json:"path,omitempty"`
	IncludeGlobal bool   `json:"include_global,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path   string `json:"path"`
	Mode   string `json:"mode,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// Handler implementations

// HandleConvert handles the convert tool call.
func (h *Handlers) HandleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConvertRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Convert(ctx, ops.ConvertInput{SessionID: input.SessionID, Input: input.Input})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRegenerate handles the regenerate tool call.
func (h *Handlers) HandleRegenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Regenerate(ctx, ops.SessionInput{SessionID: input.SessionID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLock handles the lock tool call.
func (h *Handlers) HandleLock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LockRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	action := ops.LockAction(input.Action)
	var index int
	if action != ops.LockAll && action != ops.LockClearAll {
		if index, err = requireIndex(input.Index); err != nil {
			return errorResult(err), nil
		}
	}
	result, err := h.app.Lock(ctx, ops.LockInput{SessionID: input.SessionID, Action: action, Index: index})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSelect handles the select tool call.
func (h *Handlers) HandleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SelectRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	index, err := requireIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Candidate == nil {
		return errorResult(errors.NewInvalidRequest("candidate is required")), nil
	}
	result, err := h.app.Select(ctx, ops.SelectInput{SessionID: input.SessionID, Index: index, Candidate: *input.Candidate})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleOverride handles the override tool call.
func (h *Handlers) HandleOverride(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OverrideRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	index, err := requireIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Override(ctx, ops.OverrideInput{SessionID: input.SessionID, Index: index, Word: input.Word})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSession handles the session tool call.
func (h *Handlers) HandleSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	si := ops.SessionInput{SessionID: input.SessionID}

	var result *ops.SessionOutput
	switch input.Action {
	case "", "get":
		result, err = h.app.GetSession(ctx, si)
	case "reset":
		result, err = h.app.ResetSession(ctx, si)
	case "delete":
		if err := h.app.DeleteSession(ctx, si); err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{"id": input.SessionID, "deleted": true})
	default:
		err = errors.NewInvalidRequest("action must be one of: get, reset, delete")
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLookup handles the lookup tool call.
func (h *Handlers) HandleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LookupRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Lookup(ctx, input.Input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePin handles the pin tool call.
func (h *Handlers) HandlePin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PinRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Pin(ctx, ops.PinInput{
		Words:     input.Words,
		SessionID: input.SessionID,
		Length:    input.Length,
		Theme:     input.Theme,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDigits handles the digits tool call.
func (h *Handlers) HandleDigits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DigitsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Digits(ctx, input.Words, input.Explain)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAlphabet handles the alphabet tool call.
func (h *Handlers) HandleAlphabet(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"digits": h.app.Alphabet()})
}

// HandleTeach handles the teach tool call.
func (h *Handlers) HandleTeach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WordRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Teach(ctx, ops.TeachInput{Code: input.Code, Word: input.Word})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTaught handles the taught tool call.
func (h *Handlers) HandleTaught(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	words, err := h.app.ListTaught(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"items": words})
}

// HandleForget handles the forget tool call.
func (h *Handlers) HandleForget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WordRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.app.Forget(ctx, ops.TeachInput{Code: input.Code, Word: input.Word}); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"code": input.Code, "word": input.Word, "forgotten": true})
}

// HandleThemes handles the themes tool call.
func (h *Handlers) HandleThemes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ThemeRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Theme != "" {
		words, err := h.app.ThemeWords(ctx, input.Theme)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{"theme": input.Theme, "words": words})
	}
	themes, err := h.app.ListThemes(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"items": themes})
}

// HandleThemeAdd handles the theme_add tool call.
func (h *Handlers) HandleThemeAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ThemeRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.AddThemeWords(ctx, ops.AddThemeWordsInput{Theme: input.Theme, Words: input.Words})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Export(ctx, ops.ExportInput{Path: input.Path, IncludeGlobal: input.IncludeGlobal})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.app.Import(ctx, ops.ImportInput{
		Path:   input.Path,
		Mode:   ops.ImportMode(input.Mode),
		UserID: input.UserID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    errors.ErrInternal,
		"message": "an internal error occurred",
		"status":  500,
	}
	if me, ok := errors.As(err); ok && me.Code != errors.ErrInternal {
		errorObj["code"] = me.Code
		errorObj["message"] = me.Message
		errorObj["status"] = me.Status
		if me.Details != nil {
			errorObj["details"] = me.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
