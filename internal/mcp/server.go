// Package mcp exposes mnemo operations as MCP tools over stdio.
package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/mnemo/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"mnemo_convert": {
		def:     convertToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConvert },
	},
	"mnemo_regenerate": {
		def:     regenerateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRegenerate },
	},
	"mnemo_lock": {
		def:     lockToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLock },
	},
	"mnemo_select": {
		def:     selectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSelect },
	},
	"mnemo_override": {
		def:     overrideToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOverride },
	},
	"mnemo_session": {
		def:     sessionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSession },
	},
	"mnemo_lookup": {
		def:     lookupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLookup },
	},
	"mnemo_pin": {
		def:     pinToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePin },
	},
	"mnemo_digits": {
		def:     digitsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDigits },
	},
	"mnemo_alphabet": {
		def:     alphabetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAlphabet },
	},
	"mnemo_teach": {
		def:     teachToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTeach },
	},
	"mnemo_taught": {
		def:     taughtToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaught },
	},
	"mnemo_forget": {
		def:     forgetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleForget },
	},
	"mnemo_themes": {
		def:     themesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThemes },
	},
	"mnemo_theme_add": {
		def:     themeAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThemeAdd },
	},
	"mnemo_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"mnemo_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with mnemo tools registered.
// Tools listed in the app's DisabledTools are skipped.
func NewServer(app *ops.App, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mnemo",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(app)
	disabled := make(map[string]bool, len(app.Config.DisabledTools))
	for _, name := range app.Config.DisabledTools {
		disabled[name] = true
	}
	for _, name := range AllToolNames() {
		if disabled[name] {
			continue
		}
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves MCP over stdio until stdin closes.
func Run(app *ops.App, version string) error {
	return server.ServeStdio(NewServer(app, version))
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
