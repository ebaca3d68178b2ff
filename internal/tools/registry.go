package tools

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailsync/internal/config"
	"github.com/brandon/mailsync/internal/email"
	"github.com/brandon/mailsync/internal/store"
)

// Registry manages MCP tools
type Registry struct {
	deps  deps
	tools map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// deps are shared by every tool
type deps struct {
	config  *config.Config
	store   *store.Store
	manager *email.Manager
	logger  *logrus.Logger
}

// NewRegistry creates a new tool registry
func NewRegistry(cfg *config.Config, manager *email.Manager, st *store.Store, logger *logrus.Logger) *Registry {
	reg := &Registry{
		deps: deps{
			config:  cfg,
			store:   st,
			manager: manager,
			logger:  logger,
		},
		tools: make(map[string]Tool),
	}

	reg.registerTools()

	return reg
}

// registerTools registers all available tools
func (r *Registry) registerTools() {
	d := r.deps
	toolList := []Tool{
		&ListAccountsTool{d},
		&AddAccountTool{d},
		&UpdateAccountTool{d},
		&DeleteAccountTool{d},
		&ListFoldersTool{d},
		&RefreshFoldersTool{d},
		&ListMessagesTool{d},
		&GetMessageTool{d},
		&GetMessageByUIDTool{d},
		&ListThreadTool{d},
		&SetMessageFlagsTool{d},
		&SearchMessagesTool{d},
		&SyncFolderTool{d},
		&SyncAllFoldersTool{d},
		&SendMessageTool{d},
	}

	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.deps.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.deps.logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools ordered by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	tools := r.ListTools()
	definitions := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}
