package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskvault/taskvault/internal/tasks"
)

// NewServer creates and configures a new MCP server with all task tools
// registered against the given task service.
func NewServer(svc *tasks.Service) *server.MCPServer {
	m := NewTaskManager(svc)

	s := server.NewMCPServer(
		"taskvault",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(addTaskTool(), m.HandleAddTask)
	s.AddTool(listTasksTool(), m.HandleListTasks)
	s.AddTool(updateStatusTool(), m.HandleUpdateStatus)
	s.AddTool(updateTitleTool(), m.HandleUpdateTitle)
	s.AddTool(updateDescriptionTool(), m.HandleUpdateDescription)

	return s
}
