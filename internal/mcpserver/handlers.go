package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskvault/taskvault/internal/storage"
	"github.com/taskvault/taskvault/internal/tasks"
)

// TaskManager adapts the task service to MCP tool handlers.
type TaskManager struct {
	svc *tasks.Service
}

// NewTaskManager creates a TaskManager over the given task service.
func NewTaskManager(svc *tasks.Service) *TaskManager {
	return &TaskManager{svc: svc}
}

// taskID extracts and validates the integer "id" argument. MCP numbers
// arrive as float64; non-integral or out-of-range values are rejected
// rather than truncated.
func taskID(request mcp.CallToolRequest) (int, error) {
	args := request.GetArguments()
	raw, ok := args["id"].(float64)
	if !ok {
		return 0, fmt.Errorf("missing or non-numeric parameter: id")
	}
	if raw != math.Trunc(raw) || raw < 1 || raw > math.MaxInt32 {
		return 0, fmt.Errorf("invalid task id: %v", raw)
	}
	return int(raw), nil
}

// HandleAddTask creates a new task.
// Parameters:
//   - title (string, required)
//   - description (string, required)
//
// Returns the created task's id and title, or an error result.
func (m *TaskManager) HandleAddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := request.GetString("title", "")
	description := request.GetString("description", "")

	task, err := m.svc.Add(title, description)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add task: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added task %d: %s", task.ID, task.Title)), nil
}

// HandleListTasks returns all tasks as a JSON array.
func (m *TaskManager) HandleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := m.svc.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load tasks: %v", err)), nil
	}

	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode tasks: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

// HandleUpdateStatus changes a task's status.
// Parameters:
//   - id (number, required)
//   - status (string, required): "not done", "in progress" or "done"
func (m *TaskManager) HandleUpdateStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := taskID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status := storage.Status(request.GetString("status", ""))
	if err := m.svc.SetStatus(id, status); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update status: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Task %d status updated to %q", id, status)), nil
}

// HandleUpdateTitle changes a task's title.
// Parameters:
//   - id (number, required)
//   - title (string, required)
func (m *TaskManager) HandleUpdateTitle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := taskID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	title := request.GetString("title", "")
	if err := m.svc.SetTitle(id, title); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update title: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Task %d title updated", id)), nil
}

// HandleUpdateDescription changes a task's description.
// Parameters:
//   - id (number, required)
//   - description (string, required)
func (m *TaskManager) HandleUpdateDescription(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := taskID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	description := request.GetString("description", "")
	if err := m.svc.SetDescription(id, description); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update description: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Task %d description updated", id)), nil
}
