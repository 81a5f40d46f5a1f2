// Package mcpserver provides an MCP server exposing the encrypted task
// store over stdio JSON-RPC (Model Context Protocol).
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// addTaskTool returns a tool definition for creating a task.
func addTaskTool() mcp.Tool {
	return mcp.NewTool("add_task",
		mcp.WithDescription("Add a new task to the encrypted task store. The task is assigned the next id and starts in the 'not done' status."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title (must be non-empty)")),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Task description (must be non-empty)")),
	)
}

// listTasksTool returns a tool definition for listing all tasks.
func listTasksTool() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List all tasks in the store as a JSON array, in insertion order."),
	)
}

// updateStatusTool returns a tool definition for changing a task's status.
func updateStatusTool() mcp.Tool {
	return mcp.NewTool("update_status",
		mcp.WithDescription("Update the status of an existing task."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Task id")),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("New status: 'not done', 'in progress' or 'done'")),
	)
}

// updateTitleTool returns a tool definition for changing a task's title.
func updateTitleTool() mcp.Tool {
	return mcp.NewTool("update_title",
		mcp.WithDescription("Update the title of an existing task."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Task id")),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("New title (must be non-empty)")),
	)
}

// updateDescriptionTool returns a tool definition for changing a task's
// description.
func updateDescriptionTool() mcp.Tool {
	return mcp.NewTool("update_description",
		mcp.WithDescription("Update the description of an existing task."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Task id")),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("New description (must be non-empty)")),
	)
}
