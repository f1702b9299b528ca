package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/app"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/handlers"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/logging"
)

type KairoMCPServer struct {
	server *server.MCPServer
	app    *app.App

	board  *handlers.BoardHandler
	agenda *handlers.AgendaHandler
	tasks  *handlers.TasksHandler
}

func NewKairoMCPServer(a *app.App) *KairoMCPServer {
	mcpServer := server.NewMCPServer(
		"KAIRO MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	kairoServer := &KairoMCPServer{
		server: mcpServer,
		app:    a,
		board:  handlers.NewBoardHandler(a.Deps, a.Session),
		agenda: handlers.NewAgendaHandler(a.Deps, a.Session),
		tasks:  handlers.NewTasksHandler(a.Deps, a.Session),
	}

	kairoServer.addTools()

	return kairoServer
}

func (s *KairoMCPServer) addTools() {

	boardTool := mcp.NewTool("kairo_board",
		mcp.WithDescription("Get the signed-in user's task board grouped by status"),
		mcp.WithString("query",
			mcp.Description("Optional: only tasks whose title or detail contains this text"),
		),
		mcp.WithString("status_filter",
			mcp.Description("Columns to include: 'all', 'active', 'pending', 'in-progress' or 'done' (default: all)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of tasks per column (default: 20, max: 100)"),
		),
	)
	s.server.AddTool(boardTool, s.handleBoard)

	agendaTool := mcp.NewTool("kairo_agenda",
		mcp.WithDescription("Bucket unfinished tasks by due date and rank the most urgent ones"),
		mcp.WithString("time_horizon",
			mcp.Description("Look-ahead window used for urgency: 'today', 'week' or 'month' (default: week)"),
		),
		mcp.WithBoolean("include_done",
			mcp.Description("Include completed tasks in their own bucket (default: false)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of tasks per bucket (default: 20, max: 100)"),
		),
	)
	s.server.AddTool(agendaTool, s.handleAgenda)

	createTool := mcp.NewTool("kairo_create_task",
		mcp.WithDescription("Create a task"),
		mcp.WithString("title",
			mcp.Description("Task title (max 50 characters)"),
			mcp.Required(),
		),
		mcp.WithString("detail",
			mcp.Description("Optional: task detail (max 500 characters)"),
		),
		mcp.WithString("date",
			mcp.Description("Due date in YYYY-MM-DD format"),
			mcp.Required(),
		),
		mcp.WithString("time",
			mcp.Description("Due time in HH:MM format"),
			mcp.Required(),
		),
		mcp.WithString("status",
			mcp.Description("'pending', 'in-progress' or 'done' (default: pending)"),
		),
	)
	s.server.AddTool(createTool, s.handleCreateTask)

	updateTool := mcp.NewTool("kairo_update_task",
		mcp.WithDescription("Update a task; only the given fields change"),
		mcp.WithString("id",
			mcp.Description("Task ID"),
			mcp.Required(),
		),
		mcp.WithString("title"),
		mcp.WithString("detail"),
		mcp.WithString("date",
			mcp.Description("Due date in YYYY-MM-DD format"),
		),
		mcp.WithString("time",
			mcp.Description("Due time in HH:MM format"),
		),
		mcp.WithString("status",
			mcp.Description("'pending', 'in-progress' or 'done'"),
		),
	)
	s.server.AddTool(updateTool, s.handleUpdateTask)

	deleteTool := mcp.NewTool("kairo_delete_task",
		mcp.WithDescription("Delete a task"),
		mcp.WithString("id",
			mcp.Description("Task ID"),
			mcp.Required(),
		),
	)
	s.server.AddTool(deleteTool, s.handleDeleteTask)
}

// copyArgs keeps only the named tool arguments.
func copyArgs(args map[string]interface{}, keys ...string) map[string]interface{} {
	params := make(map[string]interface{})
	for _, key := range keys {
		if val, ok := args[key]; ok && val != nil {
			params[key] = val
		}
	}
	return params
}

func (s *KairoMCPServer) result(ctx context.Context, tool string, response *handlers.MCPResponse, err error) (*mcp.CallToolResult, error) {
	logger := logging.WithRequestID(ctx, s.app.Logger).With(zap.String("tool", tool))
	if err != nil {
		logger.Warn("tool call failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err)), nil
	}
	logger.Debug("tool call completed")

	if len(response.Content) > 0 {
		return mcp.NewToolResultText(response.Content[0].Text), nil
	}

	return mcp.NewToolResultText("{}"), nil
}

func (s *KairoMCPServer) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := copyArgs(request.GetArguments(), "query", "status_filter", "limit")
	response, err := s.board.Handle(ctx, params)
	return s.result(ctx, "board", response, err)
}

func (s *KairoMCPServer) handleAgenda(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := copyArgs(request.GetArguments(), "time_horizon", "include_done", "limit")
	response, err := s.agenda.Handle(ctx, params)
	return s.result(ctx, "agenda", response, err)
}

func (s *KairoMCPServer) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := copyArgs(request.GetArguments(), "title", "detail", "date", "time", "status")
	response, err := s.tasks.Create(ctx, params)
	return s.result(ctx, "create task", response, err)
}

func (s *KairoMCPServer) handleUpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := copyArgs(request.GetArguments(), "id", "title", "detail", "date", "time", "status")
	response, err := s.tasks.Update(ctx, params)
	return s.result(ctx, "update task", response, err)
}

func (s *KairoMCPServer) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := copyArgs(request.GetArguments(), "id")
	response, err := s.tasks.Delete(ctx, params)
	return s.result(ctx, "delete task", response, err)
}

// tagRequest gives every HTTP tool call a request ID, reusing X-Request-ID
// when the caller sent one.
func (s *KairoMCPServer) tagRequest(ctx context.Context, r *http.Request) context.Context {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return logging.ContextWithRequestID(ctx, requestID)
}

func (s *KairoMCPServer) serve(transport string) error {
	switch transport {
	case "stdio":
		return server.ServeStdio(s.server)
	case "http":
		addr := s.app.Config.MCPAddr()
		httpServer := server.NewStreamableHTTPServer(s.server,
			server.WithHTTPContextFunc(s.tagRequest),
		)
		s.app.Logger.Info("HTTP server listening", zap.String("addr", addr))
		return httpServer.Start(addr)
	}
	return fmt.Errorf("invalid transport type: %s. Must be 'stdio' or 'http'", transport)
}
