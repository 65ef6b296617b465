// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Quorum tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/moderation"
	"github.com/starford/quorum/internal/questions"
	"github.com/starford/quorum/internal/recommend"
)

// Deps are the services the tools read from.
type Deps struct {
	Questions  *questions.Service
	Moderation *moderation.Service
	Recommend  *recommend.Engine
	Ledger     *ledger.Recorder
}

// Server wraps the MCP server with Quorum tools.
type Server struct {
	mcp *server.MCPServer
	d   Deps
}

// New creates a new MCP server with all Quorum tools registered.
func New(d Deps, version string) *Server {
	s := &Server{d: d}

	s.mcp = server.NewMCPServer(
		"Quorum",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("recommend_questions",
		mcp.WithDescription("Recommend questions for a user based on the tags of questions they "+
			"viewed, upvoted, bookmarked or posted recently."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User to recommend for")),
		mcp.WithString("query", mcp.Description("Optional title or content filter")),
		mcp.WithNumber("skip", mcp.Description("Number of results to skip")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 10)")),
	), s.recommendQuestions)

	s.mcp.AddTool(mcp.NewTool("get_question",
		mcp.WithDescription("Get a question with its tags and counters."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Question ID")),
	), s.getQuestion)

	s.mcp.AddTool(mcp.NewTool("list_questions",
		mcp.WithDescription("List questions, newest first unless a filter is given."),
		mcp.WithString("query", mcp.Description("Optional title or content filter")),
		mcp.WithString("filter", mcp.Description("newest, unanswered or popular")),
		mcp.WithNumber("page", mcp.Description("Page number, from 1")),
	), s.listQuestions)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags with their usage counts."),
		mcp.WithString("query", mcp.Description("Optional name filter")),
		mcp.WithString("filter", mcp.Description("popular, name or recent")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_user",
		mcp.WithDescription("Get a user's reputation and moderation status."),
		mcp.WithString("id", mcp.Required(), mcp.Description("User ID")),
	), s.getUser)

	s.mcp.AddTool(mcp.NewTool("audit_reputation",
		mcp.WithDescription("Recompute a user's reputation from the interaction ledger and "+
			"compare it with the stored value."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User to audit")),
	), s.auditReputation)

	s.mcp.AddTool(mcp.NewTool("get_reputation_rules",
		mcp.WithDescription("Returns the reputation point table."),
	), s.getReputationRules)

	s.mcp.AddResource(
		mcp.NewResource(RulesURI, "Reputation Rules",
			mcp.WithResourceDescription("Points awarded per interaction to performer and author."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// jsonResult renders v, or err as a tool error. Internal failures are not
// exposed beyond their code.
func jsonResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		e := apperr.From(err)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", e.Code, e.Message)), nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) recommendQuestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)
	if limit <= 0 {
		limit = 10
	}
	res, err := s.d.Recommend.Recommend(ctx, userID, req.GetString("query", ""), req.GetInt("skip", 0), limit)
	return jsonResult(res, err)
}

func (s *Server) getQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.d.Questions.Get(ctx, id))
}

func (s *Server) listQuestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.d.Questions.List(ctx, questions.ListInput{
		Query:  req.GetString("query", ""),
		Filter: req.GetString("filter", ""),
		Page:   req.GetInt("page", 1),
	}))
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.d.Questions.ListTags(ctx, questions.ListInput{
		Query:  req.GetString("query", ""),
		Filter: req.GetString("filter", ""),
	}))
}

func (s *Server) getUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.d.Moderation.GetUser(ctx, id))
}

func (s *Server) auditReputation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.d.Ledger.Audit(ctx, userID))
}

func (s *Server) getReputationRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReputationRules()), nil
}

func (s *Server) readRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesURI,
			MIMEType: "text/markdown",
			Text:     ReputationRules(),
		},
	}, nil
}
