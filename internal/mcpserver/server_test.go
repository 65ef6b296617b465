package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/moderation"
	"github.com/starford/quorum/internal/questions"
	"github.com/starford/quorum/internal/recommend"
	"github.com/starford/quorum/internal/store"
	"github.com/starford/quorum/internal/testutil"
)

func testServer(t *testing.T) (*Server, *store.Store, Deps) {
	t.Helper()

	st := testutil.StoreWithUsers(t, "alice", "bob")
	log := testutil.Logger()
	rec := ledger.NewRecorder(st)
	d := Deps{
		Questions:  questions.NewService(st, ledger.Inline{Recorder: rec}, nil, log),
		Moderation: moderation.NewService(st, nil, log),
		Recommend:  recommend.New(st, rec),
		Ledger:     rec,
	}
	return New(d, "test"), st, d
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "recommend_questions":
		result, err = srv.recommendQuestions(ctx, req)
	case "get_question":
		result, err = srv.getQuestion(ctx, req)
	case "list_questions":
		result, err = srv.listQuestions(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "get_user":
		result, err = srv.getUser(ctx, req)
	case "audit_reputation":
		result, err = srv.auditReputation(ctx, req)
	case "get_reputation_rules":
		result, err = srv.getReputationRules(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetQuestion(t *testing.T) {
	srv, st, _ := testServer(t)
	q := testutil.Question(t, st, "alice", "What is a goroutine?", "go")

	r := callTool(t, srv, "get_question", map[string]interface{}{"id": q.ID})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var got struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Title != "What is a goroutine?" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestGetQuestionMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_question", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Fatal("expected error for missing question")
	}
	if !strings.HasPrefix(resultText(r), "NOT_FOUND") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestListQuestionsAndTags(t *testing.T) {
	srv, st, _ := testServer(t)
	testutil.Question(t, st, "alice", "Channels explained", "go")
	testutil.Question(t, st, "bob", "Lifetimes explained", "rust")

	r := callTool(t, srv, "list_questions", map[string]interface{}{"query": "Lifetimes"})
	var page questions.Page
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 {
		t.Errorf("total = %d, want 1", page.Total)
	}

	r = callTool(t, srv, "list_tags", map[string]interface{}{"filter": "name"})
	var tags questions.TagPage
	if err := json.Unmarshal([]byte(resultText(r)), &tags); err != nil {
		t.Fatal(err)
	}
	if len(tags.Tags) != 2 || tags.Tags[0].Name != "go" {
		t.Errorf("tags = %+v", tags.Tags)
	}

	r = callTool(t, srv, "list_questions", map[string]interface{}{"filter": "loudest"})
	if !r.IsError {
		t.Error("expected validation error for unknown filter")
	}
}

func TestRecommendQuestions(t *testing.T) {
	srv, st, d := testServer(t)
	goQ := testutil.Question(t, st, "alice", "Go generics", "go")
	testutil.Question(t, st, "alice", "Go modules", "go")
	testutil.Question(t, st, "alice", "Rust traits", "rust")

	if _, err := d.Questions.IncrementViews(context.Background(), &auth.Principal{UserID: "bob"}, goQ.ID); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "recommend_questions", map[string]interface{}{"user_id": "bob", "limit": float64(5)})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var res recommend.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Questions) != 1 || res.Questions[0].Title != "Go modules" {
		t.Fatalf("recommended %+v, want only the unseen go question", res.Questions)
	}

	r = callTool(t, srv, "recommend_questions", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without user_id")
	}
}

func TestGetUserAndAudit(t *testing.T) {
	srv, st, _ := testServer(t)
	testutil.Question(t, st, "alice", "Audited question", "go")

	r := callTool(t, srv, "get_user", map[string]interface{}{"id": "alice"})
	if !strings.Contains(resultText(r), `"status": "active"`) {
		t.Errorf("get_user = %s", resultText(r))
	}

	r = callTool(t, srv, "audit_reputation", map[string]interface{}{"user_id": "alice"})
	var res ledger.AuditResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Consistent {
		t.Errorf("audit = %+v", res)
	}
}

func TestReputationRules(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_reputation_rules", nil))
	for _, row := range []string{
		"| upvote | question | +2 | +10 |",
		"| downvote | answer | -1 | -2 |",
		"| post | answer | +0 | +10 |",
		"| delete | question | +0 | -5 |",
		"| retract_upvote | question | -2 | -10 |",
		"| retract_downvote | answer | +1 | +2 |",
	} {
		if !strings.Contains(text, row) {
			t.Errorf("rules missing row %q", row)
		}
	}
}
