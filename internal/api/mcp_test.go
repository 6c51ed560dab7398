package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gotodobbs/assistant/internal/appointment"
	"github.com/gotodobbs/assistant/internal/faq"
	"github.com/gotodobbs/assistant/internal/router"
	"github.com/gotodobbs/assistant/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Router:       router.New(faq.MustDefault(), fakeGenerator{answer: "We can check that for you."}),
		Appointments: appointment.NewService(store),
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps, "test"); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_Ask(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"message": "I need to schedule an oil change",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var resp chatResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.IsSchedulingIntent || resp.Intent == nil || *resp.Intent != "schedule" {
		t.Errorf("response = %+v, want scheduling intent", resp)
	}
	if resp.Metadata["source"] != "faq" {
		t.Errorf("source = %v, want faq", resp.Metadata["source"])
	}
}

func TestMCPTool_Ask_MissingMessage(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing message")
	}
}

func TestMCPTool_SearchFAQ(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSearchFAQ(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("search_faq", map[string]interface{}{
		"query": "What are your hours?",
	}))
	if text := toolText(t, result); !strings.HasPrefix(text, "Q: What are your hours of operation?") {
		t.Errorf("text = %q", text)
	}

	result, _ = handler(context.Background(), makeCallToolRequest("search_faq", map[string]interface{}{
		"query": "xyzzy",
	}))
	if text := toolText(t, result); text != "no match" {
		t.Errorf("text = %q, want no match", text)
	}
}

func TestMCPTool_CreateAndListAppointments(t *testing.T) {
	deps, store := newTestMCPDeps(t)

	result, err := mcpCreateAppointment(deps)(context.Background(), makeCallToolRequest("create_appointment", map[string]interface{}{
		"name":          "Pat",
		"location":      "Kirkwood",
		"serviceType":   "Alignment",
		"preferredDate": "2026-11-02",
		"preferredTime": "10:00",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if n, _ := store.CountAppointments(); n != 1 {
		t.Fatalf("stored %d appointments, want 1", n)
	}

	result, _ = mcpListAppointments(deps)(context.Background(), makeCallToolRequest("list_appointments", map[string]interface{}{
		"limit": 5,
	}))
	var recs []appointment.Record
	if err := json.Unmarshal([]byte(toolText(t, result)), &recs); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(recs) != 1 || recs[0].ServiceType != "Alignment" {
		t.Errorf("recs = %+v", recs)
	}
}

func TestMCPTool_CreateAppointment_Invalid(t *testing.T) {
	deps, store := newTestMCPDeps(t)

	result, _ := mcpCreateAppointment(deps)(context.Background(), makeCallToolRequest("create_appointment", map[string]interface{}{
		"name": "Pat",
	}))
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(toolText(t, result), "phone is required") {
		t.Errorf("text = %q", toolText(t, result))
	}
	if n, _ := store.CountAppointments(); n != 0 {
		t.Errorf("stored %d appointments, want 0", n)
	}
}

func TestMCPResource_Catalog(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	contents, err := mcpResourceCatalog(deps)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "faq://catalog"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var entries []faq.Entry
	if err := json.Unmarshal([]byte(tc.Text), &entries); err != nil {
		t.Fatalf("parsing catalog: %v", err)
	}
	if len(entries) != faq.MustDefault().Len() {
		t.Errorf("entries = %d", len(entries))
	}
}
