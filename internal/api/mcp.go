package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gotodobbs/assistant/internal/appointment"
	"github.com/gotodobbs/assistant/internal/faq"
	"github.com/gotodobbs/assistant/internal/router"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Router       *router.Router
	Appointments *appointment.Service
	Threshold    float64
}

// NewMCPServer creates an MCP server exposing the assistant's tools and the
// FAQ catalog.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"dobbs",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Dobbs Tire & Auto customer assistant: answer service questions and take appointment requests."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a customer message the way the chat widget does. Returns the chat response JSON."),
			mcp.WithString("message", mcp.Description("Customer message"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("search_faq",
			mcp.WithDescription("Find the FAQ entry that best matches a question, without calling the language model."),
			mcp.WithString("query", mcp.Description("Question to match"), mcp.Required()),
		),
		mcpSearchFAQ(deps),
	)

	s.AddTool(
		mcp.NewTool("create_appointment",
			mcp.WithDescription("Record an appointment request. Needs a name plus a phone number, or location, service, date and time."),
			mcp.WithString("name", mcp.Description("Customer name"), mcp.Required()),
			mcp.WithString("phone", mcp.Description("Phone number")),
			mcp.WithString("email", mcp.Description("Email address")),
			mcp.WithString("location", mcp.Description("Preferred Dobbs location")),
			mcp.WithString("serviceType", mcp.Description("Requested service")),
			mcp.WithString("preferredDate", mcp.Description("Preferred date")),
			mcp.WithString("preferredTime", mcp.Description("Preferred time")),
			mcp.WithString("vehicleMake", mcp.Description("Vehicle make")),
			mcp.WithString("vehicleModel", mcp.Description("Vehicle model")),
			mcp.WithString("vehicleYear", mcp.Description("Vehicle year")),
			mcp.WithString("notes", mcp.Description("Anything else the shop should know")),
		),
		mcpCreateAppointment(deps),
	)

	s.AddTool(
		mcp.NewTool("list_appointments",
			mcp.WithDescription("List recent appointment requests, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpListAppointments(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"faq://catalog",
			"FAQ Catalog",
			mcp.WithResourceDescription("Every FAQ entry with its keywords, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || message == "" {
			return mcpError("message is required"), nil
		}
		b, err := json.Marshal(newChatResponse(deps.Router.Route(ctx, message)))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchFAQ(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		threshold := deps.Threshold
		if threshold <= 0 {
			threshold = faq.DefaultThreshold
		}
		e, ok := deps.Router.Catalog().Match(query, threshold)
		if !ok {
			return mcpText("no match"), nil
		}
		return mcpText(fmt.Sprintf("Q: %s\nA: %s", e.Question, e.Answer)), nil
	}
}

func mcpCreateAppointment(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec, err := deps.Appointments.Create(appointment.Request{
			Name:          req.GetString("name", ""),
			Phone:         req.GetString("phone", ""),
			Email:         req.GetString("email", ""),
			Location:      req.GetString("location", ""),
			ServiceType:   req.GetString("serviceType", ""),
			PreferredDate: req.GetString("preferredDate", ""),
			PreferredTime: req.GetString("preferredTime", ""),
			VehicleMake:   req.GetString("vehicleMake", ""),
			VehicleModel:  req.GetString("vehicleModel", ""),
			VehicleYear:   req.GetString("vehicleYear", ""),
			Notes:         req.GetString("notes", ""),
		})
		if errors.Is(err, appointment.ErrInvalid) {
			return mcpError(err.Error()), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save appointment: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored appointment %s", rec.ID)), nil
	}
}

func mcpListAppointments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		recs, err := deps.Appointments.List(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing failed: %v", err)), nil
		}
		b, err := json.Marshal(recs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceCatalog(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Router.Catalog().Entries())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
