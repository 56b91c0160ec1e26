package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/carrierd/carrierd/internal/access"
	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// registerTools registers all carrier MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Discovery tools -----

	srv.AddTool(
		mcp.NewTool("carrier_list",
			mcp.WithDescription(
				"List every fleet carrier this API key may read, with location, "+
					"docking access and active services. Use this first to find carrier ids.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleList,
	)

	srv.AddTool(
		mcp.NewTool("carrier_get",
			mcp.WithDescription("Get one carrier by id or by callsign (e.g. \"K7Q-1HT\")."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("id", mcp.Description("Carrier id")),
			mcp.WithString("callsign", mcp.Description("Carrier callsign, used when id is omitted")),
		),
		s.handleGet,
	)

	srv.AddTool(
		mcp.NewTool("carrier_services",
			mcp.WithDescription(
				"List the carrier service catalogue. The names are the values "+
					"carrier_toggle_service accepts.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleServices,
	)

	srv.AddTool(
		mcp.NewTool("carrier_info",
			mcp.WithDescription("List the allowed values for docking access or carrier category."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("type",
				mcp.Required(),
				mcp.Enum(carrier.InfoDocking, carrier.InfoCategory),
				mcp.Description("Which choice list to return"),
			),
		),
		s.handleInfo,
	)

	srv.AddTool(
		mcp.NewTool("carrier_history",
			mcp.WithDescription("List the most recent audit entries for a carrier, newest first."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("id", mcp.Required(), mcp.Description("Carrier id")),
			mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20, max 200)")),
		),
		s.handleHistory,
	)

	// ----- Mutation tools -----

	srv.AddTool(
		mcp.NewTool("carrier_jump",
			mcp.WithDescription(
				"Record that a carrier jumped to a new system. The current location "+
					"becomes the previous one, so a single carrier_cancel_jump can undo it.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id", mcp.Required(), mcp.Description("Carrier id")),
			mcp.WithString("body", mcp.Required(), mcp.Description("Destination system or body")),
			sourceOption(),
			actorOption(),
		),
		s.handleJump,
	)

	srv.AddTool(
		mcp.NewTool("carrier_cancel_jump",
			mcp.WithDescription("Undo the last recorded jump, restoring the previous location."),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id", mcp.Required(), mcp.Description("Carrier id")),
			sourceOption(),
			actorOption(),
		),
		s.handleCancelJump,
	)

	srv.AddTool(
		mcp.NewTool("carrier_set_access",
			mcp.WithDescription("Set who may dock at a carrier and optionally whether notorious pilots may."),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id", mcp.Required(), mcp.Description("Carrier id")),
			mcp.WithString("access",
				mcp.Required(),
				mcp.Enum(model.ChoiceValues(model.DockingAccessChoices)...),
				mcp.Description("Docking access level"),
			),
			mcp.WithBoolean("notorious", mcp.Description("Allow notorious pilots to dock")),
			sourceOption(),
			actorOption(),
		),
		s.handleSetAccess,
	)

	srv.AddTool(
		mcp.NewTool("carrier_toggle_service",
			mcp.WithDescription(
				"Activate or deactivate a carrier service. Use carrier_services for valid names.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id", mcp.Required(), mcp.Description("Carrier id")),
			mcp.WithString("operation",
				mcp.Required(),
				mcp.Enum(carrier.OpActivate, carrier.OpDeactivate, carrier.OpResume, carrier.OpPause),
			),
			mcp.WithString("service", mcp.Required(), mcp.Description("Service name")),
			sourceOption(),
			actorOption(),
		),
		s.handleToggleService,
	)
}

func sourceOption() mcp.ToolOption {
	return mcp.WithString("source",
		mcp.Enum(model.Sources...),
		mcp.Description("Where the change originated (default other)"),
	)
}

func actorOption() mcp.ToolOption {
	return mcp.WithString("discord_id",
		mcp.Description("External user id of the person who requested the change"),
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

// handleList returns every carrier the credential may read.
func (s *MCPServer) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	carriers, err := s.carriers.ListCarriers(ctx, s.cred)
	if err != nil {
		return s.operationError(err)
	}
	return successJSON(carriers)
}

// handleGet returns one carrier by id or callsign.
func (s *MCPServer) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.carriers.GetCarrier(ctx, s.cred, toolInput(request, "id", "callsign"))
	if err != nil {
		return s.operationError(err)
	}
	return successJSON(c)
}

// handleServices returns the service catalogue.
func (s *MCPServer) handleServices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	services, err := s.carriers.ListServices(ctx, s.cred)
	if err != nil {
		return s.operationError(err)
	}
	return successJSON(services)
}

// handleInfo returns a choice list.
func (s *MCPServer) handleInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.carriers.CarrierInfo(ctx, toolInput(request, "type"))
	if err != nil {
		return s.operationError(err)
	}
	return successJSON(info)
}

// handleHistory returns recent audit entries of a readable carrier.
func (s *MCPServer) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return s.operationError(apierr.New(apierr.NoCarrierID))
	}
	if !access.CanRead(s.cred, id) {
		return s.operationError(apierr.New(apierr.CarrierNotAllowed))
	}
	entries, err := s.store.ListAuditEntries(ctx, model.AuditFilter{
		CarrierID: id,
		Limit:     clamp(request.GetInt("limit", defaultHistoryLimit), 1, maxHistoryLimit),
	})
	if err != nil {
		return s.operationError(err)
	}
	return successJSON(entries)
}

// handleJump records a jump.
func (s *MCPServer) handleJump(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := changeInput(request, "id", "body")
	in["type"] = carrier.TypeJump
	return s.message(s.carriers.JumpOrCancel(ctx, s.cred, in))
}

// handleCancelJump undoes the last jump.
func (s *MCPServer) handleCancelJump(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := changeInput(request, "id")
	in["type"] = carrier.TypeCancel
	return s.message(s.carriers.JumpOrCancel(ctx, s.cred, in))
}

// handleSetAccess changes docking access.
func (s *MCPServer) handleSetAccess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.message(s.carriers.SetPermission(ctx, s.cred, changeInput(request, "id", "access", "notorious")))
}

// handleToggleService activates or deactivates a service.
func (s *MCPServer) handleToggleService(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.message(s.carriers.ToggleService(ctx, s.cred, changeInput(request, "id", "operation", "service")))
}

// message reports a completed change with its success text and the
// carrier's new state.
func (s *MCPServer) message(res *carrier.Result, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return s.operationError(err)
	}
	return successJSON(map[string]interface{}{
		"success": s.catalog.Text(res.Message),
		"carrier": res.Carrier,
	})
}
