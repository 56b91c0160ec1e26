package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/carrierd/carrierd/internal/carrier"
)

const (
	carriersURI      = "carrierd://carriers"
	carrierURIPrefix = "carrierd://carrier/"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// carrierd://carriers: every carrier readable by the configured key
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			carriersURI,
			"Fleet Carriers",
			mcp.WithResourceDescription(
				"All fleet carriers readable with the configured API key, "+
					"including location, docking access and services.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleCarriersResource,
	)

	// -------------------------------------------------------------------
	// carrierd://carrier/{id}: a single carrier (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			carrierURIPrefix+"{id}",
			"Fleet Carrier",
			mcp.WithTemplateDescription("The current state of one fleet carrier."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleCarrierResource,
	)
}

// handleCarriersResource returns the readable carriers as JSON.
func (s *MCPServer) handleCarriersResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	carriers, err := s.carriers.ListCarriers(ctx, s.cred)
	if err != nil {
		return nil, fmt.Errorf("failed to list carriers: %w", err)
	}
	return jsonContents(carriersURI, carriers)
}

// handleCarrierResource returns one carrier, addressed by the id in the URI.
func (s *MCPServer) handleCarrierResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	id := strings.TrimPrefix(uri, carrierURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid carrier URI %q: expected %s{id}", uri, carrierURIPrefix)
	}

	c, err := s.carriers.GetCarrier(ctx, s.cred, carrier.Input{"id": id})
	if err != nil {
		return nil, fmt.Errorf("carrier %q: %w", id, err)
	}
	return jsonContents(uri, c)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
