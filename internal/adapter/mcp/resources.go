package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const themesURI = "gamma://themes"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			themesURI,
			"Gamma Themes",
			mcplib.WithResourceDescription("Themes available to Gamma generations"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleThemesResource,
	)
}

func (s *Server) handleThemesResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Gamma == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"gamma client not configured"}`,
			},
		}, nil
	}
	themes, err := s.deps.Gamma.Themes(ctx)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(themes),
		},
	}, nil
}
