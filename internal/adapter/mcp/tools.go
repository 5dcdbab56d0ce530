package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/A2APipeline/internal/adapter/gamma"
)

const (
	defaultNumCards = 10
	maxNumCards     = 30
)

var (
	textModes = []string{"generate", "condense", "preserve"}
	formats   = []string{"presentation", "document", "webpage", "social"}
	exports   = []string{"pdf", "pptx"}
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.generateTool(),
		s.getStatusTool(),
		s.listThemesTool(),
	)
}

func (s *Server) generateTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("gamma_generate",
		mcplib.WithDescription("Generate a new presentation, document, or webpage using Gamma API"),
		mcplib.WithString("inputText",
			mcplib.Required(),
			mcplib.Description("Content to generate from. Can be a prompt, notes, or structured text."),
		),
		mcplib.WithString("textMode",
			mcplib.Enum(textModes...),
			mcplib.DefaultString("generate"),
			mcplib.Description("How to treat the input text: 'generate' (expand), 'condense' (summarize), or 'preserve' (keep as is)."),
		),
		mcplib.WithString("format",
			mcplib.Enum(formats...),
			mcplib.DefaultString("presentation"),
			mcplib.Description("Format of the output artifact."),
		),
		mcplib.WithNumber("numCards",
			mcplib.Min(1),
			mcplib.Max(maxNumCards),
			mcplib.DefaultNumber(defaultNumCards),
			mcplib.Description("Approximate number of cards/slides to generate."),
		),
		mcplib.WithString("exportAs",
			mcplib.Enum(exports...),
			mcplib.Description("If specified, exports the result to this format immediately."),
		),
		mcplib.WithString("additionalInstructions",
			mcplib.Description("Extra instructions for style, layout, or content."),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGenerate,
	}
}

func (s *Server) getStatusTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("gamma_get_status",
		mcplib.WithDescription("Get the status of a generation job and retrieve final URLs"),
		mcplib.WithString("generationId",
			mcplib.Required(),
			mcplib.Description("The ID of the generation job returned by gamma_generate"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetStatus,
	}
}

func (s *Server) listThemesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("gamma_list_themes",
		mcplib.WithDescription("List available themes"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListThemes,
	}
}

func (s *Server) handleGenerate(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Gamma == nil {
		return mcplib.NewToolResultError("gamma client not configured"), nil
	}
	args := req.GetArguments()

	body := gamma.GenerateRequest{
		InputText:              stringArg(args, "inputText", ""),
		TextMode:               stringArg(args, "textMode", "generate"),
		Format:                 stringArg(args, "format", "presentation"),
		NumCards:               intArg(args, "numCards", defaultNumCards),
		ExportAs:               stringArg(args, "exportAs", ""),
		AdditionalInstructions: stringArg(args, "additionalInstructions", ""),
	}
	switch {
	case body.InputText == "":
		return mcplib.NewToolResultError("inputText is required"), nil
	case !slices.Contains(textModes, body.TextMode):
		return mcplib.NewToolResultError(fmt.Sprintf("textMode must be one of %v", textModes)), nil
	case !slices.Contains(formats, body.Format):
		return mcplib.NewToolResultError(fmt.Sprintf("format must be one of %v", formats)), nil
	case body.NumCards < 1 || body.NumCards > maxNumCards:
		return mcplib.NewToolResultError(fmt.Sprintf("numCards must be between 1 and %d", maxNumCards)), nil
	case body.ExportAs != "" && !slices.Contains(exports, body.ExportAs):
		return mcplib.NewToolResultError(fmt.Sprintf("exportAs must be one of %v", exports)), nil
	}

	gen, err := s.deps.Gamma.Generate(ctx, body)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("gamma generate failed", err), nil
	}
	return rawResult(gen.Raw, gen)
}

func (s *Server) handleGetStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Gamma == nil {
		return mcplib.NewToolResultError("gamma client not configured"), nil
	}
	id := stringArg(req.GetArguments(), "generationId", "")
	if id == "" {
		return mcplib.NewToolResultError("generationId is required"), nil
	}
	gen, err := s.deps.Gamma.Status(ctx, id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get generation %s", id), err,
		), nil
	}
	return rawResult(gen.Raw, gen)
}

func (s *Server) handleListThemes(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Gamma == nil {
		return mcplib.NewToolResultError("gamma client not configured"), nil
	}
	themes, err := s.deps.Gamma.Themes(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list themes", err), nil
	}
	return rawResult(themes, nil)
}

// rawResult returns the upstream body indented, or v marshalled when the
// body is empty.
func rawResult(raw json.RawMessage, v any) (*mcplib.CallToolResult, error) {
	var data []byte
	var err error
	if len(raw) > 0 {
		var out any
		if err = json.Unmarshal(raw, &out); err == nil {
			data, err = json.MarshalIndent(out, "", "  ")
		}
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// intArg reads a JSON number argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}
