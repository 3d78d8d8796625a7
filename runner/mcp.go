package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/kit"
	"github.com/atelier9/svglens/settings"
)

// RegisterMCP registers the engine tools on an MCP server.
func (r *Runner) RegisterMCP(srv *mcp.Server) {
	r.registerEnhanceTool(srv)
	r.registerDetectTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- enhance ---

type enhanceReq struct {
	HTML     string            `json:"html"`
	Settings *settings.Overlay `json:"settings,omitempty"`
}

func (r *Runner) registerEnhanceTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "svglens_enhance",
		Description: "Detect SVG graphics in an HTML document and apply visual enhancements. Returns the enhanced HTML and a detection report.",
		InputSchema: inputSchema(map[string]any{
			"html":     map[string]any{"type": "string", "description": "HTML document to enhance"},
			"settings": map[string]any{"type": "object", "description": "Per-call settings overrides (merged over the stored settings)"},
		}, []string{"html"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		q := req.(*enhanceReq)
		doc, err := dom.ParseString(q.HTML)
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		snap := r.Snapshot()
		if q.Settings != nil {
			snap = settings.Merge(snap, *q.Settings)
			if err := snap.Validate(); err != nil {
				return nil, fmt.Errorf("settings: %w", err)
			}
		}
		report, err := r.EnhanceOnceWith(doc, snap)
		if err != nil {
			return nil, err
		}
		html, err := dom.RenderString(doc)
		if err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		return map[string]any{"html": html, "report": report}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var q enhanceReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &q}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- detect ---

type detectReq struct {
	HTML string `json:"html"`
}

func (r *Runner) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "svglens_detect",
		Description: "Detect SVG graphics in an HTML document without modifying it. Returns a detection report.",
		InputSchema: inputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "HTML document to scan"},
		}, []string{"html"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		q := req.(*detectReq)
		doc, err := dom.ParseString(q.HTML)
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		return r.DetectOnce(doc)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var q detectReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &q}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
