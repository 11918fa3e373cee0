package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

// handleAsk runs one question through the engine.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(q) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	req := query.Request{
		Query:           q,
		Silo:            request.GetString("silo", ""),
		Archetype:       request.GetString("archetype", ""),
		Strict:          request.GetBool("strict", false),
		ExplicitUnified: request.GetBool("unified", false),
		Explain:         request.GetBool("explain", false),
		NResults:        request.GetInt("n_results", 0),
		NoColor:         true,
	}

	resp, err := s.engine.Ask(ctx, req)
	if err != nil {
		var pe *query.PolicyError
		if errors.As(err, &pe) {
			return mcp.NewToolResultError(pe.Message), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	text := resp.Answer
	if resp.Explain != nil {
		text += "\n\n" + resp.Explain.String()
	}
	return mcp.NewToolResultText(text), nil
}

// handleListSilos returns the registry with freshness.
func (s *Server) handleListSilos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	silos, err := s.engine.Silos()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing silos failed: %v", err)), nil
	}
	if len(silos) == 0 {
		return mcp.NewToolResultText("No silos indexed yet. Index a folder before asking questions."), nil
	}
	return mcp.NewToolResultText(formatSilos(silos)), nil
}

// formatSilos renders one silo per line for agent consumption.
func formatSilos(silos []query.SiloStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d silo(s):\n", len(silos)))
	for _, s := range silos {
		sb.WriteString(fmt.Sprintf("- %s (slug %s): %d files, %d chunks, %s", s.Name, s.Slug, s.FilesIndexed, s.ChunksCount, s.Path))
		if s.Stale {
			sb.WriteString(" [stale: " + s.StaleReason + "]")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
