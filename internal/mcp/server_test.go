package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

type fakeEngine struct {
	AskFn    func(ctx context.Context, req query.Request) (*query.Response, error)
	silos    []query.SiloStatus
	silosErr error
	last     query.Request
}

func (f *fakeEngine) Ask(ctx context.Context, req query.Request) (*query.Response, error) {
	f.last = req
	return f.AskFn(ctx, req)
}

func (f *fakeEngine) Silos() ([]query.SiloStatus, error) { return f.silos, f.silosErr }

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content)
	tc, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	for _, tool := range []mcp.Tool{askTool, listSilosTool} {
		assert.NotEmpty(t, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, "ask", askTool.Name)
	assert.Equal(t, []string{"query"}, askTool.InputSchema.Required)
	assert.Equal(t, "list_silos", listSilosTool.Name)
}

func TestHandleAsk(t *testing.T) {
	ctx := context.Background()
	eng := &fakeEngine{AskFn: func(_ context.Context, req query.Request) (*query.Response, error) {
		return &query.Response{Answer: "Rank 1: Carmine's", Explain: &query.Explanation{Intent: "LOOKUP", Branch: "guardrail", Silo: req.Silo}}, nil
	}}
	srv := NewServer(eng)

	t.Run("passes options", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query":     "what restaurant was ranked number 1",
			"silo":      "data",
			"strict":    true,
			"unified":   true,
			"n_results": float64(5),
		}

		result, err := srv.handleAsk(ctx, req)
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Contains(t, resultText(t, result), "Rank 1: Carmine's")
		assert.Contains(t, resultText(t, result), "intent=LOOKUP branch=guardrail silo=data")
		assert.Equal(t, "data", eng.last.Silo)
		assert.True(t, eng.last.Strict)
		assert.True(t, eng.last.ExplicitUnified)
		assert.Equal(t, 5, eng.last.NResults)
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleAsk(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("policy error", func(t *testing.T) {
		refusing := NewServer(&fakeEngine{AskFn: func(context.Context, query.Request) (*query.Response, error) {
			return nil, &query.PolicyError{Message: "this question needs a silo", ExitCode: query.PolicyExitCode}
		}})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "what files are from 2022"}

		result, err := refusing.handleAsk(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "this question needs a silo", resultText(t, result))
	})

	t.Run("engine failure", func(t *testing.T) {
		failing := NewServer(&fakeEngine{AskFn: func(context.Context, query.Request) (*query.Response, error) {
			return nil, errors.New("connection refused")
		}})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "anything"}

		result, err := failing.handleAsk(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "connection refused")
	})
}

func TestHandleListSilos(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		result, err := NewServer(&fakeEngine{}).handleListSilos(ctx, mcp.CallToolRequest{})
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), "No silos indexed yet")
	})

	t.Run("with stale silo", func(t *testing.T) {
		eng := &fakeEngine{silos: []query.SiloStatus{
			{Slug: "docs", Name: "Docs", Path: "/lib", FilesIndexed: 4, ChunksCount: 20},
			{Slug: "tax", Name: "Tax", Path: "/tax", FilesIndexed: 2, Stale: true, StaleReason: "count_mismatch"},
		}}
		result, err := NewServer(eng).handleListSilos(ctx, mcp.CallToolRequest{})
		require.NoError(t, err)
		text := resultText(t, result)
		assert.Contains(t, text, "2 silo(s):")
		assert.Contains(t, text, "- Docs (slug docs): 4 files, 20 chunks, /lib\n")
		assert.Contains(t, text, "[stale: count_mismatch]")
	})

	t.Run("index unreadable", func(t *testing.T) {
		eng := &fakeEngine{silosErr: errors.New("opening index: registry is corrupt")}
		result, err := NewServer(eng).handleListSilos(ctx, mcp.CallToolRequest{})
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "registry is corrupt")
	})
}
