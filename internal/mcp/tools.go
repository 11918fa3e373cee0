package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask MCP tool.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask a question about the locally indexed files. Answers cite their source files; deterministic questions (file lists, tax form lines, rankings) are answered without a model."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("silo",
		mcp.Description("Silo slug, prefix or display name to search in. Omit to search every silo."),
	),
	mcp.WithString("archetype",
		mcp.Description("Configured archetype whose prompt and silos to use"),
	),
	mcp.WithBoolean("strict",
		mcp.Description("Refuse rather than guess when the context does not state the answer"),
	),
	mcp.WithBoolean("unified",
		mcp.Description("Search all silos even if the question names one"),
	),
	mcp.WithBoolean("explain",
		mcp.Description("Append how the question was routed and retrieved"),
	),
	mcp.WithNumber("n_results",
		mcp.Description("Number of chunks to use as context (default 12)"),
	),
)

// listSilosTool defines the list_silos MCP tool.
var listSilosTool = mcp.NewTool("list_silos",
	mcp.WithDescription("List the indexed silos with file counts and freshness."),
)
