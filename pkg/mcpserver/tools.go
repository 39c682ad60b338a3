package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/router"
)

type toolset struct {
	router *router.Router
	memory memory.Store
}

func (ts *toolset) tools() []server.ServerTool {
	tools := []server.ServerTool{
		{Tool: selectDefinition(), Handler: ts.handleSelect},
		{Tool: assembleDefinition(), Handler: ts.handleAssemble},
		{Tool: getDefinition(), Handler: ts.handleGet},
		{Tool: listDefinition(), Handler: ts.handleList},
	}
	if ts.memory != nil {
		tools = append(tools,
			server.ServerTool{Tool: memoryReadDefinition(), Handler: ts.handleMemoryRead},
			server.ServerTool{Tool: memoryAppendDefinition(), Handler: ts.handleMemoryAppend},
		)
	}
	return tools
}

func selectDefinition() mcp.Tool {
	return mcp.NewTool("select_documents",
		mcp.WithDescription("Rank persona and skill documents against a request. Returns document IDs with scores, best first. An empty list means nothing matched."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The user's request, verbatim"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of documents to return (default: server setting)"),
		),
	)
}

func (ts *toolset) handleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	results := ts.router.Select(ctx, query, req.GetInt("top_k", 0))
	if len(results) == 0 {
		return mcp.NewToolResultText("No documents matched."), nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (score %.3f)", i+1, r.ID, r.Score)
		if r.Document.Name != "" && r.Document.Name != r.ID {
			fmt.Fprintf(&b, " name=%s", r.Document.Name)
		}
		if len(r.Match.Phrases) > 0 {
			fmt.Fprintf(&b, " phrases=%s", strings.Join(r.Match.Phrases, ","))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func assembleDefinition() mcp.Tool {
	return mcp.NewTool("assemble_context",
		mcp.WithDescription("Build the context payload for a request. Pass 'query' to select documents automatically, or 'ids' to choose them explicitly."),
		mcp.WithString("query",
			mcp.Description("The user's request; documents are selected by trigger matching"),
		),
		mcp.WithString("ids",
			mcp.Description("Comma-separated document IDs or names, in the order to include them"),
		),
	)
}

func (ts *toolset) handleAssemble(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	ids := splitList(req.GetString("ids", ""))

	switch {
	case len(ids) > 0:
		asm, err := ts.router.Assemble(ctx, ids)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(asm.Text), nil
	case query != "":
		resp, err := ts.router.Route(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(resp.Results) == 0 {
			return mcp.NewToolResultText(""), nil
		}
		return mcp.NewToolResultText(resp.Text), nil
	default:
		return mcp.NewToolResultError("one of 'query' or 'ids' is required"), nil
	}
}

func getDefinition() mcp.Tool {
	return mcp.NewTool("get_document",
		mcp.WithDescription("Return one document's body by ID, path or frontmatter name."),
		mcp.WithString("ref",
			mcp.Required(),
			mcp.Description("Document ID (e.g. 'agents/qa-engineer'), path or name"),
		),
	)
}

func (ts *toolset) handleGet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := strings.TrimSpace(req.GetString("ref", ""))
	if ref == "" {
		return mcp.NewToolResultError("'ref' is required"), nil
	}

	store := ts.router.Store()
	if store == nil {
		return mcp.NewToolResultError("no corpus loaded"), nil
	}
	doc, err := store.Resolve(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(withResources(doc)), nil
}

// withResources appends the files bundled with a directory skill
func withResources(doc *corpus.Document) string {
	if len(doc.Resources) == 0 {
		return doc.Body
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(doc.Body, "\n"))
	b.WriteString("\n\nBundled resources:\n")
	for _, r := range doc.Resources {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}

func listDefinition() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List loaded documents with their kind and name."),
		mcp.WithString("match",
			mcp.Description("Optional glob over IDs, e.g. 'skills/*'"),
		),
	)
}

func (ts *toolset) handleList(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := ts.router.Store()
	if store == nil {
		return mcp.NewToolResultError("no corpus loaded"), nil
	}

	docs, err := store.Match(req.GetString("match", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents."), nil
	}

	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", d.ID, d.Kind, label(d))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func memoryReadDefinition() mcp.Tool {
	return mcp.NewTool("memory_read",
		mcp.WithDescription("Read the notes stored for a persona in earlier conversations."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Persona name, e.g. 'qa-engineer'"),
		),
	)
}

func (ts *toolset) handleMemoryRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := strings.TrimSpace(req.GetString("key", ""))
	if key == "" {
		return mcp.NewToolResultError("'key' is required"), nil
	}

	entries, err := ts.memory.Read(ctx, key)
	if memory.IsNotFound(err) {
		return mcp.NewToolResultText(fmt.Sprintf("No memory stored for %s.", key)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading memory failed: %v", err)), nil
	}
	return mcp.NewToolResultText(memory.Text(entries)), nil
}

func memoryAppendDefinition() mcp.Tool {
	return mcp.NewTool("memory_append",
		mcp.WithDescription("Append a note to a persona's memory so later conversations can use it."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Persona name, e.g. 'qa-engineer'"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The note to remember"),
		),
	)
}

func (ts *toolset) handleMemoryAppend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, err := ts.memory.Append(ctx, req.GetString("key", ""), req.GetString("text", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored memory %s for %s.", entry.ID, entry.Key)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func label(d *corpus.Document) string {
	if d.Title != "" && d.Name == "" {
		return d.Title
	}
	return d.Label()
}
