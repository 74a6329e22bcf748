// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the document and task tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/docservice"
)

// Server wraps the MCP server with the document tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"ai-prompt-guide",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("view_document",
		mcp.WithDescription("Read a document: title, section tree with slugs, and full content."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Canonical document path (e.g. /api/guide.md)")),
	), s.viewDocument)

	s.mcp.AddTool(mcp.NewTool("view_section",
		mcp.WithDescription("Read a single section by slug, child slugs included. "+
			"Accepts /path.md#slug addresses or separate document and section arguments."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document path, optionally with a #section fragment")),
		mcp.WithString("section", mcp.Description("Section slug (e.g. tasks/implement-caching)")),
	), s.viewSection)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document at the given path. Content MUST follow "+
			"the document format contract (H1 title, ATX sections, task entries with "+
			"'- Status:' markers under a Tasks section). Read the contract first via the "+
			"get_document_contract tool or the docs://document-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Canonical path for the new document (must end with .md)")),
		mcp.WithString("title", mcp.Description("Document title; used when content is omitted")),
		mcp.WithString("content", mcp.Description("Full Markdown content following the document format contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("edit_section",
		mcp.WithDescription("Apply a batch of section edits to one document. Each operation "+
			"targets a section slug with one of: replace, rename, insert_before, insert_after, "+
			"append_child. The batch is atomic: a conflict or unknown slug fails the whole batch. "+
			"At most 100 operations per call."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Canonical document path")),
		mcp.WithArray("operations", mcp.Required(),
			mcp.Description("Operations: {section, operation, title?, content?, depth?}")),
	), s.editSection)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List every task in a document with status, phase, and the per-phase summary."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Canonical document path")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("next_task",
		mcp.WithDescription("Return the next actionable task in document order."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Canonical document path")),
		mcp.WithString("after", mcp.Description("Skip everything up to and including this task slug")),
	), s.nextTask)

	s.mcp.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task completed with a note. Returns the next actionable task; "+
			"in auto-archiving namespaces the document is archived when the last task completes."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Canonical document path")),
		mcp.WithString("task", mcp.Required(), mcp.Description("Task slug (leaf or full section slug)")),
		mcp.WithString("note", mcp.Required(), mcp.Description("Completion note recorded in the task body")),
	), s.completeTask)

	s.mcp.AddTool(mcp.NewTool("archive_document",
		mcp.WithDescription("Retire a document into its namespace's retention area."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Canonical document path")),
		mcp.WithBoolean("with_audit", mcp.Description("Also write a .audit sidecar next to the archive copy")),
	), s.archiveDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search across all documents. Hits are addressed at "+
			"section granularity: document path plus section slug."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical document format contract. "+
			"Call this before creating or editing documents to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("docs://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical Markdown document format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError renders an application error as a structured tool error so agent
// callers can branch on the stable code.
func toolError(err error) *mcp.CallToolResult {
	e := apperr.From(err)
	out, _ := json.Marshal(map[string]any{
		"code":    e.Code,
		"message": e.Message,
		"context": e.Context,
	})
	return mcp.NewToolResultError(string(out))
}

func toolJSON(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) viewDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.ViewDocument(ctx, docservice.ViewDocumentRequest{Document: document})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(doc), nil
}

func (s *Server) viewSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sec, err := s.svc.ViewSection(ctx, docservice.ViewSectionRequest{
		Document: document,
		Section:  req.GetString("section", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(sec), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.CreateDocument(ctx, docservice.CreateDocumentRequest{
		Path:    path,
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(doc), nil
}

func (s *Server) editSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// The operations argument is a JSON array; round-trip the argument bag
	// through encoding/json into the typed request.
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var edit docservice.EditSectionsRequest
	if err := json.Unmarshal(raw, &edit); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	doc, err := s.svc.EditSections(ctx, edit)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(doc), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.svc.ListTasks(ctx, docservice.ListTasksRequest{Document: document})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(list), nil
}

func (s *Server) nextTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	next, err := s.svc.NextTask(ctx, docservice.NextTaskRequest{
		Document: document,
		After:    req.GetString("after", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(next), nil
}

func (s *Server) completeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := req.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.svc.CompleteTask(ctx, docservice.CompleteTaskRequest{
		Document: document,
		Task:     task,
		Note:     note,
	})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(result), nil
}

func (s *Server) archiveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.ArchiveDocument(ctx, docservice.ArchiveDocumentRequest{
		Document:  document,
		WithAudit: req.GetBool("with_audit", false),
	})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(rec), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, docservice.SearchRequest{Query: query, Limit: 20})
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(results), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "docs://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
