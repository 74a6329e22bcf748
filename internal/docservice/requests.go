package docservice

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/sections"
)

// maxBatchOps bounds a single edit request. Larger batches are rejected
// before any I/O happens.
const maxBatchOps = 100

// ViewDocumentRequest identifies a document to load.
type ViewDocumentRequest struct {
	Document string `json:"document"`
}

func (r ViewDocumentRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
	))
}

// ViewSectionRequest identifies a single section. Section may be empty when
// Document carries a #fragment.
type ViewSectionRequest struct {
	Document string `json:"document"`
	Section  string `json:"section"`
}

func (r ViewSectionRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
	))
}

// CreateDocumentRequest creates a new document. Content, when empty, is
// rendered as a bare title heading.
type CreateDocumentRequest struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r CreateDocumentRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Title, validation.Required.When(r.Content == "")),
	))
}

// DeleteDocumentRequest removes a document.
type DeleteDocumentRequest struct {
	Document string `json:"document"`
}

func (r DeleteDocumentRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
	))
}

// SectionOperation is one structural edit inside a batch.
type SectionOperation struct {
	Section   string `json:"section"`
	Operation string `json:"operation"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	Depth     int    `json:"depth,omitempty"`
}

func (op SectionOperation) validate() error {
	if op.Section == "" {
		return apperr.New(apperr.CodeMissingParameter, "section is required")
	}
	if !sections.ValidOp(sections.Op(op.Operation)) {
		return apperr.Newf(apperr.CodeMissingParameter, "unknown operation: %q", op.Operation).
			With("operation", op.Operation)
	}
	switch sections.Op(op.Operation) {
	case sections.OpInsertBefore, sections.OpInsertAfter, sections.OpAppendChild, sections.OpRename:
		if op.Title == "" {
			return apperr.Newf(apperr.CodeMissingParameter, "title is required for %s", op.Operation)
		}
	case sections.OpReplace:
		if op.Content == "" {
			return apperr.New(apperr.CodeMissingParameter, "content is required for replace")
		}
	}
	return nil
}

// EditSectionsRequest applies a batch of section edits to one document.
type EditSectionsRequest struct {
	Document   string             `json:"document"`
	Operations []SectionOperation `json:"operations"`
}

func (r EditSectionsRequest) Validate() error {
	if len(r.Operations) > maxBatchOps {
		return apperr.Newf(apperr.CodeBatchTooLarge, "batch of %d operations exceeds maximum of %d",
			len(r.Operations), maxBatchOps).
			With("operations", len(r.Operations)).
			With("max", maxBatchOps)
	}
	if err := asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
		validation.Field(&r.Operations, validation.Required),
	)); err != nil {
		return err
	}
	for i, op := range r.Operations {
		if err := op.validate(); err != nil {
			return apperr.From(err).With("operation_index", i)
		}
	}
	return nil
}

// ListTasksRequest lists every task in a document.
type ListTasksRequest struct {
	Document string `json:"document"`
}

func (r ListTasksRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
	))
}

// NextTaskRequest asks for the next actionable task, optionally skipping
// everything up to and including After.
type NextTaskRequest struct {
	Document string `json:"document"`
	After    string `json:"after,omitempty"`
}

func (r NextTaskRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
	))
}

// CompleteTaskRequest marks a task completed with a required note.
type CompleteTaskRequest struct {
	Document string `json:"document"`
	Task     string `json:"task"`
	Note     string `json:"note"`
}

func (r CompleteTaskRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
		validation.Field(&r.Task, validation.Required),
		validation.Field(&r.Note, validation.Required),
	))
}

// ArchiveDocumentRequest retires a document into its namespace's retention
// area.
type ArchiveDocumentRequest struct {
	Document  string `json:"document"`
	WithAudit bool   `json:"with_audit,omitempty"`
}

func (r ArchiveDocumentRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
	))
}

// ArchiveFolderRequest retires every document under a directory prefix.
type ArchiveFolderRequest struct {
	Folder string `json:"folder"`
}

func (r ArchiveFolderRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Folder, validation.Required),
	))
}

// SearchRequest is a full-text query over the section index.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (r SearchRequest) Validate() error {
	return asMissingParameter(validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required),
	))
}

// ListDocumentsRequest pages through indexed documents.
type ListDocumentsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func (r ListDocumentsRequest) Validate() error { return nil }

// asMissingParameter converts an ozzo validation failure into the boundary
// error code, preserving the field report as context.
func asMissingParameter(err error) error {
	if err == nil {
		return nil
	}
	e := apperr.Wrap(apperr.CodeMissingParameter, "invalid request", err)
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			e = e.With(field, ferr.Error())
		}
	}
	return e
}
