package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := New(CodeDocumentNotFound, "no such document")
	want := "DOCUMENT_NOT_FOUND: no such document"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	e := Wrap(CodeArchiveIO, "copy failed", cause)
	if !errors.Is(e, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeConflict, "write lost").With("document", "/x.md")
	b := New(CodeConflict, "different message")
	if !errors.Is(a, b) {
		t.Error("errors with the same code should match")
	}
	c := New(CodeInvalidPath, "write lost")
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := New(CodeSectionNotFound, "no slug").With("section", "tasks/a")
	outer := fmt.Errorf("edit: %w", inner)
	if !IsCode(outer, CodeSectionNotFound) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
	if CodeOf(outer) != CodeSectionNotFound {
		t.Errorf("CodeOf = %q", CodeOf(outer))
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if CodeOf(errors.New("plain")) != CodeInternal {
		t.Error("foreign errors should map to INTERNAL")
	}
}

func TestFromForeignError(t *testing.T) {
	cause := errors.New("plain")
	e := From(cause)
	if e.Code != CodeInternal {
		t.Errorf("code = %q, want INTERNAL", e.Code)
	}
	if !errors.Is(e, cause) {
		t.Error("original error should be preserved as the cause")
	}
}

func TestWithAddsContext(t *testing.T) {
	e := New(CodeTaskNotFound, "gone").With("document", "/a.md").With("task", "b")
	if e.Context["document"] != "/a.md" || e.Context["task"] != "b" {
		t.Errorf("context = %v", e.Context)
	}
}
