package sections

import (
	"strings"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
)

// Op is a structural edit operation.
type Op string

// Supported operations.
const (
	OpReplace      Op = "replace"       // rewrite the target section's body
	OpRename       Op = "rename"        // rewrite only the heading-line title
	OpInsertBefore Op = "insert_before" // new sibling before the target
	OpInsertAfter  Op = "insert_after"  // new sibling after the target's span
	OpAppendChild  Op = "append_child"  // new last descendant of the target
)

// ValidOp reports whether op names a supported operation.
func ValidOp(op Op) bool {
	switch op {
	case OpReplace, OpRename, OpInsertBefore, OpInsertAfter, OpAppendChild:
		return true
	}
	return false
}

// Edit is one structural edit against a section.
type Edit struct {
	Section string // target slug
	Op      Op
	Title   string // heading title for inserts and rename
	Content string // body text for replace and inserts
	Depth   int    // explicit heading depth for inserts; 0 derives from the target
}

// Apply runs a single edit against content and returns the full rewritten
// document text. The region outside the splice point is untouched; blank-line
// separation at the splice boundary is normalized.
func Apply(content string, e Edit) (string, error) {
	doc := Parse(content)
	h, ok := doc.Heading(e.Section)
	if !ok {
		return "", apperr.Newf(apperr.CodeSectionNotFound, "section not found: %s", e.Section).
			With("section", e.Section)
	}

	switch e.Op {
	case OpReplace:
		return splice(content[:h.BodyStart], e.Content, content[h.End:]), nil

	case OpRename:
		return renameHeading(content, h, e.Title), nil

	case OpInsertBefore:
		block := renderSection(insertDepth(e, h.Depth), e.Title, e.Content)
		return splice(content[:h.Start], block, content[h.Start:]), nil

	case OpInsertAfter:
		block := renderSection(insertDepth(e, h.Depth), e.Title, e.Content)
		return splice(content[:h.End], block, content[h.End:]), nil

	case OpAppendChild:
		block := renderSection(insertDepth(e, h.Depth+1), e.Title, e.Content)
		return splice(content[:h.End], block, content[h.End:]), nil
	}
	return "", apperr.Newf(apperr.CodeMissingParameter, "unknown operation: %s", e.Op).
		With("operation", string(e.Op))
}

func insertDepth(e Edit, derived int) int {
	if e.Depth > 0 {
		return e.Depth
	}
	return derived
}

// renderSection formats a new heading line plus body.
func renderSection(depth int, title, body string) string {
	if depth < 1 {
		depth = 1
	}
	if depth > 6 {
		depth = 6
	}
	line := strings.Repeat("#", depth) + " " + strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if body == "" {
		return line
	}
	return line + "\n\n" + body
}

// renameHeading rewrites the heading-line title only. Slug-dependent
// references elsewhere are left alone; callers re-derive slugs afterwards.
func renameHeading(content string, h Heading, title string) string {
	lineEnd := h.BodyStart
	hadNewline := lineEnd > h.Start && content[lineEnd-1] == '\n'
	line := strings.Repeat("#", h.Depth) + " " + strings.TrimSpace(title)
	if hadNewline {
		line += "\n"
	}
	return content[:h.Start] + line + content[lineEnd:]
}

// splice joins left, block, right with exactly one blank line between
// non-empty chunks and a single trailing newline.
func splice(left, block, right string) string {
	var parts []string
	for _, c := range []string{left, block, right} {
		c = strings.Trim(c, "\n")
		if c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}
