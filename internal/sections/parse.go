// Package sections parses Markdown heading structure into an addressable
// section tree and applies structural edits to document text.
//
// Every heading owns a span that runs from its heading line to just before
// the next heading of equal or shallower depth, and is addressed by a
// hierarchical slug derived from its title and ancestor chain
// (e.g. "tasks/implement-caching"). Slugs are unique within a document;
// duplicate titles get a deterministic numeric suffix.
package sections

import (
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

// Heading is one parsed section heading with its content span.
// Offsets are byte positions into the full document text.
type Heading struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Depth     int    `json:"depth"`
	Start     int    `json:"-"` // start of the heading line
	BodyStart int    `json:"-"` // just past the heading line
	End       int    `json:"-"` // exclusive end of the section span
}

// Document is the parsed structure of one Markdown file.
type Document struct {
	Frontmatter map[string]any
	Title       string
	Headings    []Heading
}

// Parse builds the heading tree for content. It never fails: malformed
// frontmatter is treated as body, and a document without headings simply has
// an empty tree.
func Parse(content string) *Document {
	fm, bodyStart := splitFrontmatter(content)
	headings := scanHeadings(content, bodyStart)

	doc := &Document{Frontmatter: fm, Headings: headings}
	doc.Title = deriveTitle(fm, headings)
	return doc
}

// Heading returns the heading with the given slug.
func (d *Document) Heading(s string) (Heading, bool) {
	for _, h := range d.Headings {
		if h.Slug == s {
			return h, true
		}
	}
	return Heading{}, false
}

// Children returns the headings nested strictly inside h's span.
func (d *Document) Children(h Heading) []Heading {
	var out []Heading
	for _, c := range d.Headings {
		if c.Start > h.Start && c.Start < h.End && c.Depth > h.Depth {
			out = append(out, c)
		}
	}
	return out
}

// OwnBodyEnd returns the offset where h's own body ends: the start of its
// first nested heading, or the span end when it has none.
func (d *Document) OwnBodyEnd(h Heading) int {
	for _, c := range d.Headings {
		if c.Start > h.Start && c.Start < h.End && c.Depth > h.Depth {
			return c.Start
		}
	}
	return h.End
}

// OwnBody extracts h's body text up to its first nested heading.
func (d *Document) OwnBody(content string, h Heading) string {
	end := d.OwnBodyEnd(h)
	if h.BodyStart >= len(content) || h.BodyStart >= end {
		return ""
	}
	return strings.TrimSpace(content[h.BodyStart:end])
}

// ReplaceOwnBody rewrites only h's own body, leaving nested headings and the
// rest of the document untouched.
func ReplaceOwnBody(content string, d *Document, h Heading, body string) string {
	end := d.OwnBodyEnd(h)
	return splice(content[:h.BodyStart], body, content[end:])
}

// Body extracts h's body text (everything in the span after the heading
// line), trimmed of surrounding blank lines.
func Body(content string, h Heading) string {
	if h.BodyStart >= len(content) {
		return ""
	}
	end := h.End
	if end > len(content) {
		end = len(content)
	}
	return strings.TrimSpace(content[h.BodyStart:end])
}

// splitFrontmatter locates a leading YAML frontmatter block and returns the
// parsed map plus the offset where the Markdown body starts. Malformed or
// absent frontmatter yields (nil, 0).
func splitFrontmatter(content string) (map[string]any, int) {
	const delim = "---"
	if !strings.HasPrefix(content, delim+"\n") && !strings.HasPrefix(content, delim+"\r\n") {
		return nil, 0
	}
	rest := content[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, 0
	}
	block := rest[:idx]
	// Body starts after the closing delimiter line.
	after := len(delim) + idx + 1 + len(delim)
	if nl := strings.IndexByte(content[after:], '\n'); nl >= 0 {
		after += nl + 1
	} else {
		after = len(content)
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, 0
	}
	return fm, after
}

// scanHeadings finds ATX headings line by line, skipping fenced code blocks,
// and assigns slugs and spans.
func scanHeadings(content string, from int) []Heading {
	var headings []Heading

	type ancestor struct {
		depth int
		slug  string
	}
	var stack []ancestor
	used := make(map[string]int)

	inFence := false
	pos := from
	for pos < len(content) {
		lineEnd := strings.IndexByte(content[pos:], '\n')
		next := len(content)
		if lineEnd >= 0 {
			next = pos + lineEnd + 1
		}
		line := strings.TrimRight(content[pos:next], "\n\r")

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			pos = next
			continue
		}
		if inFence {
			pos = next
			continue
		}

		depth, title, ok := parseHeadingLine(line)
		if !ok {
			pos = next
			continue
		}

		// Pop ancestors at the same or deeper level.
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}

		leaf := slug.Make(title)
		if leaf == "" {
			leaf = "section"
		}
		full := leaf
		// The depth-1 document title is not part of descendant chains.
		if len(stack) > 0 && stack[len(stack)-1].depth >= 2 {
			full = stack[len(stack)-1].slug + "/" + leaf
		}
		if n := used[full]; n > 0 {
			used[full] = n + 1
			full = full + "-" + strconv.Itoa(n+1)
		} else {
			used[full] = 1
		}

		stack = append(stack, ancestor{depth: depth, slug: full})
		headings = append(headings, Heading{
			Slug:      full,
			Title:     title,
			Depth:     depth,
			Start:     pos,
			BodyStart: next,
		})
		pos = next
	}

	// Compute spans: a section ends just before the next heading of equal
	// or shallower depth.
	for i := range headings {
		end := len(content)
		for j := i + 1; j < len(headings); j++ {
			if headings[j].Depth <= headings[i].Depth {
				end = headings[j].Start
				break
			}
		}
		headings[i].End = end
	}

	return headings
}

// parseHeadingLine matches an ATX heading ("## Title") at the start of line.
func parseHeadingLine(line string) (depth int, title string, ok bool) {
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	if i == 0 || i > 6 || i >= len(line) {
		return 0, "", false
	}
	if line[i] != ' ' && line[i] != '\t' {
		return 0, "", false
	}
	title = strings.TrimSpace(line[i:])
	if title == "" {
		return 0, "", false
	}
	return i, title, true
}

func deriveTitle(fm map[string]any, headings []Heading) string {
	if fm != nil {
		if t, ok := fm["title"].(string); ok && t != "" {
			return t
		}
	}
	for _, h := range headings {
		if h.Depth == 1 {
			return h.Title
		}
	}
	return ""
}
