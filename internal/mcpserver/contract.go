package mcpserver

// DocumentFormatContract describes the canonical Markdown document format
// that LLM consumers should follow when creating or editing documents.
const DocumentFormatContract = `# Document Format Contract

Every Markdown document stored here MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # OPTIONAL - overrides the H1 as the document title
---

# Document Title

Introductory text.

## Section Title

Section body in standard Markdown.

### Nested Section

Nesting follows ATX heading depth (up to 6 levels).
` + "```" + `

## Addressing

1. **Document paths** are slash-rooted, end with ` + "`" + `.md` + "`" + `, and use forward
   slashes: ` + "`" + `/api/specs/search-api.md` + "`" + `.
2. **Section slugs** are derived from heading titles (lowercase, kebab-case)
   and prefixed with their ancestor slugs, excluding the H1:
   ` + "`" + `tasks/implement-caching` + "`" + `. Duplicate titles get ` + "`" + `-2` + "`" + `, ` + "`" + `-3` + "`" + ` suffixes.
3. **Full addresses** combine both: ` + "`" + `/api/specs/search-api.md#tasks/implement-caching` + "`" + `.
4. Documents under ` + "`" + `/coordinator/` + "`" + ` are sequential task lists: section
   fragments are rejected there, address the document as a whole.

## Tasks

A section titled ` + "`" + `Tasks` + "`" + ` turns its subsections into task records:

` + "```" + `markdown
## Tasks

### Implement Caching

- Status: pending
- Phase: core

Describe the work here. The status line is one of pending, in_progress,
completed; a missing status line means pending.
` + "```" + `

Completing a task rewrites its status line and appends:

` + "```" + `markdown
- Completed: 2026-03-14
- Note: what was done
` + "```" + `

## Rules

1. **One H1** at the top; it is the document title unless frontmatter
   overrides it.
2. **Heading titles** should be short and unique among siblings; slugs are
   derived from them and section edits address slugs, not titles.
3. **File paths** are lowercase kebab-case: letters, digits, ` + "`" + `-` + "`" + `, ` + "`" + `_` + "`" + `.
4. **Encoding** is UTF-8 with a trailing newline.
5. **Task marker lines** (` + "`" + `- Status:` + "`" + `, ` + "`" + `- Phase:` + "`" + `, ` + "`" + `- Completed:` + "`" + `,
   ` + "`" + `- Note:` + "`" + `) sit at the top of the task body, one per line.

## Example

` + "```" + `markdown
# Search API Spec

Scope and constraints for the search endpoint.

## Overview

Query goes in, ranked sections come out.

## Tasks

### Design Schema

- Status: completed
- Phase: core
- Completed: 2026-03-10
- Note: documents and doc_sections tables

### Implement Caching

- Status: pending
- Phase: core

Cache parsed documents keyed by canonical path.
` + "```" + `
`
