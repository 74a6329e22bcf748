package sections

import (
	"strings"
	"testing"
)

const sampleDoc = `# Search Spec

Intro paragraph.

## Overview

High level notes.

## Tasks

### Implement Caching

- Status: pending

### Ship It

Body of ship it.

## Notes

Closing notes.
`

func TestParse_HeadingsAndSlugs(t *testing.T) {
	doc := Parse(sampleDoc)

	wantSlugs := []string{
		"search-spec",
		"overview",
		"tasks",
		"tasks/implement-caching",
		"tasks/ship-it",
		"notes",
	}
	if len(doc.Headings) != len(wantSlugs) {
		t.Fatalf("len(headings) = %d, want %d", len(doc.Headings), len(wantSlugs))
	}
	for i, want := range wantSlugs {
		if doc.Headings[i].Slug != want {
			t.Errorf("headings[%d].Slug = %q, want %q", i, doc.Headings[i].Slug, want)
		}
	}
	if doc.Title != "Search Spec" {
		t.Errorf("title = %q", doc.Title)
	}
}

func TestParse_SpansIncludeDescendants(t *testing.T) {
	doc := Parse(sampleDoc)
	tasks, ok := doc.Heading("tasks")
	if !ok {
		t.Fatal("tasks heading missing")
	}
	notes, _ := doc.Heading("notes")
	if tasks.End != notes.Start {
		t.Errorf("tasks span ends at %d, want %d (start of notes)", tasks.End, notes.Start)
	}
	body := Body(sampleDoc, tasks)
	if !strings.Contains(body, "### Implement Caching") || !strings.Contains(body, "### Ship It") {
		t.Errorf("tasks body should include descendant headings, got %q", body)
	}
}

func TestParse_LastSectionRunsToEOF(t *testing.T) {
	doc := Parse(sampleDoc)
	notes, _ := doc.Heading("notes")
	if notes.End != len(sampleDoc) {
		t.Errorf("notes.End = %d, want %d", notes.End, len(sampleDoc))
	}
	if got := Body(sampleDoc, notes); got != "Closing notes." {
		t.Errorf("notes body = %q", got)
	}
}

func TestParse_DuplicateTitlesGetStableSuffixes(t *testing.T) {
	content := "# Doc\n\n## Log\n\na\n\n## Log\n\nb\n\n## Log\n\nc\n"
	doc := Parse(content)
	want := []string{"doc", "log", "log-2", "log-3"}
	for i, w := range want {
		if doc.Headings[i].Slug != w {
			t.Errorf("headings[%d].Slug = %q, want %q", i, doc.Headings[i].Slug, w)
		}
	}
	// Identical input parses to identical slugs.
	again := Parse(content)
	for i := range doc.Headings {
		if again.Headings[i].Slug != doc.Headings[i].Slug {
			t.Errorf("slug derivation is not stable at index %d", i)
		}
	}
}

func TestParse_SkippedDepthNestsUnderNearestShallower(t *testing.T) {
	content := "# Doc\n\n## Parent\n\n#### Deep Child\n\nx\n"
	doc := Parse(content)
	deep, ok := doc.Heading("parent/deep-child")
	if !ok {
		t.Fatalf("expected parent/deep-child, have %+v", doc.Headings)
	}
	if deep.Depth != 4 {
		t.Errorf("depth = %d, want 4", deep.Depth)
	}
}

func TestParse_HeadingsInsideCodeFencesIgnored(t *testing.T) {
	content := "# Doc\n\n## Real\n\n```\n# not a heading\n## also not\n```\n\ntext\n"
	doc := Parse(content)
	if len(doc.Headings) != 2 {
		t.Errorf("len(headings) = %d, want 2: %+v", len(doc.Headings), doc.Headings)
	}
}

func TestParse_FrontmatterTitleWins(t *testing.T) {
	content := "---\ntitle: From Frontmatter\n---\n# H1 Title\n\nbody\n"
	doc := Parse(content)
	if doc.Title != "From Frontmatter" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Frontmatter["title"] != "From Frontmatter" {
		t.Errorf("frontmatter = %v", doc.Frontmatter)
	}
	if len(doc.Headings) != 1 || doc.Headings[0].Slug != "h1-title" {
		t.Errorf("headings = %+v", doc.Headings)
	}
}

func TestParse_InvalidFrontmatterFallsBackToBody(t *testing.T) {
	content := "---\n: bad: yaml: {{{\n---\n# Doc\n"
	doc := Parse(content)
	if doc.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", doc.Frontmatter)
	}
	if doc.Title != "Doc" {
		t.Errorf("title = %q", doc.Title)
	}
}

func TestParse_TransliteratesTitles(t *testing.T) {
	doc := Parse("# Doc\n\n## Héllo Wörld!\n\nx\n")
	if _, ok := doc.Heading("hello-world"); !ok {
		t.Errorf("expected transliterated slug, have %+v", doc.Headings)
	}
}

func TestParse_NoHeadings(t *testing.T) {
	doc := Parse("just some text\nwithout structure\n")
	if len(doc.Headings) != 0 || doc.Title != "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestBody_EmptySection(t *testing.T) {
	content := "# Doc\n\n## Empty\n\n## Next\n\nx\n"
	doc := Parse(content)
	empty, _ := doc.Heading("empty")
	if got := Body(content, empty); got != "" {
		t.Errorf("body = %q, want empty", got)
	}
}

func TestChildren(t *testing.T) {
	doc := Parse(sampleDoc)
	tasks, _ := doc.Heading("tasks")
	kids := doc.Children(tasks)
	if len(kids) != 2 || kids[0].Slug != "tasks/implement-caching" || kids[1].Slug != "tasks/ship-it" {
		t.Errorf("children = %+v", kids)
	}
}
