// Package addr resolves user-supplied document addresses into canonical
// (document path, section slug) pairs and enforces namespace policy.
//
// Resolution is pure string work plus a prefix-keyed policy lookup; no I/O
// happens here, so every addressing failure is reported before a file is
// touched.
package addr

import (
	"path"
	"regexp"
	"strings"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
)

// Address is a canonical document path plus an optional section slug.
type Address struct {
	DocumentPath string // slash-rooted, cleaned, ends in .md
	Section      string // hierarchical slug, empty when the whole document is addressed
}

// Namespace is a path-prefix policy domain.
//
// A namespace whose tasks must be worked strictly in order sets
// AllowFragments to false: callers may never jump to a section by slug there,
// the task engine always picks the next actionable task itself.
type Namespace struct {
	Name           string
	Prefix         string // slash-rooted directory prefix, e.g. "/coordinator/"
	AllowFragments bool
	AutoArchive    bool   // archive the document once every task is completed
	ArchivePrefix  string // retention directory; empty mirrors the source under /archived
	ArchiveBase    string // archive file name base, e.g. "tasks-"
}

// DefaultNamespaces returns the built-in namespace table.
func DefaultNamespaces() []Namespace {
	return []Namespace{
		{
			Name:           "coordinator",
			Prefix:         "/coordinator/",
			AllowFragments: false,
			AutoArchive:    true,
			ArchivePrefix:  "/archived/coordinator/",
			ArchiveBase:    "tasks-",
		},
		{
			Name:           "archived",
			Prefix:         "/archived/",
			AllowFragments: true,
		},
	}
}

// defaultNamespace applies when no configured prefix matches.
var defaultNamespace = Namespace{Name: "docs", Prefix: "/", AllowFragments: true, ArchiveBase: "doc-"}

var slugPathRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*(/[a-z0-9][a-z0-9_-]*)*$`)

// Resolver parses addresses against a namespace table.
type Resolver struct {
	namespaces []Namespace
}

// NewResolver creates a Resolver. A nil table means DefaultNamespaces.
func NewResolver(namespaces []Namespace) *Resolver {
	if namespaces == nil {
		namespaces = DefaultNamespaces()
	}
	return &Resolver{namespaces: namespaces}
}

// Resolve parses raw into an Address and checks namespace policy.
func (r *Resolver) Resolve(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}, apperr.New(apperr.CodeInvalidPath, "address is empty")
	}

	docPart := raw
	fragment := ""
	if i := strings.Index(raw, "#"); i >= 0 {
		docPart = raw[:i]
		fragment = raw[i+1:]
		if strings.Contains(fragment, "#") {
			return Address{}, apperr.Newf(apperr.CodeInvalidPath, "address has multiple fragments: %s", raw).
				With("address", raw)
		}
	}

	docPath, err := Canonical(docPart)
	if err != nil {
		return Address{}, err
	}

	if fragment != "" && !slugPathRe.MatchString(fragment) {
		return Address{}, apperr.Newf(apperr.CodeInvalidPath, "malformed section slug: %s", fragment).
			With("document", docPath).
			With("section", fragment)
	}

	ns := r.NamespaceFor(docPath)
	if fragment != "" && !ns.AllowFragments {
		return Address{}, apperr.Newf(apperr.CodeNamespaceViolation,
			"namespace %s does not allow section addressing", ns.Name).
			With("document", docPath).
			With("section", fragment).
			With("namespace", ns.Name)
	}

	return Address{DocumentPath: docPath, Section: fragment}, nil
}

// NamespaceFor returns the namespace owning docPath (longest matching prefix).
func (r *Resolver) NamespaceFor(docPath string) Namespace {
	best := defaultNamespace
	bestLen := 0
	for _, ns := range r.namespaces {
		if strings.HasPrefix(docPath, ns.Prefix) && len(ns.Prefix) > bestLen {
			best = ns
			bestLen = len(ns.Prefix)
		}
	}
	return best
}

// Canonical normalizes a document path: forward slashes, leading slash,
// cleaned segments, .md extension required.
func Canonical(raw string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(raw, `\`, "/"))
	if p == "" {
		return "", apperr.New(apperr.CodeInvalidPath, "document path is empty")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if p == "/" || strings.HasPrefix(p, "/..") {
		return "", apperr.Newf(apperr.CodeInvalidPath, "malformed document path: %s", raw).
			With("path", raw)
	}
	if !strings.HasSuffix(p, ".md") {
		return "", apperr.Newf(apperr.CodeInvalidPath, "document path must end in .md: %s", raw).
			With("path", raw)
	}
	return p, nil
}

// Rel converts a canonical path to the storage-relative form.
func Rel(docPath string) string {
	return strings.TrimPrefix(docPath, "/")
}
