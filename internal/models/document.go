// Package models defines the domain types for tagtracker.
package models

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DocExt is the extension of documents that are scanned for tags.
const DocExt = ".md"

// Document is a markdown file discovered under the search root.
type Document struct {
	Abs string // absolute filesystem path
	Rel string // path relative to the search root, OS separators
}

// Ref returns the rendering-ready reference for the document.
func (d Document) Ref() DocRef {
	return NewDocRef(d.Rel)
}

// DocRef is a rendering-ready document reference: a link label paired with a
// URL-escaped path relative to the search root.
type DocRef struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// NewDocRef builds a reference from a root-relative path. The label is the base
// name without the document extension; spaces in the URL become %20.
func NewDocRef(rel string) DocRef {
	slashed := filepath.ToSlash(rel)
	return DocRef{
		Label: strings.TrimSuffix(path.Base(slashed), DocExt),
		URL:   strings.ReplaceAll(slashed, " ", "%20"),
	}
}

// String renders the reference as a markdown link.
func (r DocRef) String() string {
	return fmt.Sprintf("[%s](%s)", r.Label, r.URL)
}
