// Package parser extracts inline #tags from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRe     = regexp.MustCompile(`#\S+`)
	dateTagRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateRe    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// sniffLen is how much of a file is inspected for NUL bytes.
const sniffLen = 512

// Tags returns every tag occurrence in content, in order of appearance.
// A tag is a '#' followed by non-whitespace; tokens that still contain a '#'
// after the leading one is stripped are header markup (##, ###) and are dropped.
func Tags(content string) []string {
	matches := tagRe.FindAllString(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := m[1:]
		if strings.Contains(tag, "#") {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// IsDateTag reports whether tag is a YYYY-MM-DD calendar day key.
func IsDateTag(tag string) bool {
	return dateTagRe.MatchString(tag)
}

// HasDate reports whether tag contains a YYYY-MM-DD date anywhere, as in
// "due-2024-05-01".
func HasDate(tag string) bool {
	return dateRe.MatchString(tag)
}

// IsText reports whether data looks like UTF-8 text: no NUL byte near the
// start and valid UTF-8 throughout.
func IsText(data []byte) bool {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	return utf8.Valid(data)
}
