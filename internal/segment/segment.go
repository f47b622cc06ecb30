// Package segment splits extracted legal source text into addressable
// articles keyed by their original designator.
package segment

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrExtraction marks a source document whose bytes cannot be decoded as
// text. Fatal for that document only.
var ErrExtraction = errors.New("source is not valid text")

// Article is one segmented provision. Number keeps the designator exactly as
// printed ("86", "86a"), never normalized to an integer.
type Article struct {
	Number string
	Text   string
}

// Legal numbering carries letter suffixes, e.g. "Art. 86a."
var headingPattern = regexp.MustCompile(`Art\.\s?(\d+[a-zA-Z]*)\.`)

var blankRuns = regexp.MustCompile(`\n\s*\n`)

// Segment returns a restartable sequence of articles found in raw. Text
// before the first heading is preamble and is dropped; a document with no
// recognizable headings yields an empty sequence, not an error. Each
// article's text runs from just after its heading to just before the next.
func Segment(raw string) (iter.Seq[Article], error) {
	if !utf8.ValidString(raw) {
		return nil, fmt.Errorf("segment document: %w", ErrExtraction)
	}

	matches := headingPattern.FindAllStringSubmatchIndex(raw, -1)
	return func(yield func(Article) bool) {
		for i, match := range matches {
			bodyStart := match[1]
			bodyEnd := len(raw)
			if i+1 < len(matches) {
				bodyEnd = matches[i+1][0]
			}
			article := Article{
				Number: raw[match[2]:match[3]],
				Text:   normalizeBody(raw[bodyStart:bodyEnd]),
			}
			if !yield(article) {
				return
			}
		}
	}, nil
}

// normalizeBody collapses runs of blank lines and trims the edges. Nothing
// inside a line is touched; punctuation is legally meaningful.
func normalizeBody(body string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(body, "\n\n"))
}
