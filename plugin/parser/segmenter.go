package parser

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultHeading collects content that appears before the first detected
	// heading.
	DefaultHeading = "Introduction"

	// maxMetadataBlocks bounds how many leading blocks are scanned for
	// metadata before section segmentation takes over.
	maxMetadataBlocks = 5

	// Heading heuristic thresholds, applied only when the decoder supplies no
	// styling hints.
	headingMaxLen   = 50
	headingMaxWords = 6
)

// Segment builds a ParsedDocument from decoded blocks. styled reports whether
// the blocks carry heading styling from the decoder; when false, heading
// detection falls back to IsHeadingCandidate.
func Segment(blocks []Block, styled bool) *ParsedDocument {
	doc := &ParsedDocument{}

	isHeading := func(b Block) bool {
		if styled {
			return b.Heading
		}
		return IsHeadingCandidate(b.Text)
	}

	// Phase 1: metadata from the leading blocks, stopping at the first
	// heading or after the bounded count.
	metadataBlocks := make(map[string]bool)
	seen := 0
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		if isHeading(b) || seen >= maxMetadataBlocks {
			break
		}
		if key, value, ok := strings.Cut(text, ":"); ok && strings.TrimSpace(key) != "" {
			doc.Metadata.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		} else {
			doc.Metadata.Set(fmt.Sprintf("line_%d", seen), text)
		}
		metadataBlocks[text] = true
		seen++
	}

	metadataValues := make(map[string]bool)
	for _, v := range doc.Metadata.Values() {
		metadataValues[v] = true
	}

	// Phase 2: section segmentation over all blocks.
	var (
		fullText       []string
		currentHeading = DefaultHeading
		currentContent []string
	)
	flush := func() {
		if len(currentContent) > 0 {
			doc.upsertSection(currentHeading, strings.Join(currentContent, "\n"))
			currentContent = nil
		}
	}

	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		fullText = append(fullText, text)

		if isHeading(b) {
			flush()
			currentHeading = text
			continue
		}

		// Blocks consumed by the metadata phase stay out of section content.
		// The value comparison below is raw text equality: a legitimate
		// content line that happens to equal a metadata value is dropped too,
		// a known limitation carried over deliberately.
		if metadataBlocks[text] || metadataValues[text] {
			continue
		}
		currentContent = append(currentContent, text)
	}
	flush()

	doc.FullText = strings.Join(fullText, "\n")
	return doc
}

// IsHeadingCandidate reports whether a plain text line looks like a section
// title: short, few words, no terminal sentence punctuation, no embedded
// colon, leading capital and at least one further capital letter.
func IsHeadingCandidate(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || len(text) >= headingMaxLen {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?', ',', ';', ':':
		return false
	}
	// "Document ID: SOP-007" shaped lines are metadata, never titles.
	if strings.Contains(text, ":") {
		return false
	}
	if len(strings.Fields(text)) > headingMaxWords {
		return false
	}

	runes := []rune(text)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func (d *ParsedDocument) upsertSection(title, body string) {
	for i := range d.Sections {
		if d.Sections[i].Title == title {
			d.Sections[i].Body = body
			return
		}
	}
	d.Sections = append(d.Sections, Section{Title: title, Body: body})
}
