// Package parser turns decoded document blocks into a structured document:
// typed metadata, named sections and a full-text stream.
package parser

import "strings"

// Block is a single decoded text block (paragraph or page fragment),
// optionally flagged as heading-styled by the decoder.
type Block struct {
	Text    string
	Heading bool
}

// Metadata holds the fields detected in a document's leading blocks. Known
// fields are typed; anything else lands in Extra under its original key or a
// positional placeholder.
type Metadata struct {
	DocumentID    string
	Title         string
	Version       string
	EffectiveDate string
	Author        string
	PageCount     int

	Extra map[string]string
}

// Set records a key/value pair, routing known keys to their typed field.
func (m *Metadata) Set(key, value string) {
	switch normalizeMetadataKey(key) {
	case "document id", "document no", "doc id":
		m.DocumentID = value
	case "title":
		m.Title = value
	case "version", "revision", "rev":
		m.Version = value
	case "effective date", "date":
		m.EffectiveDate = value
	case "author", "prepared by":
		m.Author = value
	default:
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[key] = value
	}
}

// Values returns every metadata value, typed fields included.
func (m *Metadata) Values() []string {
	values := make([]string, 0, len(m.Extra)+5)
	for _, v := range []string{m.DocumentID, m.Title, m.Version, m.EffectiveDate, m.Author} {
		if v != "" {
			values = append(values, v)
		}
	}
	for _, v := range m.Extra {
		values = append(values, v)
	}
	return values
}

func normalizeMetadataKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Section is a named, contiguous span of document text delimited by detected
// headings.
type Section struct {
	Title string
	Body  string
}

// ParsedDocument is the segmenter output: metadata, ordered sections and the
// newline-joined full text. It is immutable once produced.
type ParsedDocument struct {
	Metadata Metadata
	Sections []Section
	FullText string
}

// Section returns the body of the named section, matching titles
// case-insensitively.
func (d *ParsedDocument) Section(title string) (string, bool) {
	for _, s := range d.Sections {
		if strings.EqualFold(strings.TrimSpace(s.Title), strings.TrimSpace(title)) {
			return s.Body, true
		}
	}
	return "", false
}

// SectionTitles returns the detected section titles in document order.
func (d *ParsedDocument) SectionTitles() []string {
	titles := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		titles[i] = s.Title
	}
	return titles
}
