// Package decoder turns raw document bytes into ordered text blocks for
// segmentation. Each format decoder reports whether it can distinguish
// heading styling; without styling the segmenter falls back to heuristics.
package decoder

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/doclave/doclave/plugin/parser"
)

// Supported file extensions for decoding.
var SupportedExtensions = []string{
	".pdf",
	".md",
	".markdown",
	".txt",
	".text",
}

// Result is the output of decoding one document.
type Result struct {
	// Blocks are the document's text blocks in reading order.
	Blocks []parser.Block
	// Styled reports whether heading styling was available to the
	// decoder, so Heading flags on blocks are authoritative.
	Styled bool
	// PageCount is the page count for paginated formats, zero otherwise.
	PageCount int
}

// ErrUnsupportedFormat is returned when no decoder handles the file type.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Decode decodes content by file extension.
func Decode(filename string, content []byte) (*Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return DecodePDF(content)
	case ".md", ".markdown":
		return DecodeMarkdown(content)
	case ".txt", ".text":
		return DecodePlainText(content)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "file %q", filename)
	}
}

// Supported reports whether the filename has a decodable extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// splitBlocks splits plain text into one block per non-empty line.
// Line granularity matters: the segmenter reads metadata off individual
// leading lines.
func splitBlocks(text string) []parser.Block {
	var blocks []parser.Block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, parser.Block{Text: line})
	}
	return blocks
}
