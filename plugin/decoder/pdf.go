package decoder

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/doclave/doclave/plugin/parser"
)

// DecodePDF extracts text from a PDF, one block per non-empty line.
// Pages that fail to extract are skipped rather than failing the whole
// document.
func DecodePDF(content []byte) (*Result, error) {
	if len(content) == 0 {
		return &Result{}, nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open PDF")
	}

	var blocks []parser.Block
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			slog.Warn("failed to extract PDF page text", "page", i, "error", err)
			continue
		}

		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			blocks = append(blocks, parser.Block{Text: line})
		}
	}

	return &Result{
		Blocks:    blocks,
		Styled:    false,
		PageCount: pages,
	}, nil
}
