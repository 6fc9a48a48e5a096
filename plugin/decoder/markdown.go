package decoder

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/doclave/doclave/plugin/parser"
)

var markdown = goldmark.New()

// DecodeMarkdown decodes a Markdown document. Headings come from the
// AST, so the result is styled and the segmenter trusts the Heading
// flags instead of guessing.
func DecodeMarkdown(content []byte) (*Result, error) {
	root := markdown.Parser().Parse(text.NewReader(content))

	var blocks []parser.Block
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			heading := strings.TrimSpace(nodeText(node, content))
			if heading == "" {
				continue
			}
			blocks = append(blocks, parser.Block{Text: heading, Heading: true})
		default:
			for _, line := range strings.Split(nodeText(n, content), "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				blocks = append(blocks, parser.Block{Text: line})
			}
		}
	}

	return &Result{
		Blocks: blocks,
		Styled: true,
	}, nil
}

// nodeText flattens a node's inline content to plain text. Block nodes
// that carry raw line segments (code blocks) are read from their
// segments directly.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 && n.FirstChild() == nil {
		for i := 0; i < n.Lines().Len(); i++ {
			seg := n.Lines().At(i)
			buf.Write(seg.Value(source))
		}
		return buf.String()
	}

	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
