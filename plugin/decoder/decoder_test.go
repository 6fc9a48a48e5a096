package decoder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclave/doclave/plugin/parser"
)

func TestDecodeDispatch(t *testing.T) {
	res, err := Decode("notes.txt", []byte("hello\nworld"))
	require.NoError(t, err)
	require.Len(t, res.Blocks, 2)
	require.False(t, res.Styled)

	res, err = Decode("README.md", []byte("# Title"))
	require.NoError(t, err)
	require.True(t, res.Styled)

	_, err = Decode("archive.zip", []byte("PK"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSupported(t *testing.T) {
	require.True(t, Supported("sop.pdf"))
	require.True(t, Supported("SOP.MD"))
	require.True(t, Supported("notes.txt"))
	require.False(t, Supported("image.png"))
	require.False(t, Supported("noextension"))
}

func TestDecodePlainTextLines(t *testing.T) {
	content := "Document ID: SOP-001\nVersion: 2.0\n\nPurpose\nThis SOP defines things.\n"
	res, err := DecodePlainText([]byte(content))
	require.NoError(t, err)
	require.False(t, res.Styled)
	require.Equal(t, []parser.Block{
		{Text: "Document ID: SOP-001"},
		{Text: "Version: 2.0"},
		{Text: "Purpose"},
		{Text: "This SOP defines things."},
	}, res.Blocks)
}

func TestDecodePlainTextEmpty(t *testing.T) {
	res, err := DecodePlainText(nil)
	require.NoError(t, err)
	require.Empty(t, res.Blocks)
}

func TestDecodeMarkdownHeadings(t *testing.T) {
	content := "Document ID: SOP-001\n\n# Purpose\n\nThis SOP defines cleaning procedures.\nIt applies site wide.\n\n## Scope\n\nAll production areas.\n"
	res, err := DecodeMarkdown([]byte(content))
	require.NoError(t, err)
	require.True(t, res.Styled)

	var headings []string
	var body []string
	for _, b := range res.Blocks {
		if b.Heading {
			headings = append(headings, b.Text)
		} else {
			body = append(body, b.Text)
		}
	}
	require.Equal(t, []string{"Purpose", "Scope"}, headings)
	require.Contains(t, body, "Document ID: SOP-001")
	require.Contains(t, body, "This SOP defines cleaning procedures.")
	require.Contains(t, body, "It applies site wide.")
	require.Contains(t, body, "All production areas.")
}

func TestDecodeMarkdownEmpty(t *testing.T) {
	res, err := DecodeMarkdown(nil)
	require.NoError(t, err)
	require.Empty(t, res.Blocks)
}

func TestDecodePDFEmpty(t *testing.T) {
	res, err := DecodePDF(nil)
	require.NoError(t, err)
	require.Empty(t, res.Blocks)
	require.Zero(t, res.PageCount)
}

func TestDecodePDFGarbage(t *testing.T) {
	_, err := DecodePDF([]byte("not a pdf at all"))
	require.Error(t, err)
}
