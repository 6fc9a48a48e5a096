package decoder

// DecodePlainText decodes UTF-8 plain text. Plain text carries no
// heading styling, so the segmenter applies heuristics downstream.
func DecodePlainText(content []byte) (*Result, error) {
	return &Result{
		Blocks: splitBlocks(string(content)),
		Styled: false,
	}, nil
}
