// Package chunker splits text into bounded, overlapping, boundary-aware chunks
// suitable for embedding.
package chunker

import (
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize is the maximum character count per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the character count shared between consecutive chunks.
	DefaultChunkOverlap = 200

	// boundaryWindow is how far around the naive cut point we look for a
	// sentence terminator before giving up and cutting mid-sentence.
	boundaryWindow = 100
)

// Split divides text into chunks of at most maxSize characters, with
// consecutive chunks sharing an overlap-sized region. Cut points are moved to
// the nearest sentence terminator within boundaryWindow of the naive cut when
// one exists. Split is a pure function of its inputs.
//
// overlap must be strictly less than maxSize; anything else cannot make
// forward progress and panics.
func Split(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		panic(fmt.Sprintf("chunker: max size must be positive, got %d", maxSize))
	}
	if overlap < 0 || overlap >= maxSize {
		panic(fmt.Sprintf("chunker: overlap %d must be in [0, maxSize), maxSize=%d", overlap, maxSize))
	}

	if len(text) <= maxSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end < len(text) {
			if cut := findSentenceEnd(text, start, end); cut > start+overlap {
				// A terminator inside the overlap region would move the
				// cursor backwards; keep the naive cut in that case.
				end = cut
			}
		}

		sliceEnd := end
		if sliceEnd > len(text) {
			sliceEnd = len(text)
		}
		if chunk := strings.TrimSpace(text[start:sliceEnd]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		start = end - overlap
	}

	return chunks
}

// findSentenceEnd scans a fixed window around the naive cut point for the
// first sentence-terminating character and returns the position just after
// it, or the naive cut when none is found.
func findSentenceEnd(text string, start, naiveEnd int) int {
	lo := naiveEnd - boundaryWindow
	if lo < start {
		lo = start
	}
	hi := naiveEnd + boundaryWindow
	if hi > len(text) {
		hi = len(text)
	}

	for i := lo; i < hi; i++ {
		switch text[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return naiveEnd
}
