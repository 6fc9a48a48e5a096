package linter

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// LoadGoldenEmbeddings reads the golden template embeddings JSON, a map
// of section title to embedding vector. A missing path returns an empty
// map so the conformance check simply stays disabled.
func LoadGoldenEmbeddings(path string) (map[string][]float32, error) {
	if path == "" {
		return map[string][]float32{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]float32{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read golden embeddings %s", path)
	}

	golden := map[string][]float32{}
	if err := json.Unmarshal(data, &golden); err != nil {
		return nil, errors.Wrapf(err, "failed to parse golden embeddings %s", path)
	}
	return golden, nil
}
