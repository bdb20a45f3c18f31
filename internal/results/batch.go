package results

import (
	"fmt"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// Batch partitions ranked findings into ordered chunks of at most size
// findings. Each chunk's StartIndex is its first finding's 1-based global
// position.
func Batch(findings []schemas.CanonicalFinding, size int) ([]schemas.Chunk, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, size)
	}
	var groups [][]schemas.CanonicalFinding
	for start := 0; start < len(findings); start += size {
		end := min(start+size, len(findings))
		groups = append(groups, findings[start:end:end])
	}
	return NumberChunks(groups), nil
}

// NumberChunks threads a running counter through pre-partitioned groups so
// that each chunk starts where the previous one ended.
func NumberChunks(groups [][]schemas.CanonicalFinding) []schemas.Chunk {
	chunks := make([]schemas.Chunk, 0, len(groups))
	next := 1
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		chunks = append(chunks, schemas.Chunk{
			Index:      len(chunks),
			StartIndex: next,
			Findings:   g,
		})
		next += len(g)
	}
	return chunks
}
