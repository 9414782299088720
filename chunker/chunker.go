package chunker

import (
	"encoding/json"
	"fmt"

	"github.com/awslabs/centralized-logging/transform"
)

// MaxBatchCount stays one record below the delivery stream's documented
// 500-record batch ceiling.
const MaxBatchCount = 499

// Batch is one sink call: serialized documents plus their cumulative size,
// which the usage metric reports after a successful send.
type Batch struct {
	Records [][]byte
	Bytes   int
}

type Chunker struct {
	maxBatchCount int
}

func NewChunker(maxBatchCount int) *Chunker {
	if maxBatchCount <= 0 || maxBatchCount > MaxBatchCount {
		maxBatchCount = MaxBatchCount
	}
	return &Chunker{maxBatchCount: maxBatchCount}
}

// ChunkDocuments serializes documents and splits them into batches the sink
// accepts. Every document lands in exactly one batch.
func (c *Chunker) ChunkDocuments(docs []transform.Document) ([]Batch, error) {
	var batches []Batch
	var current Batch
	for _, doc := range docs {
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}

		current.Records = append(current.Records, b)
		current.Bytes += len(b)

		if len(current.Records) >= c.maxBatchCount {
			batches = append(batches, current)
			current = Batch{}
		}
	}

	if len(current.Records) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}
