package chunker

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/awslabs/centralized-logging/transform"
)

func makeDocs(n int) []transform.Document {
	docs := make([]transform.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, transform.Document{"id": fmt.Sprintf("doc-%d", i)})
	}
	return docs
}

func TestChunkDocuments(t *testing.T) {
	tests := []struct {
		name          string
		maxBatchCount int
		docs          int
		wantBatches   []int
	}{
		{
			name:          "empty input yields no batches",
			maxBatchCount: 3,
			docs:          0,
			wantBatches:   nil,
		},
		{
			name:          "single partial batch",
			maxBatchCount: 3,
			docs:          2,
			wantBatches:   []int{2},
		},
		{
			name:          "exact fit",
			maxBatchCount: 3,
			docs:          3,
			wantBatches:   []int{3},
		},
		{
			name:          "one over the ceiling",
			maxBatchCount: 3,
			docs:          4,
			wantBatches:   []int{3, 1},
		},
		{
			name:          "many full batches plus remainder",
			maxBatchCount: 3,
			docs:          10,
			wantBatches:   []int{3, 3, 3, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunker(tt.maxBatchCount)
			batches, err := c.ChunkDocuments(makeDocs(tt.docs))
			if err != nil {
				t.Fatalf("Failed to chunk documents: %v", err)
			}
			if len(batches) != len(tt.wantBatches) {
				t.Fatalf("Expected %d batches, got %d", len(tt.wantBatches), len(batches))
			}

			seen := make(map[string]bool)
			for i, batch := range batches {
				if len(batch.Records) != tt.wantBatches[i] {
					t.Errorf("Batch %d: expected %d records, got %d", i, tt.wantBatches[i], len(batch.Records))
				}
				wantBytes := 0
				for _, rec := range batch.Records {
					var doc map[string]any
					if err := json.Unmarshal(rec, &doc); err != nil {
						t.Errorf("Batch %d: record is not valid JSON: %v", i, err)
						continue
					}
					id, _ := doc["id"].(string)
					if seen[id] {
						t.Errorf("Batch %d: document %s emitted twice", i, id)
					}
					seen[id] = true
					wantBytes += len(rec)
				}
				if batch.Bytes != wantBytes {
					t.Errorf("Batch %d: expected %d bytes, got %d", i, wantBytes, batch.Bytes)
				}
			}
			if len(seen) != tt.docs {
				t.Errorf("Expected %d distinct documents across batches, got %d", tt.docs, len(seen))
			}
		})
	}
}

func TestNewChunkerClampsBadSizes(t *testing.T) {
	for _, bad := range []int{-1, 0, MaxBatchCount + 1} {
		c := NewChunker(bad)
		if c.maxBatchCount != MaxBatchCount {
			t.Errorf("NewChunker(%d): expected max %d, got %d", bad, MaxBatchCount, c.maxBatchCount)
		}
	}
}

func TestDefaultCeilingSplitsLargePayloads(t *testing.T) {
	c := NewChunker(MaxBatchCount)
	batches, err := c.ChunkDocuments(makeDocs(MaxBatchCount + 1))
	if err != nil {
		t.Fatalf("Failed to chunk documents: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	for i, batch := range batches {
		if len(batch.Records) > MaxBatchCount {
			t.Errorf("Batch %d exceeds the ceiling: %d > %d", i, len(batch.Records), MaxBatchCount)
		}
	}
}
