package processor

import (
	"fmt"
	"strings"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/errors"
	"github.com/edugo/edugen/pkg/schema"
)

// ChunkID builds the deterministic identifier of the n-th chunk of a parent
// document.
func ChunkID(parentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", parentID, index)
}

// Chunk splits a document into overlapping word windows sized for the
// embedding model. Content at or below chunkSize words is returned unchanged
// as a single-element slice. Each chunk carries the parent metadata plus
// chunk linkage, under a deterministic "<parentId>-chunk-<n>" identifier.
func Chunk(doc *schema.Document, chunkSize, chunkOverlap int) ([]*schema.Document, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "document is nil")
	}
	if chunkSize <= 0 {
		return nil, errors.Newf(errors.ErrChunkConfig, "chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, errors.Newf(errors.ErrChunkConfig, "chunk overlap must not be negative, got %d", chunkOverlap)
	}
	// overlap >= size would stall the window; fail fast instead of looping
	if chunkOverlap >= chunkSize {
		return nil, errors.Newf(errors.ErrChunkConfig, "chunk overlap (%d) must be less than chunk size (%d)", chunkOverlap, chunkSize)
	}

	words := strings.Fields(doc.Content)
	if len(words) <= chunkSize {
		return []*schema.Document{doc}, nil
	}

	step := chunkSize - chunkOverlap
	var chunks []*schema.Document
	for i, start := 0, 0; start < len(words); i, start = i+1, start+step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}

		meta := doc.CloneMetaData()
		meta[common.MetaParentDocumentID] = doc.ID
		meta[common.MetaChunkIndex] = i

		chunks = append(chunks, &schema.Document{
			ID:       ChunkID(doc.ID, i),
			Content:  strings.Join(words[start:end], " "),
			MetaData: meta,
		})

		if end == len(words) {
			break
		}
	}

	return chunks, nil
}
