package processor

import (
	"context"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/markdown"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	einoschema "github.com/cloudwego/eino/schema"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/errors"
	"github.com/edugo/edugen/pkg/schema"
)

// transformer routes markdown material to the header splitter and everything
// else to the recursive splitter.
type transformer struct {
	markdown  document.Transformer
	recursive document.Transformer
}

// NewTransformer builds the structure-aware splitter used for formatted
// lesson material. Sizes are in characters, matching the upstream splitter.
func NewTransformer(ctx context.Context, chunkSize, overlapSize int) (document.Transformer, error) {
	trans := &transformer{}

	recTrans, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   chunkSize,
		OverlapSize: overlapSize,
		Separators:  []string{"\n\n", "\n", ". ", "? ", "! "},
	})
	if err != nil {
		return nil, err
	}

	mdTrans, err := markdown.NewHeaderSplitter(ctx, &markdown.HeaderConfig{
		Headers:     map[string]string{"#": "h1", "##": "h2", "###": "h3"},
		TrimHeaders: false,
	})
	if err != nil {
		return nil, err
	}

	trans.recursive = recTrans
	trans.markdown = mdTrans
	return trans, nil
}

func (x *transformer) Transform(ctx context.Context, docs []*einoschema.Document, opts ...document.TransformerOption) ([]*einoschema.Document, error) {
	isMd := false
	for _, doc := range docs {
		if doc.MetaData[common.MetaFormat] == common.FormatMarkdown {
			isMd = true
			break
		}
	}
	if isMd {
		return x.markdown.Transform(ctx, docs, opts...)
	}
	return x.recursive.Transform(ctx, docs, opts...)
}

// SplitStructured chunks one document along its structure instead of the word
// window, keeping the same identifier and linkage contract as Chunk.
func SplitStructured(ctx context.Context, doc *schema.Document, chunkSize, overlapSize int) ([]*schema.Document, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "document is nil")
	}
	if overlapSize >= chunkSize {
		return nil, errors.Newf(errors.ErrChunkConfig, "chunk overlap (%d) must be less than chunk size (%d)", overlapSize, chunkSize)
	}

	trans, err := NewTransformer(ctx, chunkSize, overlapSize)
	if err != nil {
		return nil, errors.Newf(errors.ErrTransformFailed, "failed to build transformer: %v", err)
	}

	parts, err := trans.Transform(ctx, []*einoschema.Document{{
		ID:       doc.ID,
		Content:  doc.Content,
		MetaData: doc.CloneMetaData(),
	}})
	if err != nil {
		return nil, errors.Newf(errors.ErrTransformFailed, "failed to split document %s: %v", doc.ID, err)
	}
	if len(parts) == 0 {
		return []*schema.Document{doc}, nil
	}

	chunks := make([]*schema.Document, 0, len(parts))
	for i, part := range parts {
		meta := doc.CloneMetaData()
		for k, v := range part.MetaData {
			meta[k] = v
		}
		meta[common.MetaParentDocumentID] = doc.ID
		meta[common.MetaChunkIndex] = i

		chunks = append(chunks, &schema.Document{
			ID:       ChunkID(doc.ID, i),
			Content:  part.Content,
			MetaData: meta,
		})
	}
	return chunks, nil
}
