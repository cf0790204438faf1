package retriever

import (
	"fmt"
	"strings"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/pkg/schema"
)

// AssembleContext joins document blocks into a single prompt context, each
// block prefixed with a metadata header, stopping at the token budget. The
// last block that does not fit whole is cut at a sentence boundary.
const blockSeparator = "\n\n---\n\n"

func AssembleContext(docs []*schema.Document, maxTokens int) string {
	if maxTokens <= 0 || len(docs) == 0 {
		return ""
	}

	// The budget binds the joined result, so accounting runs in characters;
	// summing per-block token estimates floors away remainders and lets many
	// small blocks overshoot the budget together.
	var (
		blocks []string
		chars  int
	)
	for _, doc := range docs {
		if doc == nil || doc.Content == "" {
			continue
		}
		block := doc.Content
		if header := renderHeader(doc.MetaData); header != "" {
			block = header + "\n\n" + doc.Content
		}

		joined := chars + len(block)
		if len(blocks) > 0 {
			joined += len(blockSeparator)
		}
		if common.EstimateTokensForLength(joined) <= maxTokens {
			blocks = append(blocks, block)
			chars = joined
			continue
		}

		prefix := chars
		if len(blocks) > 0 {
			prefix += len(blockSeparator)
		}
		remaining := maxTokens - common.EstimateTokensForLength(prefix)
		if remaining > 0 {
			if cut := common.TruncateToTokens(block, remaining); cut != "" {
				blocks = append(blocks, cut)
			}
		}
		break
	}
	return strings.Join(blocks, blockSeparator)
}

// renderHeader formats the pedagogical metadata of one document, for example
// "[Subject: Science | Grade: 5 | Type: textbook | Tags: biology, plants]".
// Documents without any of those keys get no header.
func renderHeader(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}

	var parts []string
	if v, ok := metadata[common.MetaSubject]; ok {
		parts = append(parts, fmt.Sprintf("Subject: %v", v))
	}
	if v, ok := metadata[common.MetaGrade]; ok {
		parts = append(parts, fmt.Sprintf("Grade: %v", v))
	}
	if v, ok := metadata[common.MetaType]; ok {
		parts = append(parts, fmt.Sprintf("Type: %v", v))
	}
	if tags := renderTags(metadata[common.MetaTags]); tags != "" {
		parts = append(parts, "Tags: "+tags)
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " | ") + "]"
}

// renderTags normalizes the tag list, which arrives as []string before
// indexing and as []any after a JSON round trip through a store.
func renderTags(value any) string {
	switch tags := value.(type) {
	case nil:
		return ""
	case string:
		return tags
	case []string:
		return strings.Join(tags, ", ")
	case []any:
		parts := make([]string, 0, len(tags))
		for _, tag := range tags {
			parts = append(parts, fmt.Sprintf("%v", tag))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", value)
	}
}
