package schema

// Document represents a piece of educational content: a full document on
// ingestion, a chunk inside the vector index, or a retrieval hit.
type Document struct {
	// ID document unique identifier
	ID string `json:"id,omitempty"`
	// Content document body
	Content string `json:"content"`
	// MetaData domain tags (subject, grade, type, tags, source, chunk linkage)
	MetaData map[string]interface{} `json:"metadata,omitempty"`
	// Score relevance score attached during retrieval - float32 to match the vector stores
	Score float32 `json:"score"`
}

// CloneMetaData returns a shallow copy of the metadata map.
// Documents are immutable once chunked; derived chunks must not alias the parent map.
func (d *Document) CloneMetaData() map[string]interface{} {
	meta := make(map[string]interface{}, len(d.MetaData)+2)
	for k, v := range d.MetaData {
		meta[k] = v
	}
	return meta
}
