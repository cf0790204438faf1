package retriever

import "github.com/edugo/edugen/pkg/schema"

// RetrieveReq retrieval request parameters.
// Query is required; the rest fall back to RetrieverConfig defaults when nil.
type RetrieveReq struct {
	Query     string         // search text (required)
	IndexName string         // target index (optional, config default)
	Filter    map[string]any // exact-match metadata filter (optional)

	TopK             *int // result count (optional)
	MaxContextTokens *int // context budget (optional)
}

// Copy creates a copy of the request
func (r *RetrieveReq) Copy() *RetrieveReq {
	filter := make(map[string]any, len(r.Filter))
	for k, v := range r.Filter {
		filter[k] = v
	}
	return &RetrieveReq{
		Query:            r.Query,
		IndexName:        r.IndexName,
		Filter:           filter,
		TopK:             r.TopK,
		MaxContextTokens: r.MaxContextTokens,
	}
}

// RetrieveResult holds ranked documents plus the assembled context block
// handed to the generation layer.
type RetrieveResult struct {
	Query     string
	Documents []*schema.Document
	Context   string
	Degraded  bool // query embedding came from the synthetic fallback
}
