package errors

// ErrCode business error code type
type ErrCode int

const (
	// generic 1000-1999
	ErrInvalidParameter ErrCode = 1001 // bad request parameter
	ErrInternalError    ErrCode = 1002 // internal error
	ErrNotFound         ErrCode = 1003 // resource not found
	ErrOperationFailed  ErrCode = 1004 // operation failed
	ErrConfiguration    ErrCode = 1005 // invalid or missing configuration

	// model providers 2000-2999
	ErrEmbeddingFailed     ErrCode = 2001 // embedding service call failed
	ErrCompletionFailed    ErrCode = 2002 // completion service call failed
	ErrProviderUnavailable ErrCode = 2003 // provider unreachable, degraded fallback engaged
	ErrParseFailure        ErrCode = 2004 // completion output is not valid structured data

	// documents and chunking 3000-3999
	ErrDocumentEmpty   ErrCode = 3001 // document has no content
	ErrChunkConfig     ErrCode = 3002 // chunk overlap >= chunk size
	ErrIndexingFailed  ErrCode = 3003 // ingestion pipeline failed
	ErrTransformFailed ErrCode = 3004 // structured split failed

	// vector store 4000-4999
	ErrVectorStoreInit   ErrCode = 4001 // vector store initialization failed
	ErrIndexNotFound     ErrCode = 4002 // index does not exist
	ErrDimensionMismatch ErrCode = 4003 // vector length does not match index dimension
	ErrVectorInsert      ErrCode = 4004 // vector upsert failed
	ErrVectorSearch      ErrCode = 4005 // vector search failed
	ErrVectorDelete      ErrCode = 4006 // vector delete failed

	// retrieval 5000-5999
	ErrRetrievalFailed ErrCode = 5001 // retrieval failed

	// generation 6000-6999
	ErrTaskConfig      ErrCode = 6001 // malformed task parameters
	ErrGenerationError ErrCode = 6002 // generation pipeline failed
)

// HTTPStatusCode returns the HTTP status code mapped to the error code.
// Used by API collaborators that surface core errors over HTTP.
func (e ErrCode) HTTPStatusCode() int {
	switch {
	case e >= 1001 && e <= 1999:
		switch e {
		case ErrInvalidParameter, ErrConfiguration:
			return 400
		case ErrNotFound:
			return 404
		default:
			return 500
		}
	case e >= 3000 && e <= 3999:
		if e == ErrChunkConfig || e == ErrDocumentEmpty {
			return 400
		}
		return 500
	case e >= 4000 && e <= 4999:
		switch e {
		case ErrIndexNotFound:
			return 404
		case ErrDimensionMismatch:
			return 400
		default:
			return 500
		}
	case e >= 6000 && e <= 6999:
		if e == ErrTaskConfig {
			return 400
		}
		return 500
	default:
		return 500
	}
}
