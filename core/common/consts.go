package common

const (
	// metadata keys carried on documents and chunks
	MetaSubject = "subject"
	MetaGrade   = "grade"
	MetaType    = "type"
	MetaTags    = "tags"
	MetaSource  = "source"
	MetaFormat  = "format"

	// MetaContent stores chunk text alongside its vector so retrieval can
	// rebuild documents without a separate content store
	MetaContent = "content"

	// chunk linkage keys added by the document processor
	MetaParentDocumentID = "parent_document_id"
	MetaChunkIndex       = "chunk_index"

	// FormatMarkdown selects the structure-aware splitter during ingestion
	FormatMarkdown = "markdown"

	// DefaultIndexName is the index used when a request names none
	DefaultIndexName = "teaching_material"

	// DefaultDimension matches the default embedding model output size
	DefaultDimension = 1536

	// MetricCosine is the only similarity metric the core ranks by
	MetricCosine = "cosine"
)
