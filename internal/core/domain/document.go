package domain

import "time"

// Well-known metadata keys shared by normalisers, the chunker and the index.
const (
	// MetaSource is the path of the file a Document came from.
	MetaSource = "source"

	// MetaPage is the 0-based page number for paginated formats.
	MetaPage = "page"

	// MetaStartIndex is the rune offset of a Chunk within its parent Document.
	MetaStartIndex = "start_index"

	// MetaTitle is the human-readable title of the source file.
	MetaTitle = "title"

	// MetaMIMEType is the MIME type the Document was normalised from.
	MetaMIMEType = "mime_type"

	// MetaFormat is the short format name (txt, pdf, docx).
	MetaFormat = "format"
)

// Document is the normalised text extracted from one source file.
// A single source file may yield several Documents (one per PDF page).
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location of the source file.
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Metadata carries provenance (source, page) and format details.
	Metadata map[string]any
}

// Chunk is a contiguous substring of a Document's content.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Metadata is inherited from the parent Document plus start_index.
	Metadata map[string]any
}

// StartIndex returns the chunk's start offset, or -1 when it is not recorded.
func (c Chunk) StartIndex() int {
	switch v := c.Metadata[MetaStartIndex].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

// IndexEntry is one persisted (Chunk text, Embedding, metadata) triple.
type IndexEntry struct {
	Chunk     Chunk
	Embedding []float32
}

// IndexManifest describes one persisted Index snapshot.
type IndexManifest struct {
	// EmbeddingModel is the model that produced the stored vectors.
	EmbeddingModel string

	// Dimensions is the vector size shared by every entry.
	Dimensions int

	// Entries is the number of stored entries.
	Entries int

	// CreatedAt is when the snapshot was written.
	CreatedAt time.Time
}

// RetrievalResult is an IndexEntry scored against one query.
// Higher scores mean more similar. Never persisted.
type RetrievalResult struct {
	Entry IndexEntry
	Score float64
}

// NoContextAnswer is returned when retrieval finds nothing.
const NoContextAnswer = "No relevant context found."

// Answer is the response of the query path.
type Answer struct {
	// Answer is the generated text.
	Answer string `json:"answer"`

	// Sources are the retrieved chunk texts, verbatim and in retrieval order.
	Sources []string `json:"sources"`
}

// EmptyAnswer returns the fixed response used when nothing relevant was retrieved.
func EmptyAnswer() *Answer {
	return &Answer{Answer: NoContextAnswer, Sources: []string{}}
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Root is the corpus directory that was ingested.
	Root string

	// Files is the number of eligible files discovered.
	Files int

	// Documents is the number of Documents that reached the chunker.
	Documents int

	// Chunks is the number of chunks embedded and persisted.
	Chunks int

	// Skipped lists files that failed extraction.
	Skipped []SkippableLoadError

	// Empty is true when the run was a no-op because the corpus produced no chunks.
	Empty bool

	// Duration is the wall time of the run.
	Duration time.Duration
}
