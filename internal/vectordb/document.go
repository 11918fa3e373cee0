package vectordb

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Metadata holds the chunk attributes the query core reads.
type Metadata struct {
	Source     string // absolute path
	SourcePath string
	Mtime      float64
	ChunkHash  string
	FileID     string
	ChunkIndex int
	LineStart  int // code chunks
	Page       int // PDF chunks
	Silo       string
	DocType    string
	IsLocal    bool
}

// ModTime converts Mtime to local time.
func (m Metadata) ModTime() time.Time {
	sec := int64(m.Mtime)
	return time.Unix(sec, int64((m.Mtime-float64(sec))*1e9)).Local()
}

// Ext returns the lowercase source extension.
func (m Metadata) Ext() string {
	return strings.ToLower(filepath.Ext(m.Source))
}

// Hit is one chunk returned by a query or get. Lexical gets carry no
// distance.
type Hit struct {
	ID          string
	Document    string
	Metadata    Metadata
	Distance    float64
	HasDistance bool
}

// Similarity converts the distance to 1/(1+d).
func (h Hit) Similarity() float64 {
	return 1 / (1 + h.Distance)
}

// Document is a chunk to be stored.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Metadata keys as stored in the vector index.
const (
	KeySource     = "source"
	KeySourcePath = "source_path"
	KeyMtime      = "mtime"
	KeyChunkHash  = "chunk_hash"
	KeyFileID     = "file_id"
	KeyChunkIndex = "chunk_index"
	KeyLineStart  = "line_start"
	KeyPage       = "page"
	KeySilo       = "silo"
	KeyDocType    = "doc_type"
	KeyIsLocal    = "is_local"
)

// metadataToMap converts Metadata to the flat map[string]string chromem stores.
func metadataToMap(m Metadata) map[string]string {
	md := map[string]string{
		KeySource:     m.Source,
		KeySourcePath: m.SourcePath,
		KeyMtime:      strconv.FormatFloat(m.Mtime, 'f', -1, 64),
		KeyChunkHash:  m.ChunkHash,
		KeyFileID:     m.FileID,
		KeyChunkIndex: strconv.Itoa(m.ChunkIndex),
		KeySilo:       m.Silo,
		KeyDocType:    m.DocType,
		KeyIsLocal:    "0",
	}
	if m.LineStart > 0 {
		md[KeyLineStart] = strconv.Itoa(m.LineStart)
	}
	if m.Page > 0 {
		md[KeyPage] = strconv.Itoa(m.Page)
	}
	if m.IsLocal {
		md[KeyIsLocal] = "1"
	}
	return md
}

// mapToMetadata converts a flat map back to Metadata.
func mapToMetadata(m map[string]string) Metadata {
	mtime, _ := strconv.ParseFloat(m[KeyMtime], 64)
	chunkIndex, _ := strconv.Atoi(m[KeyChunkIndex])
	lineStart, _ := strconv.Atoi(m[KeyLineStart])
	page, _ := strconv.Atoi(m[KeyPage])

	return Metadata{
		Source:     m[KeySource],
		SourcePath: m[KeySourcePath],
		Mtime:      mtime,
		ChunkHash:  m[KeyChunkHash],
		FileID:     m[KeyFileID],
		ChunkIndex: chunkIndex,
		LineStart:  lineStart,
		Page:       page,
		Silo:       m[KeySilo],
		DocType:    m[KeyDocType],
		IsLocal:    m[KeyIsLocal] == "1",
	}
}

// Map returns the flat form evaluated by filters.
func (m Metadata) Map() map[string]string {
	return metadataToMap(m)
}

// Field returns the stored string value of a metadata key.
func (m Metadata) Field(key string) string {
	return metadataToMap(m)[key]
}
