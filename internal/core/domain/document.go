package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileType is the detected kind of an uploaded file.
type FileType string

// Supported file types.
const (
	FileTypePDF   FileType = "pdf"
	FileTypeWord  FileType = "word"
	FileTypeImage FileType = "image"
	FileTypeExcel FileType = "excel"
	FileTypeCSV   FileType = "csv"
	FileTypeText  FileType = "text"
	FileTypeOther FileType = "other"
)

// IsValid returns true if the file type is recognised.
func (t FileType) IsValid() bool {
	switch t {
	case FileTypePDF, FileTypeWord, FileTypeImage, FileTypeExcel, FileTypeCSV, FileTypeText, FileTypeOther:
		return true
	default:
		return false
	}
}

// DetectFileType maps a filename extension to a FileType.
func DetectFileType(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FileTypePDF
	case ".doc", ".docx":
		return FileTypeWord
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return FileTypeImage
	case ".xls", ".xlsx":
		return FileTypeExcel
	case ".csv":
		return FileTypeCSV
	case ".txt", ".md", ".markdown", ".text":
		return FileTypeText
	default:
		return FileTypeOther
	}
}

// ProcessingStatus is the indexing state of a document.
// Transitions: pending -> processing -> completed | failed.
type ProcessingStatus string

// Processing statuses.
const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// IsTerminal returns true once indexing has finished, successfully or not.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document is an uploaded file and the text extracted from it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// ProjectID links to the owning Project.
	ProjectID string

	// Filename is the original upload name.
	Filename string

	// FileType is the detected type of the upload.
	FileType FileType

	// Size is the upload size in bytes.
	Size int64

	// StorageLocator is where the original bytes live (path or object key).
	StorageLocator string

	// Description is human-entered context. Indexing never overwrites it.
	Description string

	// Status is the processing state.
	Status ProcessingStatus

	// ExtractedText is the full text that was chunked and embedded.
	// Empty until processed, and empty when nothing was worth indexing.
	ExtractedText string

	// HasExtractedContent distinguishes a completed document backed by real
	// extracted text from one completed without anything to index.
	HasExtractedContent bool

	// FailureReason records why the last indexing attempt failed.
	FailureReason string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// UploadedBy identifies the uploader.
	UploadedBy string

	// UploadedAt is when the document was added.
	UploadedAt time.Time

	// ProcessedAt is set when indexing completes.
	ProcessedAt *time.Time

	// StatusChangedAt is when Status last changed. A zero value means the
	// document predates tracking; readers fall back to UploadedAt.
	StatusChangedAt time.Time
}

// SetStatus moves the document to status and stamps the change.
func (d *Document) SetStatus(status ProcessingStatus, at time.Time) {
	d.Status = status
	d.StatusChangedAt = at
}

// StatusSince returns when the document entered its current status.
func (d *Document) StatusSince() time.Time {
	if d.StatusChangedAt.IsZero() {
		return d.UploadedAt
	}
	return d.StatusChangedAt
}

// Validate checks the completed-status invariant: a completed document either
// carries real extracted text, or explicitly says it has none.
func (d *Document) Validate() error {
	if d.ID == "" || d.ProjectID == "" {
		return fmt.Errorf("%w: document requires id and project id", ErrInvalidInput)
	}
	if d.Status == StatusCompleted && d.HasExtractedContent && strings.TrimSpace(d.ExtractedText) == "" {
		return fmt.Errorf("%w: completed document %s claims content but has no extracted text", ErrInvalidInput, d.ID)
	}
	return nil
}

// Chunk is a bounded slice of a document's extracted text together with its embedding.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// ProjectID is denormalised from the document so searches can be scoped.
	ProjectID string

	// Content is the text content of this chunk.
	Content string

	// Index is the zero-based reading-order position within the document.
	Index int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata holds token_count, char_length and chunk_index.
	Metadata map[string]any
}

// ChunkDraft is a chunk produced by the chunker, before it is embedded.
type ChunkDraft struct {
	Content  string
	Index    int
	Metadata map[string]any
}

// Extraction is the text an extractor produced for a file.
// A degraded extraction carries placeholder or metadata-only text and
// must not be embedded.
type Extraction struct {
	Text     string
	Degraded bool
	Reason   string
}

// DegradedExtraction builds an extraction that signals no usable text.
func DegradedExtraction(reason string) Extraction {
	return Extraction{Degraded: true, Reason: reason}
}

// IndexResult summarises one indexing run.
type IndexResult struct {
	DocumentID string
	Status     ProcessingStatus
	ChunkCount int

	// Skipped is true when the text was too short or degraded and the
	// document completed without chunks.
	Skipped  bool
	Duration time.Duration
	Err      error
}
