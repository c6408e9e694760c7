package httpapi

import (
	"time"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// ProjectRequest creates a project.
type ProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Owner       string `json:"owner"`
}

// ProjectResponse is the JSON form of a project.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Owner       string    `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProject(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		Status:      string(p.Status),
		Owner:       p.Owner,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// DocumentResponse is the JSON form of a document. The extracted text is
// omitted from listings.
type DocumentResponse struct {
	ID                  string         `json:"id"`
	ProjectID           string         `json:"project_id"`
	Filename            string         `json:"filename"`
	FileType            string         `json:"file_type"`
	Size                int64          `json:"size"`
	Description         string         `json:"description,omitempty"`
	Status              string         `json:"status"`
	HasExtractedContent bool           `json:"has_extracted_content"`
	ExtractedText       string         `json:"extracted_text,omitempty"`
	FailureReason       string         `json:"failure_reason,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	UploadedBy          string         `json:"uploaded_by,omitempty"`
	UploadedAt          time.Time      `json:"uploaded_at"`
	ProcessedAt         *time.Time     `json:"processed_at,omitempty"`
	StatusChangedAt     time.Time      `json:"status_changed_at"`
}

func toDocument(d *domain.Document, withText bool) DocumentResponse {
	resp := DocumentResponse{
		ID:                  d.ID,
		ProjectID:           d.ProjectID,
		Filename:            d.Filename,
		FileType:            string(d.FileType),
		Size:                d.Size,
		Description:         d.Description,
		Status:              string(d.Status),
		HasExtractedContent: d.HasExtractedContent,
		FailureReason:       d.FailureReason,
		Metadata:            d.Metadata,
		UploadedBy:          d.UploadedBy,
		UploadedAt:          d.UploadedAt,
		ProcessedAt:         d.ProcessedAt,
		StatusChangedAt:     d.StatusSince(),
	}
	if withText {
		resp.ExtractedText = d.ExtractedText
	}
	return resp
}

// UploadResult reports one file of a multipart upload.
type UploadResult struct {
	Filename string            `json:"filename"`
	Document *DocumentResponse `json:"document,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// IndexResponse is the JSON form of an indexing run.
type IndexResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Skipped    bool   `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
}

func toIndexResult(r *domain.IndexResult) IndexResponse {
	return IndexResponse{
		DocumentID: r.DocumentID,
		Status:     string(r.Status),
		ChunkCount: r.ChunkCount,
		Skipped:    r.Skipped,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// ContextResponse carries the assembled retrieval context.
type ContextResponse struct {
	Query   string `json:"query"`
	Context string `json:"context"`
	Found   bool   `json:"found"`
}

// ReportRequest generates a report.
type ReportRequest struct {
	Type        string   `json:"type"`
	DocumentIDs []string `json:"document_ids"`
}
