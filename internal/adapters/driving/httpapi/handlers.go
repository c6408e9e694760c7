package httpapi

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
)

// Projects

func (s *Server) createProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid project", err)
		return
	}
	projectType := domain.ProjectType(req.Type)
	if projectType == "" {
		projectType = domain.ProjectTypeGeneral
	}

	p, err := s.services.Projects.Create(c.Request.Context(), req.Name, req.Description, projectType, req.Owner)
	if err != nil {
		writeError(c, "Failed to create project", err)
		return
	}
	c.JSON(http.StatusCreated, toProject(p))
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.services.Projects.List(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to list projects", err)
		return
	}
	resp := make([]ProjectResponse, len(projects))
	for i := range projects {
		resp[i] = toProject(&projects[i])
	}
	c.JSON(http.StatusOK, gin.H{"projects": resp})
}

func (s *Server) getProject(c *gin.Context) {
	p, err := s.services.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get project", err)
		return
	}
	c.JSON(http.StatusOK, toProject(p))
}

func (s *Server) archiveProject(c *gin.Context) {
	if err := s.services.Projects.Archive(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "Failed to archive project", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Documents

func (s *Server) uploadDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "Invalid form data", err)
		return
	}
	files := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["file"]))
	files = append(files, form.File["files"]...)
	files = append(files, form.File["file"]...)
	if len(files) == 0 {
		badRequest(c, "No files provided", nil)
		return
	}
	if _, err := s.services.Projects.Get(ctx, projectID); err != nil {
		writeError(c, "Failed to upload documents", err)
		return
	}

	description := c.PostForm("description")
	uploadedBy := c.PostForm("uploaded_by")

	inputs := make([]driving.AddDocumentInput, 0, len(files))
	for _, fh := range files {
		locator, err := s.saveUpload(c, projectID, fh)
		if err != nil {
			writeError(c, "Failed to store upload", err)
			return
		}
		inputs = append(inputs, driving.AddDocumentInput{
			Filename:       filepath.Base(fh.Filename),
			Description:    description,
			UploadedBy:     uploadedBy,
			StorageLocator: locator,
			Size:           fh.Size,
		})
	}

	if s.config.Async {
		s.enqueueUploads(c, projectID, inputs)
		return
	}

	for i, fh := range files {
		rc, err := s.openUpload(inputs[i].StorageLocator, fh)
		if err != nil {
			writeError(c, "Failed to read upload", err)
			return
		}
		defer rc.Close()
		inputs[i].Content = rc
	}

	batch, err := s.services.Documents.AddBatch(ctx, projectID, inputs)
	if err != nil {
		writeError(c, "Failed to add documents", err)
		return
	}

	results := make([]UploadResult, len(batch))
	stored := 0
	var firstErr error
	for i, r := range batch {
		results[i] = UploadResult{Filename: r.Filename}
		if r.Document != nil {
			d := toDocument(r.Document, false)
			results[i].Document = &d
			stored++
		}
		if r.Err != nil {
			if domain.IsFatal(r.Err) {
				writeError(c, "Failed to add documents", r.Err)
				return
			}
			results[i].Error = r.Err.Error()
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}

	status := http.StatusCreated
	if stored == 0 && firstErr != nil {
		status = statusFor(firstErr)
	}
	c.JSON(status, gin.H{"results": results})
}

// enqueueUploads registers each upload as pending and hands it to the queue.
// A failed enqueue leaves the document pending for the recovery sweep.
func (s *Server) enqueueUploads(c *gin.Context, projectID string, inputs []driving.AddDocumentInput) {
	ctx := c.Request.Context()
	results := make([]UploadResult, len(inputs))
	for i, in := range inputs {
		results[i] = UploadResult{Filename: in.Filename}

		doc, err := s.services.Documents.Register(ctx, projectID, in)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		d := toDocument(doc, false)
		results[i].Document = &d

		if err := s.services.Queue.EnqueueIndex(ctx, doc.ID); err != nil {
			logger.Warn("Failed to enqueue %s: %v", doc.ID, err)
			results[i].Error = fmt.Sprintf("enqueue: %v", err)
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"results": results})
}

// saveUpload stores the file under UploadDir/<project>/ and returns its
// path. Without an upload directory nothing is stored.
func (s *Server) saveUpload(c *gin.Context, projectID string, fh *multipart.FileHeader) (string, error) {
	if s.config.UploadDir == "" {
		return "", nil
	}
	if projectID != filepath.Base(projectID) || projectID == ".." {
		return "", fmt.Errorf("%w: invalid project id", domain.ErrInvalidInput)
	}
	dir := filepath.Join(s.config.UploadDir, projectID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	dst := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(fh.Filename))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return dst, nil
}

func (s *Server) openUpload(locator string, fh *multipart.FileHeader) (multipart.File, error) {
	if locator != "" {
		return os.Open(locator)
	}
	return fh.Open()
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.services.Documents.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to list documents", err)
		return
	}
	resp := make([]DocumentResponse, len(docs))
	for i := range docs {
		resp[i] = toDocument(&docs[i], false)
	}
	c.JSON(http.StatusOK, gin.H{"documents": resp})
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.services.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get document", err)
		return
	}
	c.JSON(http.StatusOK, toDocument(doc, true))
}

func (s *Server) reindexDocument(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if s.config.Async {
		if _, err := s.services.Documents.Get(ctx, id); err != nil {
			writeError(c, "Failed to reindex document", err)
			return
		}
		if err := s.services.Queue.EnqueueIndex(ctx, id); err != nil {
			writeError(c, "Failed to enqueue document", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"document_id": id, "status": string(domain.StatusPending)})
		return
	}

	result, err := s.services.Documents.Reindex(ctx, id)
	if err != nil {
		writeError(c, "Failed to reindex document", err)
		return
	}
	c.JSON(http.StatusOK, toIndexResult(result))
}

func (s *Server) deleteDocument(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	doc, err := s.services.Documents.Get(ctx, id)
	if err != nil {
		writeError(c, "Failed to delete document", err)
		return
	}
	if err := s.services.Documents.Delete(ctx, id); err != nil {
		writeError(c, "Failed to delete document", err)
		return
	}
	s.removeUpload(doc.StorageLocator)
	c.Status(http.StatusNoContent)
}

// removeUpload deletes a stored upload if it lives under UploadDir.
func (s *Server) removeUpload(locator string) {
	if locator == "" || s.config.UploadDir == "" {
		return
	}
	rel, err := filepath.Rel(s.config.UploadDir, locator)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if err := os.Remove(locator); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove upload %s: %v", locator, err)
	}
}

// Retrieval

func (s *Server) getContext(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		badRequest(c, "Query parameter q is required", nil)
		return
	}

	var opts domain.RetrievalOptions
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "Invalid limit", err)
			return
		}
		opts.MaxChunks = n
	}
	if v := c.Query("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -1 || f > 1 {
			badRequest(c, "Invalid threshold", err)
			return
		}
		opts.MinSimilarity = domain.Threshold(f)
	}
	if v := c.Query("max_chars"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "Invalid max_chars", err)
			return
		}
		opts.MaxChars = n
	}

	scope := domain.SearchScope{ProjectID: c.Param("id"), DocumentIDs: splitList(c.Query("documents"))}
	text, err := s.services.Retrieval.GetContext(c.Request.Context(), query, scope, opts)
	if err != nil {
		writeError(c, "Failed to retrieve context", err)
		return
	}
	c.JSON(http.StatusOK, ContextResponse{Query: query, Context: text, Found: text != ""})
}

// Reports

func (s *Server) generateReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid report request", err)
		return
	}
	reportType := domain.ReportType(req.Type)
	if reportType == "" {
		reportType = domain.ReportTypeExecutive
	}

	report, err := s.services.Reports.Generate(c.Request.Context(), c.Param("id"), reportType, req.DocumentIDs)
	if err != nil {
		writeError(c, "Failed to generate report", err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.services.Reports.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to list reports", err)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) getReport(c *gin.Context) {
	report, err := s.services.Reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) updateReport(c *gin.Context) {
	var report domain.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		badRequest(c, "Invalid report", err)
		return
	}
	report.ID = c.Param("id")

	ctx := c.Request.Context()
	if err := s.services.Reports.Update(ctx, &report); err != nil {
		writeError(c, "Failed to update report", err)
		return
	}
	updated, err := s.services.Reports.Get(ctx, report.ID)
	if err != nil {
		writeError(c, "Failed to get report", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
