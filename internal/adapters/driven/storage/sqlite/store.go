package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/dossier/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// the project, document, report and vector stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.dossier/data/dossier.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".dossier", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "dossier.db")

	// WAL lets searches read a consistent snapshot while a re-index commits.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ProjectStore returns a ProjectStore interface backed by this store.
func (s *Store) ProjectStore() driven.ProjectStore {
	return &projectStore{store: s}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ReportStore returns a ReportStore interface backed by this store.
func (s *Store) ReportStore() driven.ReportStore {
	return &reportStore{store: s}
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_init.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Project Store ====================

// projectStore implements driven.ProjectStore.
type projectStore struct {
	store *Store
}

var _ driven.ProjectStore = (*projectStore)(nil)

// SaveProject stores or updates a project.
func (s *projectStore) SaveProject(ctx context.Context, p *domain.Project) error {
	if p == nil || p.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, type, status, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			type = excluded.type,
			status = excluded.status,
			owner = excluded.owner,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Description, string(p.Type), string(p.Status), p.Owner, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *projectStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, description, type, status, owner, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects returns all projects, newest first.
func (s *projectStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, description, type, status, owner, created_at, updated_at
		FROM projects ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, project_id, filename, file_type, size, storage_locator, description, status,
	extracted_text, has_extracted_content, failure_reason, metadata, uploaded_by, uploaded_at, processed_at, status_changed_at`

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	metadataJSON, err := marshalJSON(doc.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	var processedAt sql.NullTime
	if doc.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *doc.ProcessedAt, Valid: true}
	}
	statusChangedAt := sql.NullTime{Time: doc.StatusChangedAt, Valid: !doc.StatusChangedAt.IsZero()}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			file_type = excluded.file_type,
			size = excluded.size,
			storage_locator = excluded.storage_locator,
			description = excluded.description,
			status = excluded.status,
			extracted_text = excluded.extracted_text,
			has_extracted_content = excluded.has_extracted_content,
			failure_reason = excluded.failure_reason,
			metadata = excluded.metadata,
			processed_at = excluded.processed_at,
			status_changed_at = excluded.status_changed_at
	`, doc.ID, doc.ProjectID, doc.Filename, string(doc.FileType), doc.Size, doc.StorageLocator,
		doc.Description, string(doc.Status), doc.ExtractedText, doc.HasExtractedContent,
		doc.FailureReason, metadataJSON, doc.UploadedBy, doc.UploadedAt, processedAt, statusChangedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns the documents of a project in upload order.
func (s *documentStore) ListDocuments(ctx context.Context, projectID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE project_id = ?
		ORDER BY uploaded_at, rowid
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Report Store ====================

// reportStore implements driven.ReportStore.
type reportStore struct {
	store *Store
}

var _ driven.ReportStore = (*reportStore)(nil)

const reportColumns = `id, project_id, title, report_type, status, executive_summary, document_analysis,
	key_findings, conclusions, recommendations, generated_by, generated_at, updated_at`

// SaveReport stores or overwrites a report.
func (s *reportStore) SaveReport(ctx context.Context, r *domain.Report) error {
	if r == nil || r.ID == "" {
		return domain.ErrInvalidInput
	}
	analysis, err := marshalJSON(r.DocumentAnalysis, "[]")
	if err != nil {
		return fmt.Errorf("marshalling document analysis: %w", err)
	}
	findings, err := marshalJSON(r.KeyFindings, "[]")
	if err != nil {
		return fmt.Errorf("marshalling key findings: %w", err)
	}
	recs, err := marshalJSON(r.Recommendations, "[]")
	if err != nil {
		return fmt.Errorf("marshalling recommendations: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			report_type = excluded.report_type,
			status = excluded.status,
			executive_summary = excluded.executive_summary,
			document_analysis = excluded.document_analysis,
			key_findings = excluded.key_findings,
			conclusions = excluded.conclusions,
			recommendations = excluded.recommendations,
			generated_by = excluded.generated_by,
			updated_at = excluded.updated_at
	`, r.ID, r.ProjectID, r.Title, string(r.Type), string(r.Status), r.ExecutiveSummary, analysis,
		findings, r.Conclusions, recs, r.GeneratedBy, r.GeneratedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *reportStore) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

// ListReports returns the reports of a project, newest first.
func (s *reportStore) ListReports(ctx context.Context, projectID string) ([]domain.Report, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE project_id = ?
		ORDER BY generated_at DESC, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// marshalJSON encodes v, substituting empty for a nil value.
func marshalJSON(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func scanProject(row scanner) (*domain.Project, error) {
	var p domain.Project
	var projectType, status string

	if err := row.Scan(&p.ID, &p.Name, &p.Description, &projectType, &status, &p.Owner,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	p.Type = domain.ProjectType(projectType)
	p.Status = domain.ProjectStatus(status)
	return &p, nil
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var fileType, status, metadataJSON string
	var processedAt, statusChangedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.ProjectID, &doc.Filename, &fileType, &doc.Size, &doc.StorageLocator,
		&doc.Description, &status, &doc.ExtractedText, &doc.HasExtractedContent, &doc.FailureReason,
		&metadataJSON, &doc.UploadedBy, &doc.UploadedAt, &processedAt, &statusChangedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.FileType = domain.FileType(fileType)
	doc.Status = domain.ProcessingStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	if statusChangedAt.Valid {
		doc.StatusChangedAt = statusChangedAt.Time
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &doc, nil
}

func scanReport(row scanner) (*domain.Report, error) {
	var r domain.Report
	var reportType, status, analysis, findings, recs string

	if err := row.Scan(&r.ID, &r.ProjectID, &r.Title, &reportType, &status, &r.ExecutiveSummary,
		&analysis, &findings, &r.Conclusions, &recs, &r.GeneratedBy, &r.GeneratedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	r.Type = domain.ReportType(reportType)
	r.Status = domain.ReportStatus(status)
	if err := json.Unmarshal([]byte(analysis), &r.DocumentAnalysis); err != nil {
		return nil, fmt.Errorf("unmarshaling document analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(findings), &r.KeyFindings); err != nil {
		return nil, fmt.Errorf("unmarshaling key findings: %w", err)
	}
	if err := json.Unmarshal([]byte(recs), &r.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshaling recommendations: %w", err)
	}
	return &r, nil
}
