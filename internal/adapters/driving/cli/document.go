package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage project documents",
	Long:  `Add, list, view, re-index or delete the documents of a project.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [project-id] [file]...",
	Short: "Add documents to a project",
	Long: `Add one or more files to a project. Each file is stored, its text extracted,
chunked and embedded. Files are processed in parallel.

Supported types: pdf, docx, xlsx, csv, txt, md and images (png, jpg) when the
LLM provider can read images.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDocumentAdd,
}

var documentListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List documents of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print the extracted text of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentReindexCmd = &cobra.Command{
	Use:   "reindex [doc-id]",
	Short: "Extract and index a document again",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentReindex,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentOpenCmd = &cobra.Command{
	Use:   "open [doc-id]",
	Short: "Open the original file in the default application",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentOpen,
}

// Flags for the add command.
var (
	addDescription string
	addUploadedBy  string
)

func init() {
	documentAddCmd.Flags().StringVarP(&addDescription, "description", "d", "", "description stored with every file")
	documentAddCmd.Flags().StringVar(&addUploadedBy, "uploaded-by", "", "uploader recorded on the documents")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentReindexCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentOpenCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	projectID, paths := args[0], args[1:]
	inputs := make([]driving.AddDocumentInput, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory, use dossier watch to follow a directory", p)
		}
		inputs = append(inputs, driving.AddDocumentInput{
			Filename:       filepath.Base(abs),
			Description:    addDescription,
			UploadedBy:     addUploadedBy,
			StorageLocator: abs,
			Size:           info.Size(),
			Content:        &lazyFile{path: abs},
		})
	}
	defer func() {
		for _, in := range inputs {
			_ = in.Content.(*lazyFile).Close()
		}
	}()

	results, err := documentService.AddBatch(cmd.Context(), projectID, inputs)
	if err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	var failed int
	for _, r := range results {
		switch {
		case r.Err != nil && r.Document == nil:
			failed++
			cmd.Printf("  ✗ %s: %v\n", r.Filename, r.Err)
		case r.Err != nil:
			failed++
			cmd.Printf("  ! %s stored as %s but indexing failed: %v\n", r.Filename, r.Document.ID, r.Err)
		default:
			cmd.Printf("  ✓ %s (%s, %s)\n", r.Filename, r.Document.ID, r.Document.Status)
		}
	}
	cmd.Printf("\nAdded %d of %d documents.\n", len(results)-failed, len(results))

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// lazyFile opens its file on first read so a large batch does not hold every
// descriptor open at once.
type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Read(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.Open(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Read(p)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

var _ io.ReadCloser = (*lazyFile)(nil)

func runDocumentList(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	projectID := args[0]
	docs, err := documentService.List(cmd.Context(), projectID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for project: %s\n", projectID)
		return nil
	}

	cmd.Printf("Documents for project %s:\n\n", projectID)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:   %s (%s)\n", docs[i].Filename, docs[i].FileType)
		cmd.Printf("    Status: %s\n", docs[i].Status)
		if docs[i].FailureReason != "" {
			cmd.Printf("    Error:  %s\n", docs[i].FailureReason)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Type:     %s\n", doc.FileType)
	cmd.Printf("  Size:     %d bytes\n", doc.Size)
	cmd.Printf("  Project:  %s\n", doc.ProjectID)
	cmd.Printf("  Status:   %s\n", doc.Status)
	cmd.Printf("  Content:  %t\n", doc.HasExtractedContent)
	if doc.Description != "" {
		cmd.Printf("  Description: %s\n", doc.Description)
	}
	if doc.FailureReason != "" {
		cmd.Printf("  Error:    %s\n", doc.FailureReason)
	}
	if doc.StorageLocator != "" {
		cmd.Printf("  Stored:   %s\n", doc.StorageLocator)
	}
	cmd.Printf("  Created:  %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", doc.StatusSince().Format("2006-01-02 15:04:05"))

	if len(doc.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		for k, v := range doc.Metadata {
			cmd.Printf("    %s: %v\n", k, v)
		}
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}
	if !doc.HasExtractedContent {
		cmd.Printf("Document %s has no extracted text (status %s).\n", doc.ID, doc.Status)
		return nil
	}

	cmd.Println(doc.ExtractedText)
	return nil
}

func runDocumentReindex(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	cmd.Printf("Re-indexing document %s...\n", docID)

	res, err := documentService.Reindex(cmd.Context(), docID)
	if err != nil {
		return fmt.Errorf("failed to re-index document: %w", err)
	}

	if res.Skipped {
		cmd.Printf("Document %s has too little text to index; marked %s.\n", docID, res.Status)
		return nil
	}
	cmd.Printf("Document %s indexed: %d chunks in %s.\n", docID, res.ChunkCount, res.Duration.Round(1e6))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	if err := documentService.Delete(cmd.Context(), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runDocumentOpen(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc.StorageLocator == "" {
		return fmt.Errorf("%w: document %s has no stored file", domain.ErrNotFound, doc.ID)
	}

	if err := openFile(doc.StorageLocator); err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}

	cmd.Printf("Opened document %s in default application.\n", doc.ID)
	return nil
}
