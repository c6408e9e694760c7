package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

var (
	searchLimit          int
	searchThreshold      float64
	searchDocuments      []string
	searchNearDuplicates bool
	searchChunks         bool
	searchJSON           bool
)

var searchCmd = &cobra.Command{
	Use:   "search [project-id] [query]",
	Short: "Search the documents of a project",
	Long: `Finds the chunks of a project most similar to the query and prints them
grouped by document, the same context reports are written from.

Use --near-duplicates to list passages that are almost identical to the query,
for example to find a clause repeated across contracts.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultMaxChunks, "maximum number of chunks")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0,
		"minimum similarity in [-1, 1] (default retrieval.interactive_threshold)")
	searchCmd.Flags().StringSliceVar(&searchDocuments, "documents", nil, "restrict the search to these document ids")
	searchCmd.Flags().BoolVar(&searchNearDuplicates, "near-duplicates", false,
		"use retrieval.duplicate_threshold and list matching chunks")
	searchCmd.Flags().BoolVar(&searchChunks, "chunks", false, "list matching chunks instead of the assembled context")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output chunks as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	projectID := args[0]
	query := strings.Join(args[1:], " ")

	scope := domain.SearchScope{ProjectID: projectID, DocumentIDs: searchDocuments}
	opts := domain.RetrievalOptions{MaxChunks: searchLimit}
	if cmd.Flags().Changed("threshold") {
		opts.MinSimilarity = domain.Threshold(searchThreshold)
	}
	if searchNearDuplicates {
		opts.MinSimilarity = domain.Threshold(duplicateThreshold())
	}

	if searchNearDuplicates || searchChunks || searchJSON {
		results, err := retrievalService.Retrieve(cmd.Context(), query, scope, opts)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if searchJSON {
			return outputSearchJSON(cmd, results)
		}
		return outputSearchTable(cmd, results)
	}

	text, err := retrievalService.GetContext(cmd.Context(), query, scope, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if text == "" {
		cmd.Println("No results found.")
		return nil
	}
	cmd.Println(text)
	return nil
}

func duplicateThreshold() float64 {
	if app != nil && app.Settings != nil && app.Settings.Retrieval.DuplicateThreshold != 0 {
		return app.Settings.Retrieval.DuplicateThreshold
	}
	return domain.DuplicateThreshold
}

type chunkJSON struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredChunk) error {
	out := make([]chunkJSON, len(results))
	for i := range results {
		out[i] = chunkJSON{
			DocumentID: results[i].Chunk.DocumentID,
			ChunkIndex: results[i].Chunk.Index,
			Similarity: results[i].Similarity,
			Content:    results[i].Chunk.Content,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		c := &results[i].Chunk
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, c.DocumentID, c.Index, results[i].Similarity)
		cmd.Printf("      %s\n", snippet(c.Content, 200))
		cmd.Println()
	}
	return nil
}

// snippet returns the first n runes of s on a single line.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
