// Package csv extracts delimited text tables.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/extractors/text"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles CSV files. Comma and semicolon delimiters are detected
// from the header line.
type Extractor struct{}

// New creates a new CSV extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileTypes returns the file types this extractor handles.
func (e *Extractor) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeCSV}
}

// Extract renders the header as a "Columnas:" line followed by one
// tab-separated line per record.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, _ int64) (domain.Extraction, error) {
	if r == nil {
		return domain.Extraction{}, domain.ErrInvalidInput
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("csv: read: %w", err)
	}
	content := text.Normalise(string(raw))
	if strings.TrimSpace(content) == "" {
		return domain.DegradedExtraction("empty file"), nil
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = detectDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var lines []string
	for {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("csv: parse: %w", err)
		}
		line := strings.TrimRight(strings.Join(trimAll(record), "\t"), "\t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(lines) == 0 {
			line = "Columnas: " + line
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return domain.DegradedExtraction("empty file"), nil
	}
	return domain.Extraction{Text: strings.Join(lines, "\n")}, nil
}

func trimAll(fields []string) []string {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// detectDelimiter picks ';' when the first line has more semicolons than
// commas, which is common for spreadsheets exported with a decimal comma.
func detectDelimiter(content string) rune {
	first, _, _ := strings.Cut(content, "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}
