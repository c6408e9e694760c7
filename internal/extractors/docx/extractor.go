// Package docx extracts text from Office Open XML word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

const documentPart = "word/document.xml"

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileTypes returns the file types this extractor handles.
func (e *Extractor) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeWord}
}

// Extract reads word/document.xml and returns its paragraphs separated by
// blank lines. Legacy binary .doc files yield a degraded extraction.
func (e *Extractor) Extract(_ context.Context, r io.Reader, _ int64) (domain.Extraction, error) {
	if r == nil {
		return domain.Extraction{}, domain.ErrInvalidInput
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("docx: read: %w", err)
	}

	// Open as ZIP archive
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.DegradedExtraction("not a docx archive"), nil
	}

	part, err := readPart(reader, documentPart)
	if err != nil {
		if errors.Is(err, errMissingPart) {
			return domain.DegradedExtraction("docx has no document body"), nil
		}
		return domain.Extraction{}, err
	}

	text, err := parseDocumentXML(part)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("docx: parse %s: %w", documentPart, err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.DegradedExtraction("docx contains no text"), nil
	}
	return domain.Extraction{Text: text}, nil
}

var errMissingPart = errors.New("part not found")

// readPart returns the bytes of a named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("docx: read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, errMissingPart
}

// parseDocumentXML walks the WordprocessingML token stream. Text runs inside
// a paragraph are concatenated, tabs and breaks are kept, table cells are
// tab-separated and each paragraph becomes its own block.
func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		inRun      bool
		inText     bool
		cellDepth  int
	)
	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}
	trimRight := func(cutset string) {
		s := strings.TrimRight(current.String(), cutset)
		current.Reset()
		current.WriteString(s)
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = inRun
			case "tab":
				// Tab stops in paragraph properties share the name.
				if inRun {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					current.WriteByte('\n')
				}
			case "tc":
				cellDepth++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				if cellDepth > 0 {
					current.WriteByte(' ')
				} else {
					flush()
				}
			case "tc":
				cellDepth--
				trimRight(" ")
				current.WriteByte('\t')
			case "tr":
				trimRight("\t")
				flush()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	flush()

	return strings.Join(paragraphs, "\n\n"), nil
}
