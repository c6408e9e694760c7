// Package xlsx extracts cell text from Office Open XML spreadsheets.
package xlsx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

const (
	workbookPart      = "xl/workbook.xml"
	workbookRelsPart  = "xl/_rels/workbook.xml.rels"
	sharedStringsPart = "xl/sharedStrings.xml"
)

// Extractor handles XLSX workbooks.
type Extractor struct{}

// New creates a new XLSX extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileTypes returns the file types this extractor handles.
func (e *Extractor) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeExcel}
}

// Extract renders every sheet as a "Hoja: <name>" line followed by its rows,
// one line per row with tab-separated cells.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, _ int64) (domain.Extraction, error) {
	if r == nil {
		return domain.Extraction{}, domain.ErrInvalidInput
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("xlsx: read: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.DegradedExtraction("not an xlsx archive"), nil
	}
	wb := workbook{files: make(map[string]*zip.File, len(reader.File))}
	for _, f := range reader.File {
		wb.files[f.Name] = f
	}
	if _, ok := wb.files[workbookPart]; !ok {
		return domain.DegradedExtraction("xlsx has no workbook"), nil
	}

	sheets, err := wb.sheets()
	if err != nil {
		return domain.Extraction{}, err
	}
	shared, err := wb.sharedStrings()
	if err != nil {
		return domain.Extraction{}, err
	}

	var blocks []string
	for _, s := range sheets {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}
		rows, err := wb.rows(s.target, shared)
		if err != nil {
			return domain.Extraction{}, err
		}
		if len(rows) == 0 {
			continue
		}
		blocks = append(blocks, "Hoja: "+s.name+"\n"+strings.Join(rows, "\n"))
	}
	if len(blocks) == 0 {
		return domain.DegradedExtraction("xlsx contains no cell values"), nil
	}
	return domain.Extraction{Text: strings.Join(blocks, "\n\n")}, nil
}

type workbook struct {
	files map[string]*zip.File
}

type sheetRef struct {
	name   string
	target string
}

func (w workbook) decode(name string, v any) error {
	f, ok := w.files[name]
	if !ok {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("xlsx: open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("xlsx: parse %s: %w", name, err)
	}
	return nil
}

// sheets returns the sheets in workbook order with their part names.
func (w workbook) sheets() ([]sheetRef, error) {
	var book struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
			ID   string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sheets>sheet"`
	}
	if err := w.decode(workbookPart, &book); err != nil {
		return nil, err
	}

	var rels struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := w.decode(workbookRelsPart, &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, rel := range rels.Items {
		targets[rel.ID] = resolveTarget(rel.Target)
	}

	out := make([]sheetRef, 0, len(book.Sheets))
	for i, s := range book.Sheets {
		target, ok := targets[s.ID]
		if !ok {
			// Workbooks without relationships use the conventional names.
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		out = append(out, sheetRef{name: s.Name, target: target})
	}
	return out, nil
}

// resolveTarget turns a relationship target into an archive path.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join("xl", target))
}

type richText struct {
	T string `xml:"t"`
	R []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (rt richText) String() string {
	if len(rt.R) == 0 {
		return rt.T
	}
	var b strings.Builder
	for _, r := range rt.R {
		b.WriteString(r.T)
	}
	return b.String()
}

func (w workbook) sharedStrings() ([]string, error) {
	var sst struct {
		Items []richText `xml:"si"`
	}
	if err := w.decode(sharedStringsPart, &sst); err != nil {
		return nil, err
	}
	out := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		out[i] = si.String()
	}
	return out, nil
}

type cell struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	Value  string   `xml:"v"`
	Inline richText `xml:"is"`
}

func (c cell) text(shared []string) string {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return c.Inline.String()
	case "b":
		if c.Value == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return c.Value
	}
}

// rows renders a worksheet. Cells are placed by their column reference so
// blank cells keep the columns aligned. Empty rows are dropped.
func (w workbook) rows(part string, shared []string) ([]string, error) {
	var sheet struct {
		Rows []struct {
			Cells []cell `xml:"c"`
		} `xml:"sheetData>row"`
	}
	if err := w.decode(part, &sheet); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		var values []string
		for i, c := range row.Cells {
			col := columnIndex(c.Ref)
			if col < 0 {
				col = i
			}
			for len(values) < col {
				values = append(values, "")
			}
			v := strings.TrimSpace(c.text(shared))
			if col < len(values) {
				values[col] = v
			} else {
				values = append(values, v)
			}
		}
		line := strings.TrimRight(strings.Join(values, "\t"), "\t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// columnIndex converts the letters of a cell reference ("C7") to a 0-based
// column number. It returns -1 when the reference has no letters.
func columnIndex(ref string) int {
	col := 0
	n := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return col - 1
}
