package xlsx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

const (
	mainNS = `xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"`
	relNS  = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
)

// createTestXLSX creates a workbook in memory from part name to XML body.
func createTestXLSX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, body := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func workbookParts() map[string]string {
	return map[string]string{
		workbookPart: `<workbook ` + mainNS + ` ` + relNS + `><sheets>
<sheet name="Presupuesto" sheetId="1" r:id="rId1"/>
<sheet name="Vacía" sheetId="2" r:id="rId2"/>
<sheet name="Notas" sheetId="3" r:id="rId3"/>
</sheets></workbook>`,
		workbookRelsPart: `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Target="worksheets/sheet2.xml"/>
<Relationship Id="rId3" Target="/xl/worksheets/notes.xml"/>
</Relationships>`,
		sharedStringsPart: `<sst ` + mainNS + `>
<si><t>Partida</t></si>
<si><t>Importe</t></si>
<si><r><t>Asfal</t></r><r><t>tado</t></r></si>
</sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet ` + mainNS + `><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="C2"><v>1200.5</v></c></row>
<row r="3"></row>
<row r="4"><c r="A4" t="b"><v>1</v></c></row>
</sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<worksheet ` + mainNS + `><sheetData/></worksheet>`,
		"xl/worksheets/notes.xml": `<worksheet ` + mainNS + `><sheetData>
<row r="1"><c r="B1" t="inlineStr"><is><t>Revisado</t></is></c></row>
</sheetData></worksheet>`,
	}
}

func extract(t *testing.T, data []byte) domain.Extraction {
	t.Helper()
	got, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return got
}

func TestFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeExcel}, New().FileTypes())
}

func TestExtract_Workbook(t *testing.T) {
	got := extract(t, createTestXLSX(t, workbookParts()))

	require.False(t, got.Degraded)
	expected := "Hoja: Presupuesto\n" +
		"Partida\tImporte\n" +
		"Asfaltado\t\t1200.5\n" +
		"TRUE\n\n" +
		"Hoja: Notas\n" +
		"\tRevisado"
	assert.Equal(t, expected, got.Text)
}

func TestExtract_WithoutRelationships(t *testing.T) {
	parts := workbookParts()
	delete(parts, workbookRelsPart)

	got := extract(t, createTestXLSX(t, parts))
	assert.Contains(t, got.Text, "Hoja: Presupuesto\nPartida\tImporte")
	assert.NotContains(t, got.Text, "Hoja: Notas")
}

func TestExtract_Degraded(t *testing.T) {
	empty := workbookParts()
	empty["xl/worksheets/sheet1.xml"] = `<worksheet ` + mainNS + `><sheetData/></worksheet>`
	empty["xl/worksheets/notes.xml"] = `<worksheet ` + mainNS + `><sheetData/></worksheet>`

	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{"legacy xls", []byte("\xd0\xcf\x11\xe0 excel 97"), "not an xlsx archive"},
		{"no workbook", createTestXLSX(t, map[string]string{"docProps/app.xml": "<x/>"}), "xlsx has no workbook"},
		{"no values", createTestXLSX(t, empty), "xlsx contains no cell values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract(t, tt.data)
			assert.True(t, got.Degraded)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	data := createTestXLSX(t, workbookParts())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, bytes.NewReader(data), int64(len(data)))
	require.ErrorIs(t, err, context.Canceled)
}

func TestColumnIndex(t *testing.T) {
	tests := map[string]int{
		"A1":   0,
		"C7":   2,
		"Z10":  25,
		"AA3":  26,
		"AB12": 27,
		"12":   -1,
		"":     -1,
	}
	for ref, want := range tests {
		assert.Equal(t, want, columnIndex(ref), ref)
	}
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, "xl/worksheets/sheet1.xml", resolveTarget("worksheets/sheet1.xml"))
	assert.Equal(t, "xl/worksheets/sheet1.xml", resolveTarget("/xl/worksheets/sheet1.xml"))
	assert.Equal(t, "xl/other.xml", resolveTarget("worksheets/../other.xml"))
}
