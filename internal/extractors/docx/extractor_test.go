package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if documentXML != "" {
		doc, err := w.Create(documentPart)
		require.NoError(t, err)
		_, err = doc.Write([]byte(documentXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body + `</w:body>
</w:document>`
}

func extract(t *testing.T, data []byte) domain.Extraction {
	t.Helper()
	got, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return got
}

func TestFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeWord}, New().FileTypes())
}

func TestExtract_Paragraphs(t *testing.T) {
	data := createTestDOCX(t, wrapBody(`
<w:p><w:r><w:t>Contrato de obra</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Cláusula </w:t></w:r><w:r><w:t>primera</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Plazo</w:t><w:tab/><w:t>12 meses</w:t></w:r></w:p>`))

	got := extract(t, data)
	assert.False(t, got.Degraded)
	assert.Equal(t, "Contrato de obra\n\nCláusula primera\n\nPlazo\t12 meses", got.Text)
}

func TestExtract_TabStopsAreNotText(t *testing.T) {
	data := createTestDOCX(t, wrapBody(`
<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Título</w:t></w:r></w:p>`))

	assert.Equal(t, "Título", extract(t, data).Text)
}

func TestExtract_Table(t *testing.T) {
	data := createTestDOCX(t, wrapBody(`
<w:p><w:r><w:t>Partidas</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Concepto</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Importe</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Asfaltado</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>1200</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>`))

	assert.Equal(t, "Partidas\n\nConcepto\tImporte\n\nAsfaltado\t1200", extract(t, data).Text)
}

func TestExtract_Degraded(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{"legacy doc", []byte("\xd0\xcf\x11\xe0 binary word 97"), "not a docx archive"},
		{"missing body", createTestDOCX(t, ""), "docx has no document body"},
		{"no text", createTestDOCX(t, wrapBody(`<w:p></w:p>`)), "docx contains no text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract(t, tt.data)
			assert.True(t, got.Degraded)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Empty(t, got.Text)
		})
	}
}

func TestExtract_MalformedXML(t *testing.T) {
	data := createTestDOCX(t, `<w:document><w:body><w:p>`)
	_, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docx: parse")
}

func TestExtract_NilReader(t *testing.T) {
	_, err := New().Extract(context.Background(), nil, 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
