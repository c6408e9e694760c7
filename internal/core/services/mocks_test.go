package services

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/dossier/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/postprocessors/chunker"
)

// --- Mock implementations ---

const mockDims = 32

// mockEmbedding hashes words into a fixed number of buckets, so texts that
// share words score close to each other. vectors overrides specific texts.
type mockEmbedding struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	short   bool // return one vector fewer than asked
	calls   int
	delay   time.Duration
}

func (m *mockEmbedding) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	v := make([]float32, mockDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,;:")))
		v[h.Sum32()%mockDims]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / math.Sqrt(norm))
	}
	return v
}

func (m *mockEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, domain.ErrEmptyText
		}
		out = append(out, m.vector(t))
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int              { return mockDims }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return m.err }
func (m *mockEmbedding) Close() error                 { return nil }

func (m *mockEmbedding) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockLLM returns a canned response or error and records the messages.
type mockLLM struct {
	response string
	err      error
	block    bool // wait for ctx to end
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.messages = messages
	m.opts = opts
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return m.err }
func (m *mockLLM) Close() error                 { return nil }

// mockTemplates serves fixed templates.
type mockTemplates struct {
	templates map[domain.ReportType]domain.ReportTemplate
	err       error
}

func (m *mockTemplates) Load(t domain.ReportType) (domain.ReportTemplate, error) {
	if m.err != nil {
		return domain.ReportTemplate{}, m.err
	}
	return m.templates[t], nil
}

func (m *mockTemplates) Reload() {}

// mockExtractor returns the whole body as text, or a fixed result.
type mockExtractor struct {
	types  []domain.FileType
	result *domain.Extraction
	err    error
}

func (m *mockExtractor) FileTypes() []domain.FileType { return m.types }

func (m *mockExtractor) Extract(_ context.Context, r io.Reader, _ int64) (domain.Extraction, error) {
	if m.err != nil {
		return domain.Extraction{}, m.err
	}
	if m.result != nil {
		return *m.result, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Extraction{}, err
	}
	return domain.Extraction{Text: string(data)}, nil
}

// mockRegistry maps file types to extractors.
type mockRegistry struct {
	extractors map[domain.FileType]driven.TextExtractor
}

func newMockRegistry(extractors ...driven.TextExtractor) *mockRegistry {
	r := &mockRegistry{extractors: make(map[domain.FileType]driven.TextExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

func (r *mockRegistry) Register(e driven.TextExtractor) {
	for _, t := range e.FileTypes() {
		r.extractors[t] = e
	}
}

func (r *mockRegistry) Get(t domain.FileType) (driven.TextExtractor, error) {
	e, ok := r.extractors[t]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	return e, nil
}

// failingVectorStore wraps a store and fails selected operations.
type failingVectorStore struct {
	*memory.VectorStore
	upsertErr error
	searchErr error
}

func (f *failingVectorStore) UpsertChunks(ctx context.Context, documentID, projectID string, chunks []domain.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorStore.UpsertChunks(ctx, documentID, projectID, chunks)
}

func (f *failingVectorStore) Search(
	ctx context.Context,
	query []float32,
	scope domain.SearchScope,
	k int,
	minSimilarity float64,
) ([]domain.ScoredChunk, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.VectorStore.Search(ctx, query, scope, k, minSimilarity)
}

var errUpstream = errors.New("upstream exploded")

// --- Fixtures ---

// fixture wires every service over in-memory stores.
type fixture struct {
	projects *memory.ProjectStore
	docs     *memory.DocumentStore
	reports  *memory.ReportStore
	vectors  *memory.VectorStore

	embedding *mockEmbedding
	llm       *mockLLM

	projectSvc   *ProjectService
	indexingSvc  *IndexingService
	retrievalSvc *RetrievalService
	documentSvc  *DocumentService
}

func newFixture() *fixture {
	f := &fixture{
		projects:  memory.NewProjectStore(),
		docs:      memory.NewDocumentStore(),
		reports:   memory.NewReportStore(),
		vectors:   memory.NewVectorStore(mockDims),
		embedding: &mockEmbedding{},
		llm:       &mockLLM{},
	}
	f.projectSvc = NewProjectService(f.projects)
	f.indexingSvc = NewIndexingService(f.docs, f.vectors, f.embedding,
		chunker.New(chunker.WithMaxTokens(60), chunker.WithOverlapTokens(10), chunker.WithMinChunkChars(10)),
		nil, nil, IndexingOptions{})
	f.retrievalSvc = NewRetrievalService(f.projects, f.docs, f.vectors, f.embedding, domain.RetrievalSettings{}, nil)
	f.documentSvc = NewDocumentService(f.projects, f.docs,
		newMockRegistry(&mockExtractor{types: []domain.FileType{domain.FileTypeText, domain.FileTypeCSV}}),
		f.indexingSvc, 2)
	return f
}

func (f *fixture) reportService(llm *mockLLM, opts ReportOptions) *ReportService {
	var svc *ReportService
	if llm == nil {
		svc = NewReportService(f.projects, f.docs, f.reports, f.retrievalSvc, nil, nil, nil, opts)
	} else {
		svc = NewReportService(f.projects, f.docs, f.reports, f.retrievalSvc, llm, nil, nil, opts)
	}
	return svc
}

func (f *fixture) project(name string, t domain.ProjectType) *domain.Project {
	p, err := f.projectSvc.Create(context.Background(), name, "", t, "tester")
	if err != nil {
		panic(err)
	}
	return p
}

// addText registers and indexes a text document.
func (f *fixture) addText(projectID, filename, text string) *domain.Document {
	doc, err := f.documentSvc.Add(context.Background(), projectID, addInput(filename, text))
	if err != nil {
		panic(err)
	}
	return doc
}

func addInput(filename, text string) driving.AddDocumentInput {
	return driving.AddDocumentInput{
		Filename: filename,
		Size:     int64(len(text)),
		Content:  strings.NewReader(text),
	}
}

// longText repeats sentence until it is past the indexing minimum.
func longText(sentence string) string {
	var b strings.Builder
	for b.Len() < 2*MinIndexableChars {
		b.WriteString(sentence)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}
