// Package chunker splits extracted document text into overlapping,
// token-bounded chunks suitable for embedding.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Default chunking parameters.
const (
	DefaultMaxTokens     = 1000
	DefaultOverlapTokens = 200
	DefaultCharsPerToken = 4
	DefaultMinChunkChars = 50
)

// Metadata keys attached to every chunk draft.
const (
	MetaTokenCount   = "token_count"
	MetaCharLength   = "char_length"
	MetaChunkIndex   = "chunk_index"
	MetaOverlapChars = "overlap_chars"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text on paragraph and sentence boundaries.
type Processor struct {
	maxTokens     int
	overlapTokens int
	charsPerToken int
	minChunkChars int
}

// Option configures the processor.
type Option func(*Processor)

// WithMaxTokens sets the approximate token ceiling per chunk.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithOverlapTokens sets how many tokens of a finished chunk seed the next one.
func WithOverlapTokens(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlapTokens = n
		}
	}
}

// WithCharsPerToken sets the characters-per-token estimate.
func WithCharsPerToken(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.charsPerToken = n
		}
	}
}

// WithMinChunkChars sets the length below which chunks are discarded.
func WithMinChunkChars(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minChunkChars = n
		}
	}
}

// New creates a processor. An overlap that is not smaller than the
// token ceiling is clamped to half of it.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxTokens:     DefaultMaxTokens,
		overlapTokens: DefaultOverlapTokens,
		charsPerToken: DefaultCharsPerToken,
		minChunkChars: DefaultMinChunkChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.overlapTokens >= p.maxTokens {
		p.overlapTokens = p.maxTokens / 2
	}
	return p
}

// Name returns the processor identifier.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxTokens returns the configured token ceiling.
func (p *Processor) MaxTokens() int { return p.maxTokens }

// OverlapTokens returns the effective overlap after clamping.
func (p *Processor) OverlapTokens() int { return p.overlapTokens }

// Chunk splits text with the default character estimate and minimum length.
func Chunk(text string, maxTokens, overlapTokens int) []string {
	return New(WithMaxTokens(maxTokens), WithOverlapTokens(overlapTokens)).Chunks(text)
}

// Chunks returns the chunk texts in order.
func (p *Processor) Chunks(text string) []string {
	pieces := p.split(text)
	out := make([]string, len(pieces))
	for i, pc := range pieces {
		out[i] = pc.text
	}
	return out
}

// Split returns chunk drafts with contiguous indices starting at 0.
func (p *Processor) Split(text string) []domain.ChunkDraft {
	pieces := p.split(text)
	drafts := make([]domain.ChunkDraft, len(pieces))
	for i, pc := range pieces {
		drafts[i] = domain.ChunkDraft{
			Content: pc.text,
			Index:   i,
			Metadata: map[string]any{
				MetaTokenCount:   p.tokens(pc.text),
				MetaCharLength:   utf8.RuneCountInString(pc.text),
				MetaChunkIndex:   i,
				MetaOverlapChars: pc.overlap,
			},
		}
	}
	return drafts
}

// EstimateTokens approximates the token count of s.
func (p *Processor) EstimateTokens(s string) int {
	return p.tokens(s)
}

type unit struct {
	text string
	sep  string
}

type piece struct {
	text    string
	overlap int // leading runes copied from the previous chunk
}

func (p *Processor) tokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + p.charsPerToken - 1) / p.charsPerToken
}

// units breaks text into paragraphs, and oversized paragraphs into sentences.
func (p *Processor) units(text string) []unit {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []unit
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if p.tokens(para) <= p.maxTokens {
			out = append(out, unit{text: para, sep: "\n\n"})
			continue
		}
		for i, s := range sentences(para) {
			sep := " "
			if i == 0 {
				sep = "\n\n"
			}
			out = append(out, unit{text: s, sep: sep})
		}
	}
	return out
}

func (p *Processor) split(text string) []piece {
	var (
		pieces  []piece
		buf     string
		overlap int
		fresh   bool // buf holds content beyond the overlap seed
	)
	overlapChars := p.overlapTokens * p.charsPerToken

	emit := func(s string, ov int) {
		if utf8.RuneCountInString(s) < p.minChunkChars {
			return
		}
		pieces = append(pieces, piece{text: s, overlap: ov})
	}

	for _, u := range p.units(text) {
		if p.tokens(u.text) > p.maxTokens {
			if fresh {
				emit(buf, overlap)
			}
			emit(u.text, 0)
			buf = tail(u.text, overlapChars)
			overlap = utf8.RuneCountInString(buf)
			fresh = false
			continue
		}
		if buf == "" {
			buf, overlap, fresh = u.text, 0, true
			continue
		}
		candidate := buf + u.sep + u.text
		if p.tokens(candidate) <= p.maxTokens {
			if !fresh {
				overlap = utf8.RuneCountInString(buf + u.sep)
			}
			buf, fresh = candidate, true
			continue
		}
		if !fresh {
			// The seed alone does not leave room for this unit.
			buf, overlap, fresh = u.text, 0, true
			continue
		}
		emit(buf, overlap)
		seed := tail(buf, overlapChars)
		if seed == "" {
			buf, overlap = u.text, 0
		} else {
			buf = seed + u.sep + u.text
			overlap = utf8.RuneCountInString(seed + u.sep)
		}
		fresh = true
	}
	if fresh {
		emit(buf, overlap)
	}
	return pieces
}

// sentences splits a paragraph after terminal punctuation followed by whitespace.
func sentences(para string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(para)
	for i, r := range runes {
		if !isTerminal(r) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// tail returns roughly the last n characters of s, starting at a sentence
// boundary when one exists in the window and otherwise at a word boundary.
// It never starts mid-word and returns "" when no boundary is available.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return strings.TrimSpace(s)
	}
	start := len(runes) - n
	for i := start; i < len(runes)-1; i++ {
		if isTerminal(runes[i]) && unicode.IsSpace(runes[i+1]) {
			if seed := strings.TrimSpace(string(runes[i+1:])); seed != "" {
				return seed
			}
			break
		}
	}
	if unicode.IsSpace(runes[start-1]) {
		return strings.TrimSpace(string(runes[start:]))
	}
	for i := start; i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			return strings.TrimSpace(string(runes[i:]))
		}
	}
	return ""
}
