// Package tfidf builds a per-batch term-frequency/inverse-document-frequency
// corpus over records and compares records by cosine similarity.
//
// An Index is immutable once built. Build a new one for every batch.
package tfidf

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
)

// DefaultMinDescriptionLength is the shortest description that contributes terms
const DefaultMinDescriptionLength = 50

var nonWordRegex = regexp.MustCompile(`[^a-z0-9\s]`)

var stopWords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"are": true, "was": true, "were": true, "been": true, "have": true, "has": true,
	"had": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "must": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "you": true, "she": true, "they": true,
	"them": true, "their": true,
}

// Options controls term extraction
type Options struct {
	MinDescriptionLength int
}

// Vector is a sparse term-weight vector
type Vector map[string]float64

// IsZero reports whether v carries no weight at all
func (v Vector) IsZero() bool {
	for _, w := range v {
		if w != 0 {
			return false
		}
	}
	return true
}

// Index holds document frequencies and precomputed vectors for one batch
type Index struct {
	docFreq map[string]int
	total   int
	vectors []Vector
	byID    map[string]int
	opts    Options
}

// Build computes the corpus over records. Vectors are addressable by the
// record's position in records or by its ID.
func Build(records []domain.Record, opts Options) *Index {
	if opts.MinDescriptionLength <= 0 {
		opts.MinDescriptionLength = DefaultMinDescriptionLength
	}

	ix := &Index{
		docFreq: make(map[string]int),
		total:   len(records),
		vectors: make([]Vector, len(records)),
		byID:    make(map[string]int, len(records)),
		opts:    opts,
	}

	terms := make([][]string, len(records))
	for i := range records {
		terms[i] = Terms(&records[i], opts)
		seen := make(map[string]bool, len(terms[i]))
		for _, t := range terms[i] {
			if !seen[t] {
				seen[t] = true
				ix.docFreq[t]++
			}
		}
		if _, dup := ix.byID[records[i].ID]; !dup {
			ix.byID[records[i].ID] = i
		}
	}

	for i := range records {
		ix.vectors[i] = ix.vectorize(terms[i])
	}
	return ix
}

// Len is the number of documents in the corpus
func (ix *Index) Len() int { return ix.total }

// Vocabulary is the number of distinct terms
func (ix *Index) Vocabulary() int { return len(ix.docFreq) }

// At returns the vector of the i-th record
func (ix *Index) At(i int) Vector {
	if i < 0 || i >= len(ix.vectors) {
		return nil
	}
	return ix.vectors[i]
}

// ByID returns the vector of the record with the given ID
func (ix *Index) ByID(id string) (Vector, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return nil, false
	}
	return ix.vectors[i], true
}

// VectorFor vectorizes a record against this corpus. Terms the corpus has
// never seen get no weight.
func (ix *Index) VectorFor(r *domain.Record) Vector {
	if v, ok := ix.ByID(r.ID); ok {
		return v
	}
	return ix.vectorize(Terms(r, ix.opts))
}

// Similarity is the cosine similarity of two records in the corpus
func (ix *Index) Similarity(a, b *domain.Record) float64 {
	return Cosine(ix.VectorFor(a), ix.VectorFor(b))
}

// Compare returns the cosine similarity and whether both records carry any
// weight. Terms shared by every document have zero idf, so on small or
// homogeneous batches a pair can have no signal at all.
func (ix *Index) Compare(a, b *domain.Record) (float64, bool) {
	va, vb := ix.VectorFor(a), ix.VectorFor(b)
	if va.IsZero() || vb.IsZero() {
		return 0, false
	}
	return Cosine(va, vb), true
}

func (ix *Index) vectorize(terms []string) Vector {
	v := make(Vector)
	if len(terms) == 0 || ix.total == 0 {
		return v
	}
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	for t, c := range counts {
		df := ix.docFreq[t]
		if df == 0 {
			continue
		}
		idf := math.Log(float64(ix.total) / float64(df))
		v[t] = float64(c) / float64(len(terms)) * idf
	}
	return v
}

// Cosine compares two vectors over the union of their dimensions. Keys are
// visited in sorted order so the result does not depend on map iteration.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var dot, normA, normB float64
	for _, k := range keys {
		x, y := a[k], b[k]
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}

// Terms extracts the tokens of a record: name, brand, type, category and a
// description of at least the minimum length.
func Terms(r *domain.Record, opts Options) []string {
	minDesc := opts.MinDescriptionLength
	if minDesc <= 0 {
		minDesc = DefaultMinDescriptionLength
	}
	var out []string
	out = append(out, Tokenize(r.Name)...)
	out = append(out, Tokenize(r.Brand)...)
	if len(r.Description) >= minDesc {
		out = append(out, Tokenize(r.Description)...)
	}
	out = append(out, Tokenize(r.Type)...)
	out = append(out, Tokenize(r.Category)...)
	return out
}

// Tokenize lowercases text and keeps alphanumeric tokens longer than two
// characters that are not stop words.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	text = nonWordRegex.ReplaceAllString(strings.ToLower(normalize.StripAccents(text)), " ")
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 && !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}
