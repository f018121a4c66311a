package match

import (
	"math"
)

// stopTokens are low-information words whose IDF weight is multiplied by
// 0.1 during fitting. They stay in the vocabulary so they can still break
// near-ties, but they can never dominate a score.
var stopTokens = map[string]struct{}{
	"THE": {}, "A": {}, "AN": {}, "OF": {}, "AND": {},
	"PRESS": {}, "PUBLISHING": {}, "BOOKS": {}, "INC": {},
	"LTD": {}, "CO": {}, "CORP": {}, "COMPANY": {},
}

const (
	stopTokenDownweight = 0.1
	minNgram            = 3
	maxNgram            = 5
	// defaultTokenIDF is credited for query tokens outside the fitted
	// vocabulary so novel OCR tokens still carry some weight.
	defaultTokenIDF = 1.0
	// distinctiveIDFThreshold marks a token as high-information for the
	// distinctive-token coverage strategy.
	distinctiveIDFThreshold = 2.0
)

// corpusStats holds the catalog-wide weighting models built by Fit:
// a character n-gram TF-IDF model and a word-token IDF table.
type corpusStats struct {
	ngrams   *charNgramModel
	tokenIDF map[string]float64
	docCount int
}

// fitCorpus builds corpus statistics over the normalized candidate texts.
// A single-record or empty catalog yields degenerate but usable state;
// strategies that depend on missing statistics contribute zero.
func fitCorpus(docs [][]string, norms []string, useCharNgrams bool) *corpusStats {
	stats := &corpusStats{
		tokenIDF: make(map[string]float64),
		docCount: len(norms),
	}

	if useCharNgrams {
		stats.ngrams = fitCharNgrams(norms)
	}

	// Document frequency per word token.
	df := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	n := float64(len(norms))
	for token, freq := range df {
		idf := math.Log((1+n)/(1+float64(freq))) + 1
		if _, ok := stopTokens[token]; ok {
			idf *= stopTokenDownweight
		}
		stats.tokenIDF[token] = idf
	}

	return stats
}

// idfFor returns the fitted IDF weight for a token, crediting a default
// weight to tokens outside the vocabulary.
func (s *corpusStats) idfFor(token string) float64 {
	if idf, ok := s.tokenIDF[token]; ok {
		return idf
	}
	return defaultTokenIDF
}

// isDistinctive reports whether a token's fitted IDF clears the
// high-information threshold. Unknown tokens are not distinctive.
func (s *corpusStats) isDistinctive(token string) bool {
	return s.tokenIDF[token] > distinctiveIDFThreshold
}

// charNgramModel is a character 3..5-gram TF-IDF model. Candidate vectors
// are precomputed at fit time; query vectors are built per variant.
type charNgramModel struct {
	idf        map[string]float64
	docVectors []map[string]float64
}

// fitCharNgrams builds the n-gram vocabulary and IDF weights over the
// corpus and precomputes an L2-normalized TF-IDF vector per document.
func fitCharNgrams(docs []string) *charNgramModel {
	df := make(map[string]int)
	counts := make([]map[string]int, len(docs))

	for i, doc := range docs {
		c := ngramCounts(doc)
		counts[i] = c
		for g := range c {
			df[g]++
		}
	}

	m := &charNgramModel{
		idf:        make(map[string]float64, len(df)),
		docVectors: make([]map[string]float64, len(docs)),
	}

	n := float64(len(docs))
	for g, freq := range df {
		m.idf[g] = math.Log((1+n)/(1+float64(freq))) + 1
	}

	for i, c := range counts {
		m.docVectors[i] = m.weigh(c)
	}

	return m
}

// ngramCounts tallies all character n-grams of length 3..5 in text.
func ngramCounts(text string) map[string]int {
	counts := make(map[string]int)
	// Normalized text is ASCII, so byte slicing is rune safe.
	for n := minNgram; n <= maxNgram; n++ {
		for i := 0; i+n <= len(text); i++ {
			counts[text[i:i+n]]++
		}
	}
	return counts
}

// weigh converts raw n-gram counts into an L2-normalized TF-IDF vector,
// dropping grams outside the fitted vocabulary.
func (m *charNgramModel) weigh(counts map[string]int) map[string]float64 {
	vec := make(map[string]float64, len(counts))
	var sumSq float64
	for g, c := range counts {
		idf, ok := m.idf[g]
		if !ok {
			continue
		}
		w := float64(c) * idf
		vec[g] = w
		sumSq += w * w
	}
	if sumSq == 0 {
		return vec
	}
	norm := math.Sqrt(sumSq)
	for g, w := range vec {
		vec[g] = w / norm
	}
	return vec
}

// queryVector builds the L2-normalized TF-IDF vector for a query string.
func (m *charNgramModel) queryVector(text string) map[string]float64 {
	return m.weigh(ngramCounts(text))
}

// cosineAgainstDoc computes the cosine similarity between a query vector
// and the precomputed vector of document i. Both vectors are unit length,
// so the dot product suffices.
func (m *charNgramModel) cosineAgainstDoc(queryVec map[string]float64, i int) float64 {
	if i < 0 || i >= len(m.docVectors) {
		return 0
	}
	doc := m.docVectors[i]
	// Iterate the smaller map.
	a, b := queryVec, doc
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for g, w := range a {
		dot += w * b[g]
	}
	return dot
}
