package match

import (
	"math"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// fuzzyPairThreshold is the Jaro-Winkler similarity above which two
// tokens are treated as the same word modulo OCR noise (OLLINS/COLLINS).
const fuzzyPairThreshold = 0.88

func jaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return float64(edlib.JaroWinklerSimilarity(a, b))
}

// levenshteinRatio is an edit-distance similarity normalized to [0,1].
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := edlib.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// partialRatio slides the shorter string over the longer and keeps the
// best window similarity, so a clean fragment inside noisy text scores
// high.
func partialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := levenshteinRatio(short, long[i:i+len(short)]); r > best {
			best = r
			if best == 1 {
				break
			}
		}
	}
	return best
}

// tokenSortRatio compares the two strings with their tokens sorted, which
// neutralizes word order.
func tokenSortRatio(a, b string) float64 {
	return levenshteinRatio(sortedTokenString(a), sortedTokenString(b))
}

// tokenSetRatio performs the symmetric common-token-set comparison: the
// shared sorted token set is compared against each side's full token set,
// and the best of the three pairings wins.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var inter, diffA, diffB []string
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter = append(inter, t)
		} else {
			diffA = append(diffA, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			diffB = append(diffB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(diffA)
	sort.Strings(diffB)

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(diffA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(diffB, " "))

	best := levenshteinRatio(t1, t2)
	if t0 != "" {
		if r := levenshteinRatio(t0, t1); r > best {
			best = r
		}
		if r := levenshteinRatio(t0, t2); r > best {
			best = r
		}
	}
	return best
}

// weightedRatio is the best of the plain, token-sort, token-set, and
// partial ratios, with the partial ratio slightly discounted since it
// ignores everything outside its window.
func weightedRatio(a, b string) float64 {
	best := levenshteinRatio(a, b)
	if r := tokenSortRatio(a, b); r > best {
		best = r
	}
	if r := tokenSetRatio(a, b); r > best {
		best = r
	}
	if r := partialRatio(a, b) * 0.9; r > best {
		best = r
	}
	return best
}

// fuzzyScore is the legacy fuzzy-ratio strategy: best of the four ratios,
// capped at 0.8 when a very short query is held against a long candidate
// so a fragment can never look like a perfect match.
func fuzzyScore(query, candidate string) float64 {
	best := levenshteinRatio(query, candidate)
	if r := partialRatio(query, candidate); r > best {
		best = r
	}
	if r := tokenSortRatio(query, candidate); r > best {
		best = r
	}
	if r := tokenSetRatio(query, candidate); r > best {
		best = r
	}
	if len(query) < 10 && len(candidate) > 50 && best > 0.8 {
		best = 0.8
	}
	return best
}

func sortedTokenString(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

// tokenBasedScore measures lexical overlap regardless of order: Jaccard
// similarity blended with how much of the query the candidate covers.
func tokenBasedScore(queryTokens []string, candidateSet map[string]struct{}) float64 {
	if len(queryTokens) == 0 || len(candidateSet) == 0 {
		return 0
	}
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}

	inter := 0
	for t := range querySet {
		if _, ok := candidateSet[t]; ok {
			inter++
		}
	}
	union := len(querySet) + len(candidateSet) - inter
	if union == 0 {
		return 0
	}

	jaccard := float64(inter) / float64(union)
	overlap := float64(inter) / float64(len(querySet))
	return jaccard*0.6 + overlap*0.4
}

// charSimilarityScore is a character-level edit similarity with a penalty
// when the two strings differ wildly in length.
func charSimilarityScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	sim := levenshteinRatio(a, b)

	maxLen := len(a)
	minLen := len(b)
	if minLen > maxLen {
		maxLen, minLen = minLen, maxLen
	}
	if float64(minLen)/float64(maxLen) < 0.5 {
		sim *= 0.7
	}
	return sim
}

// wordOrderScore rewards preserved word order: longest common subsequence
// over the shorter sequence, plus a bonus of up to 0.3 for consecutive
// word pairs that survive in order.
func wordOrderScore(queryWords, candidateWords []string) float64 {
	if len(queryWords) == 0 || len(candidateWords) == 0 {
		return 0
	}

	maxPossible := len(queryWords)
	if len(candidateWords) < maxPossible {
		maxPossible = len(candidateWords)
	}

	score := float64(lcsLength(queryWords, candidateWords)) / float64(maxPossible)
	score += consecutivePairBonus(queryWords, candidateWords) * 0.3
	if score > 1 {
		score = 1
	}
	return score
}

// lcsLength is the longest common subsequence length over word sequences.
func lcsLength(a, b []string) int {
	m, n := len(a), len(b)
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

// consecutivePairBonus is the fraction of adjacent query word pairs that
// also appear adjacent, in order, in the candidate.
func consecutivePairBonus(queryWords, candidateWords []string) float64 {
	if len(queryWords) < 2 || len(candidateWords) < 2 {
		return 0
	}
	matched := 0
	total := len(queryWords) - 1
	for i := 0; i < len(queryWords)-1; i++ {
		for j := 0; j < len(candidateWords)-1; j++ {
			if candidateWords[j] == queryWords[i] && candidateWords[j+1] == queryWords[i+1] {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(total)
}

// softTFIDFOverlap is IDF-weighted token coverage with fuzzy pairing:
// each query token is greedily paired with its most similar unused
// candidate token, and earns its IDF weight when the pair clears the
// fuzzy threshold. A candidate token is never credited twice in one call.
func softTFIDFOverlap(queryTokens, candidateTokens []string, stats *corpusStats) float64 {
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return 0
	}

	var totalIDF float64
	for _, t := range queryTokens {
		totalIDF += stats.idfFor(t)
	}
	if totalIDF == 0 {
		return 0
	}

	used := make(map[int]struct{}, len(candidateTokens))
	var gainedIDF float64

	for _, qt := range queryTokens {
		bestSim := 0.0
		bestIdx := -1
		for i, ct := range candidateTokens {
			if _, ok := used[i]; ok {
				continue
			}
			if sim := jaroWinkler(qt, ct); sim > bestSim {
				bestSim = sim
				bestIdx = i
			}
		}
		if bestIdx >= 0 && bestSim >= fuzzyPairThreshold {
			gainedIDF += stats.idfFor(qt)
			used[bestIdx] = struct{}{}
		}
	}

	return gainedIDF / totalIDF
}

// authorLastNameSim is the best fuzzy similarity between any meaningful
// query token and the candidate author's last token.
func authorLastNameSim(queryTokens []string, authorLast string) float64 {
	if authorLast == "" {
		return 0
	}
	best := 0.0
	for _, qt := range queryTokens {
		if len(qt) <= 2 {
			continue
		}
		if sim := jaroWinkler(qt, authorLast); sim > best {
			best = sim
		}
	}
	return best
}

// distinctiveTokenCoverage is the fraction of high-IDF query tokens that
// fuzzily appear in the candidate, guarding against matches carried only
// by generic words. Returns zero when the query has no distinctive tokens.
func distinctiveTokenCoverage(queryTokens, candidateTokens []string, stats *corpusStats) float64 {
	var distinctive []string
	for _, t := range queryTokens {
		if stats.isDistinctive(t) {
			distinctive = append(distinctive, t)
		}
	}
	if len(distinctive) == 0 {
		return 0
	}

	covered := 0
	for _, qt := range distinctive {
		for _, ct := range candidateTokens {
			if jaroWinkler(qt, ct) >= fuzzyPairThreshold {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(distinctive))
}

// wordTFIDFCosine is the cosine similarity between IDF-weighted word
// frequency vectors, using only the fitted vocabulary. Contributes zero
// when the vocabulary is empty or shares nothing with either side.
func wordTFIDFCosine(queryTokens, candidateTokens []string, stats *corpusStats) float64 {
	qv := tokenVector(queryTokens, stats)
	cv := tokenVector(candidateTokens, stats)
	if len(qv) == 0 || len(cv) == 0 {
		return 0
	}
	a, b := qv, cv
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for t, w := range a {
		dot += w * b[t]
	}
	return dot
}

func tokenVector(tokens []string, stats *corpusStats) map[string]float64 {
	counts := make(map[string]float64)
	for _, t := range tokens {
		if idf, ok := stats.tokenIDF[t]; ok {
			counts[t] += idf
		}
	}
	var sumSq float64
	for _, w := range counts {
		sumSq += w * w
	}
	if sumSq == 0 {
		return nil
	}
	norm := math.Sqrt(sumSq)
	for t, w := range counts {
		counts[t] = w / norm
	}
	return counts
}

// fieldMatchScore scores a query against one bibliographic field, trying
// strategies in strictly decreasing credit order: exact, substring scaled
// by overlap, token Jaccard, then plain fuzzy ratio.
func fieldMatchScore(query, field string) float64 {
	if query == "" || field == "" {
		return 0
	}

	if query == field {
		return 1
	}

	if strings.Contains(field, query) || strings.Contains(query, field) {
		shorter, longer := len(query), len(field)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		overlap := float64(shorter) / float64(longer)
		if overlap >= 0.7 {
			return 0.7 + overlap*0.3
		}
		return overlap * 0.7
	}

	qs := tokenSet(query)
	fs := tokenSet(field)
	if len(qs) > 0 && len(fs) > 0 {
		inter := 0
		for t := range qs {
			if _, ok := fs[t]; ok {
				inter++
			}
		}
		if inter > 0 {
			union := len(qs) + len(fs) - inter
			return float64(inter) / float64(union) * 0.7
		}
	}

	return levenshteinRatio(query, field) * 0.6
}

// fieldWeightedScore combines per-field match scores with fixed
// title/author/publisher weights of 60/30/10.
func fieldWeightedScore(query string, entry *fittedEntry, publisherNorm string) float64 {
	score := 0.0
	if entry.titleNorm != "" {
		score += fieldMatchScore(query, entry.titleNorm) * 0.6
	}
	if entry.authorNorm != "" {
		score += fieldMatchScore(query, entry.authorNorm) * 0.3
	}
	if publisherNorm != "" {
		score += fieldMatchScore(query, publisherNorm) * 0.1
	}
	return score
}

// embeddingCosine is the cosine similarity between two dense vectors.
func embeddingCosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	return sim
}
