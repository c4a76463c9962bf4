package tagging

import (
	"math"
	"sort"
	"strings"
)

// tokenize splits cleaned text into unigram tokens, dropping stopwords and
// tokens below the minimum length. Stopwords are removed before n-gram
// construction, so bigrams span the surviving tokens.
func tokenize(text string, minWordLength int) []string {
	var tokens []string
	for _, tok := range strings.Fields(text) {
		if len(tok) < minWordLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// termCounts returns unigram and bigram counts for one document.
func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}
	return counts
}

// vectorize builds an L2-normalized TF-IDF matrix over the cleaned corpus.
// Terms present in more than MaxDocFreq of documents or fewer than
// MinDocCount documents are dropped. Returns the document-by-term matrix
// and the vocabulary in sorted order.
func vectorize(cleaned []string, params Params) ([][]float64, []string) {
	n := len(cleaned)

	docCounts := make([]map[string]int, n)
	docFreq := make(map[string]int)
	for i, text := range cleaned {
		counts := termCounts(tokenize(text, params.MinWordLength))
		docCounts[i] = counts
		for term := range counts {
			docFreq[term]++
		}
	}

	maxDF := int(params.MaxDocFreq * float64(n))
	var terms []string
	for term, df := range docFreq {
		if df < params.MinDocCount || df > maxDF {
			continue
		}
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return nil, nil
	}

	termIndex := make(map[string]int, len(terms))
	for j, term := range terms {
		termIndex[term] = j
	}

	// Smoothed IDF: ln((1+n)/(1+df)) + 1.
	idf := make([]float64, len(terms))
	for j, term := range terms {
		idf[j] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	matrix := make([][]float64, n)
	for i, counts := range docCounts {
		row := make([]float64, len(terms))
		var sumSquares float64
		for term, count := range counts {
			j, ok := termIndex[term]
			if !ok {
				continue
			}
			w := float64(count) * idf[j]
			row[j] = w
			sumSquares += w * w
		}
		if sumSquares > 0 {
			norm := math.Sqrt(sumSquares)
			for j := range row {
				row[j] /= norm
			}
		}
		matrix[i] = row
	}

	return matrix, terms
}
