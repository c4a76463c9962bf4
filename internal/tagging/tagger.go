// Package tagging assigns descriptive topic tags to content items without a
// predefined taxonomy: TF-IDF vectorization, LSA reduction, k-means topic
// clustering, then top cluster terms become each member's tags.
package tagging

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"rasoi-ai/internal/contextutil"
)

// Params holds the tagging pipeline parameters. Seed and iteration counts
// are fixed so repeated runs over the same corpus produce the same tags.
type Params struct {
	// MaxDocFreq drops terms appearing in more than this fraction of documents.
	MaxDocFreq float64
	// MinDocCount drops terms appearing in fewer than this many documents.
	MinDocCount int
	// MinWordLength drops tokens shorter than this many characters.
	MinWordLength int
	// LatentDims is the LSA dimensionality used for clustering.
	LatentDims int
	// Clusters is the k-means cluster count.
	Clusters int
	// TopTerms is the number of keyword tags derived per cluster.
	TopTerms int
	// Seed feeds both SVD initialization and k-means seeding.
	Seed int64
	// MaxIterations bounds the k-means refinement loop.
	MaxIterations int
}

// DefaultParams returns the production tagging parameters.
func DefaultParams() Params {
	return Params{
		MaxDocFreq:    0.8,
		MinDocCount:   5,
		MinWordLength: 2,
		LatentDims:    100,
		Clusters:      50,
		TopTerms:      5,
		Seed:          42,
		MaxIterations: 100,
	}
}

// stopwords covers English plus common transliterated-Hindi function words
// and scraping noise. Terms containing a stopword token never become tags.
var stopwords = buildStopwordSet(
	"i me my myself we our ours ourselves you your yours he him his she her it its they them their what " +
		"which who whom this that these those am is are was were be been being have has had having do does did " +
		"doing a an the and but if or because as until while of at by for with about to from in out on off over " +
		"under then once here there when where why how all any both each few more most other some such no nor not " +
		"only own same so than too very s t can will just don should now d ll m o re ve y ain aren couldn " +
		"ka ke ki ko hai mein se aur kya recipe video watch http")

func buildStopwordSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

var (
	digitsPattern      = regexp.MustCompile(`\d+`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// CleanText lowercases text and strips digits, punctuation, and extra
// whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = digitsPattern.ReplaceAllString(text, "")
	text = punctuationPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tagger discovers topic clusters in a corpus and derives per-cluster tags.
type Tagger struct {
	params Params
	logger *slog.Logger
}

// NewTagger creates a tagger with the given parameters.
func NewTagger(params Params) *Tagger {
	def := DefaultParams()
	if params.MaxDocFreq <= 0 || params.MaxDocFreq > 1 {
		params.MaxDocFreq = def.MaxDocFreq
	}
	if params.MinDocCount <= 0 {
		params.MinDocCount = def.MinDocCount
	}
	if params.MinWordLength <= 0 {
		params.MinWordLength = def.MinWordLength
	}
	if params.LatentDims <= 0 {
		params.LatentDims = def.LatentDims
	}
	if params.Clusters <= 0 {
		params.Clusters = def.Clusters
	}
	if params.TopTerms <= 0 {
		params.TopTerms = def.TopTerms
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = def.MaxIterations
	}
	return &Tagger{
		params: params,
		logger: slog.Default(),
	}
}

// Tag runs the full pipeline over the corpus and returns one tag list per
// input document, index-aligned. Documents whose cluster has no usable
// vocabulary get an empty tag list.
func (t *Tagger) Tag(ctx context.Context, texts []string) ([][]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	tags := make([][]string, len(texts))
	for i := range tags {
		tags[i] = []string{}
	}
	if len(texts) == 0 {
		return tags, nil
	}

	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = CleanText(text)
	}

	// Step 1: vectorize the corpus.
	matrix, terms := vectorize(cleaned, t.params)
	if len(terms) == 0 {
		logger.WarnContext(ctx, "no vocabulary survived document-frequency bounds, skipping tagging",
			"documents", len(texts))
		return tags, nil
	}
	logger.InfoContext(ctx, "corpus vectorized", "documents", len(texts), "terms", len(terms))

	// Step 2: reduce dimensionality before clustering to denoise the
	// sparse term vectors.
	dims := t.params.LatentDims
	if dims > len(terms) {
		dims = len(terms)
	}
	if dims > len(texts) {
		dims = len(texts)
	}
	reduced := truncatedSVD(matrix, dims, t.params.Seed)

	// Step 3: partition documents into topic clusters.
	k := t.params.Clusters
	if k > len(texts) {
		k = len(texts)
	}
	assignments := kmeans(reduced, k, t.params.Seed, t.params.MaxIterations)

	// Step 4: derive tags from each cluster's mean term weights.
	clusterTags := t.discoverClusterTags(matrix, terms, assignments, k)
	logger.InfoContext(ctx, "topic clusters discovered", "clusters", len(clusterTags))

	// Step 5: propagate cluster tags onto members.
	for i, cluster := range assignments {
		if ct, ok := clusterTags[cluster]; ok {
			tags[i] = ct
		}
	}
	return tags, nil
}

// discoverClusterTags computes the mean TF-IDF vector of each cluster and
// selects its top-weight terms. Clusters with no members, or whose members
// carry no term weight, are skipped.
func (t *Tagger) discoverClusterTags(matrix [][]float64, terms []string, assignments []int, k int) map[int][]string {
	clusterTags := make(map[int][]string, k)
	for cluster := 0; cluster < k; cluster++ {
		var members []int
		for i, a := range assignments {
			if a == cluster {
				members = append(members, i)
			}
		}
		if len(members) == 0 {
			continue
		}

		mean := make([]float64, len(terms))
		for _, idx := range members {
			for j, w := range matrix[idx] {
				mean[j] += w
			}
		}
		for j := range mean {
			mean[j] /= float64(len(members))
		}

		order := make([]int, len(terms))
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool {
			return mean[order[a]] > mean[order[b]]
		})

		topTerms := make([]string, 0, t.params.TopTerms)
		for _, j := range order {
			if len(topTerms) == t.params.TopTerms {
				break
			}
			if mean[j] <= 0 {
				break
			}
			topTerms = append(topTerms, terms[j])
		}
		if len(topTerms) > 0 {
			clusterTags[cluster] = topTerms
		}
	}
	return clusterTags
}
