package storage

import "time"

// ContextualEntry is a deduplicated Q&A item scraped from social platforms
// and forums. SourceURL is globally unique; the tags and language fields
// are filled in by the enrichment pipeline.
type ContextualEntry struct {
	ID             int64
	Question       string
	Answer         string
	Intent         string
	SourcePlatform string
	SourceURL      string
	Score          int
	Language       string
	Tags           []string
	CreatedAt      time.Time
}

// Recipe is a scraped recipe record. Ingredients and Instructions are
// stored as JSON arrays.
type Recipe struct {
	ID           int64
	Title        string
	SourceURL    string
	Ingredients  []string
	Instructions []string
	Cuisine      string
	Tags         []string
}
