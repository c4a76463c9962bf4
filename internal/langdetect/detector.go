// Package langdetect assigns a language code to content items: English
// ("en"), Hindi ("hi"), or Hinglish ("hi-en"). The Hinglish classification
// is a marker-word heuristic layered over statistical detection, not a
// trained classifier; treat its output as approximate.
package langdetect

import (
	"log/slog"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Language codes produced by the detector.
const (
	LangEnglish  = "en"
	LangHindi    = "hi"
	LangHinglish = "hi-en"
	LangUnknown  = "unknown"
)

// hinglishMarkers is a small set of common Romanized Hindi function and
// content words. Two or more distinct hits in otherwise-English text
// reclassify it as Hinglish.
var hinglishMarkers = map[string]struct{}{
	"aur": {}, "acha": {}, "gaya": {}, "kar": {}, "nahi": {}, "sab": {}, "bhi": {}, "kya": {},
	"masala": {}, "paneer": {}, "roti": {}, "dal": {}, "sabzi": {}, "tadka": {}, "ghee": {},
	"namak": {}, "jaldi": {}, "thoda": {}, "zyada": {}, "chahiye": {}, "kaise": {}, "banate": {},
}

const minMarkerHits = 2

// Detector analyzes text and assigns a language code.
type Detector struct {
	detector lingua.LanguageDetector
	logger   *slog.Logger
}

// NewDetector creates a language detector restricted to the two candidate
// languages of the corpus. The underlying model is deterministic for a
// fixed input.
func NewDetector() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Hindi).
			Build(),
		logger: slog.Default(),
	}
}

// Detect returns the language code for the text. Empty or undetectable
// text yields LangUnknown; detection never fails with an error.
func (d *Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return LangUnknown
	}

	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		d.logger.Warn("could not detect language, marking as unknown", "snippet", snippet(text))
		return LangUnknown
	}

	switch language {
	case lingua.English:
		if countMarkers(text) >= minMarkerHits {
			return LangHinglish
		}
		return LangEnglish
	case lingua.Hindi:
		return LangHindi
	default:
		return LangUnknown
	}
}

// countMarkers returns the number of distinct Hinglish marker words in the
// lowercase word set of the text.
func countMarkers(text string) int {
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if _, ok := hinglishMarkers[word]; ok {
			seen[word] = struct{}{}
		}
	}
	return len(seen)
}

// snippet truncates text for log output.
func snippet(text string) string {
	if len(text) > 50 {
		return text[:50] + "..."
	}
	return text
}
