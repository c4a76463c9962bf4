package intent

import (
	"fmt"
	"strings"
)

// Intent is a validated query intent. The raw model output is only ever
// converted into an Intent through Parse, so routing logic never compares
// against loose strings.
type Intent int

const (
	// Troubleshooting covers specific problems, errors, or factual questions.
	// It is also the fail-safe default when classification is unavailable.
	Troubleshooting Intent = iota
	// Creative covers open-ended requests: recipes, ideas, general guidance.
	Creative
	// Emergency is assigned by the orchestrator's keyword check, never by
	// the classifier.
	Emergency
)

const (
	labelTroubleshooting = "Troubleshooting/Q&A"
	labelCreative        = "Creative/Instructional"
	labelEmergency       = "emergency_response"
)

// String returns the wire label for the intent.
func (i Intent) String() string {
	switch i {
	case Creative:
		return labelCreative
	case Emergency:
		return labelEmergency
	default:
		return labelTroubleshooting
	}
}

// Parse validates raw classifier output against the accepted labels.
// Surrounding whitespace and quote characters are stripped before comparison.
// Anything unrecognized returns an error; callers decide the fallback.
func Parse(raw string) (Intent, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, "'\"")
	cleaned = strings.TrimSpace(cleaned)

	switch cleaned {
	case labelTroubleshooting:
		return Troubleshooting, nil
	case labelCreative:
		return Creative, nil
	default:
		return Troubleshooting, fmt.Errorf("unrecognized intent label: %q", raw)
	}
}
