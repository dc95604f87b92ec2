// Package analysis turns raw captures into structured knowledge: an AI
// backend classifies, tags, summarizes, and scores each capture, with a
// deterministic keyword scorer as the offline fallback.
package analysis

import (
	"regexp"
	"strings"

	"github.com/starford/munin/internal/models"
)

// ContentHint tells the analyzer what kind of capture the caller is sending.
type ContentHint string

const (
	HintText ContentHint = "text"
	HintLink ContentHint = "link"
	HintFile ContentHint = "file"
)

// keywordCategory groups priority keywords under a representative weight.
type keywordCategory struct {
	name   string
	weight int
	words  []string
}

// priorityCategories is scanned in order; the highest weight among matched
// categories becomes the base priority.
var priorityCategories = []keywordCategory{
	{name: "critical", weight: 95, words: []string{"urgent", "emergency", "critical", "deadline", "asap", "immediately", "breaking"}},
	{name: "high", weight: 80, words: []string{"important", "key", "essential", "must", "required", "decision", "action", "priority"}},
	{name: "insight", weight: 78, words: []string{"realize", "discovered", "breakthrough", "aha", "finally understand", "learned", "insight", "revelation"}},
	{name: "actionable", weight: 70, words: []string{"todo", "task", "do", "implement", "create", "build", "fix", "resolve", "schedule"}},
	{name: "learning", weight: 68, words: []string{"learn", "study", "research", "explore", "understand", "practice", "improve"}},
	{name: "ideas", weight: 65, words: []string{"idea", "concept", "thought", "vision", "plan", "strategy", "approach"}},
	{name: "reference", weight: 50, words: []string{"note", "remember", "reference", "bookmark", "save", "keep"}},
}

// topicMarkers maps broad topic substrings to suggested tags.
var topicMarkers = []struct {
	tag   string
	words []string
}{
	{tag: "learning", words: []string{"learn", "study"}},
	{tag: "ideas", words: []string{"idea", "think"}},
	{tag: "tasks", words: []string{"todo", "need to"}},
	{tag: "project", words: []string{"project"}},
	{tag: "coding", words: []string{"code", "programming"}},
	{tag: "meetings", words: []string{"meeting", "call"}},
	{tag: "reading", words: []string{"book", "article"}},
}

var insightMarkers = []string{"realize", "aha", "finally understand", "breakthrough", "discovered"}

// listMarkerRe detects numbered lists and bullet markers.
var listMarkerRe = regexp.MustCompile(`\d+\.|[-•*]`)

const defaultPriority = 50

// ScoreKeywords scans text for priority keywords and returns the matched
// keywords (deduplicated, capped at 5, insertion order) and the base
// priority in [1,100].
//
// Matching is substring containment, not word-boundary tokenization: short
// keywords may match inside longer words ("do" in "download"). This is an
// accepted characteristic of the scorer, pinned by tests.
func ScoreKeywords(text string) ([]string, int) {
	lower := strings.ToLower(text)

	var found []string
	seen := make(map[string]struct{})
	maxPriority := defaultPriority

	for _, cat := range priorityCategories {
		for _, word := range cat.words {
			if !strings.Contains(lower, word) {
				continue
			}
			if _, dup := seen[word]; !dup {
				seen[word] = struct{}{}
				found = append(found, word)
			}
			if cat.weight > maxPriority {
				maxPriority = cat.weight
			}
		}
	}

	// Longer, more detailed content is likely more valuable.
	wordCount := len(strings.Fields(text))
	if wordCount > 100 {
		maxPriority = min(100, maxPriority+5)
	}
	if wordCount > 200 {
		maxPriority = min(100, maxPriority+5)
	}

	// Questions indicate active thinking.
	if strings.Contains(text, "?") {
		maxPriority = min(100, maxPriority+3)
	}

	// Numbered lists and bullets indicate organized thinking.
	if listMarkerRe.MatchString(text) {
		maxPriority = min(100, maxPriority+3)
	}

	if len(found) > 5 {
		found = found[:5]
	}
	return found, clampPriority(maxPriority)
}

// Fallback produces a deterministic analysis without any AI backend.
// Title and summary are plain truncations of the raw text.
func Fallback(rawText string, hint ContentHint) models.Analysis {
	keywords, priority := ScoreKeywords(rawText)
	lower := strings.ToLower(rawText)

	var tags []string
	for _, m := range topicMarkers {
		for _, w := range m.words {
			if strings.Contains(lower, w) {
				tags = append(tags, m.tag)
				break
			}
		}
	}
	if len(tags) > 3 {
		tags = tags[:3]
	}

	return models.Analysis{
		Title:    truncate(rawText, 50),
		Summary:  truncate(rawText, 100),
		Tags:     tags,
		Keywords: keywords,
		Type:     inferType(rawText, lower, hint),
		Priority: priority,
	}
}

// inferType decides the note type. Link and file hints win over the insight
// heuristic; any "http" occurrence marks a link regardless of hint.
func inferType(rawText, lower string, hint ContentHint) models.NoteType {
	switch {
	case hint == HintLink || strings.Contains(rawText, "http"):
		return models.TypeLink
	case hint == HintFile:
		return models.TypeFile
	}
	for _, w := range insightMarkers {
		if strings.Contains(lower, w) {
			return models.TypeInsight
		}
	}
	return models.TypeNote
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}
