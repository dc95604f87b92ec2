package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/munin/internal/llm"
	"github.com/starford/munin/internal/models"
)

const analysisMaxTokens = 500

// Analyzer produces an Analysis for arbitrary input. It prefers a live AI
// backend, trying each configured model in order, and falls back to the
// deterministic keyword scorer when no backend is usable. Analyze never
// fails: the caller always receives a valid result.
type Analyzer struct {
	client llm.Completer // nil when no API credential is configured
	models []string
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer. A nil client means fallback-only mode.
func NewAnalyzer(client llm.Completer, modelChain []string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, models: modelChain, logger: logger}
}

// Analyze classifies, tags, summarizes, and scores raw text.
func (a *Analyzer) Analyze(ctx context.Context, rawText string) models.Analysis {
	return a.analyze(ctx, rawText, HintText)
}

// AnalyzeLink analyzes a URL capture, optionally with a user description.
func (a *Analyzer) AnalyzeLink(ctx context.Context, url, description string) models.Analysis {
	content := "URL: " + url
	if description != "" {
		content += "\n\nDescription: " + description
	}
	return a.analyze(ctx, content, HintLink)
}

// AnalyzeFile analyzes a file reference (name plus declared media type),
// optionally with a user description.
func (a *Analyzer) AnalyzeFile(ctx context.Context, fileName, fileType, description string) models.Analysis {
	content := fmt.Sprintf("File: %s (%s)", fileName, fileType)
	if description != "" {
		content += "\n\nDescription: " + description
	}
	return a.analyze(ctx, content, HintFile)
}

func (a *Analyzer) analyze(ctx context.Context, rawText string, hint ContentHint) models.Analysis {
	if a.client == nil {
		return Fallback(rawText, hint)
	}

	userPrompt := buildUserPrompt(rawText, hint)

	for _, model := range a.models {
		raw, err := a.client.Complete(ctx, analysisSystemPrompt, userPrompt, model, analysisMaxTokens)
		if err != nil {
			if llm.IsRateLimited(err) {
				a.logger.Warn("analysis: model rate limited, trying next",
					slog.String("model", model))
			} else {
				a.logger.Error("analysis: model failed",
					slog.String("model", model),
					slog.String("error", err.Error()))
			}
			continue
		}

		result, err := parseAnalysis(raw, rawText)
		if err != nil {
			a.logger.Error("analysis: unparseable response",
				slog.String("model", model),
				slog.String("error", err.Error()))
			continue
		}
		return result
	}

	a.logger.Info("analysis: all backends failed, using keyword fallback")
	return Fallback(rawText, hint)
}

func buildUserPrompt(rawText string, hint ContentHint) string {
	var b strings.Builder
	switch hint {
	case HintLink:
		b.WriteString("[This is a URL/link being saved]\n\n")
	case HintFile:
		b.WriteString("[This is a file being saved]\n\n")
	}
	b.WriteString("Analyze this text:\n\n\"\"\"\n")
	b.WriteString(rawText)
	b.WriteString("\n\"\"\"")
	return b.String()
}

// rawAnalysis is the untrusted shape decoded from an AI response. Priority
// is kept raw so a non-numeric value degrades to the default instead of
// discarding the whole response.
type rawAnalysis struct {
	Title    string          `json:"title"`
	Summary  string          `json:"summary"`
	Tags     []string        `json:"tags"`
	Keywords []string        `json:"keywords"`
	Type     string          `json:"type"`
	Priority json.RawMessage `json:"priority"`
}

// parseAnalysis validates an AI response field by field: the backend is
// never assumed to have honored the schema.
func parseAnalysis(raw, originalText string) (models.Analysis, error) {
	cleaned := stripCodeFences(raw)

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return models.Analysis{}, fmt.Errorf("analysis: parse response: %w", err)
	}

	noteType := models.NoteType(strings.ToUpper(parsed.Type))
	if !models.ValidType(noteType) {
		noteType = models.TypeNote
	}

	priority := defaultPriority
	if len(parsed.Priority) > 0 {
		var p float64
		if err := json.Unmarshal(parsed.Priority, &p); err == nil && p != 0 {
			priority = int(p)
		}
	}

	keywords := normalizeList(parsed.Keywords, 5)
	if len(keywords) == 0 {
		keywords, _ = ScoreKeywords(originalText)
	}

	title := parsed.Title
	if title == "" {
		title = "Untitled Thought"
	}
	summary := parsed.Summary
	if summary == "" {
		summary = "No summary generated."
	}

	return models.Analysis{
		Title:    title,
		Summary:  summary,
		Tags:     normalizeList(parsed.Tags, 5),
		Keywords: keywords,
		Type:     noteType,
		Priority: clampPriority(priority),
	}, nil
}

// stripCodeFences removes markdown code-fence wrapping some models add
// despite JSON mode.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// normalizeList lowercases, trims, deduplicates, and caps a string list.
func normalizeList(in []string, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
