// Package query answers natural-language questions against the knowledge
// base using retrieval-augmented generation: a bounded, priority-ranked
// subset of notes is offered as context and the backend must answer strictly
// from it, citing the notes it used.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/munin/internal/llm"
	"github.com/starford/munin/internal/models"
)

const (
	// contextLimit bounds how many notes are rendered into the prompt.
	// Ranking by priority biases retrieval toward content the ingestion
	// pipeline already judged important.
	contextLimit = 20

	// publicFetchLimit bounds the candidate fetch for public-only queries.
	publicFetchLimit = 100

	queryMaxTokens = 1000
)

// NoteLister supplies candidate records for a query.
type NoteLister interface {
	ListAll() ([]models.Note, error)
	ListPublic(limit int) ([]models.Note, error)
}

// Source cites one note that grounded an answer.
type Source struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// Result is the engine's answer to one question.
type Result struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence string   `json:"confidence"` // "high", "medium", or "low"
}

const systemPrompt = `You are an intelligent assistant helping a user query their personal knowledge base (Second Brain).

Answer their question based ONLY on the provided notes. If the answer isn't in the knowledge base, say so honestly.

Instructions:
1. Answer the question clearly and concisely based on the knowledge base content
2. Reference specific notes by their titles when relevant
3. If the question cannot be answered from the available notes, acknowledge this
4. Keep your response helpful and conversational
5. Consider note priority when determining relevance

Respond in JSON format:
{
  "answer": "Your detailed answer here",
  "relevantNoteIds": ["id1", "id2"],
  "confidence": "high" | "medium" | "low"
}`

// Engine runs conversational queries. Query never fails: all backend errors
// degrade into a canned low-confidence answer.
type Engine struct {
	client llm.Completer // nil when no API credential is configured
	models []string
	notes  NoteLister
	logger *slog.Logger
}

// NewEngine creates a query engine over the given note source.
func NewEngine(client llm.Completer, modelChain []string, notes NoteLister, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, models: modelChain, notes: notes, logger: logger}
}

// Query answers a question from stored notes. When publicOnly is set, only
// notes flagged public are considered, so public endpoints cannot leak
// private content.
func (e *Engine) Query(ctx context.Context, question string, publicOnly bool) Result {
	var (
		notes []models.Note
		err   error
	)
	if publicOnly {
		notes, err = e.notes.ListPublic(publicFetchLimit)
	} else {
		notes, err = e.notes.ListAll()
	}
	if err != nil {
		e.logger.Error("query: list notes failed", slog.String("error", err.Error()))
		return errorResult()
	}

	if len(notes) == 0 {
		return Result{
			Answer:     "Your knowledge base is empty. Start capturing thoughts to build your second brain!",
			Sources:    []Source{},
			Confidence: "low",
		}
	}

	// No credential behaves like a fully exhausted model chain: there are
	// candidate notes but no backend to answer from them.
	if e.client == nil {
		return unavailableResult()
	}

	userPrompt := fmt.Sprintf("KNOWLEDGE BASE:\n%s\n\nUSER QUESTION: %s", renderContext(notes), question)

	for _, model := range e.models {
		raw, err := e.client.Complete(ctx, systemPrompt, userPrompt, model, queryMaxTokens)
		if err != nil {
			if llm.IsRateLimited(err) {
				e.logger.Warn("query: model rate limited, trying next",
					slog.String("model", model))
			} else {
				e.logger.Error("query: model failed",
					slog.String("model", model),
					slog.String("error", err.Error()))
			}
			continue
		}

		result, err := parseResult(raw, notes)
		if err != nil {
			e.logger.Error("query: unparseable response",
				slog.String("model", model),
				slog.String("error", err.Error()))
			continue
		}
		return result
	}

	return unavailableResult()
}

// renderContext sorts candidates by priority descending (stable, so ties
// keep store order) and renders the top notes as compact blocks.
func renderContext(notes []models.Note) string {
	ranked := make([]models.Note, len(notes))
	copy(ranked, notes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return effectivePriority(ranked[i]) > effectivePriority(ranked[j])
	})
	if len(ranked) > contextLimit {
		ranked = ranked[:contextLimit]
	}

	blocks := make([]string, len(ranked))
	for i, n := range ranked {
		summary := n.Summary
		if summary == "" {
			summary = "N/A"
		}
		blocks[i] = fmt.Sprintf("[ID: %s] Title: %s\nPriority: %d\nSummary: %s\nContent: %s\nTags: %s\n---",
			n.ID, n.Title, effectivePriority(n), summary, n.Content, strings.Join(n.Tags, ", "))
	}
	return strings.Join(blocks, "\n\n")
}

func effectivePriority(n models.Note) int {
	if n.Priority == 0 {
		return 50
	}
	return n.Priority
}

type rawResult struct {
	Answer          string   `json:"answer"`
	RelevantNoteIDs []string `json:"relevantNoteIds"`
	Confidence      string   `json:"confidence"`
}

// parseResult validates a backend response and resolves cited note ids
// against the candidate set, so sources can never be fabricated.
func parseResult(raw string, notes []models.Note) (Result, error) {
	cleaned := stripCodeFences(raw)

	var parsed rawResult
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Result{}, fmt.Errorf("query: parse response: %w", err)
	}

	cited := make(map[string]struct{}, len(parsed.RelevantNoteIDs))
	for _, id := range parsed.RelevantNoteIDs {
		cited[id] = struct{}{}
	}

	sources := []Source{}
	for _, n := range notes {
		if _, ok := cited[n.ID]; ok {
			sources = append(sources, Source{ID: n.ID, Title: n.Title, Summary: n.Summary})
		}
	}

	answer := parsed.Answer
	if answer == "" {
		answer = "I couldn't generate a response."
	}

	confidence := parsed.Confidence
	switch confidence {
	case "high", "medium", "low":
	default:
		confidence = "medium"
	}

	return Result{Answer: answer, Sources: sources, Confidence: confidence}, nil
}

func errorResult() Result {
	return Result{
		Answer:     "I encountered an error while searching your knowledge base. Please try again.",
		Sources:    []Source{},
		Confidence: "low",
	}
}

// unavailableResult is the canned answer when notes exist but no backend
// could produce an answer, whether from chain exhaustion or a missing
// credential.
func unavailableResult() Result {
	return Result{
		Answer:     "I'm currently unable to process your query. Please try again in a moment.",
		Sources:    []Source{},
		Confidence: "low",
	}
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
