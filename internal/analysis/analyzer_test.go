package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/munin/internal/llm"
	"github.com/starford/munin/internal/models"
)

// fakeCompleter returns canned responses (or errors) per call, in order.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	models    []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, _, model string, _ int) (string, error) {
	i := f.calls
	f.calls++
	f.models = append(f.models, model)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

var testChain = []string{"model-a", "model-b", "model-c"}

func TestAnalyze_NilClientUsesFallback(t *testing.T) {
	a := NewAnalyzer(nil, testChain, nil)
	got := a.Analyze(context.Background(), "urgent deadline stuff")
	if got.Priority != 95 {
		t.Errorf("priority = %d, want 95 from keyword fallback", got.Priority)
	}
	if got.Type != models.TypeNote {
		t.Errorf("type = %q, want NOTE", got.Type)
	}
}

func TestAnalyze_ParsesBackendResponse(t *testing.T) {
	fake := &fakeCompleter{responses: []string{
		`{"title":"Login Bug","summary":"Fix auth flow","tags":["Bugs","URGENT"],"keywords":["login","auth"],"type":"note","priority":88}`,
	}}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "the login is broken")
	if got.Title != "Login Bug" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Priority != 88 {
		t.Errorf("priority = %d, want 88", got.Priority)
	}
	if got.Type != models.TypeNote {
		t.Errorf("type = %q, want NOTE (uppercased)", got.Type)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "bugs" || got.Tags[1] != "urgent" {
		t.Errorf("tags = %v, want lowercased [bugs urgent]", got.Tags)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
}

func TestAnalyze_StripsCodeFences(t *testing.T) {
	fake := &fakeCompleter{responses: []string{
		"```json\n{\"title\":\"Fenced\",\"summary\":\"s\",\"type\":\"INSIGHT\",\"priority\":60}\n```",
	}}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "x")
	if got.Title != "Fenced" {
		t.Errorf("title = %q, want Fenced", got.Title)
	}
	if got.Type != models.TypeInsight {
		t.Errorf("type = %q, want INSIGHT", got.Type)
	}
}

func TestAnalyze_InvalidTypeDefaultsToNote(t *testing.T) {
	fake := &fakeCompleter{responses: []string{
		`{"title":"t","summary":"s","type":"POEM","priority":40}`,
	}}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "x")
	if got.Type != models.TypeNote {
		t.Errorf("type = %q, want NOTE", got.Type)
	}
}

func TestAnalyze_PriorityHandling(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want int
	}{
		{"missing", `{"title":"t","summary":"s","type":"NOTE"}`, 50},
		{"zero", `{"title":"t","summary":"s","type":"NOTE","priority":0}`, 50},
		{"string", `{"title":"t","summary":"s","type":"NOTE","priority":"high"}`, 50},
		{"over 100", `{"title":"t","summary":"s","type":"NOTE","priority":250}`, 100},
		{"negative", `{"title":"t","summary":"s","type":"NOTE","priority":-3}`, 1},
		{"float", `{"title":"t","summary":"s","type":"NOTE","priority":72.6}`, 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{responses: []string{tt.resp}}
			a := NewAnalyzer(fake, testChain, nil)
			got := a.Analyze(context.Background(), "x")
			if got.Priority != tt.want {
				t.Errorf("priority = %d, want %d", got.Priority, tt.want)
			}
		})
	}
}

func TestAnalyze_EmptyKeywordsRecomputed(t *testing.T) {
	fake := &fakeCompleter{responses: []string{
		`{"title":"t","summary":"s","type":"NOTE","priority":30,"keywords":[]}`,
	}}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "urgent fix needed")
	if len(got.Keywords) == 0 {
		t.Fatal("keywords should be recomputed from the original text")
	}
	if got.Keywords[0] != "urgent" {
		t.Errorf("keywords = %v, want urgent first", got.Keywords)
	}
	if got.Priority != 30 {
		t.Errorf("priority = %d, want 30 (backend value kept)", got.Priority)
	}
}

func TestAnalyze_EmptyTitleAndSummaryDefaults(t *testing.T) {
	fake := &fakeCompleter{responses: []string{
		`{"type":"NOTE","priority":55}`,
	}}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "x")
	if got.Title != "Untitled Thought" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Summary != "No summary generated." {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestAnalyze_RateLimitedAdvancesChain(t *testing.T) {
	fake := &fakeCompleter{
		errs: []error{
			&llm.APIError{StatusCode: 429, Message: "rate limit exceeded"},
			nil,
		},
		responses: []string{
			"",
			`{"title":"Second","summary":"s","type":"NOTE","priority":42}`,
		},
	}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "x")
	if got.Title != "Second" {
		t.Errorf("title = %q, want result from second model", got.Title)
	}
	if fake.calls != 2 {
		t.Errorf("calls = %d, want 2", fake.calls)
	}
	if fake.models[1] != "model-b" {
		t.Errorf("second model = %q, want model-b", fake.models[1])
	}
}

func TestAnalyze_AllModelsFailFallsBack(t *testing.T) {
	boom := errors.New("backend down")
	fake := &fakeCompleter{errs: []error{boom, boom, boom}}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "remember this thought")
	if fake.calls != 3 {
		t.Errorf("calls = %d, want all 3 models tried", fake.calls)
	}
	// Fallback output: plain truncation title, keyword scoring.
	if got.Title != "remember this thought" {
		t.Errorf("title = %q, want raw text", got.Title)
	}
	if got.Priority != 65 {
		t.Errorf("priority = %d, want 65 (ideas via thought)", got.Priority)
	}
}

func TestAnalyze_UnparseableResponseAdvancesChain(t *testing.T) {
	fake := &fakeCompleter{responses: []string{
		"sorry, I cannot help with that",
		`{"title":"Valid","summary":"s","type":"NOTE","priority":50}`,
	}}
	a := NewAnalyzer(fake, testChain, nil)
	got := a.Analyze(context.Background(), "x")
	if got.Title != "Valid" {
		t.Errorf("title = %q, want Valid from second model", got.Title)
	}
}

func TestAnalyze_NeverFails(t *testing.T) {
	a := NewAnalyzer(nil, testChain, nil)
	inputs := []string{
		"",
		"   ",
		strings.Repeat("a very long rambling capture with no particular keywords ", 300),
		"\x00\x01 binary-ish ¿input? 🧠",
	}
	for _, in := range inputs {
		got := a.Analyze(context.Background(), in)
		if got.Priority < 1 || got.Priority > 100 {
			t.Errorf("priority = %d for input %.20q, want in [1,100]", got.Priority, in)
		}
		if !models.ValidType(got.Type) {
			t.Errorf("type = %q for input %.20q", got.Type, in)
		}
	}
}

func TestAnalyzeLink_FallbackIsLinkType(t *testing.T) {
	a := NewAnalyzer(nil, testChain, nil)
	got := a.AnalyzeLink(context.Background(), "https://example.com/post", "a good read")
	if got.Type != models.TypeLink {
		t.Errorf("type = %q, want LINK", got.Type)
	}
}

func TestAnalyzeFile_FallbackIsFileType(t *testing.T) {
	a := NewAnalyzer(nil, testChain, nil)
	got := a.AnalyzeFile(context.Background(), "notes.pdf", "application/pdf", "")
	if got.Type != models.TypeFile {
		t.Errorf("type = %q, want FILE", got.Type)
	}
}
