package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/vaibhavtmnit/cg5/internal/child"
)

func TestValidateReturnsVerdicts(t *testing.T) {
	provider := &scriptedProvider{rules: []scriptRule{
		{match: markValidator, responses: []string{
			`{"verdicts":[
				{"name":"stage","valid":true,"confidence":0.95,"reason":"one-hop call on p"},
				{"name":"commit","valid":false,"confidence":0.9,"reason":"second chain hop"}]}`,
		}},
	}}

	ex := New(provider)
	candidates := []child.EC{
		{Name: "stage", CodeSnippet: "p.stage()", Confidence: 0.8, Guards: []string{}},
		{Name: "commit", CodeSnippet: "p.stage().commit()", Confidence: 0.5, Guards: []string{}},
	}
	verdicts, err := ex.Validate(context.Background(), "method_call", testRequest(), candidates)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("verdicts = %d, want 2", len(verdicts))
	}
	if !verdicts[0].Valid || verdicts[0].Name != "stage" {
		t.Errorf("verdict[0] = %+v, want valid stage", verdicts[0])
	}
	if verdicts[1].Valid {
		t.Errorf("commit should be invalid (chain hop)")
	}

	// Candidates must have been serialized into the prompt.
	found := false
	for _, c := range provider.calls {
		if strings.Contains(c.user, `"p.stage()"`) {
			found = true
		}
	}
	if !found {
		t.Error("candidate snippets never reached the validator prompt")
	}
}

func TestValidateClampsConfidenceAndDropsUnnamed(t *testing.T) {
	provider := &scriptedProvider{rules: []scriptRule{
		{match: markValidator, responses: []string{
			`{"verdicts":[
				{"name":"stage","valid":true,"confidence":3.5,"reason":"x"},
				{"name":"","valid":true,"confidence":0.5,"reason":"unnamed"}]}`,
		}},
	}}

	ex := New(provider)
	verdicts, err := ex.Validate(context.Background(), "method_call", testRequest(),
		[]child.EC{{Name: "stage", Guards: []string{}}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(verdicts) != 1 {
		t.Fatalf("verdicts = %d, want 1 (unnamed dropped)", len(verdicts))
	}
	if verdicts[0].Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", verdicts[0].Confidence)
	}
}

func TestValidateCoercesMistypedFields(t *testing.T) {
	provider := &scriptedProvider{rules: []scriptRule{
		{match: markValidator, responses: []string{
			`{"verdicts":[
				{"name":"stage","valid":"true","confidence":"0.9","reason":"one-hop call"},
				{"name":"   ","valid":false,"confidence":0.5,"reason":"blank name"},
				{"name":"commit","valid":true,"confidence":{"oops":1},"reason":"bad type"}]}`,
		}},
	}}

	ex := New(provider)
	verdicts, err := ex.Validate(context.Background(), "method_call", testRequest(),
		[]child.EC{{Name: "stage", Guards: []string{}}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("provider called %d times, want 1 (no retry for field-level issues)", len(provider.calls))
	}
	if len(verdicts) != 2 {
		t.Fatalf("verdicts = %d, want 2 (whitespace name dropped)", len(verdicts))
	}
	if !verdicts[0].Valid || verdicts[0].Confidence != 0.9 {
		t.Errorf("verdict[0] = %+v, want valid with string confidence coerced to 0.9", verdicts[0])
	}
	if verdicts[1].Name != "commit" || verdicts[1].Confidence != 0.0 {
		t.Errorf("verdict[1] = %+v, want uncoercible confidence defaulted to 0", verdicts[1])
	}
}

func TestValidateEmptyCandidatesSkipsLLM(t *testing.T) {
	provider := &scriptedProvider{}
	ex := New(provider)
	verdicts, err := ex.Validate(context.Background(), "method_call", testRequest(), nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(verdicts) != 0 {
		t.Errorf("verdicts = %d, want 0", len(verdicts))
	}
	if len(provider.calls) != 0 {
		t.Errorf("LLM called %d times for empty candidate list", len(provider.calls))
	}
}

func TestValidateUnknownFamily(t *testing.T) {
	ex := New(&scriptedProvider{})
	_, err := ex.Validate(context.Background(), "bogus", testRequest(),
		[]child.EC{{Name: "x", Guards: []string{}}})
	if err == nil || !strings.Contains(err.Error(), "unknown family") {
		t.Fatalf("err = %v, want unknown family", err)
	}
}
