package extract

import (
	"testing"

	"github.com/vaibhavtmnit/cg5/internal/child"
)

func TestGovernorMinConfidence(t *testing.T) {
	g := NewGovernor(GovernorConfig{MinConfidence: 0.5})
	in := []child.EC{
		{Name: "keep", Confidence: 0.5, Guards: []string{}},
		{Name: "drop", Confidence: 0.49, Guards: []string{}},
	}
	out := g.Filter(in, nil)
	if len(out) != 1 || out[0].Name != "keep" {
		t.Fatalf("out = %+v, want single keep", out)
	}
}

func TestGovernorDenylistMatchesTrailingMember(t *testing.T) {
	g := NewGovernor(GovernorConfig{DropDenylisted: true})
	in := []child.EC{
		{Name: "println", Confidence: 0.9, Guards: []string{}},
		{Name: "requireNonNull", Confidence: 0.9, Guards: []string{}},
		{Name: "stage", Confidence: 0.9, Guards: []string{}},
	}
	out := g.Filter(in, child.DefaultDenylist())
	if len(out) != 1 || out[0].Name != "stage" {
		t.Fatalf("out = %+v, want single stage", out)
	}
}

func TestGovernorCapKeepsHighestScoredInInputOrder(t *testing.T) {
	g := NewGovernor(GovernorConfig{MaxChildren: 2})
	in := []child.EC{
		{Name: "low", CodeSnippet: "x.low()", Confidence: 0.2, Guards: []string{}},
		{Name: "high", CodeSnippet: "x.high()", Confidence: 0.9, Guards: []string{}},
		{Name: "mid", CodeSnippet: "x.mid()", Confidence: 0.6, Guards: []string{}},
	}
	out := g.Filter(in, nil)
	if len(out) != 2 {
		t.Fatalf("out = %d, want 2", len(out))
	}
	// high and mid survive; input order preserved.
	if out[0].Name != "high" || out[1].Name != "mid" {
		t.Errorf("out = %q, %q; want high, mid", out[0].Name, out[1].Name)
	}
}

func TestGovernorEmptyInput(t *testing.T) {
	g := NewGovernor(DefaultGovernorConfig())
	if out := g.Filter(nil, nil); len(out) != 0 {
		t.Errorf("out = %+v, want empty", out)
	}
}

func TestGovernorMinSnippetLength(t *testing.T) {
	g := NewGovernor(GovernorConfig{MinSnippetLength: 3})
	in := []child.EC{
		{Name: "a", CodeSnippet: "x", Confidence: 0.9, Guards: []string{}},
		{Name: "b", CodeSnippet: "p.run()", Confidence: 0.9, Guards: []string{}},
	}
	out := g.Filter(in, nil)
	if len(out) != 1 || out[0].Name != "b" {
		t.Fatalf("out = %+v, want single b", out)
	}
}
