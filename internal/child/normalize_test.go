package child

import (
	"reflect"
	"testing"
)

func TestNormalizeDropsEmptyNames(t *testing.T) {
	raw := []map[string]any{
		{"name": "", "code_snippet": "Foo f = new Foo();", "confidence": 0.9},
		{"name": "   ", "confidence": 1.0},
		{"code_snippet": "no name at all"},
		{"name": "f", "code_snippet": "Foo f = new Foo();"},
	}

	ecs := Normalize(raw, false)
	if len(ecs) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(ecs), ecs)
	}
	if ecs[0].Name != "f" {
		t.Errorf("expected name 'f', got %q", ecs[0].Name)
	}
}

func TestNormalizeConfidenceClamp(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{-5, 0.0},
		{0, 0.0},
		{0.5, 0.5},
		{1, 1.0},
		{7, 1.0},
		{"0.75", 0.75}, // numeric strings coerce
		{"garbage", 0.0},
		{nil, 0.0},
	}

	for _, tt := range tests {
		ecs := Normalize([]map[string]any{{"name": "x", "confidence": tt.in}}, false)
		if len(ecs) != 1 {
			t.Fatalf("confidence %v: record dropped", tt.in)
		}
		if ecs[0].Confidence != tt.want {
			t.Errorf("confidence %v: got %v, want %v", tt.in, ecs[0].Confidence, tt.want)
		}
	}
}

func TestNormalizeFieldCoercion(t *testing.T) {
	raw := []map[string]any{{
		"name":           "  Foo  ",
		"code_snippet":   " Foo f = new Foo(); ",
		"code_block":     "void m(){ Foo f = new Foo(); }",
		"further_expand": "true",
		"conditioned":    1,
		"confidence":     0.6,
		"guards":         []any{"if (x)", "if (x)", "  ", "for (...)"},
	}}

	ecs := Normalize(raw, false)
	if len(ecs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(ecs))
	}
	ec := ecs[0]

	if ec.Name != "Foo" {
		t.Errorf("name not trimmed: %q", ec.Name)
	}
	if ec.CodeSnippet != "Foo f = new Foo();" {
		t.Errorf("snippet not trimmed: %q", ec.CodeSnippet)
	}
	if !ec.FurtherExpand {
		t.Error("further_expand 'true' should coerce to true")
	}
	if !ec.Conditioned {
		t.Error("conditioned 1 should coerce to true")
	}
	wantGuards := []string{"if (x)", "for (...)"}
	if !reflect.DeepEqual(ec.Guards, wantGuards) {
		t.Errorf("guards = %v, want %v", ec.Guards, wantGuards)
	}
}

func TestNormalizeMalformedFieldsNeverDropRecord(t *testing.T) {
	raw := []map[string]any{{
		"name":           "f",
		"confidence":     map[string]any{"not": "a number"},
		"guards":         42,
		"further_expand": map[string]any{},
	}}

	ecs := Normalize(raw, false)
	if len(ecs) != 1 {
		t.Fatal("malformed fields must default, not drop the record")
	}
	ec := ecs[0]
	if ec.Confidence != 0.0 {
		t.Errorf("bad confidence should default to 0.0, got %v", ec.Confidence)
	}
	if ec.Guards == nil || len(ec.Guards) != 0 {
		t.Errorf("bad guards should default to empty list, got %v", ec.Guards)
	}
	if ec.FurtherExpand {
		t.Error("bad further_expand should default to false")
	}
}

func TestNormalizeCompositeFields(t *testing.T) {
	raw := []map[string]any{
		{"name": "a", "comment": " instantiated variable ", "variant": 1},
		{"name": "a", "comment": "source variable for 'b'", "variant": -3},
		{"name": "a", "variant": "oops"},
	}

	ecs := Normalize(raw, true)
	if len(ecs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(ecs))
	}
	if ecs[0].Comment != "instantiated variable" || ecs[0].Variant != 1 {
		t.Errorf("record 0: comment=%q variant=%d", ecs[0].Comment, ecs[0].Variant)
	}
	if ecs[1].Variant != 0 {
		t.Errorf("negative variant should clamp to 0, got %d", ecs[1].Variant)
	}
	if ecs[2].Variant != 0 {
		t.Errorf("unparseable variant should default to 0, got %d", ecs[2].Variant)
	}
}

func TestNormalizeNonCompositeIgnoresCompositeFields(t *testing.T) {
	ecs := Normalize([]map[string]any{{"name": "a", "comment": "x", "variant": 2}}, false)
	if len(ecs) != 1 {
		t.Fatal("record dropped")
	}
	if ecs[0].Comment != "" || ecs[0].Variant != 0 {
		t.Errorf("name-key normalization must not populate comment/variant: %+v", ecs[0])
	}
}

// Normalizing an already-canonical list returns it unchanged field for field.
func TestNormalizeIdempotent(t *testing.T) {
	canonical := []EC{
		{
			Name:        "f",
			CodeSnippet: "Foo f = new Foo();",
			CodeBlock:   "Foo f = new Foo();",
			Confidence:  0.9,
			Conditioned: true,
			Guards:      []string{"if (ready)"},
			Comment:     "instantiated variable",
			Variant:     1,
		},
	}

	raw := make([]map[string]any, 0, len(canonical))
	for _, ec := range canonical {
		raw = append(raw, map[string]any{
			"name":           ec.Name,
			"code_snippet":   ec.CodeSnippet,
			"code_block":     ec.CodeBlock,
			"further_expand": ec.FurtherExpand,
			"confidence":     ec.Confidence,
			"conditioned":    ec.Conditioned,
			"guards":         ec.Guards,
			"comment":        ec.Comment,
			"variant":        ec.Variant,
		})
	}

	got := Normalize(raw, true)
	if !reflect.DeepEqual(got, canonical) {
		t.Errorf("normalization not idempotent:\n got  %+v\n want %+v", got, canonical)
	}
}

func TestNormalizeVerdicts(t *testing.T) {
	raw := []map[string]any{
		{"name": "  stage  ", "valid": "true", "confidence": "0.9", "reason": " one-hop call "},
		{"name": "   ", "valid": true, "confidence": 0.5, "reason": "blank name"},
		{"name": "commit", "valid": 1, "confidence": map[string]any{"not": "a number"}},
		{"name": "reset", "valid": false, "confidence": 3.5, "reason": "x"},
		nil,
	}

	got := NormalizeVerdicts(raw)
	if len(got) != 3 {
		t.Fatalf("expected 3 verdicts, got %d: %+v", len(got), got)
	}
	if got[0].Name != "stage" || !got[0].Valid || got[0].Confidence != 0.9 || got[0].Reason != "one-hop call" {
		t.Errorf("verdict 0 not coerced: %+v", got[0])
	}
	if got[1].Name != "commit" || !got[1].Valid || got[1].Confidence != 0.0 {
		t.Errorf("bad confidence should default to 0.0: %+v", got[1])
	}
	if got[2].Confidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %v", got[2].Confidence)
	}
}

func TestDefaultDenylistIsACopy(t *testing.T) {
	a := DefaultDenylist()
	a[0] = "mutated"
	b := DefaultDenylist()
	if b[0] == "mutated" {
		t.Error("DefaultDenylist must return a fresh copy")
	}
}

func TestEffectiveDenylist(t *testing.T) {
	var req Request
	if got := req.EffectiveDenylist(); len(got) == 0 {
		t.Error("nil denylist should fall back to the default")
	}

	req.Denylist = []string{}
	if got := req.EffectiveDenylist(); len(got) != 0 {
		t.Errorf("explicit empty denylist must stay empty, got %v", got)
	}

	req.Denylist = []string{"log.trace"}
	if got := req.EffectiveDenylist(); len(got) != 1 || got[0] != "log.trace" {
		t.Errorf("explicit denylist not honored: %v", got)
	}
}
