// Package child defines the candidate records produced by cg5's extractors
// and the deterministic normalize/merge engine that combines them.
//
// Every extractor family runs the external model twice (raw code, then a
// per-line paraphrase) and gets back two noisy candidate lists. This package
// turns those lists into one canonical, reproducible result:
// - Normalize coerces untrusted, loosely-typed records into ECs
// - Merge deduplicates under a pluggable key with fixed tie-break rules
//
// The engine is domain-agnostic: it knows nothing about Java, prompts, or
// rule sets. Those live in internal/extract as data.
package child

// EC is a single extracted-child candidate with its supporting evidence.
type EC struct {
	// Name identifies the extracted entity (type, variable, or method name).
	// Never empty after normalization.
	Name string `json:"name"`

	// CodeSnippet is the minimal textual evidence, usually the entire
	// source line containing the construct.
	CodeSnippet string `json:"code_snippet"`

	// CodeBlock is the smallest span showing parent + child + relation.
	// May equal CodeSnippet.
	CodeBlock string `json:"code_block"`

	// FurtherExpand hints that a downstream pass should recurse into this
	// child. The extractor leaves it false; the orchestrating caller decides.
	FurtherExpand bool `json:"further_expand"`

	// Confidence is clamped to [0, 1] at normalization time.
	Confidence float64 `json:"confidence"`

	// Conditioned is true when the construct is reachable only under an
	// explicit guard (conditional, loop, or exception handler).
	Conditioned bool `json:"conditioned"`

	// Guards describes those guards, deduplicated, insertion order kept.
	Guards []string `json:"guards"`

	// Comment is a short role tag (e.g. "instantiated variable") used by
	// composite-key families, where it is part of the record's identity.
	Comment string `json:"comment,omitempty"`

	// Variant disambiguates multiple same-name children on one source line,
	// assigned left to right. Clamped to >= 0.
	Variant int `json:"variant,omitempty"`
}

// Verdict is the validator's judgment on one candidate. Verdicts are
// informational only: the candidate list is never mutated based on them.
type Verdict struct {
	Name       string  `json:"name"`
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Request describes one extraction (or validation) unit of work. The caller
// supplies every field; cg5 derives nothing from the source itself.
type Request struct {
	// FocusName is the method, variable, or call-result under analysis.
	FocusName string `json:"focus_name"`

	// SourceText is the full source of the unit being analyzed.
	SourceText string `json:"source_text"`

	// AnchorLine is the 1-based line of the occurrence being analyzed.
	AnchorLine int `json:"anchor_line"`

	// AnchorLineContent is the exact text of that line.
	AnchorLineContent string `json:"anchor_line_content"`

	// AnalyticalChain holds at most two prior hop names joined by "->".
	// Informational context for the prompt only.
	AnalyticalChain string `json:"analytical_chain"`

	// Denylist names trivial/noise call targets to suppress. Nil means
	// DefaultDenylist().
	Denylist []string `json:"denylist,omitempty"`
}

// defaultDenylist suppresses logging and trivial JDK utilities that would
// otherwise pollute every extraction.
var defaultDenylist = []string{
	"System.out.println",
	"logger.info",
	"logger.debug",
	"logger.trace",
	"Objects.requireNonNull",
	"Collections.emptyList",
}

// DefaultDenylist returns a fresh copy of the built-in denylist. Callers get
// their own slice; there is no shared mutable default.
func DefaultDenylist() []string {
	out := make([]string, len(defaultDenylist))
	copy(out, defaultDenylist)
	return out
}

// EffectiveDenylist resolves the request's denylist, falling back to the
// default when none was supplied.
func (r Request) EffectiveDenylist() []string {
	if r.Denylist == nil {
		return DefaultDenylist()
	}
	return r.Denylist
}
