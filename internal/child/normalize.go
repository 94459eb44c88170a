package child

import (
	"strings"

	"github.com/spf13/cast"
)

// Normalize coerces raw, loosely-typed candidate maps (as decoded from model
// output) into canonical ECs.
//
// The contract is best-effort: every field is coerced independently and
// defaults on failure; no record is rejected for a malformed field. Only
// records whose name trims to empty are dropped. The upstream source is an
// external model and is inherently unreliable — completeness of the pipeline
// beats strict validation here.
//
// composite enables the comment/variant fields used by composite-key
// families. Pure function; the input maps are not modified.
func Normalize(raw []map[string]any, composite bool) []EC {
	out := make([]EC, 0, len(raw))
	for _, it := range raw {
		if it == nil {
			continue
		}
		ec := EC{
			Name:          strings.TrimSpace(cast.ToString(it["name"])),
			CodeSnippet:   strings.TrimSpace(cast.ToString(it["code_snippet"])),
			CodeBlock:     strings.TrimSpace(cast.ToString(it["code_block"])),
			FurtherExpand: cast.ToBool(it["further_expand"]),
			Confidence:    ClampConfidence(toFloat(it["confidence"])),
			Conditioned:   cast.ToBool(it["conditioned"]),
			Guards:        toStringList(it["guards"]),
		}
		if ec.Name == "" {
			continue
		}
		if composite {
			ec.Comment = strings.TrimSpace(cast.ToString(it["comment"]))
			ec.Variant = clampVariant(it["variant"])
		}
		out = append(out, ec)
	}
	return out
}

// NormalizeVerdicts coerces raw verdict maps under the same best-effort
// contract as Normalize: each field defaults on failure, confidence is
// clamped, and only verdicts whose name trims to empty are dropped.
func NormalizeVerdicts(raw []map[string]any) []Verdict {
	out := make([]Verdict, 0, len(raw))
	for _, it := range raw {
		if it == nil {
			continue
		}
		v := Verdict{
			Name:       strings.TrimSpace(cast.ToString(it["name"])),
			Valid:      cast.ToBool(it["valid"]),
			Confidence: ClampConfidence(toFloat(it["confidence"])),
			Reason:     strings.TrimSpace(cast.ToString(it["reason"])),
		}
		if v.Name == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ClampConfidence clamps v to [0.0, 1.0]. Out-of-range values are clamped,
// never rejected.
func ClampConfidence(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// toFloat coerces any value to float64, defaulting to 0.0 on failure.
func toFloat(v any) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0.0
	}
	return f
}

// clampVariant coerces a variant index to a non-negative int.
func clampVariant(v any) int {
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// toStringList coerces a guards value to a deduplicated string slice in
// first-seen order. Absent or null yields an empty list, never nil, so
// records marshal as [].
func toStringList(v any) []string {
	var ss []string
	switch list := v.(type) {
	case []string:
		ss = list
	case []any:
		for _, e := range list {
			ss = append(ss, cast.ToString(e))
		}
	default:
		// Scalars and absent/null values alike yield no guards.
		return []string{}
	}
	out := make([]string, 0, len(ss))
	seen := make(map[string]bool, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
