package child

import "sort"

// Merge combines two normalized candidate lists into one deduplicated list
// under the given key spec.
//
// Records are visited in a-then-b order. A new key inserts the record as-is;
// an existing key updates the held record field by field:
//
//   - code_snippet, code_block: strictly shorter non-empty span replaces;
//     an empty current span is always replaced; equal length keeps the
//     first-seen span
//   - confidence: maximum
//   - conditioned, further_expand: logical OR
//   - guards: set union, first-seen order, no sorting
//   - variant: minimum (leftmost occurrence is canonical)
//   - identity fields (name, plus snippet/comment under the composite key)
//     are never rewritten after key computation
//
// Each rule is commutative and associative, so Merge(A, B) == Merge(B, A)
// after the output sort, and folding more than two lists is well-defined.
// Merge(X, X) returns X deduplicated by key. Empty inputs are valid.
//
// The output is sorted by key.Less, not input order: the same candidate set
// always serializes identically regardless of model output ordering.
func Merge(a, b []EC, key KeySpec) []EC {
	held := make(map[Key]int, len(a)+len(b))
	out := make([]EC, 0, len(a)+len(b))

	absorb := func(list []EC) {
		for _, it := range list {
			k := key.Of(it)
			i, ok := held[k]
			if !ok {
				out = append(out, it)
				held[k] = len(out) - 1
				continue
			}
			cur := &out[i]
			cur.CodeBlock = shorterSpan(cur.CodeBlock, it.CodeBlock)
			cur.CodeSnippet = shorterSpan(cur.CodeSnippet, it.CodeSnippet)
			if it.Confidence > cur.Confidence {
				cur.Confidence = it.Confidence
			}
			cur.Conditioned = cur.Conditioned || it.Conditioned
			cur.FurtherExpand = cur.FurtherExpand || it.FurtherExpand
			cur.Guards = unionGuards(cur.Guards, it.Guards)
			if it.Variant < cur.Variant {
				cur.Variant = it.Variant
			}
		}
	}
	absorb(a)
	absorb(b)

	sort.SliceStable(out, func(i, j int) bool { return key.Less(out[i], out[j]) })
	return out
}

// Dedupe collapses a single list by key. Equivalent to Merge(list, nil, key).
func Dedupe(list []EC, key KeySpec) []EC {
	return Merge(list, nil, key)
}

// shorterSpan implements the shortest-non-empty rule. Ties keep cur.
func shorterSpan(cur, in string) string {
	if in == "" {
		return cur
	}
	if cur == "" || len(in) < len(cur) {
		return in
	}
	return cur
}

// unionGuards appends unseen entries of in to cur, preserving first-seen
// order across both lists.
func unionGuards(cur, in []string) []string {
	if len(in) == 0 {
		return cur
	}
	seen := make(map[string]bool, len(cur)+len(in))
	for _, g := range cur {
		seen[g] = true
	}
	for _, g := range in {
		if !seen[g] {
			seen[g] = true
			cur = append(cur, g)
		}
	}
	return cur
}
