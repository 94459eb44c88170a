package child

// Key is the dedup identity of a candidate inside Merge. Fields not used by
// the chosen key stay empty, so a Key is directly comparable.
type Key struct {
	Name    string
	Snippet string
	Comment string
}

// KeySpec bundles a key function with the documented output ordering for
// lists merged under that key. Merge itself is key-agnostic; the caller
// picks the spec that matches its family's semantics.
type KeySpec struct {
	// Kind names the spec for logs and stored run records.
	Kind string

	// Of computes the dedup key for a record.
	Of func(EC) Key

	// Less is the deterministic output ordering. The merged set always
	// serializes identically regardless of arrival order.
	Less func(a, b EC) bool
}

// NameKey collapses candidates by name alone. Used by families whose domain
// guarantees one true answer per name (e.g. the immediate next hop in a
// call chain). Output sorts by name.
var NameKey = KeySpec{
	Kind: "name",
	Of: func(ec EC) Key {
		return Key{Name: ec.Name}
	},
	Less: func(a, b EC) bool {
		return a.Name < b.Name
	},
}

// CompositeKey keeps same-name candidates apart when they play different
// roles on the same line (e.g. a variable that is both newly instantiated
// and later the source for another instantiation). Identity is
// (name, code_snippet, comment); output sorts by (code_snippet, variant,
// name).
var CompositeKey = KeySpec{
	Kind: "composite",
	Of: func(ec EC) Key {
		return Key{Name: ec.Name, Snippet: ec.CodeSnippet, Comment: ec.Comment}
	},
	Less: func(a, b EC) bool {
		if a.CodeSnippet != b.CodeSnippet {
			return a.CodeSnippet < b.CodeSnippet
		}
		if a.Variant != b.Variant {
			return a.Variant < b.Variant
		}
		return a.Name < b.Name
	},
}

// KeySpecFor maps a stored kind back to its spec. Unknown kinds fall back
// to NameKey.
func KeySpecFor(kind string) KeySpec {
	if kind == CompositeKey.Kind {
		return CompositeKey
	}
	return NameKey
}
