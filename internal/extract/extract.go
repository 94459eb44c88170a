package extract

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vaibhavtmnit/cg5/internal/child"
	"github.com/vaibhavtmnit/cg5/internal/llm"
)

// Extractor runs the dual-run extraction pipeline for any registered family.
// It is safe for concurrent use; all state is read-only after construction.
type Extractor struct {
	provider llm.Provider
	packs    map[string]*RulePack
	governor *Governor
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPacks replaces the builtin rule packs.
func WithPacks(packs map[string]*RulePack) Option {
	return func(e *Extractor) { e.packs = packs }
}

// WithGovernor enables post-merge quality filtering. Off by default: the
// merged list is the contract, and dropping records is an explicit opt-in.
func WithGovernor(cfg GovernorConfig) Option {
	return func(e *Extractor) { e.governor = NewGovernor(cfg) }
}

// New builds an Extractor around the given provider.
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider: provider,
		packs:    BuiltinPacks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pack returns the rule pack for a family, or an error naming the known
// families when the family is unregistered.
func (e *Extractor) Pack(family string) (*RulePack, error) {
	pack, ok := e.packs[family]
	if !ok {
		return nil, fmt.Errorf("unknown family %q (known: %v)", family, e.FamilyNames())
	}
	return pack, nil
}

// FamilyNames lists the registered families, sorted.
func (e *Extractor) FamilyNames() []string {
	return Families(e.packs)
}

// Result is the outcome of one extraction.
type Result struct {
	Family   string     `json:"family"`
	Children []child.EC `json:"children"`

	// RunACount and RunBCount record each run's candidate count after
	// normalization, before merging.
	RunACount int `json:"run_a_count"`
	RunBCount int `json:"run_b_count"`

	// Paraphrase holds the per-line NL rendering from the run-B leg.
	Paraphrase []Line `json:"paraphrase,omitempty"`
}

// childrenOut is the wire shape both extraction runs return.
type childrenOut struct {
	Children []map[string]any `json:"children"`
}

// Extract performs the full dual-run pipeline for one family: run A against
// the raw source concurrently with the paraphrase step followed by run B
// against the NL lines, then normalizes and merges both candidate lists
// under the family's key. Any leg failing fails the extraction; a partial
// result would be indistinguishable from a complete one.
func (e *Extractor) Extract(ctx context.Context, family string, req child.Request) (*Result, error) {
	pack, err := e.Pack(family)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	denylist := req.EffectiveDenylist()
	key := child.KeySpecFor(pack.KeyKind)
	composite := pack.KeyKind == "composite"

	var (
		runA  []child.EC
		runB  []child.EC
		lines []Line
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var out childrenOut
		user := buildRunAUser(pack, req, denylist)
		if err := invokeStructured(gctx, e.provider, "run A", pack.RunASystem, user, &out); err != nil {
			return err
		}
		runA = child.Normalize(out.Children, composite)
		return nil
	})

	g.Go(func() error {
		explained, err := Paraphrase(gctx, e.provider, pack, req)
		if err != nil {
			return err
		}
		lines = explained
		payload, err := linesJSON(explained)
		if err != nil {
			return err
		}
		var out childrenOut
		user := buildRunBUser(pack, req, denylist, payload)
		if err := invokeStructured(gctx, e.provider, "run B", pack.RunBSystem, user, &out); err != nil {
			return err
		}
		runB = child.Normalize(out.Children, composite)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract %s: %w", family, err)
	}

	merged := child.Merge(runA, runB, key)
	if e.governor != nil {
		merged = e.governor.Filter(merged, denylist)
	}

	return &Result{
		Family:     family,
		Children:   merged,
		RunACount:  len(runA),
		RunBCount:  len(runB),
		Paraphrase: lines,
	}, nil
}

func validateRequest(req child.Request) error {
	if req.FocusName == "" {
		return fmt.Errorf("request: focus_name is required")
	}
	if req.SourceText == "" {
		return fmt.Errorf("request: source_text is required")
	}
	if req.AnchorLine < 1 {
		return fmt.Errorf("request: anchor_line must be 1-based, got %d", req.AnchorLine)
	}
	return nil
}
