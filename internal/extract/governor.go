package extract

import (
	"sort"
	"strings"

	"github.com/vaibhavtmnit/cg5/internal/child"
)

// GovernorConfig controls candidate quality filtering and caps. The governor
// is opt-in: by default the merged candidate list passes through untouched.
type GovernorConfig struct {
	// MaxChildren caps the number of candidates kept per extraction.
	// Candidates are ranked by quality score; lowest-quality candidates are
	// dropped. 0 means unlimited.
	MaxChildren int

	// MinConfidence drops candidates below this confidence. 0 keeps all.
	MinConfidence float64

	// MinSnippetLength drops candidates whose code_snippet is shorter than
	// this after trimming. Default: 0 (keep all).
	MinSnippetLength int

	// DropDenylisted removes candidates whose name matches a denylist entry
	// or the trailing member of a dotted entry ("logger.info" drops "info").
	DropDenylisted bool
}

// DefaultGovernorConfig returns the recommended default governor settings.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		MaxChildren:    25,
		MinConfidence:  0.2,
		DropDenylisted: true,
	}
}

// Governor filters and ranks merged candidates to enforce quality standards.
type Governor struct {
	config GovernorConfig
}

// NewGovernor creates a Governor with the given config.
func NewGovernor(cfg GovernorConfig) *Governor {
	return &Governor{config: cfg}
}

// Filter runs all quality filters and caps on a merged candidate list. The
// relative order of surviving candidates is preserved; capping drops the
// lowest-scored candidates, not the last ones.
func (g *Governor) Filter(list []child.EC, denylist []string) []child.EC {
	if len(list) == 0 {
		return list
	}

	filtered := make([]child.EC, 0, len(list))
	for _, ec := range list {
		if g.isNoise(ec, denylist) {
			continue
		}
		filtered = append(filtered, ec)
	}

	max := g.config.MaxChildren
	if max <= 0 || len(filtered) <= max {
		return filtered
	}

	// Rank by score to decide who survives the cap, then restore input order.
	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(filtered))
	for i, ec := range filtered {
		ranked[i] = scored{idx: i, score: qualityScore(ec)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	keep := make(map[int]bool, max)
	for _, s := range ranked[:max] {
		keep[s.idx] = true
	}

	out := make([]child.EC, 0, max)
	for i, ec := range filtered {
		if keep[i] {
			out = append(out, ec)
		}
	}
	return out
}

func (g *Governor) isNoise(ec child.EC, denylist []string) bool {
	if g.config.MinConfidence > 0 && ec.Confidence < g.config.MinConfidence {
		return true
	}
	if g.config.MinSnippetLength > 0 && len(strings.TrimSpace(ec.CodeSnippet)) < g.config.MinSnippetLength {
		return true
	}
	if g.config.DropDenylisted && matchesDenylist(ec.Name, denylist) {
		return true
	}
	return false
}

// matchesDenylist reports whether name matches a denylist entry exactly or
// matches the final member of a dotted entry.
func matchesDenylist(name string, denylist []string) bool {
	for _, entry := range denylist {
		if name == entry {
			return true
		}
		if i := strings.LastIndex(entry, "."); i >= 0 && name == entry[i+1:] {
			return true
		}
	}
	return false
}

// qualityScore ranks a candidate for cap eviction. Confidence dominates;
// span length and annotations nudge.
func qualityScore(ec child.EC) float64 {
	score := ec.Confidence

	snippet := len(strings.TrimSpace(ec.CodeSnippet))
	if snippet == 0 {
		score -= 0.15
	} else if snippet < 4 {
		score -= 0.05
	}

	if ec.FurtherExpand {
		score += 0.1
	}
	if ec.Comment != "" {
		score += 0.02
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}
