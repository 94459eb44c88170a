package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vaibhavtmnit/cg5/internal/child"
)

// verdictsOut is the wire shape the validator returns. Verdicts stay
// loosely typed so a mistyped field degrades per-verdict instead of
// failing the whole decode.
type verdictsOut struct {
	Verdicts []map[string]any `json:"verdicts"`
}

// Validate judges candidates against the family's relationship rules. It
// returns one verdict per judged candidate and never mutates or filters
// the candidate list; gating on verdicts is the caller's decision.
func (e *Extractor) Validate(ctx context.Context, family string, req child.Request, candidates []child.EC) ([]child.Verdict, error) {
	pack, err := e.Pack(family)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []child.Verdict{}, nil
	}

	payload, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}

	denylist := req.EffectiveDenylist()
	user := buildValidatorUser(pack, req, denylist, string(payload))
	var out verdictsOut
	if err := invokeStructured(ctx, e.provider, "validator", pack.ValidatorSystem, user, &out); err != nil {
		return nil, fmt.Errorf("validate %s: %w", family, err)
	}

	return child.NormalizeVerdicts(out.Verdicts), nil
}
