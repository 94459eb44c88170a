package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vaibhavtmnit/cg5/internal/child"
	"github.com/vaibhavtmnit/cg5/internal/llm"
)

// Line is one paraphrased source line. Line numbers are 1-based and track
// the original source exactly; the paraphrase step never merges or splits
// lines, so run B can anchor on the same numbers as run A.
type Line struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

type explainOut struct {
	Lines []Line `json:"lines"`
}

// Paraphrase converts the request's source into per-line natural language
// using the pack's explain prompt. The result feeds run B; it is also
// returned for run-log persistence.
func Paraphrase(ctx context.Context, provider llm.Provider, pack *RulePack, req child.Request) ([]Line, error) {
	system := pack.ExplainSystem
	if system == "" {
		system = defaultExplainSystem
	}
	var out explainOut
	if err := invokeStructured(ctx, provider, "paraphrase", system, buildExplainUser(req), &out); err != nil {
		return nil, err
	}
	if len(out.Lines) == 0 {
		return nil, fmt.Errorf("paraphrase: model returned no lines")
	}
	return out.Lines, nil
}

// linesJSON serializes paraphrased lines for embedding in the run-B prompt.
func linesJSON(lines []Line) (string, error) {
	data, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("marshal paraphrased lines: %w", err)
	}
	return string(data), nil
}
