package extract

import (
	"fmt"
	"strings"

	"github.com/vaibhavtmnit/cg5/internal/child"
)

// buildHeader renders the request fields every prompt variant shares.
func buildHeader(req child.Request, denylist []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FOCUS_NAME: %s\n", req.FocusName)
	fmt.Fprintf(&b, "ANCHOR_LINE (1-based): %d\n", req.AnchorLine)
	if req.AnchorLineContent != "" {
		fmt.Fprintf(&b, "ANCHOR_LINE_CONTENT: %s\n", req.AnchorLineContent)
	}
	fmt.Fprintf(&b, "ANALYTICAL_CHAIN (last up to 2): %s\n", req.AnalyticalChain)
	fmt.Fprintf(&b, "DENYLIST: %s\n", formatDenylist(denylist))
	return b.String()
}

func formatDenylist(denylist []string) string {
	if len(denylist) == 0 {
		return "(none)"
	}
	return strings.Join(denylist, ", ")
}

// buildRunAUser assembles the run-A user prompt: header, raw source, the
// pack's few-shots, and the shared selection rubric.
func buildRunAUser(pack *RulePack, req child.Request, denylist []string) string {
	var b strings.Builder
	b.WriteString(buildHeader(req, denylist))
	b.WriteString("\nCODE:\n")
	b.WriteString(req.SourceText)
	b.WriteString("\n")
	if pack.RunAExamples != "" {
		b.WriteString("\n")
		b.WriteString(pack.RunAExamples)
		b.WriteString("\n")
	}
	b.WriteString(selectionRubric)
	b.WriteString("\nReturn ONLY the JSON object.")
	return b.String()
}

// buildRunBUser assembles the run-B user prompt, substituting the
// paraphrased lines for the raw source.
func buildRunBUser(pack *RulePack, req child.Request, denylist []string, linesJSON string) string {
	var b strings.Builder
	b.WriteString(buildHeader(req, denylist))
	b.WriteString("\nLINES_NL (JSON array of {line, text}):\n")
	b.WriteString(linesJSON)
	b.WriteString("\n")
	if pack.RunBExamples != "" {
		b.WriteString("\n")
		b.WriteString(pack.RunBExamples)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY the JSON object.")
	return b.String()
}

// buildExplainUser wraps the source for the paraphrase call.
func buildExplainUser(req child.Request) string {
	return "Return one sentence per ORIGINAL line (1-based), preserving identifiers.\n" +
		"Do not merge or split lines. No extra commentary.\n\n" +
		"CODE:\n" + req.SourceText
}

// buildValidatorUser assembles the validator prompt: header, source, the
// candidate list as JSON, and the pack's validator few-shots.
func buildValidatorUser(pack *RulePack, req child.Request, denylist []string, candidatesJSON string) string {
	var b strings.Builder
	b.WriteString(buildHeader(req, denylist))
	b.WriteString("\nCODE:\n")
	b.WriteString(req.SourceText)
	b.WriteString("\n\nCANDIDATES (JSON array):\n")
	b.WriteString(candidatesJSON)
	b.WriteString("\n")
	if pack.ValidatorExamples != "" {
		b.WriteString("\n")
		b.WriteString(pack.ValidatorExamples)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY the JSON object.")
	return b.String()
}

// selectionRubric is appended to every run-A prompt. It restates the shared
// priorities the family rules already imply, in ranked order.
const selectionRubric = `
Selection rubric:
1) Direct adjacency to the focused occurrence per the family rules
2) Proximity to ANCHOR_LINE (same method/initializer)
3) Flow impact (consumes/transforms/produces the focus)
4) Not denylisted; not inside lambda/anonymous class
`
