// Package extract orchestrates cg5's LLM-driven child extraction.
//
// Each extractor family runs the model twice — once against the raw source,
// once against a per-line natural-language paraphrase — normalizes both
// candidate lists, and merges them through internal/child. A separate
// validator call scores candidates against the same family rules without
// touching the candidate list.
//
// The family rule text (system prompts, few-shots) is data, not logic: it
// ships as builtin rule packs and can be overridden from yaml files. The
// merge engine never sees any of it.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vaibhavtmnit/cg5/internal/llm"
)

const (
	// invokeTimeout bounds a single model call.
	invokeTimeout = 120 * time.Second

	// invokeTemperature keeps extraction near-deterministic.
	invokeTemperature = 0.1

	// invokeMaxTokens bounds each structured response.
	invokeMaxTokens = 4096

	// retryReminder is appended to the user prompt on the single retry after
	// a parse failure. The empty-result hint gives the model a legal way out.
	retryReminder = "\n\nREMINDER: Return ONLY a valid JSON object. If nothing qualifies, return the empty-result shape for this schema."
)

// ParseError reports a model response that failed to parse as the expected
// structure on both the first attempt and the single retry.
type ParseError struct {
	Call string // which call site failed (e.g. "run A", "paraphrase")
	Raw  string // truncated raw response from the failing attempt
	Err  error  // the underlying unmarshal error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: model output is not valid JSON after retry: %v (raw: %s)", e.Call, e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

// invokeStructured sends one system+user prompt pair in the provider's
// native JSON output mode and unmarshals the response into out. On a parse
// failure it re-issues the same call exactly once with a strict-JSON
// reminder appended; a second failure surfaces as *ParseError. A double
// failure is a hard error — silently substituting an empty result would be
// indistinguishable from "genuinely nothing found" downstream.
//
// Transport errors are returned as-is without a retry: the failure mode the
// reminder fixes is malformed text, not an unreachable endpoint.
func invokeStructured(ctx context.Context, provider llm.Provider, call, system, user string, out any) error {
	opts := llm.CompletionOpts{
		Temperature: invokeTemperature,
		MaxTokens:   invokeMaxTokens,
		System:      system,
		Format:      "json",
	}
	return invoke(ctx, provider, call, user, opts, out)
}

func invoke(ctx context.Context, provider llm.Provider, call, user string, opts llm.CompletionOpts, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, invokeTimeout)
	defer cancel()

	raw, err := provider.Complete(callCtx, user, opts)
	if err != nil {
		return fmt.Errorf("%s: LLM call: %w", call, err)
	}
	if err := unmarshalResponse(raw, out); err == nil {
		return nil
	}

	// One nudge retry for strict JSON.
	raw, completeErr := provider.Complete(callCtx, user+retryReminder, opts)
	if completeErr != nil {
		return fmt.Errorf("%s: LLM retry call: %w", call, completeErr)
	}
	if err := unmarshalResponse(raw, out); err != nil {
		return &ParseError{Call: call, Raw: truncateForError(raw, 300), Err: err}
	}
	return nil
}

// unmarshalResponse strips markdown code fences and decodes the body.
func unmarshalResponse(raw string, out any) error {
	return json.Unmarshal([]byte(stripFences(raw)), out)
}

// stripFences removes a surrounding ```...``` fence, if present. Models
// wrap JSON in fences despite every instruction not to.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	lines := strings.Split(cleaned, "\n")
	start, end := 0, len(lines)
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if start == 0 {
				start = i + 1
			} else {
				end = i
				break
			}
		}
	}
	if start > 0 && end > start {
		cleaned = strings.Join(lines[start:end], "\n")
	}
	return strings.TrimSpace(cleaned)
}

// truncateForError caps raw model output quoted inside error messages.
func truncateForError(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
