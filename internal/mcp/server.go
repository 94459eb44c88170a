// Package mcp provides a Model Context Protocol server for cg5.
//
// It exposes child extraction and validation as MCP tools and the family
// catalog and recent run log as MCP resources, so MCP-speaking clients can
// drive structural analysis without going through the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vaibhavtmnit/cg5/internal/child"
	"github.com/vaibhavtmnit/cg5/internal/extract"
	"github.com/vaibhavtmnit/cg5/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store     store.Store
	Extractor *extract.Extractor
	Provider  string // provider name recorded on logged runs
	Version   string // version string for MCP server info
}

// dbMu serializes MCP tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines; SQLite supports
// only one writer at a time, and a cache lookup racing its own insert
// could double-spend model calls.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with the cg5 tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"cg5",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerExtractTool(s, cfg)
	registerValidateTool(s, cfg)
	registerFamiliesTool(s, cfg.Extractor)
	registerStatsTool(s, cfg.Store)

	registerFamiliesResource(s, cfg.Extractor)
	registerRecentRunsResource(s, cfg.Store)

	return s
}

// --- Tools ---

func registerExtractTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("cg5_extract",
		mcp.WithDescription("Extract structural children for a focus in Java source. Runs the model against the raw code and a per-line paraphrase, then merges both candidate lists deterministically. Results are logged and reusable via the run cache."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("family",
			mcp.Required(),
			mcp.Description("Extractor family (e.g. method_call, object_instantiation). Use cg5_families for the catalog."),
		),
		mcp.WithString("focus_name",
			mcp.Required(),
			mcp.Description("Method, variable, or call-result name under analysis"),
		),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Full source text of the unit being analyzed"),
		),
		mcp.WithNumber("anchor_line",
			mcp.Required(),
			mcp.Description("1-based line number of the occurrence to analyze"),
		),
		mcp.WithString("anchor_line_content",
			mcp.Description("Exact text of the anchor line"),
		),
		mcp.WithString("analytical_chain",
			mcp.Description("Up to two predecessor nodes, e.g. 'A->B->C'"),
		),
		mcp.WithString("denylist",
			mcp.Description("Comma-separated call names to ignore. Empty = built-in defaults."),
		),
		mcp.WithBoolean("no_cache",
			mcp.Description("Skip the run cache and force fresh model calls (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		family, err := req.RequireString("family")
		if err != nil {
			return mcp.NewToolResultError("family is required"), nil
		}
		request, err := requestFromArgs(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		noCache := false
		if v, err := req.RequireBool("no_cache"); err == nil {
			noCache = v
		}

		sourceHash := store.HashSource(request.SourceText)

		if cfg.Store != nil && !noCache {
			dbMu.Lock()
			cached, err := cfg.Store.FindCachedRun(ctx, family, request.FocusName, request.AnchorLine, sourceHash)
			dbMu.Unlock()
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("cache lookup: %v", err)), nil
			}
			if cached != nil {
				data, _ := json.MarshalIndent(map[string]any{
					"run_id":   cached.ID,
					"family":   cached.Family,
					"children": cached.Children,
					"cached":   true,
				}, "", "  ")
				return mcp.NewToolResultText(string(data)), nil
			}
		}

		result, err := cfg.Extractor.Extract(ctx, family, request)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract error: %v", err)), nil
		}

		runID := ""
		if cfg.Store != nil {
			run := runFromResult(request, result, sourceHash, cfg.Provider)
			dbMu.Lock()
			runID, err = cfg.Store.SaveRun(ctx, run)
			dbMu.Unlock()
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("saving run: %v", err)), nil
			}
		}

		data, _ := json.MarshalIndent(map[string]any{
			"run_id":      runID,
			"family":      result.Family,
			"children":    result.Children,
			"run_a_count": result.RunACount,
			"run_b_count": result.RunBCount,
			"cached":      false,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerValidateTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("cg5_validate",
		mcp.WithDescription("Validate the candidates of a logged extraction run against its family rules. Returns per-candidate verdicts; the stored candidate list is never changed."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("ID of a run previously produced by cg5_extract"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if cfg.Store == nil {
			return mcp.NewToolResultError("validation requires a run log database"), nil
		}
		runID, err := req.RequireString("run_id")
		if err != nil {
			return mcp.NewToolResultError("run_id is required"), nil
		}

		dbMu.Lock()
		run, err := cfg.Store.GetRun(ctx, runID)
		dbMu.Unlock()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading run: %v", err)), nil
		}
		if run == nil {
			return mcp.NewToolResultError(fmt.Sprintf("run %s not found", runID)), nil
		}
		if run.SourceText == "" {
			return mcp.NewToolResultError(fmt.Sprintf("run %s has no stored source text", runID)), nil
		}

		request := child.Request{
			FocusName:         run.FocusName,
			SourceText:        run.SourceText,
			AnchorLine:        run.AnchorLine,
			AnchorLineContent: run.AnchorLineContent,
			AnalyticalChain:   run.AnalyticalChain,
		}
		verdicts, err := cfg.Extractor.Validate(ctx, run.Family, request, run.Children)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("validate error: %v", err)), nil
		}

		dbMu.Lock()
		err = cfg.Store.AddVerdicts(ctx, runID, verdicts)
		dbMu.Unlock()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saving verdicts: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]any{
			"run_id":   runID,
			"family":   run.Family,
			"verdicts": verdicts,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerFamiliesTool(s *server.MCPServer, ex *extract.Extractor) {
	tool := mcp.NewTool("cg5_families",
		mcp.WithDescription("List the registered extractor families with their descriptions and merge-key kinds."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, _ := json.MarshalIndent(familyCatalog(ex), "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("cg5_stats",
		mcp.WithDescription("Show run-log statistics: total runs, verdicts, per-family counts, and database size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if st == nil {
			return mcp.NewToolResultError("stats require a run log database"), nil
		}
		dbMu.Lock()
		stats, err := st.Stats(ctx)
		dbMu.Unlock()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(map[string]any{
			"runs":          stats.RunCount,
			"verdicts":      stats.VerdictCount,
			"family_counts": stats.FamilyCounts,
			"db_size_bytes": stats.DBSizeBytes,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Helpers ---

// requestFromArgs maps tool arguments onto a child.Request.
func requestFromArgs(req mcp.CallToolRequest) (child.Request, error) {
	var out child.Request

	focus, err := req.RequireString("focus_name")
	if err != nil {
		return out, fmt.Errorf("focus_name is required")
	}
	source, err := req.RequireString("source")
	if err != nil {
		return out, fmt.Errorf("source is required")
	}
	if strings.TrimSpace(source) == "" {
		return out, fmt.Errorf("source cannot be empty")
	}
	anchorVal, err := req.RequireFloat("anchor_line")
	if err != nil {
		return out, fmt.Errorf("anchor_line is required")
	}
	anchor := int(anchorVal)
	if anchor < 1 {
		return out, fmt.Errorf("anchor_line must be 1-based")
	}

	out.FocusName = focus
	out.SourceText = source
	out.AnchorLine = anchor

	if v, err := req.RequireString("anchor_line_content"); err == nil {
		out.AnchorLineContent = v
	}
	if v, err := req.RequireString("analytical_chain"); err == nil {
		out.AnalyticalChain = v
	}
	if v, err := req.RequireString("denylist"); err == nil && strings.TrimSpace(v) != "" {
		var list []string
		for _, entry := range strings.Split(v, ",") {
			if e := strings.TrimSpace(entry); e != "" {
				list = append(list, e)
			}
		}
		out.Denylist = list
	}

	return out, nil
}

// runFromResult builds the persistable run record for one extraction.
func runFromResult(req child.Request, res *extract.Result, sourceHash, provider string) *store.Run {
	lines := make([]store.ParaphraseLine, 0, len(res.Paraphrase))
	for _, l := range res.Paraphrase {
		lines = append(lines, store.ParaphraseLine{Line: l.Line, Text: l.Text})
	}
	return &store.Run{
		Family:            res.Family,
		FocusName:         req.FocusName,
		AnchorLine:        req.AnchorLine,
		AnchorLineContent: req.AnchorLineContent,
		AnalyticalChain:   req.AnalyticalChain,
		SourceText:        req.SourceText,
		SourceHash:        sourceHash,
		Provider:          provider,
		RunACount:         res.RunACount,
		RunBCount:         res.RunBCount,
		Children:          res.Children,
		Paraphrase:        lines,
	}
}

type familyInfo struct {
	Family      string `json:"family"`
	Description string `json:"description"`
	KeyKind     string `json:"key_kind"`
}

func familyCatalog(ex *extract.Extractor) []familyInfo {
	names := ex.FamilyNames()
	out := make([]familyInfo, 0, len(names))
	for _, name := range names {
		pack, err := ex.Pack(name)
		if err != nil {
			continue
		}
		out = append(out, familyInfo{
			Family:      pack.Family,
			Description: pack.Description,
			KeyKind:     pack.KeyKind,
		})
	}
	return out
}
