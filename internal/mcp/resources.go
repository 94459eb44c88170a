package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vaibhavtmnit/cg5/internal/extract"
	"github.com/vaibhavtmnit/cg5/internal/store"
)

func registerFamiliesResource(s *server.MCPServer, ex *extract.Extractor) {
	resource := mcp.NewResource(
		"cg5://families",
		"Extractor Families",
		mcp.WithResourceDescription("Registered extractor families with descriptions and merge-key kinds."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		catalog := familyCatalog(ex)
		payload := map[string]any{
			"families": catalog,
			"count":    len(catalog),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerRecentRunsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"cg5://runs/recent",
		"Recent Extraction Runs",
		mcp.WithResourceDescription("The 20 most recent extraction runs with their merged candidates."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if st == nil {
			return nil, fmt.Errorf("recent runs resource requires a run log database")
		}

		dbMu.Lock()
		runs, err := st.ListRuns(ctx, store.ListOpts{Limit: 20})
		dbMu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("listing recent runs: %w", err)
		}

		type runSummary struct {
			ID        string `json:"id"`
			Family    string `json:"family"`
			FocusName string `json:"focus_name"`
			Anchor    int    `json:"anchor_line"`
			Children  int    `json:"children"`
			CreatedAt string `json:"created_at"`
		}
		summaries := make([]runSummary, 0, len(runs))
		for _, r := range runs {
			summaries = append(summaries, runSummary{
				ID:        r.ID,
				Family:    r.Family,
				FocusName: r.FocusName,
				Anchor:    r.AnchorLine,
				Children:  len(r.Children),
				CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		payload := map[string]any{
			"runs":  summaries,
			"count": len(summaries),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
