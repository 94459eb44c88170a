package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/vaibhavtmnit/cg5/internal/child"
	"github.com/vaibhavtmnit/cg5/internal/config"
	"github.com/vaibhavtmnit/cg5/internal/extract"
	"github.com/vaibhavtmnit/cg5/internal/llm"
	cg5mcp "github.com/vaibhavtmnit/cg5/internal/mcp"
	"github.com/vaibhavtmnit/cg5/internal/store"
)

// commonFlags are the flags shared by every subcommand that needs config,
// a provider, or the run log.
type commonFlags struct {
	llmSpec    string
	dbPath     string
	rulesDir   string
	configPath string
}

// splitCommonFlags extracts common flags and returns the rest.
func splitCommonFlags(args []string) (commonFlags, []string) {
	var cf commonFlags
	var rest []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--llm" && i+1 < len(args):
			i++
			cf.llmSpec = args[i]
		case strings.HasPrefix(args[i], "--llm="):
			cf.llmSpec = strings.TrimPrefix(args[i], "--llm=")
		case args[i] == "--db" && i+1 < len(args):
			i++
			cf.dbPath = args[i]
		case strings.HasPrefix(args[i], "--db="):
			cf.dbPath = strings.TrimPrefix(args[i], "--db=")
		case args[i] == "--rules" && i+1 < len(args):
			i++
			cf.rulesDir = args[i]
		case strings.HasPrefix(args[i], "--rules="):
			cf.rulesDir = strings.TrimPrefix(args[i], "--rules=")
		case args[i] == "--config" && i+1 < len(args):
			i++
			cf.configPath = args[i]
		case strings.HasPrefix(args[i], "--config="):
			cf.configPath = strings.TrimPrefix(args[i], "--config=")
		default:
			rest = append(rest, args[i])
		}
	}
	return cf, rest
}

func resolve(cf commonFlags) (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath:  cf.configPath,
		CLILLM:      cf.llmSpec,
		CLIDBPath:   cf.dbPath,
		CLIRulesDir: cf.rulesDir,
	})
}

// buildProvider constructs the LLM provider from the resolved model spec.
func buildProvider(resolved config.ResolvedConfig, purpose string) (llm.Provider, error) {
	spec := resolved.EffectiveLLMModel(purpose, "azure/gpt-4o-mini").Value
	cfg, err := llm.ParseLLMFlag(spec)
	if err != nil {
		return nil, err
	}
	if key := resolved.APIKeyForProvider(spec); key.Value != "" {
		cfg.APIKey = key.Value
	}
	return llm.NewProvider(cfg)
}

// buildExtractor wires rule-pack overrides into a fresh Extractor.
func buildExtractor(provider llm.Provider, resolved config.ResolvedConfig) (*extract.Extractor, error) {
	packs, err := extract.LoadPacks(resolved.RulesDir.Value)
	if err != nil {
		return nil, err
	}
	return extract.New(provider, extract.WithPacks(packs)), nil
}

func openStore(resolved config.ResolvedConfig) (store.Store, error) {
	return store.NewStore(store.Config{DBPath: resolved.DBPath.Value})
}

func runExtract(args []string) error {
	cf, rest := splitCommonFlags(args)

	var (
		family        string
		focus         string
		file          string
		anchor        int
		anchorContent string
		chain         string
		denylist      []string
		denySet       bool
		noCache       bool
		asJSON        bool
	)

	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--focus" && i+1 < len(rest):
			i++
			focus = rest[i]
		case strings.HasPrefix(rest[i], "--focus="):
			focus = strings.TrimPrefix(rest[i], "--focus=")
		case rest[i] == "--file" && i+1 < len(rest):
			i++
			file = rest[i]
		case strings.HasPrefix(rest[i], "--file="):
			file = strings.TrimPrefix(rest[i], "--file=")
		case rest[i] == "--anchor" && i+1 < len(rest):
			i++
			n, err := strconv.Atoi(rest[i])
			if err != nil {
				return fmt.Errorf("invalid --anchor: %v", err)
			}
			anchor = n
		case strings.HasPrefix(rest[i], "--anchor="):
			n, err := strconv.Atoi(strings.TrimPrefix(rest[i], "--anchor="))
			if err != nil {
				return fmt.Errorf("invalid --anchor: %v", err)
			}
			anchor = n
		case rest[i] == "--anchor-content" && i+1 < len(rest):
			i++
			anchorContent = rest[i]
		case strings.HasPrefix(rest[i], "--anchor-content="):
			anchorContent = strings.TrimPrefix(rest[i], "--anchor-content=")
		case rest[i] == "--chain" && i+1 < len(rest):
			i++
			chain = rest[i]
		case strings.HasPrefix(rest[i], "--chain="):
			chain = strings.TrimPrefix(rest[i], "--chain=")
		case rest[i] == "--deny" && i+1 < len(rest):
			i++
			denylist = splitList(rest[i])
			denySet = true
		case strings.HasPrefix(rest[i], "--deny="):
			denylist = splitList(strings.TrimPrefix(rest[i], "--deny="))
			denySet = true
		case rest[i] == "--no-cache":
			noCache = true
		case rest[i] == "--json":
			asJSON = true
		case strings.HasPrefix(rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", rest[i])
		case family == "":
			family = rest[i]
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}

	if family == "" {
		return fmt.Errorf("usage: cg5 extract <family> --focus <name> --anchor <line> [--file <path>]")
	}
	if focus == "" {
		return fmt.Errorf("--focus is required")
	}
	if anchor < 1 {
		return fmt.Errorf("--anchor is required and 1-based")
	}

	source, err := readSource(file)
	if err != nil {
		return err
	}

	resolved, err := resolve(cf)
	if err != nil {
		return err
	}
	provider, err := buildProvider(resolved, "extract")
	if err != nil {
		return err
	}
	ex, err := buildExtractor(provider, resolved)
	if err != nil {
		return err
	}
	st, err := openStore(resolved)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer st.Close()

	req := child.Request{
		FocusName:         focus,
		SourceText:        source,
		AnchorLine:        anchor,
		AnchorLineContent: anchorContent,
		AnalyticalChain:   chain,
	}
	if denySet {
		if denylist == nil {
			denylist = []string{}
		}
		req.Denylist = denylist
	}

	ctx := context.Background()
	sourceHash := store.HashSource(source)

	if !noCache {
		cached, err := st.FindCachedRun(ctx, family, focus, anchor, sourceHash)
		if err != nil {
			return fmt.Errorf("cache lookup: %w", err)
		}
		if cached != nil {
			fmt.Fprintf(os.Stderr, "Using cached run %s\n", cached.ID)
			return printChildren(cached.ID, cached.Children, asJSON)
		}
	}

	result, err := ex.Extract(ctx, family, req)
	if err != nil {
		return err
	}

	run := &store.Run{
		Family:            result.Family,
		FocusName:         focus,
		AnchorLine:        anchor,
		AnchorLineContent: anchorContent,
		AnalyticalChain:   chain,
		SourceText:        source,
		SourceHash:        sourceHash,
		Provider:          provider.Name(),
		RunACount:         result.RunACount,
		RunBCount:         result.RunBCount,
		Children:          result.Children,
		Paraphrase:        toStoreLines(result.Paraphrase),
	}
	id, err := st.SaveRun(ctx, run)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	return printChildren(id, result.Children, asJSON)
}

func runValidate(args []string) error {
	cf, rest := splitCommonFlags(args)
	if len(rest) != 1 || strings.HasPrefix(rest[0], "-") {
		return fmt.Errorf("usage: cg5 validate <run-id>")
	}
	runID := rest[0]

	resolved, err := resolve(cf)
	if err != nil {
		return err
	}
	provider, err := buildProvider(resolved, "validate")
	if err != nil {
		return err
	}
	ex, err := buildExtractor(provider, resolved)
	if err != nil {
		return err
	}
	st, err := openStore(resolved)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	if run.SourceText == "" {
		return fmt.Errorf("run %s has no stored source text", runID)
	}

	req := child.Request{
		FocusName:         run.FocusName,
		SourceText:        run.SourceText,
		AnchorLine:        run.AnchorLine,
		AnchorLineContent: run.AnchorLineContent,
		AnalyticalChain:   run.AnalyticalChain,
	}
	verdicts, err := ex.Validate(ctx, run.Family, req, run.Children)
	if err != nil {
		return err
	}
	if err := st.AddVerdicts(ctx, runID, verdicts); err != nil {
		return fmt.Errorf("saving verdicts: %w", err)
	}

	for _, v := range verdicts {
		mark := "✗"
		if v.Valid {
			mark = "✓"
		}
		fmt.Printf("%s %-24s %.2f  %s\n", mark, v.Name, v.Confidence, v.Reason)
	}
	fmt.Printf("\n%d verdicts for run %s (%s)\n", len(verdicts), runID, run.Family)
	return nil
}

func runFamilies(args []string) error {
	cf, rest := splitCommonFlags(args)
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	resolved, err := resolve(cf)
	if err != nil {
		return err
	}
	packs, err := extract.LoadPacks(resolved.RulesDir.Value)
	if err != nil {
		return err
	}

	for _, name := range extract.Families(packs) {
		p := packs[name]
		fmt.Printf("%-28s %-10s %s\n", p.Family, p.KeyKind, p.Description)
	}
	return nil
}

func runRuns(args []string) error {
	cf, rest := splitCommonFlags(args)

	opts := store.ListOpts{Limit: 20}
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--family" && i+1 < len(rest):
			i++
			opts.Family = rest[i]
		case strings.HasPrefix(rest[i], "--family="):
			opts.Family = strings.TrimPrefix(rest[i], "--family=")
		case rest[i] == "--limit" && i+1 < len(rest):
			i++
			opts.Limit, _ = strconv.Atoi(rest[i])
		case strings.HasPrefix(rest[i], "--limit="):
			opts.Limit, _ = strconv.Atoi(strings.TrimPrefix(rest[i], "--limit="))
		default:
			return fmt.Errorf("unknown flag: %s", rest[i])
		}
	}

	resolved, err := resolve(cf)
	if err != nil {
		return err
	}
	st, err := openStore(resolved)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs logged yet.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-28s %-16s line %-5d %d children  %s\n",
			r.ID, r.Family, r.FocusName, r.AnchorLine, len(r.Children),
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runStats(args []string) error {
	cf, rest := splitCommonFlags(args)
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	resolved, err := resolve(cf)
	if err != nil {
		return err
	}
	st, err := openStore(resolved)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Runs:      %d\n", stats.RunCount)
	fmt.Printf("Verdicts:  %d\n", stats.VerdictCount)
	fmt.Printf("DB size:   %d bytes\n", stats.DBSizeBytes)
	if len(stats.FamilyCounts) > 0 {
		fmt.Println("By family:")
		families := make([]string, 0, len(stats.FamilyCounts))
		for f := range stats.FamilyCounts {
			families = append(families, f)
		}
		sort.Strings(families)
		for _, f := range families {
			fmt.Printf("  %-28s %d\n", f, stats.FamilyCounts[f])
		}
	}
	return nil
}

func runServe(args []string) error {
	cf, rest := splitCommonFlags(args)
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	resolved, err := resolve(cf)
	if err != nil {
		return err
	}
	provider, err := buildProvider(resolved, "extract")
	if err != nil {
		return err
	}
	ex, err := buildExtractor(provider, resolved)
	if err != nil {
		return err
	}
	st, err := openStore(resolved)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer st.Close()

	srv := cg5mcp.NewServer(cg5mcp.ServerConfig{
		Store:     st,
		Extractor: ex,
		Provider:  provider.Name(),
		Version:   version,
	})
	return server.ServeStdio(srv)
}

func runConfig(args []string) error {
	cf, rest := splitCommonFlags(args)
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	resolved, err := resolve(cf)
	if err != nil {
		return err
	}

	fmt.Printf("Config file: %s\n\n", resolved.ConfigPath)
	printResolved("db_path", resolved.DBPath, store.DefaultDBPath)
	printResolved("rules_dir", resolved.RulesDir, "(builtin packs)")
	printResolved("llm", resolved.LLMProvider, "azure/gpt-4o-mini")
	printResolved("llm_extract", resolved.EffectiveLLMModel("extract", "azure/gpt-4o-mini"), "")
	printResolved("llm_paraphrase", resolved.EffectiveLLMModel("paraphrase", "azure/gpt-4o-mini"), "")
	printResolved("llm_validate", resolved.EffectiveLLMModel("validate", "azure/gpt-4o-mini"), "")
	return nil
}

func printResolved(name string, v config.ResolvedValue, fallback string) {
	value := v.Value
	source := string(v.Source)
	from := v.From
	if value == "" {
		value = fallback
		source = "default"
		from = ""
	}
	if from != "" {
		fmt.Printf("  %-16s %-40s (%s: %s)\n", name, value, source, from)
	} else {
		fmt.Printf("  %-16s %-40s (%s)\n", name, value, source)
	}
}

func printChildren(runID string, children []child.EC, asJSON bool) error {
	if asJSON {
		payload := map[string]any{"run_id": runID, "children": children}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(children) == 0 {
		fmt.Println("No children found.")
		fmt.Printf("Run: %s\n", runID)
		return nil
	}
	for _, c := range children {
		flags := ""
		if c.Conditioned {
			flags += " [conditioned]"
		}
		if c.FurtherExpand {
			flags += " [expand]"
		}
		fmt.Printf("%-24s %.2f  %s%s\n", c.Name, c.Confidence, c.CodeSnippet, flags)
	}
	fmt.Printf("\n%d children, run %s\n", len(children), runID)
	return nil
}

func readSource(file string) (string, error) {
	if file == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		if len(data) == 0 {
			return "", fmt.Errorf("no source provided: pass --file or pipe source on stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return string(data), nil
}

func splitList(s string) []string {
	var out []string
	for _, entry := range strings.Split(s, ",") {
		if e := strings.TrimSpace(entry); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func toStoreLines(lines []extract.Line) []store.ParaphraseLine {
	out := make([]store.ParaphraseLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, store.ParaphraseLine{Line: l.Line, Text: l.Text})
	}
	return out
}
