// Command cg5 extracts structural child relationships from Java source by
// prompting an LLM twice per request and merging the candidate lists
// deterministically. Runs are logged to SQLite; an MCP server exposes the
// same operations to protocol clients.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "extract":
		err = runExtract(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "families":
		err = runFamilies(os.Args[2:])
	case "runs":
		err = runRuns(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("cg5 %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`cg5 %s — LLM-driven structural child extraction for Java source

Usage:
  cg5 <command> [arguments]

Commands:
  extract <family>    Extract children for a focus (reads source from --file or stdin)
  validate <run-id>   Validate a logged run's candidates against its family rules
  families            List extractor families
  runs                List recent extraction runs
  stats               Show run-log statistics
  serve               Serve the MCP interface over stdio
  config              Show resolved configuration and value sources
  version             Print version

Extract Flags:
  --focus <name>      Focus name: method, variable, or call-result (required)
  --file <path>       Source file to analyze (default: read stdin)
  --anchor <line>     1-based anchor line of the occurrence (required)
  --anchor-content <s> Exact text of the anchor line
  --chain <s>         Analytical chain, e.g. 'A->B->C'
  --deny <list>       Comma-separated denylist override
  --no-cache          Skip the run cache
  --json              Print the full result as JSON

Common Flags:
  --llm <spec>        Provider/model, e.g. azure/gpt-4o-mini
  --db <path>         Run-log database path
  --rules <dir>       Directory of yaml rule-pack overrides
  --config <path>     Config file (default: ~/.cg5/config.yaml)
  -h, --help          Show this help message
`, version)
}
