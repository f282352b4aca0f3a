package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/exchange"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/policy"
	"github.com/dd0wney/cluso-tara/pkg/report"
	"github.com/dd0wney/cluso-tara/pkg/risk"
	"github.com/dd0wney/cluso-tara/pkg/store"
)

// newRecalculator builds a recalculator from a -policy flag value. An
// empty path selects the compiled-in default tables.
func newRecalculator(policyPath string) *risk.ProjectRecalculator {
	if policyPath == "" {
		return risk.NewProjectRecalculator(nil)
	}
	pol, err := policy.Load(policyPath)
	if err != nil {
		fatal("load risk policy: %v", err)
	}
	return risk.NewProjectRecalculator(pol)
}

func openFileStore(dataDir string) *store.FileStore {
	s, err := store.NewFileStore(store.DefaultFileStoreConfig(dataDir))
	if err != nil {
		fatal("open project store at %s: %v", dataDir, err)
	}
	return s
}

func printWarnings(warnings []risk.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func printStats(stats risk.Stats) {
	fmt.Printf("  Scenarios:         %d\n", stats.Scenarios)
	fmt.Printf("  Trees evaluated:   %d\n", stats.TreesEvaluated)
	fmt.Printf("  Manual fallbacks:  %d\n", stats.ManualFallbacks)
	fmt.Printf("  Unreachable trees: %d\n", stats.UnreachableTrees)
	fmt.Printf("  Warnings:          %d\n", stats.Warnings)
}

func handleValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	policyPath := fs.String("policy", "", "Risk policy YAML file (default: built-in tables)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("usage: tara validate [options] <project-file>")
	}

	result, err := exchange.ImportFile(fs.Arg(0), newRecalculator(*policyPath))
	if err != nil {
		fatal("%v", err)
	}

	printWarnings(result.Warnings)
	fmt.Printf("Project %s is valid\n", result.Project.ID)
	printStats(result.Stats)
	fmt.Printf("  Fingerprint:       %s\n", result.Fingerprint)
}

func handleRecalculate(args []string) {
	fs := flag.NewFlagSet("recalculate", flag.ExitOnError)
	policyPath := fs.String("policy", "", "Risk policy YAML file (default: built-in tables)")
	output := fs.String("o", "", "Output file (default: rewrite the input file)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("usage: tara recalculate [options] <project-file>")
	}
	inputPath := fs.Arg(0)
	outputPath := *output
	if outputPath == "" {
		outputPath = inputPath
	}

	recalc := newRecalculator(*policyPath)
	result, err := exchange.ImportFile(inputPath, recalc)
	if err != nil {
		fatal("%v", err)
	}

	exported, err := exchange.ExportFile(outputPath, result.Project, recalc)
	if err != nil {
		fatal("%v", err)
	}

	printWarnings(result.Warnings)
	fmt.Printf("Recalculated %s -> %s\n", result.Project.ID, outputPath)
	printStats(result.Stats)
	fmt.Printf("  Fingerprint:       %s\n", exported.Fingerprint)

	dist := risk.Distribution(result.Project)
	if len(dist) > 0 {
		fmt.Println("  Risk distribution:")
		for _, level := range []model.RiskLevel{model.RiskCritical, model.RiskHigh, model.RiskMedium, model.RiskLow, model.RiskVeryLow} {
			if n := dist[level.String()]; n > 0 {
				fmt.Printf("    %-9s %d\n", level, n)
			}
		}
	}
}

func handleImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dataDir := fs.String("data", "./data/projects", "Project store directory")
	policyPath := fs.String("policy", "", "Risk policy YAML file (default: built-in tables)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("usage: tara import [options] <project-file>")
	}

	result, err := exchange.ImportFile(fs.Arg(0), newRecalculator(*policyPath))
	if err != nil {
		fatal("%v", err)
	}

	projectStore := openFileStore(*dataDir)
	defer projectStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stored, err := projectStore.Save(ctx, result.Project)
	if err != nil {
		fatal("save project: %v", err)
	}

	printWarnings(result.Warnings)
	fmt.Printf("Imported project %s (revision %d)\n", stored.Project.ID, stored.Revision)
	printStats(result.Stats)
}

func handleExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dataDir := fs.String("data", "./data/projects", "Project store directory")
	policyPath := fs.String("policy", "", "Risk policy YAML file (default: built-in tables)")
	output := fs.String("o", "", "Output file (default: <project-id>.json)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("usage: tara export [options] <project-id>")
	}
	projectID := fs.Arg(0)
	outputPath := *output
	if outputPath == "" {
		outputPath = projectID + ".json"
	}

	projectStore := openFileStore(*dataDir)
	defer projectStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stored, err := projectStore.Get(ctx, projectID)
	if err != nil {
		fatal("load project: %v", err)
	}

	result, err := exchange.ExportFile(outputPath, stored.Project, newRecalculator(*policyPath))
	if err != nil {
		fatal("%v", err)
	}

	printWarnings(result.Warnings)
	fmt.Printf("Exported %s -> %s\n", projectID, outputPath)
	fmt.Printf("  Fingerprint: %s\n", result.Fingerprint)
}

func handleList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dataDir := fs.String("data", "./data/projects", "Project store directory")
	fs.Parse(args)

	projectStore := openFileStore(*dataDir)
	defer projectStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	summaries, err := projectStore.List(ctx)
	if err != nil {
		fatal("list projects: %v", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No projects in store")
		return
	}

	fmt.Printf("%-24s %-32s %8s %8s %10s  %s\n", "ID", "TITLE", "REV", "THREATS", "SCENARIOS", "SAVED")
	for _, s := range summaries {
		fmt.Printf("%-24s %-32s %8d %8d %10d  %s\n",
			s.ID, s.Title, s.Revision, s.Threats, s.Scenarios, s.SavedAt.Format(time.RFC3339))
	}
}

func handleReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	kind := fs.String("kind", "register", "Report kind: register, register-md, attack-paths, dot")
	policyPath := fs.String("policy", "", "Risk policy YAML file (default: built-in tables)")
	output := fs.String("o", "", "Output file (default: stdout)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("usage: tara report [options] <project-file>")
	}

	recalc := newRecalculator(*policyPath)
	result, err := exchange.ImportFile(fs.Arg(0), recalc)
	if err != nil {
		fatal("%v", err)
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatal("create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	gen := report.NewGenerator(recalc)
	switch *kind {
	case "register":
		err = gen.RiskRegisterCSV(out, result.Project)
	case "register-md":
		err = gen.RiskRegisterMarkdown(out, result.Project)
	case "attack-paths":
		err = gen.AttackPathReport(out, result.Project)
	case "dot":
		err = gen.AttackTreeDOT(out, result.Project)
	default:
		fatal("unknown report kind %q", *kind)
	}
	if err != nil {
		fatal("render report: %v", err)
	}
}

func handleHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	logDir := fs.String("dir", "./data/history", "History log directory")
	format := fs.String("format", "json", "Output format: json, jsonl, csv, syslog, report")
	projectID := fs.String("project", "", "Filter by project id")
	action := fs.String("action", "", "Filter by action")
	limit := fs.Int("limit", 0, "Maximum number of events (0 = unlimited)")
	output := fs.String("o", "", "Output file (default: stdout)")
	fs.Parse(args)

	options := &audit.ExportOptions{
		ProjectID: *projectID,
		Action:    audit.Action(*action),
		Limit:     *limit,
		Pretty:    true,
	}

	exporter := audit.NewExporter(*logDir)

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatal("create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	var err error
	if *format == "report" {
		err = exporter.ExportReport(out, options)
	} else {
		options.Format = audit.ExportFormat(*format)
		err = exporter.Export(out, options)
	}
	if err != nil {
		fatal("export history: %v", err)
	}
}
