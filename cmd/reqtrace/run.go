package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/zarfld/reqtrace/internal/classify"
	"github.com/zarfld/reqtrace/internal/config"
	"github.com/zarfld/reqtrace/internal/coverage"
	"github.com/zarfld/reqtrace/internal/extract"
	"github.com/zarfld/reqtrace/internal/gate"
	"github.com/zarfld/reqtrace/internal/graph"
	graphneo4j "github.com/zarfld/reqtrace/internal/graph/neo4j"
	"github.com/zarfld/reqtrace/internal/observability"
	"github.com/zarfld/reqtrace/internal/report"
	"github.com/zarfld/reqtrace/internal/tracker"
	"github.com/zarfld/reqtrace/internal/validate"
)

type runOptions struct {
	configPath  string
	repo        string
	outputDir   string
	state       string
	exportNeo4j bool
	jsonStdout  bool

	// now and client are overridable for tests.
	now    func() time.Time
	client *tracker.Client
}

// runPipeline executes the whole batch: fetch, classify, extract, build,
// measure, validate, gate, emit. Stages after the fetch are pure in-memory
// transformations; a failure anywhere before the report is written leaves
// no partial report behind.
func runPipeline(ctx context.Context, opts *runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = &config.Config{}
	}
	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	repo := opts.repo
	if repo == "" {
		repo = cfg.GitHub.Repository
	}
	if repo == "" {
		repo = os.Getenv("GITHUB_REPOSITORY")
	}
	if repo == "" {
		return fmt.Errorf("no repository configured: pass --repo, set github.repository, or set GITHUB_REPOSITORY")
	}

	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "reqtrace",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: tracing init failed (%v), continuing without\n", err)
	} else {
		defer tp.Shutdown(ctx)
	}

	client := opts.client
	if client == nil {
		token := cfg.GitHub.Token
		if token == "" {
			token = os.Getenv("GITHUB_TOKEN")
		}
		client = tracker.New(tracker.Config{
			Token:       token,
			APIBase:     cfg.GitHub.APIBase,
			State:       opts.state,
			PageSize:    cfg.GitHub.PageSize,
			MaxRetries:  cfg.GitHub.MaxRetries,
			RetryDelay:  cfg.GitHub.RetryDelay,
			Concurrency: cfg.GitHub.Concurrency,
		})
	}

	fmt.Printf("=== Fetching artifacts from %s ===\n", repo)
	fctx, fetchSpan := observability.StartFetchSpan(ctx, repo)
	artifacts, err := client.FetchAll(fctx, repo)
	observability.RecordFetchResult(fetchSpan, len(artifacts), err)
	fetchSpan.End()
	if err != nil {
		return fmt.Errorf("fetching %s: %w", repo, err)
	}
	fmt.Printf("  Fetched %d artifacts\n", len(artifacts))

	fmt.Println("\n=== Classifying and extracting references ===")
	_, stageSpan := observability.StartStageSpan(ctx, "classify")
	categories := make(map[int]classify.Category, len(artifacts))
	refs := make(map[int][]extract.Reference, len(artifacts))
	var ambiguous []validate.Violation
	for _, a := range artifacts {
		res := classify.Classify(a.Title, a.Labels)
		categories[a.Number] = res.Category
		if res.Ambiguous {
			ambiguous = append(ambiguous, validate.Violation{
				Kind:       validate.AmbiguousType,
				ArtifactID: a.Number,
				Detail:     res.Detail,
			})
		}
		refs[a.Number] = extract.Extract(a.Number, a.Body)
	}
	stageSpan.End()
	fmt.Printf("  Classified %d artifacts (%d ambiguous)\n", len(artifacts), len(ambiguous))

	fmt.Println("\n=== Building traceability graph ===")
	_, buildSpan := observability.StartStageSpan(ctx, "build")
	g := graph.Build(artifacts, categories, refs)
	buildSpan.End()
	fmt.Printf("  %d nodes, %d edges, %d dangling references\n",
		g.Stats.NodeCount, g.Stats.EdgeCount, g.Stats.DanglingCount)

	fmt.Println("\n=== Computing coverage and validating ===")
	_, checkSpan := observability.StartStageSpan(ctx, "validate")
	metrics := coverage.Compute(g)
	violations := append(validate.Check(g), ambiguous...)
	validate.Sort(violations)
	checkSpan.End()

	policy := cfg.GatePolicy()
	gateResult := gate.Evaluate(policy, violations)
	fmt.Printf("  %d violations; %s\n", len(violations), gateResult.Summary)

	fmt.Println("\n=== Writing reports ===")
	_, reportSpan := observability.StartStageSpan(ctx, "report")
	now := opts.now
	if now == nil {
		now = time.Now
	}
	rep := report.Build("reqtrace/"+version, repo, g, metrics, violations, gateResult, now().UTC())
	result, err := rep.Write(outputDir)
	observability.RecordGateResult(reportSpan, gateResult.Status == gate.StatusPassed, len(violations))
	reportSpan.End()
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}
	fmt.Printf("  %s\n  %s\n", result.JSONPath, result.MarkdownPath)

	if opts.jsonStdout {
		data, err := rep.JSON()
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	}

	if opts.exportNeo4j {
		if err := exportNeo4j(ctx, cfg, repo, g); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: neo4j export failed: %v\n", err)
		}
	}

	if gateResult.Status == gate.StatusFailed {
		fmt.Printf("\nFAILED: %s\n", gateResult.Summary)
		return errGateFailed
	}
	fmt.Printf("\nPASSED: %s\n", gateResult.Summary)
	return nil
}

func exportNeo4j(ctx context.Context, cfg *config.Config, repo string, g *graph.Graph) error {
	if cfg.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is not configured")
	}
	exporter, err := graphneo4j.New(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
	if err != nil {
		return err
	}
	defer exporter.Close(ctx)

	if err := exporter.Export(ctx, repo, g); err != nil {
		return err
	}
	fmt.Printf("  Exported graph to %s\n", cfg.Neo4j.URI)
	return nil
}

// printGates shows the effective gate policy after config overrides.
func printGates(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	policy := cfg.GatePolicy()

	kinds := make([]validate.Kind, 0, len(policy))
	for k := range policy {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	fmt.Println("Effective gate policy:")
	for _, k := range kinds {
		fmt.Printf("  %-24s %s\n", k, policy[k])
	}
	fmt.Println("\nSeverities required and critical fail the run; advisory only warns.")
	fmt.Println("Override via config gates.<kind> or REQTRACE_GATES_<KIND>.")
	return nil
}
