// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Command orchestrator-core is a demo CLI driving the orchestrator tool
// surface end to end: plan an objective, optionally simulate its
// execution, and coordinate the results, printing each step as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/open-swarm/orchestrator-core/internal/config"
	"github.com/open-swarm/orchestrator-core/pkg/model"
	"github.com/open-swarm/orchestrator-core/pkg/orchestrator"
)

func main() {
	var (
		objective      = flag.String("objective", "", "Free-text objective to plan (required)")
		projectContext = flag.String("context", "", "Project context, e.g. the repo or service name")
		configPath     = flag.String("config", "", "Path to config.yaml (defaults to the per-user config dir)")
		maxAgents      = flag.Int("max-agents", 0, "Cap on the number of agents in the plan (0 = unconstrained)")
		maxTokens      = flag.Int("max-tokens", 0, "Cap on estimated tokens (0 = unconstrained)")
		simulate       = flag.Bool("simulate", false, "Simulate successful execution of the plan and run coordinate")
		analyze        = flag.Bool("analyze", false, "Print a system health snapshot instead of planning")
	)
	flag.Parse()

	if !*analyze && *objective == "" {
		fmt.Fprintln(os.Stderr, "usage: orchestrator-core -objective \"...\" [-context ...] [-simulate] [-analyze]")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	o, err := orchestrator.New(cfg, orchestrator.Collaborators{})
	if err != nil {
		slog.Error("failed to construct orchestrator", "error", err)
		os.Exit(1)
	}
	defer o.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		cancel()
	}()

	if *analyze {
		runAnalyze(ctx, o)
		return
	}

	runPlanAndCoordinate(ctx, o, *objective, *projectContext, *maxAgents, *maxTokens, *simulate)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func runAnalyze(ctx context.Context, o *orchestrator.Orchestrator) {
	resp := o.Analyze(ctx, orchestrator.AnalyzeRequest{})
	printJSON(resp)
}

func runPlanAndCoordinate(ctx context.Context, o *orchestrator.Orchestrator, objective, projectContext string, maxAgents, maxTokens int, simulate bool) {
	planResp := o.Plan(ctx, orchestrator.PlanRequest{
		Objective:      objective,
		ProjectContext: projectContext,
		Constraints:    &orchestrator.ConstraintsDTO{MaxAgents: maxAgents, MaxTokens: maxTokens},
	})
	printJSON(planResp)
	if planResp.Error != nil || planResp.Plan == nil {
		return
	}

	if !simulate {
		return
	}

	results := make([]model.AgentResult, 0, len(planResp.Plan.Agents))
	for _, spec := range planResp.Plan.Agents {
		results = append(results, model.AgentResult{
			AgentID:    spec.AgentID,
			Success:    true,
			DurationMS: 1000,
			TokensUsed: planResp.Plan.EstimatedTokens / max(len(planResp.Plan.Agents), 1),
			Output:     fmt.Sprintf("simulated completion of %s", spec.TaskDescription),
		})
	}

	coordResp := o.Coordinate(ctx, orchestrator.CoordinateRequest{
		Objective:      objective,
		ProjectContext: projectContext,
		AgentResults:   results,
		Plan:           planResp.Plan,
	})
	printJSON(coordResp)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
