package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deskpilot-core/deskpilot/internal/audit"
	"github.com/deskpilot-core/deskpilot/internal/browser"
	"github.com/deskpilot-core/deskpilot/internal/cli"
	"github.com/deskpilot-core/deskpilot/internal/config"
	"github.com/deskpilot-core/deskpilot/internal/exec"
	"github.com/deskpilot-core/deskpilot/internal/graph"
	"github.com/deskpilot-core/deskpilot/internal/llm"
	"github.com/deskpilot-core/deskpilot/internal/orchestrator"
	"github.com/deskpilot-core/deskpilot/internal/plan"
	"github.com/deskpilot-core/deskpilot/internal/risk"
	"github.com/deskpilot-core/deskpilot/internal/scopeguard"
	"github.com/deskpilot-core/deskpilot/internal/session"
)

const defaultSystemPrompt = `You are a desktop automation agent. You see the
screen through screenshots and a UI tree summary, and you act through the
provided tools. Work step by step toward the task. When the task is done,
reply with TASK_COMPLETE and a short summary instead of calling tools.`

var planFirst bool

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task end to end",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTask,
}

func init() {
	runCmd.Flags().BoolVar(&planFirst, "plan", false, "draft an execution plan before the first action")
	rootCmd.AddCommand(runCmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")
	log := newLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("no API key configured (set DESKPILOT_API_KEY or llm.api_key)")
	}
	mode, err := risk.ParsePermissionMode(cfg.Permissions.Mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.Agent.Model, cfg.LLM.BaseURL)
	model := llm.Guarded(client, llm.NewGuard(cfg.LLM.MaxFailures, cfg.LLMCooldown()))

	// The arbiter talks to the model unguarded: a tripped guard must not
	// silently downgrade safety decisions to their heuristic hints.
	arbiter := risk.NewArbiter(client, cfg.Agent.CheapModel, risk.DefaultArbiterTimeout, log)

	layout := session.NewLayout(cfg.Output.Dir)
	if err := layout.Ensure(); err != nil {
		return err
	}
	sink := audit.NewFileSink(layout.AuditDir())
	gate := risk.NewGate(mode, arbiter, sink, log)

	svc, err := browser.NewService(ctx, browser.Options{
		Headless:       cfg.Browser.Headless,
		UserDataDir:    cfg.Browser.UserDataDir,
		StartURL:       cfg.Browser.StartURL,
		ViewportWidth:  cfg.Browser.Width,
		ViewportHeight: cfg.Browser.Height,
		Scope:          scopeguard.New(cfg.Browser.AllowedDomains, cfg.Browser.BlockedDomains),
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("browser close failed")
		}
	}()

	dispatcher := &orchestrator.Dispatcher{
		UI: svc,
		Shell: &exec.Runner{
			Shell:   cfg.Shell.Shell,
			Timeout: cfg.ShellTimeout(),
			LogDir:  layout.CommandsDir(),
		},
		NotesDir: layout.NotesDir(),
	}

	machine := graph.NewMachine(graph.Config{
		MaxIterations:       cfg.Agent.MaxIterations,
		RecoveryBudget:      cfg.Agent.RecoveryBudget,
		ConfirmTimeout:      cfg.ConfirmTimeout(),
		CaptureMaxDimension: cfg.Capture.MaxDimension,
		CaptureQuality:      cfg.Capture.Quality,
		Model:               cfg.Agent.Model,
		CheapModel:          cfg.Agent.CheapModel,
		DeepModel:           cfg.Agent.DeepModel,
		MaxTokens:           cfg.Agent.MaxTokens,
		SystemPrompt:        systemPrompt(cfg),
	}, graph.Deps{
		Gate:     gate,
		Model:    model,
		Capturer: svc,
		Executor: dispatcher,
		Confirm:  &cli.Confirmer{Approver: gate},
		Chain:    graph.NewStrategyChain(model, cfg.Agent.CheapModel, cfg.Agent.DeepModel, log),
		Tools:    orchestrator.DefaultToolSchemas(),
		Notes:    dispatcher.Notes,
		Log:      log,
	})

	orch := orchestrator.New(gate, machine, dispatcher, log)
	orch.ReportDir = layout.ReportsDir()
	if planFirst {
		orch.Planner = &plan.LLMPlanner{Client: model, Model: cfg.Agent.CheapModel}
	}
	result, err := orch.Run(ctx, task)
	if err != nil {
		return err
	}

	fmt.Printf("\nRun %s\n", result.RunID)
	fmt.Printf("  outcome:    %s\n", outcomeLabel(result))
	fmt.Printf("  iterations: %d\n", result.Iterations)
	fmt.Printf("  tokens:     %d in / %d out\n", result.InputTokens, result.OutputTokens)
	fmt.Printf("  summary:    %s\n", result.Summary)
	return nil
}

func systemPrompt(cfg config.Config) string {
	if cfg.Agent.SystemPrompt != "" {
		return cfg.Agent.SystemPrompt
	}
	return defaultSystemPrompt
}

func outcomeLabel(result orchestrator.RunResult) string {
	switch {
	case result.Canceled:
		return "canceled"
	case result.Success:
		return "success"
	default:
		return "incomplete"
	}
}
