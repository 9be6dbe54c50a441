package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	anthropicSDK "github.com/liushuangls/go-anthropic/v2"
	openaiSDK "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	cohereSDK "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/mara-ai/mara/agents"
	"github.com/mara-ai/mara/components"
	"github.com/mara-ai/mara/config"
	"github.com/mara-ai/mara/pipeline"
	"github.com/mara-ai/mara/providers/anthropic"
	"github.com/mara-ai/mara/providers/cohere"
	"github.com/mara-ai/mara/providers/gemini"
	"github.com/mara-ai/mara/providers/openai"
	"github.com/mara-ai/mara/schema"
)

var (
	runTopic      string
	runIterations int
	runDepth      string
	runFocus      []string
	runProvider   string
	runModel      string
	runOut        string
	runBib        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the research pipeline for a topic",
	Long: `Run executes the full pipeline: focus-area generation, framework
engineering, N analysis iterations and synthesis. The final report is
written as markdown to stdout or --out; progress goes to stderr.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runTopic, "topic", "t", "", "research topic or question (3-200 chars)")
	runCmd.Flags().IntVarP(&runIterations, "iterations", "n", 0, "analysis iterations (1-5)")
	runCmd.Flags().StringVar(&runDepth, "depth", "", "depth preset: quick, balanced, deep, comprehensive")
	runCmd.Flags().StringSliceVar(&runFocus, "focus", nil, "restrict to these generated focus areas")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "model provider: gemini, openai, anthropic, cohere")
	runCmd.Flags().StringVar(&runModel, "model", "", "model name override")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "write the report to this file instead of stdout")
	runCmd.Flags().StringVar(&runBib, "bibliography", "", "also write the bibliography as CSL-YAML to this file")
	_ = runCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runProvider != "" {
		cfg.Provider = runProvider
	}
	if runModel != "" {
		cfg.Model = runModel
	}

	iterations := runIterations
	if runDepth != "" {
		if iterations != 0 {
			return fmt.Errorf("--depth and --iterations are mutually exclusive")
		}
		if iterations, err = config.Iterations(runDepth); err != nil {
			return err
		}
	}
	if iterations == 0 {
		iterations = 2
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, cleanup, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	guard := components.NewQuotaGuard(
		components.WithMaxRequests(cfg.Quota.RequestsPerMinute),
		components.WithCooldownThreshold(cfg.Quota.CooldownThreshold),
		components.WithCooldown(cfg.Quota.Cooldown),
	)
	client := components.NewModelClient(provider, guard, components.WithLogger(logger))

	orchestrator := pipeline.New(pipeline.Stages{
		Designer: agents.NewPromptDesigner(
			agents.WithClient(client),
			agents.WithTemperature(cfg.Designer.Temperature),
			agents.WithMaxTokens(cfg.Designer.MaxTokens),
			agents.WithLogger(logger),
		),
		Engineer: agents.NewFrameworkEngineer(
			agents.WithClient(client),
			agents.WithTemperature(cfg.Engineer.Temperature),
			agents.WithMaxTokens(cfg.Engineer.MaxTokens),
			agents.WithLogger(logger),
		),
		Analyst: agents.NewResearchAnalyst(
			agents.WithClient(client),
			agents.WithTemperature(cfg.Analysis.Temperature),
			agents.WithTemperatureIncrement(cfg.Analysis.TempIncrement),
			agents.WithMaxTemperature(cfg.Analysis.MaxTemperature),
			agents.WithMaxTokens(cfg.Analysis.MaxTokens),
			agents.WithLogger(logger),
		),
		Synthesist: agents.NewSynthesisExpert(
			agents.WithClient(client),
			agents.WithTemperature(cfg.Synthesis.Temperature),
			agents.WithMaxTokens(cfg.Synthesis.MaxTokens),
			agents.WithLogger(logger),
		),
	}, pipeline.WithLogger(logger), pipeline.WithHooks(progressHooks(logger)))

	st, err := orchestrator.Run(ctx, pipeline.Request{
		Topic:              runTopic,
		Iterations:         iterations,
		SelectedFocusAreas: runFocus,
	})
	if err != nil {
		return err
	}

	if runBib != "" {
		f, err := os.Create(runBib)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := schema.WriteBibliographyCSL(f, st.Ledger.Entries()); err != nil {
			return err
		}
	}

	markdown := st.Report.Markdown()
	if runOut != "" {
		return os.WriteFile(runOut, []byte(markdown), 0o644)
	}
	_, err = fmt.Fprintln(os.Stdout, markdown)
	return err
}

// progressHooks streams stage transitions to stderr.
func progressHooks(logger *zap.Logger) pipeline.Hooks {
	return pipeline.Hooks{
		OnStageStart: func(stage pipeline.Stage, iteration int) {
			logger.Info("stage started",
				zap.Stringer("stage", stage),
				zap.Int("iteration", iteration))
		},
		OnStageComplete: func(stage pipeline.Stage, iteration int, _ *pipeline.StageOutput) {
			logger.Info("stage complete",
				zap.Stringer("stage", stage),
				zap.Int("iteration", iteration))
		},
		OnPaused: func(stage pipeline.Stage, remaining time.Duration) {
			logger.Warn("rate limited, pausing",
				zap.Stringer("stage", stage),
				zap.Duration("resume_in", remaining))
		},
		OnFailed: func(stage pipeline.Stage, err error) {
			logger.Error("pipeline failed",
				zap.Stringer("stage", stage),
				zap.Error(err))
		},
	}
}

// buildProvider assembles the vendor adapter selected by configuration. The
// returned cleanup closes any vendor client that needs it.
func buildProvider(ctx context.Context, cfg *config.Config) (components.Provider, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case "gemini":
		key, err := apiKey(cfg, "GEMINI_API_KEY")
		if err != nil {
			return nil, nil, err
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(key))
		if err != nil {
			return nil, nil, err
		}
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		return gemini.New(client, opts...), func() { _ = client.Close() }, nil
	case "openai":
		key, err := apiKey(cfg, "OPENAI_API_KEY")
		if err != nil {
			return nil, nil, err
		}
		var opts []openai.Option
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		return openai.New(openaiSDK.NewClient(key), opts...), noop, nil
	case "anthropic":
		key, err := apiKey(cfg, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, nil, err
		}
		var opts []anthropic.Option
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		return anthropic.New(anthropicSDK.NewClient(key), opts...), noop, nil
	case "cohere":
		key, err := apiKey(cfg, "CO_API_KEY")
		if err != nil {
			return nil, nil, err
		}
		var opts []cohere.Option
		if cfg.Model != "" {
			opts = append(opts, cohere.WithModel(cfg.Model))
		}
		return cohere.New(cohereSDK.NewClient(cohereSDK.WithToken(key)), opts...), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q (gemini, openai, anthropic, cohere)", cfg.Provider)
}

// apiKey resolves the key from config, falling back to the provider's
// conventional environment variable.
func apiKey(cfg *config.Config, envVar string) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key: set api_key in config, MARA_API_KEY or %s", envVar)
}
