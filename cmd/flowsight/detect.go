package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flowsight/internal/cluster"
	"github.com/fyrsmithlabs/flowsight/internal/config"
	"github.com/fyrsmithlabs/flowsight/internal/engine"
	"github.com/fyrsmithlabs/flowsight/internal/interpret"
	"github.com/fyrsmithlabs/flowsight/internal/logging"
	"github.com/fyrsmithlabs/flowsight/internal/pattern"
	"github.com/fyrsmithlabs/flowsight/internal/workflow"
)

var (
	detectInput   string
	detectOutput  string
	detectConfig  string
	detectOrgFile string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect recurring patterns in a workflow export",
	Long: `Detect reads a JSON array of workflow records, clusters similar
workflows, and writes the detected patterns and insights as JSON.

Examples:
  # Analyze an export with defaults (no collaborator; fallback patterns only)
  flowsight detect -i workflows.json

  # With a config file and organization context
  flowsight detect -i workflows.json -c flowsight.yaml --org org.json -o patterns.json

  # Collaborator via environment
  FLOWSIGHT_LLM_PROVIDER=anthropic FLOWSIGHT_LLM_API_KEY=... flowsight detect -i workflows.json`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectInput, "input", "i", "", "JSON file with an array of workflow records (required)")
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "", "output file for the detection result (default stdout)")
	detectCmd.Flags().StringVarP(&detectConfig, "config", "c", "", "YAML config file")
	detectCmd.Flags().StringVar(&detectOrgFile, "org", "", "JSON file with organization context")
	_ = detectCmd.MarkFlagRequired("input")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(detectConfig)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is unactionable

	workflows, err := readWorkflows(detectInput)
	if err != nil {
		return err
	}

	var org pattern.OrgContext
	if detectOrgFile != "" {
		if err := readJSONFile(detectOrgFile, &org); err != nil {
			return fmt.Errorf("reading org context: %w", err)
		}
	}

	client, err := interpret.NewLLMClient(interpret.Config{
		Provider:   cfg.LLM.Provider,
		APIKey:     cfg.LLM.APIKey.Value(),
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout.Duration(),
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		return err
	}

	var interpOpts []interpret.InterpreterOption
	if cfg.LLM.Timeout > 0 {
		interpOpts = append(interpOpts, interpret.WithCallTimeout(cfg.LLM.Timeout.Duration()))
	}
	interp, err := interpret.NewInterpreter(client, logger, interpOpts...)
	if err != nil {
		return err
	}

	detector, err := engine.NewDetector(interp, engine.Options{
		SimilarityThreshold: cfg.Engine.SimilarityThreshold,
		MinPatternSize:      cfg.Engine.MinPatternSize,
		ConfidenceThreshold: cfg.Engine.ConfidenceThreshold,
	}, logger, detectorOptions(cfg)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := detector.DetectPatterns(ctx, workflows, org)
	if err != nil {
		return err
	}

	logger.Info("detection finished",
		zap.Int("patterns", len(result.Patterns)),
		zap.Int("insights", len(result.Insights)))

	return writeResult(detectOutput, result)
}

// detectorOptions maps config onto detector options. A positive cache TTL
// attaches a per-organization result cache.
func detectorOptions(cfg *config.Config) []engine.DetectorOption {
	opts := []engine.DetectorOption{
		engine.WithSeverityPolicy(cluster.ThresholdPolicy{
			MaxAverageDays: cfg.Engine.BottleneckMaxAvgDays,
			MaxVariance:    cfg.Engine.BottleneckMaxVariance,
		}),
	}
	if cfg.Engine.CacheTTL > 0 {
		opts = append(opts, engine.WithCache(engine.NewCache(cfg.Engine.CacheTTL.Duration())))
	}
	return opts
}

func readWorkflows(path string) ([]workflow.Record, error) {
	var workflows []workflow.Record
	if err := readJSONFile(path, &workflows); err != nil {
		return nil, fmt.Errorf("reading workflows: %w", err)
	}
	return workflows, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeResult(path string, result *engine.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
