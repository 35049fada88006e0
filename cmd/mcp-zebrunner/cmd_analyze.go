package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maksimsarychau/mcp-zebrunner/internal/analysis"
)

var analyzeFlags struct {
	runID         int
	testID        int
	projectKey    string
	projectID     int
	compare       bool
	mode          string
	failureWindow int
	frameInterval float64
	includeOCR    bool
	outputPath    string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the video analysis pipeline for one failed execution",
	Long: `Analyze the session recording of one failed test without going through
an MCP client. Prints the full analysis result as JSON.

Usage:
  mcp-zebrunner analyze --run-id 2409 --test-id 118213 --project DEMO
  mcp-zebrunner analyze --run-id 2409 --test-id 118213 --compare -o result.json

The Zebrunner base URL and token come from the config file or the
ZEBRUNNER_URL / ZEBRUNNER_TOKEN environment variables.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.IntVar(&analyzeFlags.runID, "run-id", 0, "Launch (test run) ID (required)")
	f.IntVar(&analyzeFlags.testID, "test-id", 0, "Test result ID inside the launch (required)")
	f.StringVar(&analyzeFlags.projectKey, "project", "", "Project key (default: configured project)")
	f.IntVar(&analyzeFlags.projectID, "project-id", 0, "Numeric project ID, alternative to --project")
	f.BoolVar(&analyzeFlags.compare, "compare", false, "Reconcile the execution against the referenced TCM test case")
	f.StringVar(&analyzeFlags.mode, "mode", "", "Frame sampling: failure_focused, full_test or smart (default: configured mode)")
	f.IntVar(&analyzeFlags.failureWindow, "failure-window", 0, "Seconds around the failure to sample")
	f.Float64Var(&analyzeFlags.frameInterval, "frame-interval", 0, "Seconds between sampled frames")
	f.BoolVar(&analyzeFlags.includeOCR, "ocr", false, "Run OCR on extracted frames")
	f.StringVarP(&analyzeFlags.outputPath, "output", "o", "", "Write the JSON result to a file instead of stdout")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeFlags.runID == 0 || analyzeFlags.testID == 0 {
		return fmt.Errorf("--run-id and --test-id are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer, _, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	req := analysis.Request{
		RunID:                analyzeFlags.runID,
		TestID:               analyzeFlags.testID,
		ProjectKey:           analyzeFlags.projectKey,
		ProjectID:            analyzeFlags.projectID,
		CompareTestCase:      analyzeFlags.compare,
		Mode:                 analysis.ExtractionMode(analyzeFlags.mode),
		FailureWindowSeconds: analyzeFlags.failureWindow,
		FrameInterval:        analyzeFlags.frameInterval,
		IncludeOCR:           analyzeFlags.includeOCR,
	}
	if req.ProjectKey == "" && req.ProjectID == 0 {
		req.ProjectKey = cfg.Zebrunner.ProjectKey
	}
	if req.Mode == "" {
		req.Mode = analysis.ExtractionMode(cfg.Video.Mode)
	}
	if req.FailureWindowSeconds <= 0 {
		req.FailureWindowSeconds = cfg.Video.FailureWindowSeconds
	}
	if req.FrameInterval <= 0 {
		req.FrameInterval = cfg.Video.FrameInterval
	}
	if !req.IncludeOCR {
		req.IncludeOCR = cfg.Video.IncludeOCR
	}

	result, err := analyzer.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if analyzeFlags.outputPath != "" {
		if err := os.WriteFile(analyzeFlags.outputPath, data, 0600); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Result written to: %s\n", analyzeFlags.outputPath)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
