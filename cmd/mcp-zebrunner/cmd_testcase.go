package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testCaseFlags struct {
	projectKey string
}

var testCaseCmd = &cobra.Command{
	Use:   "test-case <key>",
	Short: "Fetch an authored TCM test case by key",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestCase,
}

func init() {
	testCaseCmd.Flags().StringVar(&testCaseFlags.projectKey, "project", "", "Project key (default: configured project)")
}

func runTestCase(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, adapter, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	projectKey := testCaseFlags.projectKey
	if projectKey == "" {
		projectKey = cfg.Zebrunner.ProjectKey
	}
	tc, err := adapter.GetTestCaseByKey(cmd.Context(), projectKey, args[0])
	if err != nil {
		return err
	}
	if tc == nil {
		return fmt.Errorf("test case %s not found", args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", tc.Key, tc.Title)
	for i, step := range tc.Steps {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s\n", i+1, step)
	}
	return nil
}
