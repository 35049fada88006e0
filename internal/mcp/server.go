// Package mcp exposes the Zebrunner lookups and the video-analysis pipeline
// as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/semaphore"

	"github.com/maksimsarychau/mcp-zebrunner/internal/analysis"
	"github.com/maksimsarychau/mcp-zebrunner/internal/config"
	"github.com/maksimsarychau/mcp-zebrunner/internal/logging"
)

// VideoAnalyzer runs the analysis pipeline for one failed execution.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.VideoAnalysisResult, error)
}

// Lookups is the subset of platform reads exposed as standalone tools.
type Lookups interface {
	analysis.ReportingService
	analysis.TestCaseSource
}

// Server wraps the MCP SDK server around the analyzer and the platform
// lookups. A weighted semaphore bounds in-flight analyses: each run owns
// exclusive scratch storage and an ffmpeg process.
type Server struct {
	MCPServer *sdkmcp.Server

	analyzer VideoAnalyzer
	lookups  Lookups
	cfg      config.Config
	runs     *semaphore.Weighted
}

// NewServer creates an MCP server registering the analysis and lookup
// tools.
func NewServer(analyzer VideoAnalyzer, lookups Lookups, cfg config.Config) *Server {
	s := &Server{
		analyzer: analyzer,
		lookups:  lookups,
		cfg:      cfg,
		runs:     semaphore.NewWeighted(int64(cfg.Video.MaxConcurrentAnalyses)),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "mcp-zebrunner", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_test_execution_video",
		Description: "Download and analyze the session recording of a failed test: frame analysis around the failure, test-case step comparison, and a root-cause verdict with evidence and recommendations.",
	}, s.handleAnalyzeVideo)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_test_case",
		Description: "Fetch an authored TCM test case by key, with its steps flattened to text.",
	}, s.handleGetTestCase)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_launch_tests",
		Description: "List the test results of one launch (test run), including status and referenced test cases.",
	}, s.handleListLaunchTests)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_test_logs",
		Description: "Fetch the execution log entries of one test in a launch.",
	}, s.handleGetTestLogs)
}

// --- Tool input/output types ---

type analyzeVideoInput struct {
	RunID             int     `json:"run_id" jsonschema:"launch (test run) ID"`
	TestID            int     `json:"test_id" jsonschema:"test result ID inside the launch"`
	ProjectKey        string  `json:"project_key,omitempty" jsonschema:"project key; defaults to the configured project"`
	ProjectID         int     `json:"project_id,omitempty" jsonschema:"numeric project ID, alternative to project_key"`
	CompareTestCase   bool    `json:"compare_test_case,omitempty" jsonschema:"reconcile the execution against the referenced TCM test case"`
	ExtractionMode    string  `json:"extraction_mode,omitempty" jsonschema:"frame sampling: failure_focused, full_test or smart"`
	FailureWindowSecs int     `json:"failure_window_seconds,omitempty" jsonschema:"seconds around the failure to sample"`
	FrameInterval     float64 `json:"frame_interval,omitempty" jsonschema:"seconds between sampled frames"`
	IncludeOCR        bool    `json:"include_ocr,omitempty" jsonschema:"run OCR on extracted frames"`
}

type analyzeVideoOutput struct {
	Result *analysis.VideoAnalysisResult `json:"result"`
}

type getTestCaseInput struct {
	ProjectKey string `json:"project_key,omitempty" jsonschema:"project key; defaults to the configured project"`
	Key        string `json:"key" jsonschema:"test case key, e.g. DEMO-123"`
}

type getTestCaseOutput struct {
	Found    bool               `json:"found"`
	TestCase *analysis.TestCase `json:"test_case,omitempty"`
}

type listLaunchTestsInput struct {
	RunID      int    `json:"run_id" jsonschema:"launch (test run) ID"`
	ProjectKey string `json:"project_key,omitempty" jsonschema:"project key; defaults to the configured project"`
	Page       int    `json:"page,omitempty" jsonschema:"1-based page number"`
	PageSize   int    `json:"page_size,omitempty" jsonschema:"page size (default 50)"`
}

type listLaunchTestsOutput struct {
	Tests []analysis.TestRecord `json:"tests"`
}

type getTestLogsInput struct {
	RunID    int `json:"run_id" jsonschema:"launch (test run) ID"`
	TestID   int `json:"test_id" jsonschema:"test result ID inside the launch"`
	MaxItems int `json:"max_items,omitempty" jsonschema:"cap on returned entries (default 1000)"`
}

type getTestLogsOutput struct {
	Entries []analysis.LogEntry `json:"entries"`
}

// --- Tool handlers ---

func (s *Server) handleAnalyzeVideo(ctx context.Context, _ *sdkmcp.CallToolRequest, input analyzeVideoInput) (*sdkmcp.CallToolResult, analyzeVideoOutput, error) {
	logger := logging.New("mcp-analyze")

	if err := s.runs.Acquire(ctx, 1); err != nil {
		return nil, analyzeVideoOutput{}, fmt.Errorf("acquire analysis slot: %w", err)
	}
	defer s.runs.Release(1)

	req := analysis.Request{
		RunID:                input.RunID,
		TestID:               input.TestID,
		ProjectKey:           input.ProjectKey,
		ProjectID:            input.ProjectID,
		CompareTestCase:      input.CompareTestCase,
		Mode:                 analysis.ExtractionMode(input.ExtractionMode),
		FailureWindowSeconds: input.FailureWindowSecs,
		FrameInterval:        input.FrameInterval,
		IncludeOCR:           input.IncludeOCR,
	}
	applyRequestDefaults(&req, s.cfg)

	logger.Info("starting video analysis", "run", req.RunID, "test", req.TestID)
	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		logger.Warn("video analysis failed", "run", req.RunID, "test", req.TestID, "error", err)
		return nil, analyzeVideoOutput{}, err
	}
	return nil, analyzeVideoOutput{Result: result}, nil
}

func (s *Server) handleGetTestCase(ctx context.Context, _ *sdkmcp.CallToolRequest, input getTestCaseInput) (*sdkmcp.CallToolResult, getTestCaseOutput, error) {
	projectKey := input.ProjectKey
	if projectKey == "" {
		projectKey = s.cfg.Zebrunner.ProjectKey
	}
	if input.Key == "" {
		return nil, getTestCaseOutput{}, fmt.Errorf("key is required")
	}
	tc, err := s.lookups.GetTestCaseByKey(ctx, projectKey, input.Key)
	if err != nil {
		return nil, getTestCaseOutput{}, err
	}
	return nil, getTestCaseOutput{Found: tc != nil, TestCase: tc}, nil
}

func (s *Server) handleListLaunchTests(ctx context.Context, _ *sdkmcp.CallToolRequest, input listLaunchTestsInput) (*sdkmcp.CallToolResult, listLaunchTestsOutput, error) {
	projectID, err := s.resolveProjectID(ctx, input.ProjectKey)
	if err != nil {
		return nil, listLaunchTestsOutput{}, err
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	tests, err := s.lookups.GetTestRuns(ctx, input.RunID, projectID, page, pageSize)
	if err != nil {
		return nil, listLaunchTestsOutput{}, err
	}
	return nil, listLaunchTestsOutput{Tests: tests}, nil
}

func (s *Server) handleGetTestLogs(ctx context.Context, _ *sdkmcp.CallToolRequest, input getTestLogsInput) (*sdkmcp.CallToolResult, getTestLogsOutput, error) {
	maxItems := input.MaxItems
	if maxItems <= 0 || maxItems > 1000 {
		maxItems = 1000
	}
	entries, err := s.lookups.GetTestLogs(ctx, input.RunID, input.TestID, maxItems)
	if err != nil {
		return nil, getTestLogsOutput{}, err
	}
	return nil, getTestLogsOutput{Entries: entries}, nil
}

func (s *Server) resolveProjectID(ctx context.Context, projectKey string) (int, error) {
	if projectKey == "" {
		projectKey = s.cfg.Zebrunner.ProjectKey
	}
	if projectKey == "" {
		return 0, fmt.Errorf("project_key is required (no default project configured)")
	}
	return s.lookups.GetProjectID(ctx, projectKey)
}

// applyRequestDefaults fills request fields the caller left empty from the
// server configuration.
func applyRequestDefaults(req *analysis.Request, cfg config.Config) {
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
}
