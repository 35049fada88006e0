package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/maksimsarychau/mcp-zebrunner/internal/analysis"
	"github.com/maksimsarychau/mcp-zebrunner/internal/config"
)

type fakeAnalyzer struct {
	lastReq analysis.Request
	result  *analysis.VideoAnalysisResult
	err     error
	delay   time.Duration
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*analysis.VideoAnalysisResult, error) {
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

type fakeLookups struct {
	projectIDs map[string]int
	testCase   *analysis.TestCase
	tests      []analysis.TestRecord
	logs       []analysis.LogEntry

	lastLogsMax  int
	lastPage     int
	lastPageSize int
}

func (f *fakeLookups) GetTestRuns(_ context.Context, runID, projectID, page, pageSize int) ([]analysis.TestRecord, error) {
	f.lastPage = page
	f.lastPageSize = pageSize
	return f.tests, nil
}

func (f *fakeLookups) GetVideoFromTestSessions(context.Context, int, int, int) (*analysis.TestSessionVideo, error) {
	return nil, nil
}

func (f *fakeLookups) GetTestLogs(_ context.Context, _, _ int, maxPageSize int) ([]analysis.LogEntry, error) {
	f.lastLogsMax = maxPageSize
	return f.logs, nil
}

func (f *fakeLookups) GetProjectID(_ context.Context, key string) (int, error) {
	return f.projectIDs[key], nil
}

func (f *fakeLookups) GetProjectKey(context.Context, int) (string, error) { return "", nil }

func (f *fakeLookups) BaseURL() string { return "https://demo.zebrunner.example" }

func (f *fakeLookups) GetTestCaseByKey(_ context.Context, _, key string) (*analysis.TestCase, error) {
	if f.testCase != nil && f.testCase.Key == key {
		return f.testCase, nil
	}
	return nil, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Zebrunner.BaseURL = "https://demo.zebrunner.example"
	cfg.Zebrunner.AccessToken = "token"
	cfg.Zebrunner.ProjectKey = "DEMO"
	return cfg
}

func TestHandleAnalyzeVideo_AppliesConfigDefaults(t *testing.T) {
	an := &fakeAnalyzer{result: &analysis.VideoAnalysisResult{AnalysisID: "a-1"}}
	srv := NewServer(an, &fakeLookups{}, testConfig())

	_, out, err := srv.handleAnalyzeVideo(context.Background(), nil, analyzeVideoInput{
		RunID:  2409,
		TestID: 118213,
	})
	if err != nil {
		t.Fatalf("handleAnalyzeVideo: %v", err)
	}
	if out.Result == nil || out.Result.AnalysisID != "a-1" {
		t.Fatalf("unexpected output: %+v", out)
	}

	want := analysis.Request{
		RunID:                2409,
		TestID:               118213,
		ProjectKey:           "DEMO",
		Mode:                 analysis.ModeFailureFocused,
		FailureWindowSeconds: 10,
		FrameInterval:        2,
	}
	if diff := cmp.Diff(want, an.lastReq); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleAnalyzeVideo_ExplicitFieldsWin(t *testing.T) {
	an := &fakeAnalyzer{result: &analysis.VideoAnalysisResult{}}
	srv := NewServer(an, &fakeLookups{}, testConfig())

	_, _, err := srv.handleAnalyzeVideo(context.Background(), nil, analyzeVideoInput{
		RunID:             1,
		TestID:            2,
		ProjectID:         77,
		ExtractionMode:    "smart",
		FailureWindowSecs: 30,
		FrameInterval:     0.5,
		IncludeOCR:        true,
	})
	if err != nil {
		t.Fatalf("handleAnalyzeVideo: %v", err)
	}
	if an.lastReq.ProjectKey != "" {
		t.Errorf("project key should stay empty when an ID is given, got %q", an.lastReq.ProjectKey)
	}
	if an.lastReq.Mode != analysis.ModeSmart || an.lastReq.FailureWindowSeconds != 30 || an.lastReq.FrameInterval != 0.5 || !an.lastReq.IncludeOCR {
		t.Errorf("explicit tuning not honored: %+v", an.lastReq)
	}
}

func TestHandleAnalyzeVideo_BoundedConcurrency(t *testing.T) {
	cfg := testConfig()
	cfg.Video.MaxConcurrentAnalyses = 1
	srv := NewServer(&fakeAnalyzer{result: &analysis.VideoAnalysisResult{}}, &fakeLookups{}, cfg)

	// Hold the only slot, then try to start another analysis with a
	// canceled context: Acquire must give up instead of queueing forever.
	if err := srv.runs.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer srv.runs.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := srv.handleAnalyzeVideo(ctx, nil, analyzeVideoInput{RunID: 1, TestID: 2})
	if err == nil {
		t.Fatal("expected an error when no analysis slot is available")
	}
}

func TestHandleGetTestCase(t *testing.T) {
	lookups := &fakeLookups{testCase: &analysis.TestCase{Key: "DEMO-1", Title: "Login"}}
	srv := NewServer(&fakeAnalyzer{}, lookups, testConfig())

	_, out, err := srv.handleGetTestCase(context.Background(), nil, getTestCaseInput{Key: "DEMO-1"})
	if err != nil {
		t.Fatalf("handleGetTestCase: %v", err)
	}
	if !out.Found || out.TestCase.Title != "Login" {
		t.Errorf("unexpected output: %+v", out)
	}

	_, out, err = srv.handleGetTestCase(context.Background(), nil, getTestCaseInput{Key: "DEMO-404"})
	if err != nil {
		t.Fatalf("handleGetTestCase: %v", err)
	}
	if out.Found || out.TestCase != nil {
		t.Errorf("expected not found, got: %+v", out)
	}

	if _, _, err := srv.handleGetTestCase(context.Background(), nil, getTestCaseInput{}); err == nil {
		t.Error("expected an error for a missing key")
	}
}

func TestHandleListLaunchTests_Defaults(t *testing.T) {
	lookups := &fakeLookups{
		projectIDs: map[string]int{"DEMO": 7},
		tests:      []analysis.TestRecord{{ID: 1, Name: "login test", Status: "FAILED"}},
	}
	srv := NewServer(&fakeAnalyzer{}, lookups, testConfig())

	_, out, err := srv.handleListLaunchTests(context.Background(), nil, listLaunchTestsInput{RunID: 2409})
	if err != nil {
		t.Fatalf("handleListLaunchTests: %v", err)
	}
	if len(out.Tests) != 1 || out.Tests[0].Name != "login test" {
		t.Errorf("unexpected tests: %+v", out.Tests)
	}
	if lookups.lastPage != 1 || lookups.lastPageSize != 50 {
		t.Errorf("expected default page 1 size 50, got page %d size %d", lookups.lastPage, lookups.lastPageSize)
	}
}

func TestHandleListLaunchTests_NoProject(t *testing.T) {
	cfg := testConfig()
	cfg.Zebrunner.ProjectKey = ""
	srv := NewServer(&fakeAnalyzer{}, &fakeLookups{}, cfg)

	if _, _, err := srv.handleListLaunchTests(context.Background(), nil, listLaunchTestsInput{RunID: 1}); err == nil {
		t.Error("expected an error when no project key is configured or given")
	}
}

func TestHandleGetTestLogs_CapsMaxItems(t *testing.T) {
	lookups := &fakeLookups{logs: []analysis.LogEntry{{Message: "hello"}}}
	srv := NewServer(&fakeAnalyzer{}, lookups, testConfig())

	for _, in := range []int{0, 5000} {
		if _, _, err := srv.handleGetTestLogs(context.Background(), nil, getTestLogsInput{RunID: 1, TestID: 2, MaxItems: in}); err != nil {
			t.Fatalf("handleGetTestLogs(%d): %v", in, err)
		}
		if lookups.lastLogsMax != 1000 {
			t.Errorf("MaxItems %d: expected cap 1000, got %d", in, lookups.lastLogsMax)
		}
	}

	if _, _, err := srv.handleGetTestLogs(context.Background(), nil, getTestLogsInput{RunID: 1, TestID: 2, MaxItems: 200}); err != nil {
		t.Fatalf("handleGetTestLogs: %v", err)
	}
	if lookups.lastLogsMax != 200 {
		t.Errorf("expected 200 to pass through, got %d", lookups.lastLogsMax)
	}
}
