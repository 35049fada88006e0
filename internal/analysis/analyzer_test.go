package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// --- fakes ---

type fakeReporting struct {
	tests    []TestRecord
	video    *TestSessionVideo
	videoErr error
	logs     []LogEntry
	baseURL  string
}

func (f *fakeReporting) GetTestRuns(_ context.Context, _, _, page, _ int) ([]TestRecord, error) {
	if page > 1 {
		return nil, nil
	}
	return f.tests, nil
}

func (f *fakeReporting) GetVideoFromTestSessions(_ context.Context, _, _, _ int) (*TestSessionVideo, error) {
	return f.video, f.videoErr
}

func (f *fakeReporting) GetTestLogs(_ context.Context, _, _, _ int) ([]LogEntry, error) {
	return f.logs, nil
}

func (f *fakeReporting) GetProjectID(_ context.Context, _ string) (int, error) { return 7, nil }

func (f *fakeReporting) GetProjectKey(_ context.Context, _ int) (string, error) { return "DEMO", nil }

func (f *fakeReporting) BaseURL() string { return f.baseURL }

type fakeDownloader struct {
	result       *DownloadResult
	err          error
	cleanupCalls int
	cleanupPaths []string
}

func (f *fakeDownloader) DownloadVideo(_ context.Context, _ string, _ int, _ string) (*DownloadResult, error) {
	return f.result, f.err
}

func (f *fakeDownloader) CleanupVideo(path string) error {
	f.cleanupCalls++
	f.cleanupPaths = append(f.cleanupPaths, path)
	return nil
}

type fakeExtractor struct {
	frames       []FrameAnalysis
	err          error
	cleanupCalls int
}

func (f *fakeExtractor) ExtractFrames(_ context.Context, _ FrameRequest) ([]FrameAnalysis, error) {
	return f.frames, f.err
}

func (f *fakeExtractor) CleanupFrames(_ []FrameAnalysis) error {
	f.cleanupCalls++
	return nil
}

// --- fixtures ---

var testStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func loginScenario() (*fakeReporting, *fakeTestCaseSource, *fakeDownloader, *fakeExtractor) {
	finish := testStart.Add(80 * time.Second)
	reporting := &fakeReporting{
		tests: []TestRecord{{
			ID:           42,
			Name:         "login test",
			Status:       "FAILED",
			TestCaseKeys: []string{"DEMO-1"},
			StartedAt:    &testStart,
			FinishedAt:   &finish,
		}},
		video: &TestSessionVideo{
			SessionID: "sess-1",
			VideoURL:  "https://cdn.example.com/sess-1.mp4",
			StartedAt: &testStart,
		},
		logs: []LogEntry{
			{Timestamp: testStart.Add(1 * time.Second), Level: "INFO", Message: "open app", Kind: "log"},
			{Timestamp: testStart.Add(20 * time.Second), Level: "INFO", Message: "enter credentials", Kind: "log"},
			{Timestamp: testStart.Add(40 * time.Second), Level: "INFO", Message: "click login", Kind: "log"},
			{Timestamp: testStart.Add(60 * time.Second), Level: "ERROR", Message: "assert welcome banner", Kind: "log"},
		},
		baseURL: "https://zebrunner.example.com",
	}
	testCases := &fakeTestCaseSource{testCase: &TestCase{
		Key:   "DEMO-1",
		Title: "Login flow",
		Steps: []string{"open app", "enter credentials", "click login"},
	}}
	downloader := &fakeDownloader{result: &DownloadResult{
		Success:         true,
		LocalPath:       "/tmp/run/video.mp4",
		DurationSeconds: 80,
	}}
	extractor := &fakeExtractor{frames: []FrameAnalysis{
		{Sequence: 1, Timestamp: 5, VisualState: "home screen"},
		{Sequence: 2, Timestamp: 45, VisualState: "login screen"},
		{Sequence: 3, Timestamp: 62, VisualState: "error banner"},
	}}
	return reporting, testCases, downloader, extractor
}

func newTestAnalyzer(r *fakeReporting, tc *fakeTestCaseSource, d *fakeDownloader, e *fakeExtractor) *Analyzer {
	return NewAnalyzer(r, tc, d, e, discardLogger())
}

// --- tests ---

func TestAnalyze_FullMatchWithExtraStep(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	result, err := a.Analyze(context.Background(), Request{
		RunID: 100, TestID: 42, ProjectKey: "DEMO", CompareTestCase: true,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !result.TestCaseComparison.Present() {
		t.Fatalf("expected a present comparison, got %+v", result.TestCaseComparison)
	}
	cov := result.TestCaseComparison.Comparison.Coverage
	if cov.Percentage != 100 {
		t.Errorf("coverage = %d, want 100", cov.Percentage)
	}
	if len(cov.ExtraSteps) != 1 {
		t.Errorf("extra steps = %v, want one", cov.ExtraSteps)
	}
	if result.FailureAnalysis.FailureType != FailureAssertion {
		t.Errorf("failure type = %s, want %s", result.FailureAnalysis.FailureType, FailureAssertion)
	}
	// assertion keyword +15, classifier test_issue 60*0.3 = 18: test 33 > 30.
	if result.Prediction.Verdict != VerdictTestNeedsUpdate {
		t.Errorf("verdict = %s, want %s", result.Prediction.Verdict, VerdictTestNeedsUpdate)
	}
	if downloader.cleanupCalls != 1 {
		t.Errorf("cleanupVideo called %d times, want exactly 1", downloader.cleanupCalls)
	}
	if result.Summary == "" || result.Links.Test == "" || result.Links.TestCase == "" {
		t.Errorf("incomplete report: summary=%q links=%+v", result.Summary, result.Links)
	}
}

func TestAnalyze_NoTestCaseReference(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	reporting.tests[0].TestCaseKeys = nil
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	result, err := a.Analyze(context.Background(), Request{
		RunID: 100, TestID: 42, ProjectKey: "DEMO", CompareTestCase: true,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.TestCaseComparison.Present() {
		t.Errorf("expected no comparison, got %+v", result.TestCaseComparison)
	}
	if result.TestCaseComparison.Comparison != nil {
		t.Errorf("comparison must be nil when not present")
	}
	if testCases.calls != 0 {
		t.Errorf("TCM must not be queried without a test case reference")
	}
}

func TestAnalyze_NoVideo(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	reporting.video = nil
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	_, err := a.Analyze(context.Background(), Request{RunID: 100, TestID: 42, ProjectKey: "DEMO"})
	if err == nil {
		t.Fatal("expected an error")
	}
	want := "Video analysis failed: No video found for this test execution"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if downloader.cleanupCalls != 0 {
		t.Errorf("no download happened, cleanup must not run")
	}
}

func TestAnalyze_TestNotFound(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	_, err := a.Analyze(context.Background(), Request{RunID: 100, TestID: 999, ProjectKey: "DEMO"})
	if err == nil {
		t.Fatal("expected an error")
	}
	want := "Video analysis failed: Test 999 not found in launch 100"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestAnalyze_DownloadFailure(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	downloader.result = &DownloadResult{Success: false, Error: "HTTP 403 from CDN"}
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	_, err := a.Analyze(context.Background(), Request{RunID: 100, TestID: 42, ProjectKey: "DEMO"})
	if err == nil || !strings.Contains(err.Error(), "HTTP 403 from CDN") {
		t.Errorf("expected the collaborator's error, got %v", err)
	}
	if downloader.cleanupCalls != 0 {
		t.Errorf("failed download must not be cleaned up")
	}
}

func TestAnalyze_CleanupRunsWhenExtractionFails(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	extractor.err = errors.New("ffmpeg exited with status 1")
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	_, err := a.Analyze(context.Background(), Request{RunID: 100, TestID: 42, ProjectKey: "DEMO"})
	if err == nil || !strings.HasPrefix(err.Error(), "Video analysis failed: ") {
		t.Fatalf("expected wrapped pipeline error, got %v", err)
	}
	if downloader.cleanupCalls != 1 {
		t.Errorf("cleanupVideo called %d times, want exactly 1", downloader.cleanupCalls)
	}
	if len(downloader.cleanupPaths) != 1 || downloader.cleanupPaths[0] != "/tmp/run/video.mp4" {
		t.Errorf("unexpected cleanup paths: %v", downloader.cleanupPaths)
	}
}

func TestAnalyze_ComparisonFailureDoesNotAbort(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	testCases.err = errors.New("TCM unavailable")
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	result, err := a.Analyze(context.Background(), Request{
		RunID: 100, TestID: 42, ProjectKey: "DEMO", CompareTestCase: true,
	})
	if err != nil {
		t.Fatalf("comparison failure must not fail the pipeline: %v", err)
	}
	if result.TestCaseComparison.Status != ComparisonUnavailable {
		t.Errorf("status = %s, want %s", result.TestCaseComparison.Status, ComparisonUnavailable)
	}
	if result.TestCaseComparison.Reason == "" {
		t.Error("unavailable outcome must carry a reason")
	}
}

func TestAnalyze_NotRequestedComparison(t *testing.T) {
	reporting, testCases, downloader, extractor := loginScenario()
	a := newTestAnalyzer(reporting, testCases, downloader, extractor)

	result, err := a.Analyze(context.Background(), Request{RunID: 100, TestID: 42, ProjectKey: "DEMO"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.TestCaseComparison.Status != ComparisonNotRequested {
		t.Errorf("status = %s, want %s", result.TestCaseComparison.Status, ComparisonNotRequested)
	}
}

func TestBuildExecutionFlow_AlwaysPicksSomeFrame(t *testing.T) {
	steps := []LogStep{
		{Sequence: 1, Timestamp: testStart},
		{Sequence: 2, Timestamp: testStart.Add(10 * time.Minute)},
	}
	frames := []FrameAnalysis{
		{Sequence: 1, Timestamp: 2, VisualState: "a"},
		{Sequence: 2, Timestamp: 4, VisualState: "b"},
	}

	flow := buildExecutionFlow(steps, frames)
	if len(flow.Correlation) != 2 {
		t.Fatalf("correlation rows = %d, want 2", len(flow.Correlation))
	}
	// The second step is minutes past the last frame but still links to the
	// nearest one: the correlation has no distance tolerance.
	if flow.Correlation[1].FrameSequence != 2 {
		t.Errorf("far step linked to frame %d, want nearest frame 2", flow.Correlation[1].FrameSequence)
	}
	if len(flow.VideoSteps) != 2 {
		t.Errorf("video steps = %+v, want one per visual-state change", flow.VideoSteps)
	}
}

func TestBuildExecutionFlow_NoFrames(t *testing.T) {
	steps := []LogStep{{Sequence: 1, Timestamp: testStart}}
	flow := buildExecutionFlow(steps, nil)
	if len(flow.Correlation) != 0 {
		t.Errorf("expected no correlation without frames, got %+v", flow.Correlation)
	}
}
