package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportingService is the reporting/session side of the platform: launches,
// tests, sessions, logs and the base URL for deep links.
type ReportingService interface {
	GetTestRuns(ctx context.Context, runID, projectID, page, pageSize int) ([]TestRecord, error)
	GetVideoFromTestSessions(ctx context.Context, testID, runID, projectID int) (*TestSessionVideo, error)
	GetTestLogs(ctx context.Context, runID, testID, maxPageSize int) ([]LogEntry, error)
	GetProjectID(ctx context.Context, key string) (int, error)
	GetProjectKey(ctx context.Context, id int) (string, error)
	BaseURL() string
}

// VideoDownloader fetches one recording to local storage and removes it
// afterward.
type VideoDownloader interface {
	DownloadVideo(ctx context.Context, url string, testID int, sessionID string) (*DownloadResult, error)
	CleanupVideo(path string) error
}

// FrameExtractor samples and visually analyzes frames of a downloaded
// recording.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, req FrameRequest) ([]FrameAnalysis, error)
	CleanupFrames(frames []FrameAnalysis) error
}

// Request selects the execution to analyze and tunes the pipeline. Exactly
// one of ProjectKey/ProjectID must be set; the other is resolved.
type Request struct {
	RunID      int
	TestID     int
	ProjectKey string
	ProjectID  int

	CompareTestCase      bool
	Mode                 ExtractionMode
	FailureWindowSeconds int
	FrameInterval        float64
	IncludeOCR           bool
}

const (
	defaultFailureWindowSeconds = 10
	defaultFrameInterval        = 2.0
	logPageSize                 = 1000
	testPageSize                = 200
)

// Analyzer drives the end-to-end video analysis pipeline. All collaborators
// are injected; the analyzer itself holds no mutable state across runs.
type Analyzer struct {
	reporting  ReportingService
	testCases  TestCaseSource
	downloader VideoDownloader
	frames     FrameExtractor
	comparator *Comparator
	logger     *slog.Logger
}

// NewAnalyzer wires the pipeline from its collaborators.
func NewAnalyzer(reporting ReportingService, testCases TestCaseSource, downloader VideoDownloader, frames FrameExtractor, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		reporting:  reporting,
		testCases:  testCases,
		downloader: downloader,
		frames:     frames,
		comparator: NewComparator(testCases, logger),
		logger:     logger,
	}
}

// Analyze runs the pipeline for one failed execution. Callers receive
// either a complete result or a single error whose message starts with
// "Video analysis failed: "; there is no partial-result contract.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*VideoAnalysisResult, error) {
	result, err := a.run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Video analysis failed: %w", err)
	}
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, req Request) (*VideoAnalysisResult, error) {
	req = withDefaults(req)

	projectID, projectKey, err := a.resolveProject(ctx, req)
	if err != nil {
		return nil, err
	}

	test, err := a.findTest(ctx, req.RunID, req.TestID, projectID)
	if err != nil {
		return nil, err
	}

	video, err := a.reporting.GetVideoFromTestSessions(ctx, req.TestID, req.RunID, projectID)
	if err != nil {
		return nil, err
	}
	if video == nil || video.VideoURL == "" {
		return nil, errors.New("No video found for this test execution")
	}

	a.logger.Info("downloading session recording",
		"run", req.RunID, "test", req.TestID, "session", video.SessionID)
	download, err := a.downloader.DownloadVideo(ctx, video.VideoURL, req.TestID, video.SessionID)
	if err != nil {
		return nil, err
	}
	if !download.Success {
		msg := download.Error
		if msg == "" {
			msg = "video download failed"
		}
		return nil, errors.New(msg)
	}

	// From here the downloaded video is a scoped resource: it must be
	// removed on every exit path, exactly once.
	guard := newCleanupGuard(a.downloader, a.frames, download.LocalPath, a.logger)
	defer guard.Release()

	failureOffset := approximateFailureOffset(test, download.DurationSeconds)

	frames, err := a.frames.ExtractFrames(ctx, FrameRequest{
		VideoPath:            download.LocalPath,
		DurationSeconds:      download.DurationSeconds,
		Mode:                 req.Mode,
		FailureTimestamp:     failureOffset,
		FailureWindowSeconds: req.FailureWindowSeconds,
		FrameInterval:        req.FrameInterval,
		IncludeOCR:           req.IncludeOCR,
	})
	if err != nil {
		return nil, err
	}
	guard.SetFrames(frames)

	entries, err := a.reporting.GetTestLogs(ctx, req.RunID, req.TestID, logPageSize)
	if err != nil {
		return nil, err
	}
	logEntries := keepLogKind(entries)
	logSteps := ParseLogSteps(logEntries)

	failure := a.analyzeFailure(logEntries, frames, video, download, req)

	comparison := a.compareTestCase(ctx, req, projectKey, test, logSteps, frames, video, logEntries)

	var comparisonForPrediction *TestCaseComparison
	if comparison.Present() {
		comparisonForPrediction = comparison.Comparison
	}
	prediction := PredictIssueType(failure, comparisonForPrediction, frames, rawLogsText(logEntries))

	flow := buildExecutionFlow(logSteps, frames)

	metadata := VideoMetadata{
		VideoURL:        video.VideoURL,
		DurationSeconds: download.DurationSeconds,
		FrameCount:      len(frames),
		Resolution:      download.Resolution,
		LocalPath:       download.LocalPath,
		DownloadSuccess: true,
	}

	result := &VideoAnalysisResult{
		AnalysisID:         uuid.NewString(),
		Video:              metadata,
		Frames:             frames,
		ExecutionFlow:      flow,
		TestCaseComparison: comparison,
		FailureAnalysis:    failure,
		Prediction:         prediction,
		Links:              a.deepLinks(projectKey, req, test),
	}
	result.Summary = summarize(result, test)
	return result, nil
}

func withDefaults(req Request) Request {
	if req.Mode == "" {
		req.Mode = ModeFailureFocused
	}
	if req.FailureWindowSeconds <= 0 {
		req.FailureWindowSeconds = defaultFailureWindowSeconds
	}
	if req.FrameInterval <= 0 {
		req.FrameInterval = defaultFrameInterval
	}
	return req
}

// resolveProject derives the (id, key) pair from whichever side the caller
// supplied.
func (a *Analyzer) resolveProject(ctx context.Context, req Request) (int, string, error) {
	switch {
	case req.ProjectID != 0 && req.ProjectKey != "":
		return req.ProjectID, req.ProjectKey, nil
	case req.ProjectKey != "":
		id, err := a.reporting.GetProjectID(ctx, req.ProjectKey)
		if err != nil {
			return 0, "", err
		}
		return id, req.ProjectKey, nil
	case req.ProjectID != 0:
		key, err := a.reporting.GetProjectKey(ctx, req.ProjectID)
		if err != nil {
			return 0, "", err
		}
		return req.ProjectID, key, nil
	default:
		return 0, "", errors.New("either project key or project id is required")
	}
}

func (a *Analyzer) findTest(ctx context.Context, runID, testID, projectID int) (*TestRecord, error) {
	page := 1
	for {
		tests, err := a.reporting.GetTestRuns(ctx, runID, projectID, page, testPageSize)
		if err != nil {
			return nil, err
		}
		for i := range tests {
			if tests[i].ID == testID {
				return &tests[i], nil
			}
		}
		if len(tests) < testPageSize {
			return nil, fmt.Errorf("Test %d not found in launch %d", testID, runID)
		}
		page++
	}
}

// approximateFailureOffset estimates where in the recording the failure
// happened, from the test's own start/finish times. Unknown bounds yield
// nil and the extractor falls back to its mode default.
func approximateFailureOffset(test *TestRecord, duration float64) *float64 {
	if test.StartedAt == nil || test.FinishedAt == nil {
		return nil
	}
	offset := test.FinishedAt.Sub(*test.StartedAt).Seconds()
	if offset < 0 {
		return nil
	}
	if duration > 0 && offset > duration {
		offset = duration
	}
	return &offset
}

func keepLogKind(entries []LogEntry) []LogEntry {
	var logs []LogEntry
	for _, e := range entries {
		if e.Kind == "" || e.Kind == "log" {
			logs = append(logs, e)
		}
	}
	return logs
}

func rawLogsText(entries []LogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Message)
		b.WriteByte('\n')
	}
	return b.String()
}

// analyzeFailure picks the failure record from the log and classifies it.
func (a *Analyzer) analyzeFailure(entries []LogEntry, frames []FrameAnalysis, video *TestSessionVideo, download *DownloadResult, req Request) FailureAnalysis {
	entry := SelectFailureEntry(entries)
	if entry == nil {
		return FailureAnalysis{
			FailureType: FailureUnknown,
			RootCause: RootCause{
				Category:   CategoryUnknown,
				Confidence: 30,
				Reasoning:  "no log entries were recorded for this execution",
			},
		}
	}

	failure := FailureAnalysis{
		Timestamp:    entry.Timestamp,
		FailureType:  ClassifyFailureType(entry.Message),
		ErrorMessage: entry.Message,
		RootCause:    ClassifyRootCause(entry.Message),
	}

	if offset := videoOffsetFor(entry.Timestamp, video, download.DurationSeconds); offset != nil {
		failure.VideoOffset = offset
		failure.FailureFrames = FailureProximateFrames(frames, offset, float64(req.FailureWindowSeconds))
	}
	return failure
}

// videoOffsetFor maps a wall-clock moment onto seconds from video start,
// clamped to the video's duration.
func videoOffsetFor(at time.Time, video *TestSessionVideo, duration float64) *float64 {
	if video.StartedAt == nil || at.IsZero() {
		return nil
	}
	offset := at.Sub(*video.StartedAt).Seconds()
	if offset < 0 {
		offset = 0
	}
	if duration > 0 && offset > duration {
		offset = duration
	}
	return &offset
}

// compareTestCase runs the optional comparison stage. Any internal problem
// degrades to an unavailable outcome; it never fails the pipeline.
func (a *Analyzer) compareTestCase(ctx context.Context, req Request, projectKey string, test *TestRecord, logSteps []LogStep, frames []FrameAnalysis, video *TestSessionVideo, entries []LogEntry) ComparisonOutcome {
	if !req.CompareTestCase {
		return ComparisonOutcome{Status: ComparisonNotRequested}
	}
	if len(test.TestCaseKeys) == 0 {
		return ComparisonOutcome{
			Status: ComparisonUnavailable,
			Reason: "test record references no test case",
		}
	}

	videoTimestamps := buildVideoTimestamps(frames, video, entries)
	comparison := a.comparator.CompareWithTestCase(ctx, test.TestCaseKeys[0], projectKey, logSteps, videoTimestamps)
	if comparison == nil {
		return ComparisonOutcome{
			Status: ComparisonUnavailable,
			Reason: "test case could not be fetched or has no steps",
		}
	}
	return ComparisonOutcome{Status: ComparisonPresent, Comparison: comparison}
}

// buildVideoTimestamps projects frame offsets onto the wall clock so the
// comparator can attach frames to matched log entries. The video base is
// the session start when known, otherwise the first log entry.
func buildVideoTimestamps(frames []FrameAnalysis, video *TestSessionVideo, entries []LogEntry) []VideoTimestamp {
	var baseMS int64
	switch {
	case video.StartedAt != nil:
		baseMS = video.StartedAt.UnixMilli()
	case len(entries) > 0:
		baseMS = entries[0].Timestamp.UnixMilli()
	default:
		return nil
	}

	stamps := make([]VideoTimestamp, 0, len(frames))
	for _, f := range frames {
		stamps = append(stamps, VideoTimestamp{
			TimestampMS: baseMS + int64(f.Timestamp*1000),
			Action:      f.VisualState,
		})
	}
	return stamps
}

// buildExecutionFlow reconstructs the run. The log-to-frame correlation
// intentionally keeps the original nearest-neighbor behavior with no
// distance tolerance: as long as any frames exist, every log step links to
// some frame, however far away.
func buildExecutionFlow(logSteps []LogStep, frames []FrameAnalysis) ExecutionFlow {
	flow := ExecutionFlow{LogSteps: logSteps}

	prevState := ""
	for _, f := range frames {
		if f.VisualState != "" && f.VisualState != prevState {
			flow.VideoSteps = append(flow.VideoSteps, VideoStep{
				Timestamp:   f.Timestamp,
				Description: f.VisualState,
			})
			prevState = f.VisualState
		}
	}

	if len(frames) == 0 || len(logSteps) == 0 {
		return flow
	}

	baseMS := logSteps[0].Timestamp.UnixMilli()
	for _, step := range logSteps {
		relMS := step.Timestamp.UnixMilli() - baseMS
		best := 0
		bestDist := int64(-1)
		for i, f := range frames {
			d := absInt64(int64(f.Timestamp*1000) - relMS)
			if bestDist < 0 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		flow.Correlation = append(flow.Correlation, StepFrameLink{
			StepSequence:   step.Sequence,
			FrameSequence:  frames[best].Sequence,
			FrameTimestamp: frames[best].Timestamp,
		})
	}
	return flow
}

func (a *Analyzer) deepLinks(projectKey string, req Request, test *TestRecord) DeepLinks {
	base := strings.TrimSuffix(a.reporting.BaseURL(), "/")
	if base == "" {
		return DeepLinks{}
	}
	links := DeepLinks{
		Video: fmt.Sprintf("%s/projects/%s/test-runs/%d/tests/%d", base, projectKey, req.RunID, req.TestID),
		Test:  fmt.Sprintf("%s/projects/%s/test-runs/%d", base, projectKey, req.RunID),
	}
	if len(test.TestCaseKeys) > 0 {
		links.TestCase = fmt.Sprintf("%s/projects/%s/test-cases?caseKey=%s", base, projectKey, test.TestCaseKeys[0])
	}
	return links
}

func summarize(r *VideoAnalysisResult, test *TestRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Test %q failed with %s.", test.Name, r.FailureAnalysis.FailureType)
	fmt.Fprintf(&b, " Verdict: %s (%d%% confidence).", r.Prediction.Verdict, r.Prediction.Confidence)
	if r.TestCaseComparison.Present() {
		cov := r.TestCaseComparison.Comparison.Coverage
		fmt.Fprintf(&b, " Executed %d of %d authored steps (%d%% coverage).",
			cov.ExecutedSteps, cov.TotalSteps, cov.Percentage)
	}
	fmt.Fprintf(&b, " Analyzed %d frames of a %.0fs recording.",
		r.Video.FrameCount, r.Video.DurationSeconds)
	return b.String()
}
