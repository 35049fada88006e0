package analysis

import "time"

// FailureType labels the broad class of a test failure, derived from a
// keyword scan of the failure record.
type FailureType string

const (
	FailureElementNotFound FailureType = "ElementNotFound"
	FailureTimeout         FailureType = "Timeout"
	FailureAssertion       FailureType = "Assertion"
	FailureCrash           FailureType = "Crash"
	FailureNetworkError    FailureType = "NetworkError"
	FailureUnknown         FailureType = "Unknown"
)

// Verdict is the final root-cause classification of a failed execution.
type Verdict string

const (
	VerdictBug             Verdict = "bug"
	VerdictTestNeedsUpdate Verdict = "test_needs_update"
	VerdictInfrastructure  Verdict = "infrastructure_issue"
	VerdictDataIssue       Verdict = "data_issue"
	VerdictUnclear         Verdict = "unclear"
)

// RootCauseCategory is the coarse category assigned by the independent
// failure classifier. It feeds the prediction engine as one input among many.
type RootCauseCategory string

const (
	CategoryAppBug      RootCauseCategory = "app_bug"
	CategoryTestIssue   RootCauseCategory = "test_issue"
	CategoryEnvironment RootCauseCategory = "environment_issue"
	CategoryDataIssue   RootCauseCategory = "data_issue"
	CategoryUnknown     RootCauseCategory = "unknown"
)

// ExtractionMode selects which parts of the recording the frame extractor
// samples.
type ExtractionMode string

const (
	ModeFailureFocused ExtractionMode = "failure_focused"
	ModeFullTest       ExtractionMode = "full_test"
	ModeSmart          ExtractionMode = "smart"
)

// TestSessionVideo identifies one recorded device/browser session for a
// single test. Produced by the reporting collaborator; read-only to the
// pipeline.
type TestSessionVideo struct {
	SessionID    string     `json:"sessionId"`
	VideoURL     string     `json:"videoUrl"`
	ProjectID    int        `json:"projectId"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	PlatformName string     `json:"platformName,omitempty"`
	DeviceName   string     `json:"deviceName,omitempty"`
	Status       string     `json:"status,omitempty"`
}

// VideoMetadata describes one downloaded recording. The local path is a
// scoped resource owned by the orchestrator and removed at the end of the
// run regardless of outcome.
type VideoMetadata struct {
	VideoURL        string  `json:"videoUrl"`
	DurationSeconds float64 `json:"durationSeconds"`
	FrameCount      int     `json:"frameCount"`
	Resolution      string  `json:"resolution,omitempty"`
	LocalPath       string  `json:"localPath,omitempty"`
	DownloadSuccess bool    `json:"downloadSuccess"`
	ExtractionError string  `json:"extractionError,omitempty"`
}

// FrameAnalysis is one sampled video frame with whatever visual signal the
// extractor could derive from it.
type FrameAnalysis struct {
	// Timestamp is seconds from video start.
	Timestamp   float64  `json:"timestamp"`
	Sequence    int      `json:"sequence"`
	FilePath    string   `json:"filePath,omitempty"`
	OCRText     string   `json:"ocrText,omitempty"`
	VisualState string   `json:"visualState,omitempty"`
	UIElements  []string `json:"uiElements,omitempty"`
	AppState    string   `json:"appState,omitempty"`
	Anomalies   []string `json:"anomalies,omitempty"`
}

// LogEntry is one raw log or screenshot item fetched for a test execution.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
}

// LogStep is one execution-log entry recognized as a test action.
type LogStep struct {
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Level     string    `json:"level"`
}

// TestCaseStep is one authored step of a TCM test case.
type TestCaseStep struct {
	Number         int    `json:"number"`
	Action         string `json:"action"`
	ExpectedResult string `json:"expectedResult,omitempty"`
}

// TestCase is the authored test case as seen by the comparator: flattened
// raw step texts plus a title.
type TestCase struct {
	Key   string   `json:"key"`
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

// VideoTimestamp links a moment of the recording (absolute wall-clock
// milliseconds) to an observed action, for attaching frames to matched
// steps during comparison.
type VideoTimestamp struct {
	TimestampMS int64  `json:"timestampMs"`
	Action      string `json:"action,omitempty"`
}

// StepCoverage summarizes how much of the authored test case the recorded
// execution covered.
type StepCoverage struct {
	TotalSteps    int   `json:"totalSteps"`
	ExecutedSteps int   `json:"executedSteps"`
	SkippedSteps  []int `json:"skippedSteps,omitempty"`
	ExtraSteps    []int `json:"extraSteps,omitempty"`
	Percentage    int   `json:"percentage"`
}

// StepComparison pairs one authored step with its best-matching executed
// step, or records that it was never executed.
type StepComparison struct {
	StepNumber       int    `json:"stepNumber"`
	ExpectedAction   string `json:"expectedAction"`
	ExpectedResult   string `json:"expectedResult,omitempty"`
	ActualExecution  string `json:"actualExecution"`
	Matched          bool   `json:"matched"`
	Deviation        string `json:"deviation,omitempty"`
	FrameTimestampMS *int64 `json:"frameTimestampMs,omitempty"`
}

// TestCaseComparison aggregates the parsed expected steps, the coverage
// summary and the step-by-step report. Computed once per analysis and
// immutable afterward.
type TestCaseComparison struct {
	TestCaseKey     string           `json:"testCaseKey"`
	Title           string           `json:"title,omitempty"`
	Steps           []TestCaseStep   `json:"steps"`
	Coverage        StepCoverage     `json:"coverage"`
	StepComparisons []StepComparison `json:"stepComparisons"`
}

// ComparisonStatus distinguishes "caller did not ask", "asked but could not
// be produced" and "produced" instead of conflating them into one nil.
type ComparisonStatus string

const (
	ComparisonNotRequested ComparisonStatus = "not_requested"
	ComparisonUnavailable  ComparisonStatus = "unavailable"
	ComparisonPresent      ComparisonStatus = "present"
)

// ComparisonOutcome is the tagged result of the test-case comparison stage.
// Comparison is non-nil only when Status is ComparisonPresent.
type ComparisonOutcome struct {
	Status     ComparisonStatus    `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	Comparison *TestCaseComparison `json:"comparison,omitempty"`
}

// Present reports whether a comparison was produced.
func (o ComparisonOutcome) Present() bool { return o.Status == ComparisonPresent }

// RootCause is the classifier's independent take on why the test failed.
type RootCause struct {
	Category   RootCauseCategory `json:"category"`
	Confidence int               `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
	Evidence   []string          `json:"evidence,omitempty"`
}

// FailureAnalysis describes the single inferred point of failure.
type FailureAnalysis struct {
	Timestamp     time.Time       `json:"timestamp"`
	VideoOffset   *float64        `json:"videoOffsetSeconds,omitempty"`
	FailureType   FailureType     `json:"failureType"`
	ErrorMessage  string          `json:"errorMessage"`
	FailureFrames []FrameAnalysis `json:"failureFrames,omitempty"`
	RootCause     RootCause       `json:"rootCause"`
}

// Recommendation is one actionable follow-up produced for a verdict.
type Recommendation struct {
	Type        string   `json:"type"`
	Priority    string   `json:"priority"`
	Description string   `json:"description"`
	ActionItems []string `json:"actionItems"`
}

// Prediction is the final verdict with its supporting evidence.
type Prediction struct {
	Verdict           Verdict          `json:"verdict"`
	Confidence        int              `json:"confidence"`
	Reasoning         string           `json:"reasoning"`
	BugEvidence       []string         `json:"bugEvidence,omitempty"`
	TestIssueEvidence []string         `json:"testIssueEvidence,omitempty"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// VideoStep is an execution step inferred purely from the recording.
type VideoStep struct {
	Timestamp   float64 `json:"timestamp"`
	Description string  `json:"description"`
}

// StepFrameLink pairs one log step with its nearest frame. The pairing has
// no distance tolerance: if any frames exist, every log step is linked to
// some frame, however far away.
type StepFrameLink struct {
	StepSequence   int     `json:"stepSequence"`
	FrameSequence  int     `json:"frameSequence"`
	FrameTimestamp float64 `json:"frameTimestamp"`
}

// ExecutionFlow reconstructs the run: parsed log steps, steps inferred from
// the video, and the naive log-to-frame correlation.
type ExecutionFlow struct {
	LogSteps    []LogStep       `json:"logSteps"`
	VideoSteps  []VideoStep     `json:"videoSteps,omitempty"`
	Correlation []StepFrameLink `json:"correlation,omitempty"`
}

// DeepLinks collects the browsable URLs for the analyzed execution.
type DeepLinks struct {
	Video    string `json:"video,omitempty"`
	Test     string `json:"test,omitempty"`
	TestCase string `json:"testCase,omitempty"`
}

// VideoAnalysisResult is the complete report for one analysis run.
type VideoAnalysisResult struct {
	AnalysisID         string            `json:"analysisId"`
	Video              VideoMetadata     `json:"video"`
	Frames             []FrameAnalysis   `json:"frames,omitempty"`
	ExecutionFlow      ExecutionFlow     `json:"executionFlow"`
	TestCaseComparison ComparisonOutcome `json:"testCaseComparison"`
	FailureAnalysis    FailureAnalysis   `json:"failureAnalysis"`
	Prediction         Prediction        `json:"prediction"`
	Summary            string            `json:"summary"`
	Links              DeepLinks         `json:"links"`
}

// TestRecord is one test result inside a launch, as returned by the
// reporting collaborator.
type TestRecord struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	TestCaseKeys []string   `json:"testCaseKeys,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// DownloadResult reports the outcome of fetching one recording to local
// storage.
type DownloadResult struct {
	Success         bool    `json:"success"`
	LocalPath       string  `json:"localPath,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Resolution      string  `json:"resolution,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// FrameRequest is the frame extractor's input.
type FrameRequest struct {
	VideoPath            string
	DurationSeconds      float64
	Mode                 ExtractionMode
	FailureTimestamp     *float64
	FailureWindowSeconds int
	FrameInterval        float64
	IncludeOCR           bool
}
