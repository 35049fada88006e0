package analysis

import (
	"testing"
	"time"
)

func TestParseLogSteps(t *testing.T) {
	base := time.Now()
	entries := []LogEntry{
		{Timestamp: base, Level: "INFO", Message: "click login button", Kind: "log"},
		{Timestamp: base, Level: "DEBUG", Message: "click retry button", Kind: "log"},
		{Timestamp: base, Level: "TRACE", Message: "tap menu", Kind: "log"},
		{Timestamp: base, Level: "INFO", Message: "heap usage 120MB", Kind: "log"},
		{Timestamp: base, Level: "INFO", Message: "verify balance", Kind: "screenshot"},
		{Timestamp: base, Level: "ERROR", Message: "assert balance equals 100", Kind: "log"},
	}

	steps := ParseLogSteps(entries)
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2: %+v", len(steps), steps)
	}
	if steps[0].Action != "click login button" || steps[0].Outcome != "Success" {
		t.Errorf("unexpected first step: %+v", steps[0])
	}
	if steps[1].Action != "assert balance equals 100" || steps[1].Outcome != "Failed" {
		t.Errorf("unexpected second step: %+v", steps[1])
	}
	if steps[0].Sequence != 1 || steps[1].Sequence != 2 {
		t.Errorf("sequence numbers not contiguous: %+v", steps)
	}
}

func TestSelectFailureEntry(t *testing.T) {
	base := time.Now()
	entries := []LogEntry{
		{Timestamp: base, Level: "INFO", Message: "open app"},
		{Timestamp: base, Level: "ERROR", Message: "first error"},
		{Timestamp: base, Level: "ERROR", Message: "second error"},
	}
	if got := SelectFailureEntry(entries); got == nil || got.Message != "first error" {
		t.Errorf("expected first ERROR entry, got %+v", got)
	}

	noErrors := []LogEntry{
		{Timestamp: base, Level: "INFO", Message: "open app"},
		{Timestamp: base, Level: "WARN", Message: "slow response"},
	}
	if got := SelectFailureEntry(noErrors); got == nil || got.Message != "slow response" {
		t.Errorf("expected last entry, got %+v", got)
	}

	if got := SelectFailureEntry(nil); got != nil {
		t.Errorf("expected nil for empty log, got %+v", got)
	}
}

func TestClassifyFailureType(t *testing.T) {
	tests := []struct {
		message string
		want    FailureType
	}{
		{"NoSuchElementException: button #submit", FailureElementNotFound},
		{"element 'OK' not found on screen", FailureElementNotFound},
		{"operation timed out after 30s", FailureTimeout},
		{"AssertionError: expected 200 got 500", FailureAssertion},
		{"application crash detected", FailureCrash},
		{"ANR in com.example.app", FailureCrash},
		{"network unreachable", FailureNetworkError},
		{"something odd happened", FailureUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyFailureType(tt.message); got != tt.want {
			t.Errorf("ClassifyFailureType(%q) = %s, want %s", tt.message, got, tt.want)
		}
	}
}

func TestClassifyRootCause(t *testing.T) {
	tests := []struct {
		message    string
		category   RootCauseCategory
		confidence int
	}{
		{"fatal crash in renderer", CategoryAppBug, 75},
		{"NullPointerException at LoginActivity", CategoryAppBug, 65},
		{"unable to locate element", CategoryTestIssue, 70},
		{"stale element reference", CategoryTestIssue, 65},
		{"assert failed: expected visible", CategoryTestIssue, 60},
		{"connection refused by api-gateway", CategoryEnvironment, 70},
		{"constraint violation on insert", CategoryDataIssue, 60},
		{"mysterious condition", CategoryUnknown, 30},
	}
	for _, tt := range tests {
		got := ClassifyRootCause(tt.message)
		if got.Category != tt.category || got.Confidence != tt.confidence {
			t.Errorf("ClassifyRootCause(%q) = %s/%d, want %s/%d",
				tt.message, got.Category, got.Confidence, tt.category, tt.confidence)
		}
	}
}

func TestFailureProximateFrames(t *testing.T) {
	frames := []FrameAnalysis{
		{Sequence: 1, Timestamp: 1},
		{Sequence: 2, Timestamp: 28},
		{Sequence: 3, Timestamp: 33},
		{Sequence: 4, Timestamp: 55},
	}
	offset := 30.0
	got := FailureProximateFrames(frames, &offset, 5)
	if len(got) != 2 || got[0].Sequence != 2 || got[1].Sequence != 3 {
		t.Errorf("unexpected proximate frames: %+v", got)
	}
	if FailureProximateFrames(frames, nil, 5) != nil {
		t.Error("expected nil frames for nil offset")
	}
}
