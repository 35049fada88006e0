package analysis

import (
	"fmt"
	"strings"
)

// ParseLogSteps filters raw log entries down to recognizable test actions:
// entries of kind "log" whose message mentions an action keyword, excluding
// DEBUG and TRACE severities. Sequence numbers restart at 1.
func ParseLogSteps(entries []LogEntry) []LogStep {
	var steps []LogStep
	for _, e := range entries {
		if e.Kind != "" && e.Kind != "log" {
			continue
		}
		level := strings.ToUpper(e.Level)
		if level == "DEBUG" || level == "TRACE" {
			continue
		}
		if !ContainsActionKeyword(e.Message) {
			continue
		}
		outcome := "Success"
		if level == "ERROR" || level == "FATAL" {
			outcome = "Failed"
		}
		steps = append(steps, LogStep{
			Sequence:  len(steps) + 1,
			Timestamp: e.Timestamp,
			Action:    e.Message,
			Outcome:   outcome,
			Level:     level,
		})
	}
	return steps
}

// SelectFailureEntry picks the failure record: the first ERROR-severity
// entry, or the last entry when none is ERROR. Returns nil for an empty
// log.
func SelectFailureEntry(entries []LogEntry) *LogEntry {
	for i := range entries {
		if strings.ToUpper(entries[i].Level) == "ERROR" {
			return &entries[i]
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return &entries[len(entries)-1]
}

// ClassifyFailureType derives the broad failure class from the error text.
func ClassifyFailureType(message string) FailureType {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "nosuchelement", "element not found", "unable to locate element") ||
		(strings.Contains(lower, "element") && strings.Contains(lower, "not found")):
		return FailureElementNotFound
	case containsAny(lower, "timeout", "timed out"):
		return FailureTimeout
	case containsAny(lower, "assert", "assertion"):
		return FailureAssertion
	case containsAny(lower, "crash", "anr"):
		return FailureCrash
	case containsAny(lower, "network", "connection"):
		return FailureNetworkError
	default:
		return FailureUnknown
	}
}

// rootCauseRule maps error-text markers to an initial category guess with a
// fixed confidence. This classifier is deliberately smaller than, and
// independent from, the prediction engine: its output is one more input to
// the final scoring, not the verdict.
type rootCauseRule struct {
	markers    []string
	category   RootCauseCategory
	confidence int
	reasoning  string
}

var rootCauseRules = []rootCauseRule{
	{[]string{"crash", "anr", "fatal"}, CategoryAppBug, 75, "application crashed or stopped responding"},
	{[]string{"nullpointer", "null pointer"}, CategoryAppBug, 65, "null reference inside the application under test"},
	{[]string{"nosuchelement", "element not found", "unable to locate"}, CategoryTestIssue, 70, "automation could not locate a UI element"},
	{[]string{"stale", "detached"}, CategoryTestIssue, 65, "automation held a reference to a re-rendered element"},
	{[]string{"assert", "expected"}, CategoryTestIssue, 60, "an assertion on observed state did not hold"},
	{[]string{"timeout", "timed out"}, CategoryTestIssue, 50, "an operation exceeded its wait budget"},
	{[]string{"connection refused", "server error", "service unavailable"}, CategoryEnvironment, 70, "a backing service was unreachable"},
	{[]string{"data not found", "invalid data", "constraint"}, CategoryDataIssue, 60, "test data was missing or rejected"},
}

// ClassifyRootCause scans the error text against the rule table, first hit
// wins. Unmatched text yields an unknown category at low confidence.
func ClassifyRootCause(message string) RootCause {
	lower := strings.ToLower(message)
	for _, r := range rootCauseRules {
		marker := firstMarker(lower, r.markers)
		if marker == "" {
			continue
		}
		return RootCause{
			Category:   r.category,
			Confidence: r.confidence,
			Reasoning:  r.reasoning,
			Evidence:   []string{fmt.Sprintf("error text contains %q", marker)},
		}
	}
	return RootCause{
		Category:   CategoryUnknown,
		Confidence: 30,
		Reasoning:  "no recognizable failure marker in the error text",
	}
}

// FailureProximateFrames returns the frames within windowSeconds of the
// failure offset, preserving order. A nil offset returns no frames.
func FailureProximateFrames(frames []FrameAnalysis, offset *float64, windowSeconds float64) []FrameAnalysis {
	if offset == nil {
		return nil
	}
	var near []FrameAnalysis
	for _, f := range frames {
		d := f.Timestamp - *offset
		if d < 0 {
			d = -d
		}
		if d <= windowSeconds {
			near = append(near, f)
		}
	}
	return near
}

func containsAny(haystack string, needles ...string) bool {
	return firstMarker(haystack, needles) != ""
}

func firstMarker(haystack string, needles []string) string {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return n
		}
	}
	return ""
}
