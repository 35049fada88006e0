package analysis

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// frameAttachWindowMS bounds how far (in wall-clock milliseconds) a video
// timestamp may be from a matched log entry to be attached to its
// comparison row.
const frameAttachWindowMS = 5000

// TestCaseSource fetches an authored test case by key. Implementations
// return (nil, nil) when the test case does not exist.
type TestCaseSource interface {
	GetTestCaseByKey(ctx context.Context, projectKey, key string) (*TestCase, error)
}

// Comparator reconciles a recorded execution against the authored test
// case. It is stateless: every call computes a fresh comparison from its
// inputs.
type Comparator struct {
	testCases TestCaseSource
	logger    *slog.Logger
}

// NewComparator returns a Comparator reading test cases from src.
func NewComparator(src TestCaseSource, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{testCases: src, logger: logger}
}

// CompareWithTestCase fetches the authored test case and reconciles it with
// the executed steps. It returns nil, without error, when the test case
// cannot be found, has no steps, or the fetch fails: a missing comparison
// must never abort the surrounding analysis.
func (c *Comparator) CompareWithTestCase(ctx context.Context, testCaseKey, projectKey string, executed []LogStep, videoTimestamps []VideoTimestamp) *TestCaseComparison {
	tc, err := c.testCases.GetTestCaseByKey(ctx, projectKey, testCaseKey)
	if err != nil {
		c.logger.Warn("test case comparison skipped",
			"testCase", testCaseKey, "project", projectKey, "error", err)
		return nil
	}
	if tc == nil || len(tc.Steps) == 0 {
		c.logger.Warn("test case comparison skipped: no steps",
			"testCase", testCaseKey, "project", projectKey)
		return nil
	}

	steps := ParseTestCaseSteps(tc.Steps)

	comparison := &TestCaseComparison{
		TestCaseKey:     testCaseKey,
		Title:           tc.Title,
		Steps:           steps,
		Coverage:        computeCoverage(steps, executed),
		StepComparisons: compareSteps(steps, executed, videoTimestamps),
	}
	return comparison
}

// ParseTestCaseSteps turns raw authored step texts into structured steps.
// A "|" delimiter splits expected action from expected result; without one
// the whole text is the action.
func ParseTestCaseSteps(raw []string) []TestCaseStep {
	steps := make([]TestCaseStep, 0, len(raw))
	for i, text := range raw {
		step := TestCaseStep{Number: i + 1}
		if idx := strings.Index(text, "|"); idx >= 0 {
			step.Action = strings.TrimSpace(text[:idx])
			step.ExpectedResult = strings.TrimSpace(text[idx+1:])
		} else {
			step.Action = strings.TrimSpace(text)
		}
		steps = append(steps, step)
	}
	return steps
}

// computeCoverage matches each executed step against the first authored
// step (in authoring order) it correlates with. Re-matching an already
// covered authored step does not double count; executed steps matching
// nothing are recorded as extra.
func computeCoverage(steps []TestCaseStep, executed []LogStep) StepCoverage {
	covered := make(map[int]bool)
	var extra []int

	for i, ex := range executed {
		matched := false
		for _, st := range steps {
			if StepsMatch(ex.Action, st.Action) {
				covered[st.Number] = true
				matched = true
				break
			}
		}
		if !matched {
			extra = append(extra, i)
		}
	}

	// Skipped steps are recomputed by re-scanning every authored step, so
	// they stay consistent with the covered set by construction.
	var skipped []int
	for _, st := range steps {
		if !covered[st.Number] {
			skipped = append(skipped, st.Number)
		}
	}
	sort.Ints(skipped)

	cov := StepCoverage{
		TotalSteps:    len(steps),
		ExecutedSteps: len(covered),
		SkippedSteps:  skipped,
		ExtraSteps:    extra,
	}
	if cov.TotalSteps > 0 {
		pct := int(math.Round(float64(cov.ExecutedSteps) / float64(cov.TotalSteps) * 100))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		cov.Percentage = pct
	}
	return cov
}

// compareSteps builds the step-by-step report: for each authored step, the
// first executed step that matches, plus a nearby video timestamp for human
// review when one falls within the attach window.
func compareSteps(steps []TestCaseStep, executed []LogStep, videoTimestamps []VideoTimestamp) []StepComparison {
	rows := make([]StepComparison, 0, len(steps))
	for _, st := range steps {
		row := StepComparison{
			StepNumber:     st.Number,
			ExpectedAction: st.Action,
			ExpectedResult: st.ExpectedResult,
		}

		var match *LogStep
		for i := range executed {
			if StepsMatch(executed[i].Action, st.Action) {
				match = &executed[i]
				break
			}
		}

		if match == nil {
			row.ActualExecution = "not executed"
			row.Deviation = "Step not found in execution logs"
			rows = append(rows, row)
			continue
		}

		row.Matched = true
		row.ActualExecution = match.Action
		logMS := match.Timestamp.UnixMilli()
		for _, vt := range videoTimestamps {
			if absInt64(vt.TimestampMS-logMS) <= frameAttachWindowMS {
				ts := vt.TimestampMS
				row.FrameTimestampMS = &ts
				break
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
