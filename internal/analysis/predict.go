package analysis

import (
	"fmt"
	"math"
	"strings"
)

// scoreTarget says which running total a contribution feeds.
type scoreTarget int

const (
	targetBug scoreTarget = iota
	targetTest
)

// contribution is one additive scoring signal with its human-readable
// justification.
type contribution struct {
	target   scoreTarget
	delta    float64
	evidence string
}

// predictionContext is everything the scoring rules may look at. Rules are
// pure functions of this context, so the engine is deterministic and each
// rule is testable in isolation.
type predictionContext struct {
	failure    FailureAnalysis
	comparison *TestCaseComparison
	frames     []FrameAnalysis
	logsText   string
}

// failureText returns the lowercased combination of failure type and error
// message that keyword rules scan.
func (pc predictionContext) failureText() string {
	return strings.ToLower(string(pc.failure.FailureType) + " " + pc.failure.ErrorMessage)
}

type scoreRule func(predictionContext) []contribution

// keywordRule fires a single fixed-weight contribution when the failure
// text contains any of the markers.
func keywordRule(target scoreTarget, delta float64, evidence string, markers ...string) scoreRule {
	return func(pc predictionContext) []contribution {
		if !containsAny(pc.failureText(), markers...) {
			return nil
		}
		return []contribution{{target: target, delta: delta, evidence: evidence}}
	}
}

// scoreRules is the full additive model. Order carries no semantic weight:
// contributions are summed.
var scoreRules = []scoreRule{
	// Failure-type / message keywords.
	keywordRule(targetBug, 30, "failure indicates an application crash, ANR or freeze", "crash", "anr", "freeze"),
	keywordRule(targetBug, 25, "null-pointer failure inside the application", "nullpointer", "null pointer"),
	keywordRule(targetBug, 20, "array or index error inside the application", "array index", "indexoutofbound", "index out of"),
	keywordRule(targetBug, 15, "network or timeout failure may indicate a backend problem", "network", "timeout", "timed out"),
	keywordRule(targetBug, 15, "database or SQL error inside the application", "database", "sql"),
	keywordRule(targetTest, 25, "automation could not find a UI element", "nosuchelement", "element not found", "elementnotfound", "unable to locate"),
	keywordRule(targetTest, 20, "wait or timeout failure suggests unstable synchronization in the test", "wait", "timeout", "timed out"),
	keywordRule(targetTest, 15, "assertion mismatch suggests outdated expectations in the test", "assert", "expected"),
	keywordRule(targetTest, 20, "stale or detached element reference in the automation", "stale", "detached"),

	comparisonRule,
	frameAnomalyRule,
	classifierRule,
}

// comparisonRule converts coverage shortfalls and deviations into
// test-issue signals. Without a comparison it contributes nothing.
func comparisonRule(pc predictionContext) []contribution {
	cmp := pc.comparison
	if cmp == nil {
		return nil
	}
	var out []contribution
	if cmp.Coverage.Percentage < 50 {
		out = append(out, contribution{targetTest, 20,
			fmt.Sprintf("only %d%% of authored steps were executed", cmp.Coverage.Percentage)})
	}
	if len(cmp.Coverage.SkippedSteps) > 0 {
		out = append(out, contribution{targetTest, 10,
			fmt.Sprintf("%d authored steps were never executed", len(cmp.Coverage.SkippedSteps))})
	}
	if len(cmp.Coverage.ExtraSteps) > 3 {
		out = append(out, contribution{targetTest, 15,
			fmt.Sprintf("%d executed actions match no authored step", len(cmp.Coverage.ExtraSteps))})
	}
	for _, row := range cmp.StepComparisons {
		if row.Deviation != "" {
			out = append(out, contribution{targetTest, 10,
				"execution deviates from the authored step sequence"})
			break
		}
	}
	return out
}

// frameAnomalyRule inspects visual anomaly tags on the sampled frames.
func frameAnomalyRule(pc predictionContext) []contribution {
	var out []contribution
	if frameWithAnomaly(pc.frames, "error dialog", "crash screen") {
		out = append(out, contribution{targetBug, 20,
			"a frame shows an error dialog or crash screen"})
	}
	if frameWithAnomaly(pc.frames, "wrong screen", "unexpected") {
		out = append(out, contribution{targetTest, 15,
			"a frame shows an unexpected screen for this point of the flow"})
	}
	return out
}

// classifierRule forwards the upstream classifier's opinion at reduced
// weight (confidence * 0.3) into the matching total.
func classifierRule(pc predictionContext) []contribution {
	rc := pc.failure.RootCause
	delta := float64(rc.Confidence) * 0.3
	switch rc.Category {
	case CategoryAppBug:
		return []contribution{{targetBug, delta,
			fmt.Sprintf("initial classification: %s (%d%% confidence)", rc.Reasoning, rc.Confidence)}}
	case CategoryTestIssue:
		return []contribution{{targetTest, delta,
			fmt.Sprintf("initial classification: %s (%d%% confidence)", rc.Reasoning, rc.Confidence)}}
	}
	return nil
}

func frameWithAnomaly(frames []FrameAnalysis, markers ...string) bool {
	for _, f := range frames {
		for _, a := range f.Anomalies {
			if containsAny(strings.ToLower(a), markers...) {
				return true
			}
		}
	}
	return false
}

// foldScores runs every rule and folds the contributions into the two
// running totals and their evidence lists.
func foldScores(pc predictionContext) (bugScore, testScore float64, bugEvidence, testEvidence []string) {
	for _, rule := range scoreRules {
		for _, c := range rule(pc) {
			switch c.target {
			case targetBug:
				bugScore += c.delta
				bugEvidence = append(bugEvidence, c.evidence)
			case targetTest:
				testScore += c.delta
				testEvidence = append(testEvidence, c.evidence)
			}
		}
	}
	return bugScore, testScore, bugEvidence, testEvidence
}

// Verdict selection thresholds.
const (
	unclearScoreGap = 10 // closer than this and neither side wins
	verdictFloor    = 30 // the winning score must exceed this
)

// selectVerdict applies the fixed priority order: infrastructure markers,
// then data markers, then the score comparison with its gap and floor.
func selectVerdict(bugScore, testScore float64, failureText string) Verdict {
	lower := strings.ToLower(failureText)
	if containsAny(lower, "connection refused", "server error", "infrastructure") {
		return VerdictInfrastructure
	}
	if containsAny(lower, "invalid data", "data not found", "constraint violation") {
		return VerdictDataIssue
	}
	diff := bugScore - testScore
	if diff < 0 {
		diff = -diff
	}
	if diff < unclearScoreGap {
		return VerdictUnclear
	}
	if bugScore > testScore && bugScore > verdictFloor {
		return VerdictBug
	}
	if testScore > bugScore && testScore > verdictFloor {
		return VerdictTestNeedsUpdate
	}
	return VerdictUnclear
}

// scoreConfidence maps the two totals to a 0-100 confidence. With no signal
// at all the engine is maximally undecided.
func scoreConfidence(bugScore, testScore float64) int {
	total := bugScore + testScore
	if total == 0 {
		return 50
	}
	return int(math.Round(math.Max(bugScore, testScore) / total * 100))
}

// PredictIssueType aggregates the classifier output, the optional test-case
// comparison and the visual evidence into the final verdict. It is a pure
// function: identical inputs produce identical predictions, and it never
// fails.
func PredictIssueType(failure FailureAnalysis, comparison *TestCaseComparison, frames []FrameAnalysis, logsText string) Prediction {
	pc := predictionContext{
		failure:    failure,
		comparison: comparison,
		frames:     frames,
		logsText:   logsText,
	}

	bugScore, testScore, bugEvidence, testEvidence := foldScores(pc)
	verdict := selectVerdict(bugScore, testScore, pc.failureText())
	confidence := scoreConfidence(bugScore, testScore)

	p := Prediction{
		Verdict:           verdict,
		Confidence:        confidence,
		Reasoning:         reasoningFor(verdict, bugScore, testScore, failure),
		BugEvidence:       bugEvidence,
		TestIssueEvidence: testEvidence,
	}
	p.Recommendations = recommendationsFor(p)
	return p
}

func reasoningFor(verdict Verdict, bugScore, testScore float64, failure FailureAnalysis) string {
	base := fmt.Sprintf("failure type %s; application-bug signals scored %.0f, test-defect signals scored %.0f",
		failure.FailureType, bugScore, testScore)
	switch verdict {
	case VerdictBug:
		return "Evidence points to a defect in the application under test: " + base + "."
	case VerdictTestNeedsUpdate:
		return "Evidence points to a defect in the test automation itself: " + base + "."
	case VerdictInfrastructure:
		return "The error text names an infrastructure-level failure, which overrides the score comparison: " + base + "."
	case VerdictDataIssue:
		return "The error text names a test-data problem, which overrides the score comparison: " + base + "."
	default:
		return "The signals are too weak or too balanced to call a side: " + base + "."
	}
}
