package analysis

// recommendationsFor produces the verdict-keyed follow-up actions. The bug
// and test-update verdicts add a lower-priority cross-check when the
// opposing evidence list is non-empty.
func recommendationsFor(p Prediction) []Recommendation {
	switch p.Verdict {
	case VerdictBug:
		recs := []Recommendation{{
			Type:        "file_bug_report",
			Priority:    "high",
			Description: "The failure looks like a defect in the application under test.",
			ActionItems: []string{
				"File a bug with the failure-proximate frames and the error message attached",
				"Link the recording deep link so developers can replay the failure",
				"Re-run the test against the previous application build to confirm a regression",
			},
		}}
		if len(p.TestIssueEvidence) > 0 {
			recs = append(recs, Recommendation{
				Type:        "review_test_stability",
				Priority:    "medium",
				Description: "Some signals also point at the automation; rule out flakiness before assigning.",
				ActionItems: []string{
					"Re-run the test a few times to check for intermittent behavior",
					"Review waits and locators touched by this scenario",
				},
			})
		}
		return recs

	case VerdictTestNeedsUpdate:
		recs := []Recommendation{{
			Type:        "update_test_automation",
			Priority:    "high",
			Description: "The failure looks like an outdated or unstable automated test.",
			ActionItems: []string{
				"Update locators and expected values to match the current application",
				"Replace fixed sleeps with explicit waits around the failing step",
				"Re-record or re-baseline the affected test-case steps",
			},
		}}
		if len(p.BugEvidence) > 0 {
			recs = append(recs, Recommendation{
				Type:        "verify_application_behavior",
				Priority:    "medium",
				Description: "Some signals also point at the application; verify manually before closing.",
				ActionItems: []string{
					"Walk the authored steps manually on the same platform",
					"Check application logs around the failure timestamp",
				},
			})
		}
		return recs

	case VerdictInfrastructure:
		return []Recommendation{{
			Type:        "check_infrastructure",
			Priority:    "high",
			Description: "The failure originates in the test environment, not the application or the test.",
			ActionItems: []string{
				"Check availability of the backing services and the device/browser farm",
				"Re-run the test once the environment is healthy",
			},
		}}

	case VerdictDataIssue:
		return []Recommendation{{
			Type:        "fix_test_data",
			Priority:    "high",
			Description: "The failure points at missing or invalid test data.",
			ActionItems: []string{
				"Verify the fixtures and seeded records this test depends on",
				"Re-provision the test data set and re-run",
			},
		}}

	default:
		return []Recommendation{{
			Type:        "manual_investigation",
			Priority:    "medium",
			Description: "The signals are too balanced for an automatic verdict.",
			ActionItems: []string{
				"Review the failure-proximate frames and the step comparison by hand",
				"Re-run the test to gather a second data point",
			},
		}}
	}
}
