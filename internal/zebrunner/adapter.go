package zebrunner

import (
	"context"
	"time"

	"github.com/maksimsarychau/mcp-zebrunner/internal/analysis"
)

// Adapter exposes the client through the analysis pipeline's collaborator
// interfaces, mapping API resources onto the pipeline's own types.
type Adapter struct {
	client *Client
}

// NewAdapter wraps a client for use by the analysis pipeline.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

var (
	_ analysis.ReportingService = (*Adapter)(nil)
	_ analysis.TestCaseSource   = (*Adapter)(nil)
)

// GetTestRuns implements analysis.ReportingService.
func (a *Adapter) GetTestRuns(ctx context.Context, runID, projectID, page, pageSize int) ([]analysis.TestRecord, error) {
	paged, err := a.client.GetTestRuns(ctx, runID, projectID, page, pageSize)
	if err != nil {
		return nil, err
	}
	records := make([]analysis.TestRecord, 0, len(paged.Items))
	for _, t := range paged.Items {
		records = append(records, analysis.TestRecord{
			ID:           t.ID,
			Name:         t.Name,
			Status:       t.Status,
			TestCaseKeys: t.TestCaseKeys,
			StartedAt:    epochToTime(t.StartedAt),
			FinishedAt:   epochToTime(t.FinishedAt),
		})
	}
	return records, nil
}

// GetVideoFromTestSessions implements analysis.ReportingService.
func (a *Adapter) GetVideoFromTestSessions(ctx context.Context, testID, runID, projectID int) (*analysis.TestSessionVideo, error) {
	session, err := a.client.GetVideoFromTestSessions(ctx, testID, runID, projectID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return &analysis.TestSessionVideo{
		SessionID:    session.SessionID,
		VideoURL:     session.VideoURL(),
		ProjectID:    projectID,
		StartedAt:    epochToTime(session.StartedAt),
		EndedAt:      epochToTime(session.EndedAt),
		PlatformName: session.PlatformName,
		DeviceName:   session.DeviceName,
		Status:       session.Status,
	}, nil
}

// GetTestLogs implements analysis.ReportingService.
func (a *Adapter) GetTestLogs(ctx context.Context, runID, testID, maxPageSize int) ([]analysis.LogEntry, error) {
	items, err := a.client.GetTestLogsAndScreenshots(ctx, runID, testID, maxPageSize)
	if err != nil {
		return nil, err
	}
	entries := make([]analysis.LogEntry, 0, len(items))
	for _, it := range items {
		entry := analysis.LogEntry{
			Level:   it.Level,
			Message: it.Message,
			Kind:    it.Kind,
		}
		if it.Timestamp != nil {
			entry.Timestamp = it.Timestamp.Time()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetProjectID implements analysis.ReportingService.
func (a *Adapter) GetProjectID(ctx context.Context, key string) (int, error) {
	return a.client.GetProjectID(ctx, key)
}

// GetProjectKey implements analysis.ReportingService.
func (a *Adapter) GetProjectKey(ctx context.Context, id int) (string, error) {
	return a.client.GetProjectKey(ctx, id)
}

// BaseURL implements analysis.ReportingService.
func (a *Adapter) BaseURL() string { return a.client.BaseURL() }

// GetTestCaseByKey implements analysis.TestCaseSource.
func (a *Adapter) GetTestCaseByKey(ctx context.Context, projectKey, key string) (*analysis.TestCase, error) {
	tc, err := a.client.GetTestCaseByKey(ctx, projectKey, key)
	if err != nil {
		return nil, err
	}
	if tc == nil {
		return nil, nil
	}
	steps := make([]string, 0, len(tc.Steps))
	for _, s := range tc.Steps {
		steps = append(steps, s.Text)
	}
	return &analysis.TestCase{
		Key:   tc.Key,
		Title: tc.Title,
		Steps: steps,
	}, nil
}

func epochToTime(e *EpochMillis) *time.Time {
	if e == nil {
		return nil
	}
	t := e.Time()
	return &t
}
