package zebrunner

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetTestRuns returns one page of tests belonging to a launch.
func (c *Client) GetTestRuns(ctx context.Context, runID, projectID, page, pageSize int) (*PagedTests, error) {
	params := url.Values{}
	params.Set("projectId", strconv.Itoa(projectID))
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	u := fmt.Sprintf("%s/api/reporting/v1/test-runs/%d/tests?%s", c.baseURL, runID, params.Encode())

	var paged PagedTests
	if err := c.doJSON(ctx, "GET", u, "list launch tests", nil, &paged); err != nil {
		return nil, err
	}
	return &paged, nil
}

// GetTestSessions returns the recorded sessions of one test in a launch.
func (c *Client) GetTestSessions(ctx context.Context, runID, testID, projectID int) ([]TestSessionResource, error) {
	params := url.Values{}
	params.Set("projectId", strconv.Itoa(projectID))
	params.Set("testId", strconv.Itoa(testID))
	u := fmt.Sprintf("%s/api/reporting/v1/test-runs/%d/test-sessions?%s", c.baseURL, runID, params.Encode())

	var paged PagedSessions
	if err := c.doJSON(ctx, "GET", u, "list test sessions", nil, &paged); err != nil {
		return nil, err
	}
	return paged.Items, nil
}

// GetVideoFromTestSessions returns the first session of the test that
// carries a video artifact, or nil when none does.
func (c *Client) GetVideoFromTestSessions(ctx context.Context, testID, runID, projectID int) (*TestSessionResource, error) {
	sessions, err := c.GetTestSessions(ctx, runID, testID, projectID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].VideoURL() != "" {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

// GetTestLogsAndScreenshots returns log lines and screenshot references of
// one test, auto-paginating up to maxItems.
func (c *Client) GetTestLogsAndScreenshots(ctx context.Context, runID, testID, maxItems int) ([]LogItemResource, error) {
	var all []LogItemResource
	page := 1
	pageSize := maxItems
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}

	for {
		params := url.Values{}
		params.Set("testId", strconv.Itoa(testID))
		params.Set("page", strconv.Itoa(page))
		params.Set("pageSize", strconv.Itoa(pageSize))
		u := fmt.Sprintf("%s/api/reporting/v1/test-runs/%d/logs?%s", c.baseURL, runID, params.Encode())

		var paged PagedLogItems
		if err := c.doJSON(ctx, "GET", u, "list test logs", nil, &paged); err != nil {
			return nil, err
		}
		all = append(all, paged.Items...)

		if maxItems > 0 && len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if paged.Meta.NextPage == 0 || len(paged.Items) == 0 {
			return all, nil
		}
		page = paged.Meta.NextPage
	}
}

// GetProjectID resolves a project key to its numeric ID.
func (c *Client) GetProjectID(ctx context.Context, key string) (int, error) {
	u := fmt.Sprintf("%s/api/projects/v1/projects/key:%s", c.baseURL, url.PathEscape(key))

	var env dataEnvelope[ProjectResource]
	if err := c.doJSON(ctx, "GET", u, "get project by key", nil, &env); err != nil {
		return 0, err
	}
	return env.Data.ID, nil
}

// GetProjectKey resolves a numeric project ID to its key.
func (c *Client) GetProjectKey(ctx context.Context, id int) (string, error) {
	u := fmt.Sprintf("%s/api/projects/v1/projects/%d", c.baseURL, id)

	var env dataEnvelope[ProjectResource]
	if err := c.doJSON(ctx, "GET", u, "get project by id", nil, &env); err != nil {
		return "", err
	}
	return env.Data.Key, nil
}
