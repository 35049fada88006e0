package zebrunner

import (
	"context"
	"fmt"
	"net/url"
)

// GetTestCaseByKey fetches an authored TCM test case. A missing test case
// is not an error: the method returns (nil, nil) on HTTP 404 so callers can
// degrade gracefully.
func (c *Client) GetTestCaseByKey(ctx context.Context, projectKey, key string) (*TestCaseResource, error) {
	params := url.Values{}
	params.Set("projectKey", projectKey)
	u := fmt.Sprintf("%s/api/tcm/v1/test-cases/key:%s?%s", c.baseURL, url.PathEscape(key), params.Encode())

	var env dataEnvelope[TestCaseResource]
	if err := c.doJSON(ctx, "GET", u, "get test case by key", nil, &env); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &env.Data, nil
}
