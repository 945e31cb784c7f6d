package render

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Cache handling values accepted by the deploy endpoint
const (
	ClearCache   = "clear"
	DoNotClear   = "do_not_clear"
	dashboardURL = "https://dashboard.render.com/web"
)

// TriggerOptions controls a new deploy.
type TriggerOptions struct {
	// CommitID pins the deploy to a commit. Empty deploys the head of the
	// service's branch.
	CommitID string

	// ClearCache rebuilds without the build cache.
	ClearCache bool
}

type triggerRequest struct {
	CommitID   string `json:"commitId,omitempty"`
	ClearCache string `json:"clearCache"`
}

// TriggerDeploy starts a new deploy of the service.
func (c *Client) TriggerDeploy(ctx context.Context, serviceID string, opts TriggerOptions) (Deploy, error) {
	path := "/services/" + url.PathEscape(serviceID) + "/deploys"

	req := triggerRequest{
		CommitID:   opts.CommitID,
		ClearCache: DoNotClear,
	}
	if opts.ClearCache {
		req.ClearCache = ClearCache
	}

	data, err := c.do(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return Deploy{}, fmt.Errorf("trigger deploy: %w", err)
	}
	return decodeDeploy(path, data)
}

// LatestDeploy returns the most recent deploy of the service, or nil when
// the service has never been deployed.
func (c *Client) LatestDeploy(ctx context.Context, serviceID string) (*Deploy, error) {
	path := "/services/" + url.PathEscape(serviceID) + "/deploys"
	query := url.Values{"limit": {"1"}}

	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	var items []listDeployItem
	if err := decodeJSON(path, data, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	deploy := items[0].Deploy
	if err := deploy.validate(); err != nil {
		return nil, &DecodeError{Path: path, Body: string(data), Err: err}
	}
	return &deploy, nil
}

// GetDeploy fetches the current state of one deploy.
func (c *Client) GetDeploy(ctx context.Context, serviceID, deployID string) (Deploy, error) {
	path := "/services/" + url.PathEscape(serviceID) + "/deploys/" + url.PathEscape(deployID)

	data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return Deploy{}, err
	}
	return decodeDeploy(path, data)
}

func decodeDeploy(path string, data []byte) (Deploy, error) {
	var deploy Deploy
	if err := decodeJSON(path, data, &deploy); err != nil {
		return Deploy{}, err
	}
	if err := deploy.validate(); err != nil {
		return Deploy{}, &DecodeError{Path: path, Body: string(data), Err: err}
	}
	return deploy, nil
}

// DeployURL links to the deploy in the platform dashboard.
func DeployURL(service Service, deploy Deploy) string {
	base := strings.TrimRight(service.DashboardURL, "/")
	if base == "" {
		base = dashboardURL + "/" + service.ID
	}
	return base + "/deploys/" + deploy.ID
}
