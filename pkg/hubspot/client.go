// pkg/hubspot/client.go
package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quotaview/crm-ingress/pkg/config"
)

// Client is a thin wrapper over the CRM REST API. It paces requests with a
// client-side limiter and returns *APIError for every non-2xx response so
// callers can classify failures. Retry policy lives with the callers, not
// here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a CRM API client from configuration.
func NewClient(cfg *config.HubSpotConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger.Named("hubspot"),
	}
}

// get performs a single paced GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response for %s: %w", path, err)
	}

	c.logger.Debug("api request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodGet,
			Path:       path,
			Body:       truncateBody(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response for %s: %w", path, err)
	}
	return nil
}

// ListPage fetches one page of CRM objects of the given type. A non-empty
// after resumes a previous listing; properties names which property values
// to include on each record.
func (c *Client) ListPage(ctx context.Context, objectType string, properties []string, limit int, after string) (*ObjectPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if len(properties) > 0 {
		query.Set("properties", strings.Join(properties, ","))
	}
	if after != "" {
		query.Set("after", after)
	}

	var page ObjectPage
	if err := c.get(ctx, "/crm/v3/objects/"+objectType, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetByID fetches a single CRM object with the requested properties.
func (c *Client) GetByID(ctx context.Context, objectType, id string, properties []string) (*Object, error) {
	query := url.Values{}
	if len(properties) > 0 {
		query.Set("properties", strings.Join(properties, ","))
	}

	var obj Object
	if err := c.get(ctx, "/crm/v3/objects/"+objectType+"/"+id, query, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// ListAssociations fetches the objects of toType associated with the given
// record. The API caps a single association page at 500 edges, which is far
// beyond what snapshot records carry, so no pagination is attempted.
func (c *Client) ListAssociations(ctx context.Context, fromType, id, toType string) (*AssociationPage, error) {
	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/%s", fromType, id, toType)

	var page AssociationPage
	if err := c.get(ctx, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListPipelines fetches every pipeline defined for the object type, with
// stages included inline.
func (c *Client) ListPipelines(ctx context.Context, objectType string) (*PipelineList, error) {
	var list PipelineList
	if err := c.get(ctx, "/crm/v3/pipelines/"+objectType, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListOwners fetches one page of owners. Archived selects the deactivated
// owner listing, which is a separate partition of the same endpoint.
func (c *Client) ListOwners(ctx context.Context, after string, archived bool) (*OwnerPage, error) {
	query := url.Values{}
	query.Set("limit", "100")
	if after != "" {
		query.Set("after", after)
	}
	if archived {
		query.Set("archived", "true")
	}

	var page OwnerPage
	if err := c.get(ctx, "/crm/v3/owners", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListProperties fetches every property definition for the object type.
func (c *Client) ListProperties(ctx context.Context, objectType string) (*PropertyList, error) {
	var list PropertyList
	if err := c.get(ctx, "/crm/v3/properties/"+objectType, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// truncateBody keeps error payloads short enough for logs.
func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
